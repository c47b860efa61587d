package retrieval

// Intent 是查询意图类别。
type Intent string

const (
	IntentPattern    Intent = "pattern"    // 当前是什么结构
	IntentRegime     Intent = "regime"     // 证据是否支持该 regime
	IntentManagement Intent = "management" // 已有持仓如何管理
)

// Query 是一条带意图与触发评分的检索查询。
// TriggerScore 用于超出查询上限时的裁剪排序。
// Section 非空时该查询只检索对应章节。
type Query struct {
	Intent       Intent  `json:"intent"`
	Topic        string  `json:"topic"`
	Text         string  `json:"text"`
	Section      string  `json:"section,omitempty"`
	TriggerScore float64 `json:"trigger_score"`
}

// ManagementSection 是交易管理规则所在的章节，management 意图强制限定到这里。
const ManagementSection = "Part V: Orders and Trade Management"

// Plan 是一次决策的完整检索计划。
type Plan struct {
	Books       []string       `json:"books"`
	KPerBook    map[string]int `json:"k_per_book"`
	NeighborN   int            `json:"neighbor_n"`
	FinalK      int            `json:"final_k"`
	TokenBudget int            `json:"token_budget"`
	Widened     bool           `json:"widened"` // 低置信度 → 扩书扩邻居
	DoctrineIDs []string       `json:"doctrine_ids"`
	Queries     []Query        `json:"queries"`
}
