package retrieval

import (
	"sort"

	"brookside/internal/candidate"
	"brookside/internal/doctrine"
	"brookside/internal/feature"
	"brookside/internal/regime"
)

// RouterConfig 集中检索路由阈值。
type RouterConfig struct {
	LowConfidenceThreshold float64 // 低于该置信度 → 扩大上下文而不是硬猜
	ConflictThreshold      float64 // 反转结构冲突信号门槛
	TopKPerQuery           int
	NeighborN              int
	WideNeighborN          int
	FinalK                 int
	WideFinalK             int
	TokenBudget            int
}

// Router 把 regime + 置信度映射为检索计划。
type Router struct {
	cfg  RouterConfig
	docs *doctrine.Store
}

func NewRouter(cfg RouterConfig, docs *doctrine.Store) *Router {
	return &Router{cfg: cfg, docs: docs}
}

// BuildPlan 生成检索计划。
// 世界观/心理/特征词汇表三份 system 文档无条件带上；regime 文档按书目挑选。
// 低置信度或冲突信号强时取前两本书并加深邻居扩展——不确定性靠加宽上下文化解。
func (r *Router) BuildPlan(snap *feature.Snapshot, res regime.Result, pos candidate.PositionState) Plan {
	conflict := conflictSignal(snap)
	books := r.pickBooks(res, conflict)
	widened := len(books) > 1

	plan := Plan{
		Books:       books,
		KPerBook:    map[string]int{},
		NeighborN:   r.cfg.NeighborN,
		FinalK:      r.cfg.FinalK,
		TokenBudget: r.cfg.TokenBudget,
		Widened:     widened,
	}
	if widened {
		plan.NeighborN = r.cfg.WideNeighborN
		plan.FinalK = r.cfg.WideFinalK
	}
	for _, b := range books {
		plan.KPerBook[b] = r.cfg.TopKPerQuery
	}

	for _, d := range r.docs.AlwaysSet() {
		plan.DoctrineIDs = append(plan.DoctrineIDs, d.ID)
	}
	for _, d := range r.docs.ForBooks(books) {
		plan.DoctrineIDs = append(plan.DoctrineIDs, d.ID)
	}

	// 每类意图各给一条基准查询；持仓时才需要管理类检索
	plan.Queries = []Query{
		{Intent: IntentPattern, Topic: "structure", Text: patternQuery(snap), TriggerScore: 1},
		{Intent: IntentRegime, Topic: "regime", Text: regimeQuery(snap, res), TriggerScore: 1},
	}
	if pos.HasOpenPosition {
		plan.Queries = append(plan.Queries, Query{
			Intent:       IntentManagement,
			Topic:        "open_position",
			Text:         managementQuery(pos),
			Section:      ManagementSection,
			TriggerScore: 1,
		})
		// 管理规则集中在 RANGE 书的交易管理章节
		if !contains(plan.Books, "RANGE") {
			plan.Books = append(plan.Books, "RANGE")
			plan.KPerBook["RANGE"] = r.cfg.TopKPerQuery
		}
	}
	return plan
}

// pickBooks 选择主书；置信度低或冲突强时取前两本，冲突强时确保 REVERSAL 在列。
func (r *Router) pickBooks(res regime.Result, conflict float64) []string {
	type scored struct {
		book  string
		score float64
	}
	ranked := []scored{
		{"TREND", res.TrendScore},
		{"RANGE", res.RangeScore},
		{"REVERSAL", res.ReversalScore},
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	clearCase := res.Label != regime.Ambiguous &&
		res.Confidence >= r.cfg.LowConfidenceThreshold &&
		conflict < r.cfg.ConflictThreshold
	if clearCase {
		if b := res.Label.Book(); b != "" {
			return []string{b}
		}
	}
	books := []string{ranked[0].book, ranked[1].book}
	if conflict >= r.cfg.ConflictThreshold && !contains(books, "REVERSAL") {
		books[1] = "REVERSAL"
	}
	return books
}

// conflictSignal: 趋势里冒出的强反转结构（双顶/双底/终结旗形/climax）。
func conflictSignal(snap *feature.Snapshot) float64 {
	vals := []float64{
		snap.Swing.DoubleTopScore,
		snap.Swing.DoubleBotScore,
		snap.Reversal.FinalFlagScore,
		snap.Reversal.ClimaxRunupScore,
	}
	max := 0.0
	for _, v := range vals {
		if v > max {
			max = v
		}
	}
	return max
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
