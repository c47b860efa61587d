package decisionctx

import (
	"fmt"

	"brookside/internal/candidate"
	"brookside/internal/doctrine"
	"brookside/internal/feature"
	"brookside/internal/level"
	"brookside/internal/regime"
	"brookside/internal/retrieval"
)

// CitedChunk 是进入上下文的检索段落，Citation 是稳定引用键。
// 段落只贡献文字与论据，数字一律来自快照/价位/候选。
type CitedChunk struct {
	Citation   string  `json:"citation"` // BOOK:<book>|p<start>-<end>|<chunk_id>|seq=<seq>
	Book       string  `json:"book"`
	ChunkID    string  `json:"chunk_id"`
	Seq        int     `json:"seq"`
	PageStart  int     `json:"page_start"`
	PageEnd    int     `json:"page_end"`
	Section    string  `json:"section,omitempty"`
	Score      float64 `json:"score"`
	NeighborOf string  `json:"neighbor_of,omitempty"`
	Text       string  `json:"text"`
	NTokens    int     `json:"n_tokens"`
}

// CitedDoctrine 是进入上下文的战法文档。
type CitedDoctrine struct {
	Citation     string `json:"citation"` // XINFA:<file>
	Title        string `json:"title"`
	Role         string `json:"role"`
	Regime       string `json:"regime,omitempty"`
	Text         string `json:"text"`
	ApproxTokens int    `json:"approx_tokens"`
}

// DecisionContext 是一次 bar-close 决策的终端聚合。
// 按值交付给调用方，流水线不保留引用。
// GeneratedAt 是唯一随时钟变化的字段，其余字段由输入完全决定。
type DecisionContext struct {
	TraceID       string  `json:"trace_id"`
	GeneratedAt   int64   `json:"generated_at"` // 毫秒
	SchemaVersion string  `json:"schema_version"`
	Symbol        string  `json:"symbol"`
	BarCloseTime  int64   `json:"bar_close_time"`

	Snapshot *feature.Snapshot `json:"snapshot"`
	Regime   regime.Result     `json:"regime"`

	Levels   []level.PriceLevel `json:"levels"`
	PriceCtx level.PriceContext `json:"price_context"`

	Candidates candidate.Result        `json:"candidates"`
	Account    candidate.AccountState  `json:"account"`
	Position   candidate.PositionState `json:"position"`

	Plan      retrieval.Plan  `json:"plan"`
	Doctrine  []CitedDoctrine `json:"doctrine"`
	Retrieved []CitedChunk    `json:"retrieved"`
	Citations []string        `json:"citations"` // 全部引用键索引，稳定有序

	Degraded    bool `json:"degraded"`
	TokensUsed  int  `json:"tokens_used"`
	TokenBudget int  `json:"token_budget"`
}

// ChunkCitation 生成段落引用键。
func ChunkCitation(c retrieval.Chunk) string {
	return fmt.Sprintf("BOOK:%s|p%d-%d|%s|seq=%d", c.Book, c.PageStart, c.PageEnd, c.ChunkID, c.Seq)
}

// DoctrineCitation 生成战法文档引用键（即文档 ID）。
func DoctrineCitation(d doctrine.Document) string {
	return d.ID
}
