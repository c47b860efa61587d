package retrieval

import "context"

// Chunk 是可检索的书籍文本单元。Seq 在同一本书内单调递增，
// (Book, ChunkID) 唯一，邻居扩展按 (Book, Seq) 索引查找。
type Chunk struct {
	Book      string `json:"book"`
	ChunkID   string `json:"chunk_id"`
	Seq       int    `json:"seq"`
	PageStart int    `json:"page_start"`
	PageEnd   int    `json:"page_end"`
	Section   string `json:"section,omitempty"`
	Text      string `json:"text"`
	NTokens   int    `json:"n_tokens"`
}

// ScoredChunk 附带相关性评分（越大越相关）。
type ScoredChunk struct {
	Chunk
	Score float64 `json:"score"`
}

// RetrievedChunk 是最终保留的 chunk；邻居扩展来的条目带 NeighborOf。
type RetrievedChunk struct {
	Chunk
	Score      float64 `json:"score"`
	NeighborOf string  `json:"neighbor_of,omitempty"`
}

// Filter 是检索时的元数据过滤条件。
type Filter struct {
	Book    string `json:"book,omitempty"`
	Section string `json:"section,omitempty"`
}

// VectorIndex 是外部向量索引协作方的最小能力面。
// 本核心只依赖该契约，不依赖任何具体索引实现。
type VectorIndex interface {
	// Search 按文本做最近邻检索，结果按相关性降序。
	Search(ctx context.Context, query string, topK int, f Filter) ([]ScoredChunk, error)
	// Neighbors 返回同书 seq∈[seq-n, seq+n] 的 chunk（含自身），按 seq 升序。
	Neighbors(ctx context.Context, book string, seq, n int) ([]Chunk, error)
}
