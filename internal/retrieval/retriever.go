package retrieval

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"brookside/internal/logger"
)

// Retriever 执行检索计划：并发查询、去重、邻居扩展、预算裁剪、定序。
type Retriever struct {
	index        VectorIndex
	queryTimeout time.Duration
}

// RetrieveResult 是计划执行的产物。
// Degraded 表示索引整体不可达，调用方应退化为仅心法上下文。
type RetrieveResult struct {
	Chunks     []RetrievedChunk
	Degraded   bool
	TokensUsed int
}

func NewRetriever(index VectorIndex, queryTimeout time.Duration) *Retriever {
	if queryTimeout <= 0 {
		queryTimeout = 3 * time.Second
	}
	return &Retriever{index: index, queryTimeout: queryTimeout}
}

// Retrieve 执行计划。单条查询超时只丢该查询的结果；
// 所有查询全部失败才算索引不可达（Degraded）。
func (r *Retriever) Retrieve(ctx context.Context, plan Plan) RetrieveResult {
	type hit struct {
		chunks []ScoredChunk
		ok     bool
	}

	jobs := len(plan.Queries) * len(plan.Books)
	results := make([]hit, jobs)

	g, gctx := errgroup.WithContext(ctx)
	slot := 0
	for _, q := range plan.Queries {
		for _, book := range plan.Books {
			q, book, idx := q, book, slot
			slot++
			topK := plan.KPerBook[book]
			g.Go(func() error {
				qctx, cancel := context.WithTimeout(gctx, r.queryTimeout)
				defer cancel()
				chunks, err := r.index.Search(qctx, q.Text, topK, Filter{Book: book, Section: q.Section})
				if err != nil {
					logger.Warnf("检索查询失败 book=%s topic=%s: %v", book, q.Topic, err)
					return nil
				}
				results[idx] = hit{chunks: chunks, ok: true}
				return nil
			})
		}
	}
	_ = g.Wait()

	anyOK := false
	best := map[string]ScoredChunk{} // key: book + "\x00" + chunk_id，保留最高分
	for _, h := range results {
		if !h.ok {
			continue
		}
		anyOK = true
		for _, sc := range h.chunks {
			key := sc.Book + "\x00" + sc.ChunkID
			if prev, seen := best[key]; !seen || sc.Score > prev.Score {
				best[key] = sc
			}
		}
	}
	if !anyOK && jobs > 0 {
		return RetrieveResult{Degraded: true}
	}

	ranked := make([]ScoredChunk, 0, len(best))
	for _, sc := range best {
		ranked = append(ranked, sc)
	}
	// 相关性降序，同分按 (book, seq) 升序保证可复现
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].Book != ranked[j].Book {
			return ranked[i].Book < ranked[j].Book
		}
		return ranked[i].Seq < ranked[j].Seq
	})
	if len(ranked) > plan.FinalK {
		ranked = ranked[:plan.FinalK]
	}

	kept, used := r.budgeted(ctx, plan, ranked)
	orderByBook(kept)
	return RetrieveResult{Chunks: kept, TokensUsed: used}
}

// budgeted 按相关性降序贪心吃预算：命中本体先入，剩余预算再逐个补 ±N 邻居。
// 单个邻居放不下只丢该邻居，不拖累命中本体；命中本体放不下才跳过整组。
func (r *Retriever) budgeted(ctx context.Context, plan Plan, ranked []ScoredChunk) ([]RetrievedChunk, int) {
	var kept []RetrievedChunk
	taken := map[string]bool{}
	used := 0

	for _, sc := range ranked {
		selfKey := sc.Book + "\x00" + sc.ChunkID
		if !taken[selfKey] && used+sc.NTokens > plan.TokenBudget {
			continue
		}
		for _, rc := range r.expand(ctx, plan.NeighborN, sc) {
			key := rc.Book + "\x00" + rc.ChunkID
			if taken[key] || used+rc.NTokens > plan.TokenBudget {
				continue
			}
			taken[key] = true
			used += rc.NTokens
			kept = append(kept, rc)
		}
	}
	return kept, used
}

// expand 返回命中 chunk 及其同书 seq 邻居。邻居取不到时退化为仅命中本身。
func (r *Retriever) expand(ctx context.Context, n int, sc ScoredChunk) []RetrievedChunk {
	self := RetrievedChunk{Chunk: sc.Chunk, Score: sc.Score}
	if n <= 0 {
		return []RetrievedChunk{self}
	}
	nctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()
	neighbors, err := r.index.Neighbors(nctx, sc.Book, sc.Seq, n)
	if err != nil {
		logger.Warnf("邻居扩展失败 book=%s seq=%d: %v", sc.Book, sc.Seq, err)
		return []RetrievedChunk{self}
	}
	group := make([]RetrievedChunk, 0, len(neighbors))
	found := false
	for _, c := range neighbors {
		if c.ChunkID == sc.ChunkID {
			group = append(group, self)
			found = true
			continue
		}
		group = append(group, RetrievedChunk{Chunk: c, NeighborOf: sc.ChunkID})
	}
	if !found {
		group = append(group, self)
	}
	return group
}

// orderByBook 把结果按书分组：相关性质量高的书在前，书内按 seq 升序。
// 读者按原文顺序读到连续段落，而不是按打分跳读。
func orderByBook(chunks []RetrievedChunk) {
	mass := map[string]float64{}
	for _, rc := range chunks {
		mass[rc.Book] += rc.Score
	}
	sort.SliceStable(chunks, func(i, j int) bool {
		a, b := chunks[i], chunks[j]
		if a.Book != b.Book {
			if mass[a.Book] != mass[b.Book] {
				return mass[a.Book] > mass[b.Book]
			}
			return a.Book < b.Book
		}
		return a.Seq < b.Seq
	})
}
