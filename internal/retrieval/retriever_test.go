package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeIndex 是内存版 VectorIndex：固定返回每本书的候选集。
type fakeIndex struct {
	byBook    map[string][]ScoredChunk
	searchErr error
	nbrErr    error
	nbrTokens int // 邻居 chunk 的 token 数，0 表示 50

	mu         sync.Mutex
	lastFilter Filter
}

func (f *fakeIndex) Search(_ context.Context, _ string, topK int, flt Filter) ([]ScoredChunk, error) {
	f.mu.Lock()
	f.lastFilter = flt
	f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	out := f.byBook[flt.Book]
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (f *fakeIndex) Neighbors(_ context.Context, book string, seq, n int) ([]Chunk, error) {
	if f.nbrErr != nil {
		return nil, f.nbrErr
	}
	tokens := f.nbrTokens
	if tokens == 0 {
		tokens = 50
	}
	var out []Chunk
	for s := seq - n; s <= seq+n; s++ {
		if s < 0 {
			continue
		}
		out = append(out, Chunk{
			Book: book, ChunkID: fmt.Sprintf("%s-%d", book, s), Seq: s,
			Text: "ctx", NTokens: tokens,
		})
	}
	return out, nil
}

func chunk(book, id string, seq, tokens int, score float64) ScoredChunk {
	return ScoredChunk{
		Chunk: Chunk{Book: book, ChunkID: id, Seq: seq, Text: "t", NTokens: tokens},
		Score: score,
	}
}

func basePlan(books []string, finalK, budget int) Plan {
	k := map[string]int{}
	for _, b := range books {
		k[b] = 6
	}
	return Plan{
		Books:       books,
		KPerBook:    k,
		NeighborN:   0,
		FinalK:      finalK,
		TokenBudget: budget,
		Queries: []Query{
			{Intent: IntentPattern, Topic: "structure", Text: "q1", TriggerScore: 1},
			{Intent: IntentRegime, Topic: "regime", Text: "q2", TriggerScore: 1},
		},
	}
}

// 同一 chunk 被多条查询命中时只保留最高分的那份。
func TestRetrieveDeduplicatesByBestScore(t *testing.T) {
	idx := &fakeIndex{byBook: map[string][]ScoredChunk{
		"TREND": {
			chunk("TREND", "c1", 10, 100, 0.9),
			chunk("TREND", "c2", 20, 100, 0.7),
		},
	}}
	r := NewRetriever(idx, time.Second)

	res := r.Retrieve(context.Background(), basePlan([]string{"TREND"}, 8, 6000))
	assert.False(t, res.Degraded)
	assert.Len(t, res.Chunks, 2)
	ids := map[string]float64{}
	for _, rc := range res.Chunks {
		ids[rc.ChunkID] = rc.Score
	}
	assert.Equal(t, 0.9, ids["c1"])
	assert.Equal(t, 0.7, ids["c2"])
}

// 100 token 的 chunk、预算 350 → 最多 3 条入选。
func TestRetrieveRespectsTokenBudget(t *testing.T) {
	idx := &fakeIndex{byBook: map[string][]ScoredChunk{
		"RANGE": {
			chunk("RANGE", "a", 1, 100, 0.9),
			chunk("RANGE", "b", 2, 100, 0.8),
			chunk("RANGE", "c", 3, 100, 0.7),
			chunk("RANGE", "d", 4, 100, 0.6),
			chunk("RANGE", "e", 5, 100, 0.5),
		},
	}}
	r := NewRetriever(idx, time.Second)

	res := r.Retrieve(context.Background(), basePlan([]string{"RANGE"}, 8, 350))
	assert.LessOrEqual(t, len(res.Chunks), 3)
	assert.LessOrEqual(t, res.TokensUsed, 350)
	// 高分优先入选
	assert.Equal(t, "a", res.Chunks[0].ChunkID)
}

// 查询带章节约束时必须原样下发给索引。
func TestRetrieveForwardsSectionFilter(t *testing.T) {
	idx := &fakeIndex{byBook: map[string][]ScoredChunk{
		"RANGE": {chunk("RANGE", "m1", 1, 100, 0.9)},
	}}
	r := NewRetriever(idx, time.Second)
	plan := basePlan([]string{"RANGE"}, 8, 6000)
	plan.Queries = []Query{{
		Intent: IntentManagement, Topic: "open_position", Text: "q",
		Section: ManagementSection, TriggerScore: 1,
	}}

	res := r.Retrieve(context.Background(), plan)
	assert.Len(t, res.Chunks, 1)
	assert.Equal(t, "RANGE", idx.lastFilter.Book)
	assert.Equal(t, ManagementSection, idx.lastFilter.Section)
}

func TestRetrieveDegradedOnIndexFailure(t *testing.T) {
	idx := &fakeIndex{searchErr: errors.New("index down")}
	r := NewRetriever(idx, 50*time.Millisecond)

	res := r.Retrieve(context.Background(), basePlan([]string{"TREND", "RANGE"}, 8, 6000))
	assert.True(t, res.Degraded)
	assert.Empty(t, res.Chunks)
}

func TestRetrieveNeighborExpansion(t *testing.T) {
	idx := &fakeIndex{byBook: map[string][]ScoredChunk{
		"TREND": {chunk("TREND", "TREND-10", 10, 50, 0.9)},
	}}
	r := NewRetriever(idx, time.Second)
	plan := basePlan([]string{"TREND"}, 8, 6000)
	plan.NeighborN = 1

	res := r.Retrieve(context.Background(), plan)
	assert.Len(t, res.Chunks, 3) // seq 9,10,11

	var neighborTagged int
	for _, rc := range res.Chunks {
		if rc.NeighborOf != "" {
			neighborTagged++
			assert.Equal(t, "TREND-10", rc.NeighborOf)
		}
	}
	assert.Equal(t, 2, neighborTagged)
	// 书内按 seq 升序
	assert.Equal(t, 9, res.Chunks[0].Seq)
	assert.Equal(t, 11, res.Chunks[2].Seq)
}

// 邻居装不下只丢邻居，命中本体仍然入选。
func TestRetrieveKeepsHitWhenNeighborsOverflowBudget(t *testing.T) {
	idx := &fakeIndex{
		byBook:    map[string][]ScoredChunk{"TREND": {chunk("TREND", "TREND-10", 10, 100, 0.9)}},
		nbrTokens: 200,
	}
	r := NewRetriever(idx, time.Second)
	plan := basePlan([]string{"TREND"}, 8, 150)
	plan.NeighborN = 1

	res := r.Retrieve(context.Background(), plan)
	assert.False(t, res.Degraded)
	assert.Len(t, res.Chunks, 1)
	assert.Equal(t, "TREND-10", res.Chunks[0].ChunkID)
	assert.Equal(t, 100, res.TokensUsed)
}

// 预算只够一个邻居时收一个，不是整组全收或全丢。
func TestRetrievePartialNeighborAdmission(t *testing.T) {
	idx := &fakeIndex{
		byBook:    map[string][]ScoredChunk{"TREND": {chunk("TREND", "TREND-10", 10, 100, 0.9)}},
		nbrTokens: 200,
	}
	r := NewRetriever(idx, time.Second)
	plan := basePlan([]string{"TREND"}, 8, 300)
	plan.NeighborN = 1

	res := r.Retrieve(context.Background(), plan)
	assert.Len(t, res.Chunks, 2)
	assert.Equal(t, 300, res.TokensUsed)
	assert.Equal(t, 9, res.Chunks[0].Seq)
	assert.Equal(t, 10, res.Chunks[1].Seq)
}

// 邻居扩展失败只影响邻居，命中本身照常保留。
func TestRetrieveNeighborFailureKeepsHit(t *testing.T) {
	idx := &fakeIndex{
		byBook: map[string][]ScoredChunk{"TREND": {chunk("TREND", "c1", 10, 50, 0.9)}},
		nbrErr: errors.New("neighbors unavailable"),
	}
	r := NewRetriever(idx, time.Second)
	plan := basePlan([]string{"TREND"}, 8, 6000)
	plan.NeighborN = 2

	res := r.Retrieve(context.Background(), plan)
	assert.False(t, res.Degraded)
	assert.Len(t, res.Chunks, 1)
	assert.Equal(t, "c1", res.Chunks[0].ChunkID)
}

// 终序：相关性总量高的书在前，书内按 seq 升序。
func TestRetrieveOrdersByBookThenSeq(t *testing.T) {
	idx := &fakeIndex{byBook: map[string][]ScoredChunk{
		"TREND": {
			chunk("TREND", "t2", 30, 50, 0.4),
			chunk("TREND", "t1", 5, 50, 0.3),
		},
		"REVERSAL": {
			chunk("REVERSAL", "r1", 12, 50, 0.95),
			chunk("REVERSAL", "r2", 3, 50, 0.9),
		},
	}}
	r := NewRetriever(idx, time.Second)

	res := r.Retrieve(context.Background(), basePlan([]string{"TREND", "REVERSAL"}, 8, 6000))
	assert.Len(t, res.Chunks, 4)
	assert.Equal(t, "REVERSAL", res.Chunks[0].Book)
	assert.Equal(t, 3, res.Chunks[0].Seq)
	assert.Equal(t, 12, res.Chunks[1].Seq)
	assert.Equal(t, "TREND", res.Chunks[2].Book)
	assert.Equal(t, 5, res.Chunks[2].Seq)
}

// 同一计划跑两遍结果必须完全一致。
func TestRetrieveDeterministic(t *testing.T) {
	idx := &fakeIndex{byBook: map[string][]ScoredChunk{
		"TREND": {
			chunk("TREND", "x", 1, 50, 0.5),
			chunk("TREND", "y", 2, 50, 0.5), // 同分，按 seq 破平
		},
	}}
	r := NewRetriever(idx, time.Second)
	plan := basePlan([]string{"TREND"}, 8, 6000)

	first := r.Retrieve(context.Background(), plan)
	second := r.Retrieve(context.Background(), plan)
	assert.Equal(t, first, second)
}
