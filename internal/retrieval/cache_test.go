package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingIndex 记录下层真实调用次数，验证缓存命中。
type countingIndex struct {
	fakeIndex
	searches  int
	neighbors int
}

func (c *countingIndex) Search(ctx context.Context, q string, topK int, f Filter) ([]ScoredChunk, error) {
	c.searches++
	return c.fakeIndex.Search(ctx, q, topK, f)
}

func (c *countingIndex) Neighbors(ctx context.Context, book string, seq, n int) ([]Chunk, error) {
	c.neighbors++
	return c.fakeIndex.Neighbors(ctx, book, seq, n)
}

func cachedSetup(t *testing.T, inner VectorIndex) *CachedIndex {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewCachedIndex(inner, rdb, time.Minute)
}

func TestCachedIndexSearchHit(t *testing.T) {
	inner := &countingIndex{fakeIndex: fakeIndex{byBook: map[string][]ScoredChunk{
		"TREND": {chunk("TREND", "c1", 1, 50, 0.9)},
	}}}
	ci := cachedSetup(t, inner)
	ctx := context.Background()

	first, err := ci.Search(ctx, "q", 6, Filter{Book: "TREND"})
	require.NoError(t, err)
	second, err := ci.Search(ctx, "q", 6, Filter{Book: "TREND"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.searches) // 第二次命中缓存
}

// 不同查询参数必须各有缓存键，互不串味。
func TestCachedIndexKeyIncludesParams(t *testing.T) {
	inner := &countingIndex{fakeIndex: fakeIndex{byBook: map[string][]ScoredChunk{
		"TREND": {chunk("TREND", "c1", 1, 50, 0.9)},
		"RANGE": {chunk("RANGE", "r1", 2, 50, 0.8)},
	}}}
	ci := cachedSetup(t, inner)
	ctx := context.Background()

	trend, err := ci.Search(ctx, "q", 6, Filter{Book: "TREND"})
	require.NoError(t, err)
	rng, err := ci.Search(ctx, "q", 6, Filter{Book: "RANGE"})
	require.NoError(t, err)

	assert.NotEqual(t, trend, rng)
	assert.Equal(t, 2, inner.searches)
}

func TestCachedIndexNeighborsHit(t *testing.T) {
	inner := &countingIndex{}
	ci := cachedSetup(t, inner)
	ctx := context.Background()

	first, err := ci.Neighbors(ctx, "TREND", 10, 1)
	require.NoError(t, err)
	second, err := ci.Neighbors(ctx, "TREND", 10, 1)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.neighbors)
}

// Redis 故障时缓存退化为透传，不能把索引拖下水。
func TestCachedIndexSurvivesRedisOutage(t *testing.T) {
	inner := &countingIndex{fakeIndex: fakeIndex{byBook: map[string][]ScoredChunk{
		"TREND": {chunk("TREND", "c1", 1, 50, 0.9)},
	}}}
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ci := NewCachedIndex(inner, rdb, time.Minute)
	mr.Close()

	out, err := ci.Search(context.Background(), "q", 6, Filter{Book: "TREND"})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}
