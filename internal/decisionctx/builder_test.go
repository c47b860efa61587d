package decisionctx

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brookside/internal/candidate"
	"brookside/internal/doctrine"
	"brookside/internal/feature"
	"brookside/internal/level"
	"brookside/internal/regime"
	"brookside/internal/retrieval"
)

func testSnapshot() *feature.Snapshot {
	return &feature.Snapshot{
		SchemaVersion: feature.SchemaVersion,
		Meta:          feature.Meta{Symbol: "ESUSDT", Timestamp: 1700000000000, BarIndex: 59},
	}
}

func testInput(t *testing.T, docs *doctrine.Store) Input {
	t.Helper()
	var ids []string
	for _, d := range docs.AlwaysSet() {
		ids = append(ids, d.ID)
	}
	return Input{
		Snapshot: testSnapshot(),
		Regime:   regime.Result{Label: regime.TrendUp, Confidence: 0.6},
		Levels: level.Result{
			Levels:   []level.PriceLevel{{Kind: level.PriorDayHigh, Price: 105, SourceBarIndex: 3}},
			PriceCtx: level.PriceContext{CurrentPrice: 104, CurrentATR: 2},
		},
		Cands: candidate.Result{Status: candidate.StatusNoTrade},
		Plan: retrieval.Plan{
			Books:       []string{"TREND"},
			FinalK:      8,
			TokenBudget: 100000,
			DoctrineIDs: ids,
		},
		Retrieved: retrieval.RetrieveResult{
			Chunks: []retrieval.RetrievedChunk{
				{
					Chunk: retrieval.Chunk{Book: "TREND", ChunkID: "t-12", Seq: 12,
						PageStart: 80, PageEnd: 82, Text: "pullback entries", NTokens: 40},
					Score: 0.9,
				},
				{
					Chunk: retrieval.Chunk{Book: "TREND", ChunkID: "t-13", Seq: 13,
						PageStart: 82, PageEnd: 84, Text: "context", NTokens: 40},
					NeighborOf: "t-12",
				},
			},
			TokensUsed: 80,
		},
	}
}

func TestBuildCitationKeys(t *testing.T) {
	docs, err := doctrine.Load("")
	require.NoError(t, err)
	b := NewBuilder(docs)

	ctx := b.Build(testInput(t, docs))

	require.Len(t, ctx.Retrieved, 2)
	assert.Equal(t, "BOOK:TREND|p80-82|t-12|seq=12", ctx.Retrieved[0].Citation)

	bookKey := regexp.MustCompile(`^BOOK:[^|]+\|p\d+-\d+\|[^|]+\|seq=\d+$`)
	xinfaKey := regexp.MustCompile(`^XINFA:.+\.md$`)
	for _, rc := range ctx.Retrieved {
		assert.Regexp(t, bookKey, rc.Citation)
	}
	require.Len(t, ctx.Doctrine, 3)
	for _, d := range ctx.Doctrine {
		assert.Regexp(t, xinfaKey, d.Citation)
	}
	// 引用索引覆盖全部条目：战法在前、检索在后
	assert.Len(t, ctx.Citations, 5)
	assert.Regexp(t, xinfaKey, ctx.Citations[0])
	assert.Regexp(t, bookKey, ctx.Citations[4])
}

func TestBuildCarriesComputedFields(t *testing.T) {
	docs, err := doctrine.Load("")
	require.NoError(t, err)
	ctx := NewBuilder(docs).Build(testInput(t, docs))

	assert.Equal(t, "ESUSDT", ctx.Symbol)
	assert.Equal(t, int64(1700000000000), ctx.BarCloseTime)
	assert.Equal(t, regime.TrendUp, ctx.Regime.Label)
	assert.Equal(t, candidate.StatusNoTrade, ctx.Candidates.Status)
	assert.NotEmpty(t, ctx.TraceID)
	assert.False(t, ctx.Degraded)
}

// 超预算时先裁检索段落，战法文档一个不能少。
func TestBuildTrimsRetrievedBeforeDoctrine(t *testing.T) {
	docs, err := doctrine.Load("")
	require.NoError(t, err)
	in := testInput(t, docs)
	in.Plan.TokenBudget = 1 // 极端小预算

	ctx := NewBuilder(docs).Build(in)

	assert.Empty(t, ctx.Retrieved)
	assert.Len(t, ctx.Doctrine, 3)
}

// 索引故障 → 纯战法上下文，degraded=true，仍可通过 schema 校验。
func TestBuildDegradedDoctrineOnly(t *testing.T) {
	docs, err := doctrine.Load("")
	require.NoError(t, err)
	in := testInput(t, docs)
	in.Retrieved = retrieval.RetrieveResult{Degraded: true}

	ctx := NewBuilder(docs).Build(in)

	assert.True(t, ctx.Degraded)
	assert.Empty(t, ctx.Retrieved)
	assert.Len(t, ctx.Doctrine, 3)
	assert.NoError(t, ctx.Validate())
}

func TestBuildValidatesAgainstSchema(t *testing.T) {
	docs, err := doctrine.Load("")
	require.NoError(t, err)
	ctx := NewBuilder(docs).Build(testInput(t, docs))

	assert.NoError(t, ctx.Validate())
}

// 同输入两次合成除 trace 与时钟外必须一致。
func TestBuildIdempotentExceptClock(t *testing.T) {
	docs, err := doctrine.Load("")
	require.NoError(t, err)
	b := NewBuilder(docs)
	in := testInput(t, docs)

	a := b.Build(in)
	c := b.Build(in)
	a.TraceID, c.TraceID = "", ""
	a.GeneratedAt, c.GeneratedAt = 0, 0
	assert.Equal(t, a, c)
}
