package decisionlog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brookside/internal/candidate"
	"brookside/internal/decisionctx"
	"brookside/internal/regime"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "decisions.db"))
	require.NoError(t, err)
	return s
}

func sample(trace, symbol string, barClose int64) decisionctx.DecisionContext {
	return decisionctx.DecisionContext{
		TraceID:       trace,
		GeneratedAt:   barClose + 1,
		SchemaVersion: "bs-v1",
		Symbol:        symbol,
		BarCloseTime:  barClose,
		Regime:        regime.Result{Label: regime.TrendUp, Confidence: 0.6},
		Candidates:    candidate.Result{Status: candidate.StatusNoTrade},
	}
}

func TestSaveAndRecent(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sample("t1", "ESUSDT", 1000)))
	require.NoError(t, s.Save(ctx, sample("t2", "ESUSDT", 2000)))
	require.NoError(t, s.Save(ctx, sample("t3", "NQUSDT", 3000)))

	recs, err := s.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	// bar 时间倒序
	assert.Equal(t, "t3", recs[0].TraceID)
	assert.Equal(t, "t1", recs[2].TraceID)

	es, err := s.Recent(ctx, "ESUSDT", 10)
	require.NoError(t, err)
	assert.Len(t, es, 2)

	one, err := s.Recent(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func TestSaveKeepsPayload(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, sample("t1", "ESUSDT", 1000)))

	rec, err := s.ByTrace(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "ESUSDT", rec.Symbol)
	assert.Equal(t, "TREND_UP", rec.RegimeLabel)
	assert.Equal(t, "no_trade", rec.Status)
	assert.Contains(t, string(rec.Payload), `"schema_version":"bs-v1"`)
}

func TestTraceIDUnique(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, sample("dup", "ESUSDT", 1000)))
	assert.Error(t, s.Save(ctx, sample("dup", "ESUSDT", 2000)))
}

func TestByTraceMissing(t *testing.T) {
	s := openStore(t)
	_, err := s.ByTrace(context.Background(), "nope")
	assert.Error(t, err)
}
