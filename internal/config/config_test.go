package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalYAML = `
data:
  source: csv
  csv_path: data/bars.csv
  symbol: ESUSDT
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.Data.WindowBars)
	assert.Equal(t, 20, cfg.Feature.EMAPeriod)
	assert.Equal(t, 14, cfg.Feature.ATRPeriod)
	assert.Equal(t, 0.45, cfg.Regime.ClearThreshold)
	assert.Equal(t, 0.05, cfg.Regime.AmbiguousMargin)
	assert.Equal(t, 0.6, cfg.Regime.ReversalThreshold)
	assert.Equal(t, 0.01, cfg.Risk.MaxRiskPerTradePct)
	assert.Equal(t, 3.0, cfg.Risk.MaxDailyLossR)
	assert.Equal(t, 2.0, cfg.Risk.MinRRCounterTrend)
	assert.Equal(t, 6, cfg.Retrieval.TopKPerQuery)
	assert.Equal(t, 6000, cfg.Retrieval.TokenBudget)
	assert.Equal(t, 8, cfg.Retrieval.FinalK)
	assert.Equal(t, 14, cfg.Retrieval.WideFinalK)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML+`
feature:
  ema_period: 34
regime:
  reversal_threshold: 0.7
retrieval:
  token_budget: 4000
  cache:
    enabled: true
    addr: 127.0.0.1:6380
`))
	require.NoError(t, err)

	assert.Equal(t, 34, cfg.Feature.EMAPeriod)
	assert.Equal(t, 0.7, cfg.Regime.ReversalThreshold)
	assert.Equal(t, 4000, cfg.Retrieval.TokenBudget)
	assert.True(t, cfg.Retrieval.Cache.Enabled)
	assert.Equal(t, "127.0.0.1:6380", cfg.Retrieval.Cache.Addr)
	// 没覆盖的字段仍用默认值
	assert.Equal(t, 14, cfg.Feature.ATRPeriod)
}

func TestLoadRejectsBadCombos(t *testing.T) {
	cases := map[string]string{
		"csv缺路径": `
data:
  source: csv
`,
		"未知数据源": `
data:
  source: ftp
  csv_path: x.csv
`,
		"逆势盈亏比低于顺势": minimalYAML + `
risk:
  min_rr_with_trend: 3.0
  min_rr_counter_trend: 1.0
`,
		"风险比例写成了百分数": minimalYAML + `
risk:
  max_risk_per_trade_pct: 2
`,
	}
	for name, body := range cases {
		_, err := Load(writeConfig(t, body))
		assert.Error(t, err, name)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
	_, err = Load("")
	assert.Error(t, err)
}
