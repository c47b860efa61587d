package config

// applyDefaults 为未显式配置的字段填充默认值。
// 阈值默认值来自设计文档的示例参数，非最优解，均可在配置里覆盖。
func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = ":8087"
	}
	if c.App.DecisionLogPath == "" {
		c.App.DecisionLogPath = "data/decision_log.db"
	}

	if c.Data.Source == "" {
		c.Data.Source = "csv"
	}
	if c.Data.Interval == "" {
		c.Data.Interval = "5m"
	}
	if c.Data.WindowBars <= 0 {
		c.Data.WindowBars = 200
	}
	if c.Data.BinanceURL == "" {
		c.Data.BinanceURL = "https://fapi.binance.com"
	}

	if c.Session.Timezone == "" {
		c.Session.Timezone = "America/New_York"
	}
	if c.Session.OpeningRangeBars <= 0 {
		c.Session.OpeningRangeBars = 6
	}
	if c.Session.TimeframeMinutes <= 0 {
		c.Session.TimeframeMinutes = 5
	}

	if c.Feature.EMAPeriod <= 0 {
		c.Feature.EMAPeriod = 20
	}
	if c.Feature.ATRPeriod <= 0 {
		c.Feature.ATRPeriod = 14
	}
	if c.Feature.TrendLookback <= 0 {
		c.Feature.TrendLookback = 20
	}
	if c.Feature.RangeLookback <= 0 {
		c.Feature.RangeLookback = 30
	}
	if c.Feature.SwingLookback <= 0 {
		c.Feature.SwingLookback = 50
	}
	if c.Feature.SwingConfirm <= 0 {
		c.Feature.SwingConfirm = 3
	}
	if c.Feature.VolumeLookback <= 0 {
		c.Feature.VolumeLookback = 20
	}

	if c.Regime.ClearThreshold <= 0 {
		c.Regime.ClearThreshold = 0.45
	}
	if c.Regime.AmbiguousMargin <= 0 {
		c.Regime.AmbiguousMargin = 0.05
	}
	if c.Regime.ReversalThreshold <= 0 {
		c.Regime.ReversalThreshold = 0.6
	}
	if c.Regime.ConflictThreshold <= 0 {
		c.Regime.ConflictThreshold = 0.65
	}

	if c.Risk.Equity <= 0 {
		c.Risk.Equity = 10000
	}
	if c.Risk.MaxRiskPerTradePct <= 0 {
		c.Risk.MaxRiskPerTradePct = 0.01
	}
	if c.Risk.MaxDailyLossR <= 0 {
		c.Risk.MaxDailyLossR = 3
	}
	if c.Risk.MinRRWithTrend <= 0 {
		c.Risk.MinRRWithTrend = 1.0
	}
	if c.Risk.MinRRCounterTrend <= 0 {
		c.Risk.MinRRCounterTrend = 2.0
	}
	if c.Risk.StopATRBuffer <= 0 {
		c.Risk.StopATRBuffer = 0.5
	}

	if c.Instrument.TickSize <= 0 {
		c.Instrument.TickSize = 0.25
	}
	if c.Instrument.PointValue <= 0 {
		c.Instrument.PointValue = 50
	}
	if c.Instrument.QuantityUnit == "" {
		c.Instrument.QuantityUnit = "contracts"
	}

	if c.Retrieval.TimeoutSeconds <= 0 {
		c.Retrieval.TimeoutSeconds = 5
	}
	if c.Retrieval.TopKPerQuery <= 0 {
		c.Retrieval.TopKPerQuery = 6
	}
	if c.Retrieval.NeighborN <= 0 {
		c.Retrieval.NeighborN = 1
	}
	if c.Retrieval.WideNeighborN <= 0 {
		c.Retrieval.WideNeighborN = 2
	}
	if c.Retrieval.MaxQueries <= 0 {
		c.Retrieval.MaxQueries = 6
	}
	if c.Retrieval.FinalK <= 0 {
		c.Retrieval.FinalK = 8
	}
	if c.Retrieval.WideFinalK <= 0 {
		c.Retrieval.WideFinalK = 14
	}
	if c.Retrieval.TokenBudget <= 0 {
		c.Retrieval.TokenBudget = 6000
	}
	if c.Retrieval.LowConfidenceThreshold <= 0 {
		c.Retrieval.LowConfidenceThreshold = 0.25
	}
	if c.Retrieval.Cache.TTLSeconds <= 0 {
		c.Retrieval.Cache.TTLSeconds = 300
	}
	if c.Retrieval.Cache.Addr == "" {
		c.Retrieval.Cache.Addr = "127.0.0.1:6379"
	}
}
