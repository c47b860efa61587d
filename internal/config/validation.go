package config

import "fmt"

// validate 检查会直接破坏下游不变量的配置组合。
func validate(c *Config) error {
	switch c.Data.Source {
	case "csv":
		if c.Data.CSVPath == "" {
			return fmt.Errorf("data.source=csv 需要 data.csv_path")
		}
	case "binance":
		if c.Data.Symbol == "" {
			return fmt.Errorf("data.source=binance 需要 data.symbol")
		}
	default:
		return fmt.Errorf("不支持的数据源: %s", c.Data.Source)
	}
	if c.Data.WindowBars < 2 {
		return fmt.Errorf("data.window_bars 至少为 2")
	}
	if c.Regime.AmbiguousMargin >= 1 {
		return fmt.Errorf("regime.ambiguous_margin 需小于 1")
	}
	if c.Risk.MaxRiskPerTradePct >= 1 {
		return fmt.Errorf("risk.max_risk_per_trade_pct 是比例，需小于 1")
	}
	if c.Risk.MinRRCounterTrend < c.Risk.MinRRWithTrend {
		return fmt.Errorf("逆势最小盈亏比不应低于顺势 (%.2f < %.2f)",
			c.Risk.MinRRCounterTrend, c.Risk.MinRRWithTrend)
	}
	if c.Instrument.TickSize <= 0 || c.Instrument.PointValue <= 0 {
		return fmt.Errorf("instrument.tick_size/point_value 必须为正")
	}
	return nil
}
