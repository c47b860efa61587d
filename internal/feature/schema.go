package feature

// SchemaVersion 随 Snapshot 一起下发，下游据此发现特征含义漂移。
const SchemaVersion = "bs-v1"

// Meta 记录快照对应的 bar 元信息。
type Meta struct {
	Timestamp        int64   `json:"timestamp"` // 决策 bar 收盘毫秒时间戳
	Symbol           string  `json:"symbol"`
	BarIndex         int     `json:"bar_index"` // 决策 bar 在窗口内的下标
	SessionBarIndex  int     `json:"session_bar_index"`
	TimeframeMinutes float64 `json:"timeframe_minutes"`
}

// BarStats 描述决策 bar 的形态，比例字段均在 [0,1]。
type BarStats struct {
	BodyRel        float64 `json:"body_rel"`
	UpperTailRel   float64 `json:"upper_tail_rel"`
	LowerTailRel   float64 `json:"lower_tail_rel"`
	ClosePosRel    float64 `json:"close_pos_rel"`
	RangeRelATR    float64 `json:"range_rel_atr"`
	GapToPrevClose float64 `json:"gap_to_prev_close"` // 以 ATR 为单位，可为负
	TrendBarScore  float64 `json:"trend_bar_score"`
	DojiScore      float64 `json:"doji_score"`
	OutsideScore   float64 `json:"outside_score"`
	InsideScore    float64 `json:"inside_score"`
	VolumeZScore   float64 `json:"volume_zscore"`
}

// LocalTrend 描述近端趋势状态。
type LocalTrend struct {
	EMASlope            float64 `json:"ema_slope"` // (ema[i]-ema[i-k])/(ATR*k)，可为负
	BarsAboveEMARatio   float64 `json:"bars_above_ema_ratio"`
	ConsecutiveBullBars int     `json:"consecutive_bull_bars"`
	ConsecutiveBearBars int     `json:"consecutive_bear_bars"`
	MicroChannelBars    int     `json:"micro_channel_bars"`
	PullbackDepthRel    float64 `json:"pullback_depth_rel"`
	PullbackBars        int     `json:"pullback_bars"`
	SpikeStrength       float64 `json:"spike_strength"`
	TrendPersistence    float64 `json:"trend_persistence"`
}

// Swing 描述摆动结构。
type Swing struct {
	Direction       float64 `json:"swing_direction"` // +1 上 / -1 下 / 0 混沌
	HHLLScore       float64 `json:"hh_ll_score"`
	Leg1SizeATR     float64 `json:"swing_leg1_size"`
	Leg2SizeATR     float64 `json:"swing_leg2_size"`
	Leg2VsLeg1Ratio float64 `json:"leg2_vs_leg1_ratio"`
	WedgePushCount  int     `json:"wedge_push_count"`
	WedgeScore      float64 `json:"wedge_score"`
	DoubleTopScore  float64 `json:"double_top_score"`
	DoubleBotScore  float64 `json:"double_bottom_score"`
}

// TradingRange 描述震荡结构。
type TradingRange struct {
	OverlapRatio      float64 `json:"overlap_ratio"`
	RangeHeightATR    float64 `json:"range_height_rel_atr"`
	TimeInRangeBars   int     `json:"time_in_range_bars"`
	TestsOfRangeHigh  int     `json:"tests_of_range_high"`
	TestsOfRangeLow   int     `json:"tests_of_range_low"`
	BreakoutAttempts  int     `json:"breakout_attempts"`
	BreakoutFailRatio float64 `json:"breakout_fail_ratio"`
	BarbwireScore     float64 `json:"barbwire_score"`
}

// Reversal 描述反转前兆信号。
type Reversal struct {
	TrendlineBreakScore   float64 `json:"trendline_break_score"`
	ChannelOvershootScore float64 `json:"channel_overshoot_score"`
	ClimaxRunupScore      float64 `json:"climax_runup_score"`
	PullbackAfterClimax   int     `json:"pullback_after_climax_bars"`
	HigherLowScore        float64 `json:"higher_low_score"`
	LowerHighScore        float64 `json:"lower_high_score"`
	FinalFlagScore        float64 `json:"final_flag_score"`
}

// RiskReward 给候选生成与检索改写提供粗粒度距离估计（ATR 单位）。
type RiskReward struct {
	NearestSupportDist    float64 `json:"nearest_support_dist"`
	NearestResistanceDist float64 `json:"nearest_resistance_dist"`
	StopDistanceSuggested float64 `json:"stop_distance_suggested"`
	ScalpTargetDist       float64 `json:"scalp_target_dist"`
	SwingTargetDist       float64 `json:"swing_target_dist"`
	RRScalpEstimate       float64 `json:"rr_scalp_estimate"`
	RRSwingEstimate       float64 `json:"rr_swing_estimate"`
}

// RegimeScores 是分类器的输入评分，全部 [0,1]。
type RegimeScores struct {
	TrendingScore      float64 `json:"trending_score"`
	RangingScore       float64 `json:"ranging_score"`
	ReversalSetupScore float64 `json:"reversal_setup_score"`
	BreakoutModeScore  float64 `json:"breakout_mode_score"`
}

// Snapshot 是一次 bar-close 事件的全量特征快照。
// 创建后不可修改；同一窗口重算必须得到逐字节一致的结果。
type Snapshot struct {
	SchemaVersion     string       `json:"schema_version"`
	Meta              Meta         `json:"meta"`
	Bar               BarStats     `json:"bar"`
	LocalTrend        LocalTrend   `json:"local_trend"`
	Swing             Swing        `json:"swing"`
	TradingRange      TradingRange `json:"trading_range"`
	Reversal          Reversal     `json:"reversals"`
	RiskReward        RiskReward   `json:"risk_reward"`
	Regime            RegimeScores `json:"regime"`
	TimeOfDayFraction float64      `json:"time_of_day_fraction"`
}

// BoundedScores 返回所有约定落在 [0,1] 的字段，测试用它整体断言。
func (s *Snapshot) BoundedScores() map[string]float64 {
	return map[string]float64{
		"body_rel":                s.Bar.BodyRel,
		"upper_tail_rel":          s.Bar.UpperTailRel,
		"lower_tail_rel":          s.Bar.LowerTailRel,
		"close_pos_rel":           s.Bar.ClosePosRel,
		"trend_bar_score":         s.Bar.TrendBarScore,
		"doji_score":              s.Bar.DojiScore,
		"outside_score":           s.Bar.OutsideScore,
		"inside_score":            s.Bar.InsideScore,
		"bars_above_ema_ratio":    s.LocalTrend.BarsAboveEMARatio,
		"pullback_depth_rel":      s.LocalTrend.PullbackDepthRel,
		"spike_strength":          s.LocalTrend.SpikeStrength,
		"trend_persistence":       s.LocalTrend.TrendPersistence,
		"hh_ll_score":             s.Swing.HHLLScore,
		"wedge_score":             s.Swing.WedgeScore,
		"double_top_score":        s.Swing.DoubleTopScore,
		"double_bottom_score":     s.Swing.DoubleBotScore,
		"overlap_ratio":           s.TradingRange.OverlapRatio,
		"breakout_fail_ratio":     s.TradingRange.BreakoutFailRatio,
		"barbwire_score":          s.TradingRange.BarbwireScore,
		"trendline_break_score":   s.Reversal.TrendlineBreakScore,
		"channel_overshoot_score": s.Reversal.ChannelOvershootScore,
		"climax_runup_score":      s.Reversal.ClimaxRunupScore,
		"higher_low_score":        s.Reversal.HigherLowScore,
		"lower_high_score":        s.Reversal.LowerHighScore,
		"final_flag_score":        s.Reversal.FinalFlagScore,
		"trending_score":          s.Regime.TrendingScore,
		"ranging_score":           s.Regime.RangingScore,
		"reversal_setup_score":    s.Regime.ReversalSetupScore,
		"breakout_mode_score":     s.Regime.BreakoutModeScore,
		"time_of_day_fraction":    s.TimeOfDayFraction,
	}
}
