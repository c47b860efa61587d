package config

// Config 是 Brookside 的主配置载体。
type Config struct {
	App        AppConfig        `toml:"app"`
	Data       DataConfig       `toml:"data"`
	Session    SessionConfig    `toml:"session"`
	Feature    FeatureConfig    `toml:"feature"`
	Regime     RegimeConfig     `toml:"regime"`
	Risk       RiskConfig       `toml:"risk"`
	Instrument InstrumentConfig `toml:"instrument"`
	Retrieval  RetrievalConfig  `toml:"retrieval"`
	Doctrine   DoctrineConfig   `toml:"doctrine"`
}

type AppConfig struct {
	Env             string `toml:"env"`
	LogLevel        string `toml:"log_level"`
	LogPath         string `toml:"log_path"`
	HTTPAddr        string `toml:"http_addr"`
	DecisionLogPath string `toml:"decision_log_path"`
}

// DataConfig 决定 bar 来源：csv 回放或 binance REST 回补。
type DataConfig struct {
	Source     string `toml:"source"` // "csv" | "binance"
	CSVPath    string `toml:"csv_path"`
	Symbol     string `toml:"symbol"`
	Interval   string `toml:"interval"`
	WindowBars int    `toml:"window_bars"`
	Watch      bool   `toml:"watch"` // csv 文件变化时自动重评估
	BinanceURL string `toml:"binance_url"`
}

// SessionConfig 描述交易时段，用于开盘区间与前日高低点。
type SessionConfig struct {
	Timezone            string `toml:"timezone"`
	OpeningRangeBars    int    `toml:"opening_range_bars"`
	RequireOpeningRange bool   `toml:"require_opening_range"` // true 时开盘区间不足直接判该轮失败
	TimeframeMinutes    int    `toml:"timeframe_minutes"`
}

type FeatureConfig struct {
	EMAPeriod      int `toml:"ema_period"`
	ATRPeriod      int `toml:"atr_period"`
	TrendLookback  int `toml:"trend_lookback"`
	RangeLookback  int `toml:"range_lookback"`
	SwingLookback  int `toml:"swing_lookback"`
	SwingConfirm   int `toml:"swing_confirm"` // 严格局部极值两侧确认 bar 数
	VolumeLookback int `toml:"volume_lookback"`
}

// RegimeConfig 集中存放分类阈值。阈值是启发式经验值，全部可配。
type RegimeConfig struct {
	ClearThreshold    float64 `toml:"clear_threshold"`    // trend/range 同时超过且接近 → AMBIGUOUS
	AmbiguousMargin   float64 `toml:"ambiguous_margin"`
	ReversalThreshold float64 `toml:"reversal_threshold"` // reversal 需要更高的门槛
	ConflictThreshold float64 `toml:"conflict_threshold"` // 反转结构冲突信号
}

type RiskConfig struct {
	Equity             float64 `toml:"equity"`
	MaxRiskPerTradePct float64 `toml:"max_risk_per_trade_pct"` // 1R 占权益比例，如 0.01
	MaxDailyLossR      float64 `toml:"max_daily_loss_r"`
	MinRRWithTrend     float64 `toml:"min_rr_with_trend"`
	MinRRCounterTrend  float64 `toml:"min_rr_counter_trend"`
	StopATRBuffer      float64 `toml:"stop_atr_buffer"` // 止损越过结构点后再加的 ATR 缓冲
}

type InstrumentConfig struct {
	TickSize     float64 `toml:"tick_size"`
	PointValue   float64 `toml:"point_value"`
	QuantityUnit string  `toml:"quantity_unit"` // "contracts" | "shares"
}

type RetrievalConfig struct {
	Endpoint               string      `toml:"endpoint"`
	TimeoutSeconds         int         `toml:"timeout_seconds"`
	TopKPerQuery           int         `toml:"top_k_per_query"`
	NeighborN              int         `toml:"neighbor_n"`
	WideNeighborN          int         `toml:"wide_neighbor_n"`
	MaxQueries             int         `toml:"max_queries"`
	FinalK                 int         `toml:"final_k"`
	WideFinalK             int         `toml:"wide_final_k"`
	TokenBudget            int         `toml:"token_budget"`
	LowConfidenceThreshold float64     `toml:"low_confidence_threshold"`
	Cache                  CacheConfig `toml:"cache"`
}

// CacheConfig 控制检索结果的 Redis 缓存（可关闭）。
type CacheConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	TTLSeconds int    `toml:"ttl_seconds"`
}

type DoctrineConfig struct {
	Dir string `toml:"dir"` // 为空时使用内嵌文档
}
