package candidate

// EntryType 表示入场单类型。
type EntryType string

const (
	EntryMarket EntryType = "market"
	EntryStop   EntryType = "stop"
	EntryLimit  EntryType = "limit"
)

// Side 表示方向。
type Side string

const (
	Long  Side = "long"
	Short Side = "short"
)

// Target 是一个分批目标位。
type Target struct {
	Price        float64 `json:"price"`
	SizeFraction float64 `json:"size_fraction"`
}

// OrderCandidate 是一个可执行的候选单。
// 多头不变量：stop < entry < 最近目标价；空头镜像。分批比例之和 ≤ 1。
type OrderCandidate struct {
	Side          Side      `json:"side"`
	EntryType     EntryType `json:"entry_type"`
	EntryPrice    float64   `json:"entry_price"`
	StopPrice     float64   `json:"stop_price"`
	Targets       []Target  `json:"targets"`
	RationaleTags []string  `json:"rationale_tags"`
}

// RewardRisk 按第一目标计算盈亏比。
func (c OrderCandidate) RewardRisk() float64 {
	if len(c.Targets) == 0 {
		return 0
	}
	risk := c.EntryPrice - c.StopPrice
	reward := c.Targets[0].Price - c.EntryPrice
	if c.Side == Short {
		risk = c.StopPrice - c.EntryPrice
		reward = c.EntryPrice - c.Targets[0].Price
	}
	if risk <= 0 {
		return 0
	}
	return reward / risk
}

// SizingResult 是一个候选的仓位建议。
// 不变量：CashRisk ≤ 账户单笔最大风险。
type SizingResult struct {
	RiskPerUnit       float64 `json:"risk_per_unit"`
	SuggestedQuantity int64   `json:"suggested_quantity"`
	CashRisk          float64 `json:"cash_risk"`
	RiskInR           float64 `json:"risk_in_r"`
}

// InstrumentSpec 由外部提供的合约规格。
type InstrumentSpec struct {
	TickSize     float64 `json:"tick_size"`
	PointValue   float64 `json:"point_value"`
	QuantityUnit string  `json:"quantity_unit"`
}

// AccountState 由外部账户状态协作方提供。
type AccountState struct {
	Equity            float64 `json:"equity"`
	MaxRiskPerTradeR  float64 `json:"max_risk_per_trade_r"` // 1R 占权益比例
	MaxDailyLossR     float64 `json:"max_daily_loss_r"`
	RealizedPnLRToday float64 `json:"realized_pnl_r_today"`
}

// OneR 返回 1R 对应的现金额。
func (a AccountState) OneR() float64 {
	return a.Equity * a.MaxRiskPerTradeR
}

// MaxRiskPerTrade 返回单笔最大现金风险。
func (a AccountState) MaxRiskPerTrade() float64 { return a.OneR() }

// RemainingDailyBudget 返回今日剩余风险预算（现金）。当日亏损吃掉预算，盈利不追加。
func (a AccountState) RemainingDailyBudget() float64 {
	lossR := a.RealizedPnLRToday
	if lossR > 0 {
		lossR = 0
	}
	remaining := (a.MaxDailyLossR + lossR) * a.OneR()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// PositionState 描述当前持仓（检索管理意图需要）。
type PositionState struct {
	HasOpenPosition bool    `json:"has_open_position"`
	Side            Side    `json:"side,omitempty"`
	EntryPrice      float64 `json:"entry_price,omitempty"`
	StopPrice       float64 `json:"stop_price,omitempty"`
	UnrealizedR     float64 `json:"unrealized_r,omitempty"`
}

// Status 标记候选生成的终态。零候选是一等结果，不是异常。
type Status string

const (
	StatusOK                Status = "ok"
	StatusNoTrade           Status = "no_trade"
	StatusDailyLimitReached Status = "daily_limit_reached"
)

// Result 是候选生成的完整输出，Sizings 与 Candidates 一一对应。
type Result struct {
	Status     Status           `json:"status"`
	Candidates []OrderCandidate `json:"candidates"`
	Sizings    []SizingResult   `json:"sizings"`
}
