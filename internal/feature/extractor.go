package feature

import (
	"fmt"

	"brookside/internal/market"
)

// MinWindowBars 是能产出快照的绝对最小窗口。再短则拒绝整个快照。
const MinWindowBars = 2

// InsufficientDataError 表示窗口不足以产出任何快照，本轮决策必须跳过。
type InsufficientDataError struct {
	Needed int
	Got    int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("窗口不足: 需要至少 %d 根 bar，实际 %d 根", e.Needed, e.Got)
}

// Config 是特征提取用到的全部周期参数。
type Config struct {
	EMAPeriod        int
	ATRPeriod        int
	TrendLookback    int
	RangeLookback    int
	SwingLookback    int
	SwingConfirm     int
	VolumeLookback   int
	TimeframeMinutes int
}

// Extractor 把 bar 窗口变成固定 schema 的数值快照。
// 纯函数：无隐藏状态、无 I/O，相同窗口必然得到相同快照。
type Extractor struct {
	cfg Config
	cal *market.SessionCalendar
}

// NewExtractor 创建提取器。cal 只用于 time_of_day_fraction 与 session 下标。
func NewExtractor(cfg Config, cal *market.SessionCalendar) *Extractor {
	if cal == nil {
		cal = market.NewSessionCalendar("UTC")
	}
	return &Extractor{cfg: cfg, cal: cal}
}

// Extract 产出决策 bar（窗口最后一根）的快照。
// 子特征历史不足时取中性默认值；只有窗口短于绝对最小值才报错。
func (e *Extractor) Extract(symbol string, w market.Window) (*Snapshot, error) {
	if len(w) < MinWindowBars {
		return nil, &InsufficientDataError{Needed: MinWindowBars, Got: len(w)}
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	i := len(w) - 1
	ind := computeIndicators(w, e.cfg.EMAPeriod, e.cfg.ATRPeriod)

	bar := computeBarStats(w, i, ind, e.cfg.VolumeLookback)
	lt := computeLocalTrend(w, i, ind, e.cfg.TrendLookback)
	sw := computeSwing(w, i, ind, e.cfg.SwingLookback, e.cfg.SwingConfirm)
	tr := computeTradingRange(w, i, ind, e.cfg.RangeLookback)
	rev := computeReversal(w, i, ind, lt, sw, e.cfg.SwingLookback)
	rr := computeRiskReward(w, i, ind, e.cfg.SwingConfirm)
	regime := computeRegimeScores(lt, tr, rev, sw)

	sessStart, _ := e.cal.CurrentSession(w)

	return &Snapshot{
		SchemaVersion: SchemaVersion,
		Meta: Meta{
			Timestamp:        w[i].CloseTime,
			Symbol:           symbol,
			BarIndex:         i,
			SessionBarIndex:  i - sessStart,
			TimeframeMinutes: float64(e.cfg.TimeframeMinutes),
		},
		Bar:               bar,
		LocalTrend:        lt,
		Swing:             sw,
		TradingRange:      tr,
		Reversal:          rev,
		RiskReward:        rr,
		Regime:            regime,
		TimeOfDayFraction: e.cal.TimeOfDayFraction(w, i),
	}, nil
}
