package level

import (
	"fmt"

	talib "github.com/markcheno/go-talib"

	"brookside/internal/market"
)

// Kind 是价位的类别标签。
type Kind string

const (
	PriorDayHigh     Kind = "prior_day_high"
	PriorDayLow      Kind = "prior_day_low"
	PriorDayClose    Kind = "prior_day_close"
	OpeningRangeHigh Kind = "opening_range_high"
	OpeningRangeLow  Kind = "opening_range_low"
	EMAValue         Kind = "ema"
	VWAPValue        Kind = "vwap"
	SwingHigh        Kind = "swing_high"
	SwingLow         Kind = "swing_low"
	RangeHigh        Kind = "range_high"
	RangeLow         Kind = "range_low"
)

// PriceLevel 是一个带出处的具体价位。
// SourceBarIndex 必须指向决策 bar 或更早的 bar（禁止前视）。
type PriceLevel struct {
	Kind           Kind    `json:"kind"`
	Price          float64 `json:"price"`
	SourceBarIndex int     `json:"source_bar_index"`
}

// PriceContext 是决策层需要的关键原始量。
type PriceContext struct {
	CurrentPrice    float64 `json:"current_price"`
	CurrentATR      float64 `json:"current_atr"`
	DayOpen         float64 `json:"day_open"`
	DayHigh         float64 `json:"day_high"`
	DayLow          float64 `json:"day_low"`
	RecentSwingHigh float64 `json:"recent_swing_high"`
	RecentSwingLow  float64 `json:"recent_swing_low"`
}

// IncompleteSessionError 表示当日 bar 不足以计算开盘区间。
// 调用方自选降级策略：跳过该价位，或放弃本轮决策。
type IncompleteSessionError struct {
	Have int
	Need int
}

func (e *IncompleteSessionError) Error() string {
	return fmt.Sprintf("开盘区间需要 %d 根当日 bar，目前只有 %d 根", e.Need, e.Have)
}

// Config 是价位计算参数。
type Config struct {
	EMAPeriod        int
	ATRPeriod        int
	OpeningRangeBars int
	SwingLookback    int
	SwingConfirm     int
}

// Computer 从原始 bar 历史（不经过快照）推导全部价位。确定性、无 I/O。
type Computer struct {
	cfg Config
	cal *market.SessionCalendar
}

func NewComputer(cfg Config, cal *market.SessionCalendar) *Computer {
	if cal == nil {
		cal = market.NewSessionCalendar("UTC")
	}
	return &Computer{cfg: cfg, cal: cal}
}

// Result 聚合价位集合与原始量。开盘区间缺失时 Levels 不含对应价位，
// OpeningRangeErr 保留原因给调用方决定是否中止。
type Result struct {
	Levels          []PriceLevel
	PriceCtx        PriceContext
	OpeningRangeErr error
}

// Compute 计算决策 bar（窗口最后一根）处的全部价位。
func (c *Computer) Compute(w market.Window) (Result, error) {
	if len(w) == 0 {
		return Result{}, fmt.Errorf("空窗口无法计算价位")
	}
	i := len(w) - 1
	var levels []PriceLevel

	// 前一交易日 H/L/C
	if ps, pe, ok := c.cal.PriorSession(w); ok {
		hiIdx, loIdx := ps, ps
		for j := ps; j < pe; j++ {
			if w[j].High > w[hiIdx].High {
				hiIdx = j
			}
			if w[j].Low < w[loIdx].Low {
				loIdx = j
			}
		}
		levels = append(levels,
			PriceLevel{Kind: PriorDayHigh, Price: w[hiIdx].High, SourceBarIndex: hiIdx},
			PriceLevel{Kind: PriorDayLow, Price: w[loIdx].Low, SourceBarIndex: loIdx},
			PriceLevel{Kind: PriorDayClose, Price: w[pe-1].Close, SourceBarIndex: pe - 1},
		)
	}

	// 开盘区间（当日前 K 根）
	sessStart, sessEnd := c.cal.CurrentSession(w)
	sessBars := sessEnd - sessStart
	var orErr error
	if sessBars < c.cfg.OpeningRangeBars {
		orErr = &IncompleteSessionError{Have: sessBars, Need: c.cfg.OpeningRangeBars}
	} else {
		orEnd := sessStart + c.cfg.OpeningRangeBars
		hiIdx, loIdx := sessStart, sessStart
		for j := sessStart; j < orEnd; j++ {
			if w[j].High > w[hiIdx].High {
				hiIdx = j
			}
			if w[j].Low < w[loIdx].Low {
				loIdx = j
			}
		}
		levels = append(levels,
			PriceLevel{Kind: OpeningRangeHigh, Price: w[hiIdx].High, SourceBarIndex: hiIdx},
			PriceLevel{Kind: OpeningRangeLow, Price: w[loIdx].Low, SourceBarIndex: loIdx},
		)
	}

	// 决策 bar 处的 EMA / 当日 VWAP
	if ema := c.emaAt(w, i); ema > 0 {
		levels = append(levels, PriceLevel{Kind: EMAValue, Price: ema, SourceBarIndex: i})
	}
	if vwap := sessionVWAP(w, sessStart, i); vwap > 0 {
		levels = append(levels, PriceLevel{Kind: VWAPValue, Price: vwap, SourceBarIndex: i})
	}

	// 最近两个已确认摆动极值
	lookStart := i - c.cfg.SwingLookback
	if lookStart < 0 {
		lookStart = 0
	}
	points := market.SwingPoints(w[lookStart:i+1], c.cfg.SwingConfirm)
	if high, low := market.LastSwings(points); high != nil || low != nil {
		if high != nil {
			levels = append(levels, PriceLevel{Kind: SwingHigh, Price: high.Price, SourceBarIndex: lookStart + high.Index})
		}
		if low != nil {
			levels = append(levels, PriceLevel{Kind: SwingLow, Price: low.Price, SourceBarIndex: lookStart + low.Index})
		}
	}

	// 近端区间边界（近 lookback 根的高低）
	hiIdx, loIdx := lookStart, lookStart
	for j := lookStart; j <= i; j++ {
		if w[j].High > w[hiIdx].High {
			hiIdx = j
		}
		if w[j].Low < w[loIdx].Low {
			loIdx = j
		}
	}
	levels = append(levels,
		PriceLevel{Kind: RangeHigh, Price: w[hiIdx].High, SourceBarIndex: hiIdx},
		PriceLevel{Kind: RangeLow, Price: w[loIdx].Low, SourceBarIndex: loIdx},
	)

	pc := PriceContext{
		CurrentPrice:    w[i].Close,
		CurrentATR:      c.atrAt(w, i),
		DayOpen:         w[sessStart].Open,
		RecentSwingHigh: w[hiIdx].High,
		RecentSwingLow:  w[loIdx].Low,
	}
	dayHigh, dayLow := w[sessStart].High, w[sessStart].Low
	for j := sessStart; j <= i; j++ {
		if w[j].High > dayHigh {
			dayHigh = w[j].High
		}
		if w[j].Low < dayLow {
			dayLow = w[j].Low
		}
	}
	pc.DayHigh = dayHigh
	pc.DayLow = dayLow

	return Result{Levels: levels, PriceCtx: pc, OpeningRangeErr: orErr}, nil
}

func (c *Computer) emaAt(w market.Window, i int) float64 {
	closes := w.Closes()
	if len(closes) < c.cfg.EMAPeriod || c.cfg.EMAPeriod <= 1 {
		return 0
	}
	series := talib.Ema(closes, c.cfg.EMAPeriod)
	return series[i]
}

func (c *Computer) atrAt(w market.Window, i int) float64 {
	closes := w.Closes()
	if len(closes) <= c.cfg.ATRPeriod || c.cfg.ATRPeriod <= 0 {
		// 序列不足时退化为平均振幅
		sum := 0.0
		for _, b := range w {
			sum += b.Range()
		}
		return sum / float64(len(w))
	}
	series := talib.Atr(w.Highs(), w.Lows(), closes, c.cfg.ATRPeriod)
	return series[i]
}

// sessionVWAP 从当日 session 开头累计到决策 bar。
// talib 只有滑窗均价，session 锚定的 VWAP 需要手工累计。
func sessionVWAP(w market.Window, sessStart, i int) float64 {
	var pv, vol float64
	for j := sessStart; j <= i; j++ {
		typical := (w[j].High + w[j].Low + w[j].Close) / 3
		pv += typical * w[j].Volume
		vol += w[j].Volume
	}
	if vol <= 0 {
		return 0
	}
	return pv / vol
}

// Find 按 kind 取第一个匹配价位。
func Find(levels []PriceLevel, kind Kind) (PriceLevel, bool) {
	for _, l := range levels {
		if l.Kind == kind {
			return l, true
		}
	}
	return PriceLevel{}, false
}
