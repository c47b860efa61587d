package candidate

import (
	"brookside/internal/feature"
	"brookside/internal/level"
	"brookside/internal/regime"
)

// Config 是候选生成的全部策略参数。
type Config struct {
	MinRRWithTrend    float64
	MinRRCounterTrend float64
	StopATRBuffer     float64 // 止损越过结构失效点后追加的 ATR 倍数
}

// Input 聚合生成一次候选所需的全部上下文。
type Input struct {
	Snapshot *feature.Snapshot
	Regime   regime.Result
	Levels   []level.PriceLevel
	PriceCtx level.PriceContext
	Account  AccountState
	Spec     InstrumentSpec
}

// builder 是单个 regime 的候选构造函数，便于按 regime 单测。
type builder func(g *Generator, in Input) []OrderCandidate

// Generator 按 regime 策略表生成候选单与仓位建议。纯计算，无 I/O。
type Generator struct {
	cfg   Config
	table map[regime.Label]builder
}

func NewGenerator(cfg Config) *Generator {
	g := &Generator{cfg: cfg}
	g.table = map[regime.Label]builder{
		regime.TrendUp:       (*Generator).buildTrend,
		regime.TrendDown:     (*Generator).buildTrend,
		regime.Range:         (*Generator).buildRange,
		regime.ReversalSetup: (*Generator).buildReversal,
		regime.Ambiguous:     (*Generator).buildNone,
	}
	return g
}

// Generate 产出候选集合。预算耗尽与无信号都是一等结果。
func (g *Generator) Generate(in Input) Result {
	if in.Account.RemainingDailyBudget() <= 0 {
		return Result{Status: StatusDailyLimitReached}
	}
	build, ok := g.table[in.Regime.Label]
	if !ok {
		build = (*Generator).buildNone
	}
	raw := build(g, in)

	minRR := g.cfg.MinRRWithTrend
	if in.Regime.Label == regime.ReversalSetup {
		minRR = g.cfg.MinRRCounterTrend
	}

	res := Result{Status: StatusOK}
	for _, c := range raw {
		c = g.roundCandidate(c, in.Spec)
		if !validShape(c) {
			continue
		}
		if c.RewardRisk() < minRR {
			continue
		}
		sz := computeSizing(c, in.Account, in.Spec)
		if sz.SuggestedQuantity <= 0 {
			continue
		}
		res.Candidates = append(res.Candidates, c)
		res.Sizings = append(res.Sizings, sz)
	}
	if len(res.Candidates) == 0 {
		res.Status = StatusNoTrade
	}
	return res
}

// buildNone: AMBIGUOUS 的“no trade”是有效结论，不是缺省分支。
func (g *Generator) buildNone(Input) []OrderCandidate { return nil }

// buildTrend: 趋势方向上的 EMA 回调单 + 突破后回调单。
func (g *Generator) buildTrend(in Input) []OrderCandidate {
	up := in.Regime.Label == regime.TrendUp
	atr := in.PriceCtx.CurrentATR
	var out []OrderCandidate

	// 1) 回调到 EMA 的 limit 单
	if ema, ok := level.Find(in.Levels, level.EMAValue); ok {
		c := g.structureCandidate(in, sideFor(up), EntryLimit, ema.Price, atr,
			[]string{"pullback_to_ema", "with_trend"})
		out = append(out, c)
	}

	// 2) 突破后回调：在决策 bar 极端外挂 stop 单
	entry := in.PriceCtx.DayHigh
	if !up {
		entry = in.PriceCtx.DayLow
	}
	c := g.structureCandidate(in, sideFor(up), EntryStop, entry, atr,
		[]string{"breakout_pullback", "with_trend"})
	out = append(out, c)
	return out
}

// buildRange: 两侧边界的反手单，scalp 目标在区间中点，swing 目标在对侧边界。
func (g *Generator) buildRange(in Input) []OrderCandidate {
	hi, okH := level.Find(in.Levels, level.RangeHigh)
	lo, okL := level.Find(in.Levels, level.RangeLow)
	if !okH || !okL || hi.Price <= lo.Price {
		return nil
	}
	atr := in.PriceCtx.CurrentATR
	mid := (hi.Price + lo.Price) / 2
	buf := g.cfg.StopATRBuffer * atr

	short := OrderCandidate{
		Side:       Short,
		EntryType:  EntryLimit,
		EntryPrice: hi.Price,
		StopPrice:  hi.Price + buf,
		Targets: []Target{
			{Price: mid, SizeFraction: 0.5},
			{Price: lo.Price, SizeFraction: 0.5},
		},
		RationaleTags: []string{"fade_range_high", "range"},
	}
	long := OrderCandidate{
		Side:       Long,
		EntryType:  EntryLimit,
		EntryPrice: lo.Price,
		StopPrice:  lo.Price - buf,
		Targets: []Target{
			{Price: mid, SizeFraction: 0.5},
			{Price: hi.Price, SizeFraction: 0.5},
		},
		RationaleTags: []string{"fade_range_low", "range"},
	}
	return []OrderCandidate{short, long}
}

// buildReversal: 以最近被测试的极值为锚的单一逆势单。
// 逆势先验胜率更低，靠更高的最小盈亏比（默认 2:1）补偿。
func (g *Generator) buildReversal(in Input) []OrderCandidate {
	atr := in.PriceCtx.CurrentATR
	buf := g.cfg.StopATRBuffer * atr
	// EMA 斜率给出旧趋势方向，反转单取反方向
	oldUp := in.Regime.EMASlope >= 0
	if oldUp {
		anchor, ok := level.Find(in.Levels, level.SwingHigh)
		if !ok {
			anchor, ok = level.Find(in.Levels, level.RangeHigh)
		}
		if !ok {
			return nil
		}
		entry := in.PriceCtx.CurrentPrice
		stop := anchor.Price + buf
		risk := stop - entry
		if risk <= 0 {
			return nil
		}
		return []OrderCandidate{{
			Side:       Short,
			EntryType:  EntryMarket,
			EntryPrice: entry,
			StopPrice:  stop,
			Targets: []Target{
				{Price: entry - 2*risk, SizeFraction: 0.5},
				{Price: entry - 3*risk, SizeFraction: 0.5},
			},
			RationaleTags: []string{"major_trend_reversal", "counter_trend"},
		}}
	}
	anchor, ok := level.Find(in.Levels, level.SwingLow)
	if !ok {
		anchor, ok = level.Find(in.Levels, level.RangeLow)
	}
	if !ok {
		return nil
	}
	entry := in.PriceCtx.CurrentPrice
	stop := anchor.Price - buf
	risk := entry - stop
	if risk <= 0 {
		return nil
	}
	return []OrderCandidate{{
		Side:       Long,
		EntryType:  EntryMarket,
		EntryPrice: entry,
		StopPrice:  stop,
		Targets: []Target{
			{Price: entry + 2*risk, SizeFraction: 0.5},
			{Price: entry + 3*risk, SizeFraction: 0.5},
		},
		RationaleTags: []string{"major_trend_reversal", "counter_trend"},
	}}
}

// structureCandidate 以入场价为基准、最近结构失效点+ATR 缓冲为止损，
// 1R/2R 两段目标的通用构造。
func (g *Generator) structureCandidate(in Input, side Side, et EntryType, entry, atr float64, tags []string) OrderCandidate {
	buf := g.cfg.StopATRBuffer * atr
	var stop float64
	if side == Long {
		stop = entry - in.Snapshot.RiskReward.StopDistanceSuggested*atr - buf
		if sw, ok := level.Find(in.Levels, level.SwingLow); ok && sw.Price < entry {
			stop = minF(stop, sw.Price-buf)
		}
	} else {
		stop = entry + in.Snapshot.RiskReward.StopDistanceSuggested*atr + buf
		if sw, ok := level.Find(in.Levels, level.SwingHigh); ok && sw.Price > entry {
			stop = maxF(stop, sw.Price+buf)
		}
	}
	risk := entry - stop
	if side == Short {
		risk = stop - entry
	}
	dir := 1.0
	if side == Short {
		dir = -1
	}
	// 顺势分批：1R scalp + 2R swing
	return OrderCandidate{
		Side:       side,
		EntryType:  et,
		EntryPrice: entry,
		StopPrice:  stop,
		Targets: []Target{
			{Price: entry + dir*risk, SizeFraction: 0.5},
			{Price: entry + dir*2*risk, SizeFraction: 0.5},
		},
		RationaleTags: tags,
	}
}

// roundCandidate 按 tick 取整全部价位。
func (g *Generator) roundCandidate(c OrderCandidate, spec InstrumentSpec) OrderCandidate {
	c.EntryPrice = roundToTick(c.EntryPrice, spec.TickSize)
	c.StopPrice = roundStopAway(c.StopPrice, spec.TickSize, c.Side)
	for i := range c.Targets {
		c.Targets[i].Price = roundToTick(c.Targets[i].Price, spec.TickSize)
	}
	return c
}

// validShape 检查价位关系不变量与分批比例之和。
func validShape(c OrderCandidate) bool {
	if len(c.Targets) == 0 {
		return false
	}
	sum := 0.0
	for _, t := range c.Targets {
		if t.SizeFraction <= 0 {
			return false
		}
		sum += t.SizeFraction
	}
	if sum > 1.0+1e-9 {
		return false
	}
	if c.Side == Long {
		if !(c.StopPrice < c.EntryPrice) {
			return false
		}
		for _, t := range c.Targets {
			if t.Price <= c.EntryPrice {
				return false
			}
		}
		return true
	}
	if !(c.StopPrice > c.EntryPrice) {
		return false
	}
	for _, t := range c.Targets {
		if t.Price >= c.EntryPrice {
			return false
		}
	}
	return true
}

func sideFor(up bool) Side {
	if up {
		return Long
	}
	return Short
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
