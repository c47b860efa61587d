package feature

import "brookside/internal/market"

// computeTradingRange 计算震荡结构特征。
// 边界测试的容差取 0.25*ATR；突破失败 = 越过边界后 2 根内收回区间内。
func computeTradingRange(w market.Window, i int, ind indicatorSet, lookback int) TradingRange {
	start := i - lookback + 1
	if start < 0 {
		start = 0
	}
	if i-start < 1 {
		return TradingRange{}
	}
	atr := ind.atrAt(w, i)

	// overlap_ratio：与前一根高低区间有重叠的 bar 占比
	overlaps := 0
	pairs := 0
	for j := start + 1; j <= i; j++ {
		pairs++
		if w[j].Low <= w[j-1].High && w[j].High >= w[j-1].Low {
			overlaps++
		}
	}
	overlapRatio := 0.0
	if pairs > 0 {
		overlapRatio = float64(overlaps) / float64(pairs)
	}

	hi := w[start].High
	lo := w[start].Low
	for j := start; j <= i; j++ {
		hi = maxF(hi, w[j].High)
		lo = minF(lo, w[j].Low)
	}
	heightATR := 0.0
	if atr > 0 {
		heightATR = (hi - lo) / atr
	}

	// 区间边界的测试与突破统计。范围用去掉极值 bar 后的主体近似：
	// 这里直接以窗口高低为边界，容差内的触碰计为 test。
	tol := 0.25 * atr
	testsHigh := 0
	testsLow := 0
	attempts := 0
	fails := 0
	for j := start; j <= i; j++ {
		if w[j].High >= hi-tol && w[j].High < hi {
			testsHigh++
		}
		if w[j].Low <= lo+tol && w[j].Low > lo {
			testsLow++
		}
		brokeUp := w[j].High >= hi && j > start
		brokeDown := w[j].Low <= lo && j > start
		if brokeUp || brokeDown {
			attempts++
			// 2 根内收盘回到区间内 → 突破失败
			failed := false
			for k := j + 1; k <= i && k <= j+2; k++ {
				if brokeUp && w[k].Close < hi-tol {
					failed = true
				}
				if brokeDown && w[k].Close > lo+tol {
					failed = true
				}
			}
			if failed {
				fails++
			}
		}
	}
	failRatio := 0.0
	if attempts > 0 {
		failRatio = float64(fails) / float64(attempts)
	}

	// time_in_range：从决策 bar 往回数仍落在 [lo,hi] 内的连续 bar 数
	timeIn := 0
	for j := i; j >= start; j-- {
		if w[j].High <= hi && w[j].Low >= lo {
			timeIn++
		} else {
			break
		}
	}

	// barbwire：高重叠 + 连续 doji 味道的小实体 bar
	smallBodies := 0
	for j := maxI(start, i-4); j <= i; j++ {
		if w[j].Body()/w[j].Range() < 0.35 {
			smallBodies++
		}
	}
	barbwire := clamp01(overlapRatio * float64(smallBodies) / 5.0)

	return TradingRange{
		OverlapRatio:      clamp01(overlapRatio),
		RangeHeightATR:    heightATR,
		TimeInRangeBars:   timeIn,
		TestsOfRangeHigh:  testsHigh,
		TestsOfRangeLow:   testsLow,
		BreakoutAttempts:  attempts,
		BreakoutFailRatio: clamp01(failRatio),
		BarbwireScore:     barbwire,
	}
}

func maxI(a, b int) int {
	if a > b {
		return a
	}
	return b
}
