package feature

import "brookside/internal/market"

// computeLocalTrend 计算近端趋势描述。
// 历史不足的子项取中性默认值，不让整个快照失败。
func computeLocalTrend(w market.Window, i int, ind indicatorSet, lookback int) LocalTrend {
	atr := ind.atrAt(w, i)

	// ema_slope = (ema[i] - ema[i-k]) / (ATR * k)
	k := lookback
	if k > i {
		k = i
	}
	slope := 0.0
	if k > 0 && atr > 0 {
		slope = (ind.emaAt(w, i) - ind.emaAt(w, i-k)) / (atr * float64(k))
	}

	start := i - lookback + 1
	if start < 0 {
		start = 0
	}
	above := 0
	total := 0
	for j := start; j <= i; j++ {
		total++
		if w[j].Close > ind.emaAt(w, j) {
			above++
		}
	}
	aboveRatio := 0.0
	if total > 0 {
		aboveRatio = float64(above) / float64(total)
	}

	bull, bear := consecutiveRuns(w, i, lookback)
	micro := microChannelBars(w, i, lookback)
	depth, pbBars := lastPullback(w, i, ind, lookback)
	spike := spikeStrength(w, i, ind)

	persistence := clamp01(0.5*minF(absF(slope)*5, 1) + 0.3*aboveRatio + 0.2*minF(float64(micro)/10, 1))

	return LocalTrend{
		EMASlope:            slope,
		BarsAboveEMARatio:   clamp01(aboveRatio),
		ConsecutiveBullBars: bull,
		ConsecutiveBearBars: bear,
		MicroChannelBars:    micro,
		PullbackDepthRel:    depth,
		PullbackBars:        pbBars,
		SpikeStrength:       spike,
		TrendPersistence:    persistence,
	}
}

// consecutiveRuns 从决策 bar 往回数连续同向 bar。
func consecutiveRuns(w market.Window, i, lookback int) (bull, bear int) {
	for j := i; j >= 0 && j > i-lookback; j-- {
		if w[j].Bullish() {
			if bear > 0 {
				return
			}
			bull++
		} else if w[j].Bearish() {
			if bull > 0 {
				return
			}
			bear++
		} else {
			return
		}
	}
	return
}

// microChannelBars 统计连续 low 抬高（上行）或 high 降低（下行）的 bar 数。
func microChannelBars(w market.Window, i, lookback int) int {
	if i < 1 {
		return 0
	}
	count := 0
	dir := 0 // +1 上行, -1 下行
	prevLow := w[i].Low
	prevHigh := w[i].High
	for j := i - 1; j >= 0 && j > i-lookback; j-- {
		switch dir {
		case 0:
			if w[j].Low < prevLow {
				dir = 1
				count++
				prevLow = w[j].Low
			} else if w[j].High > prevHigh {
				dir = -1
				count++
				prevHigh = w[j].High
			} else {
				return 0
			}
		case 1:
			if w[j].Low < prevLow {
				count++
				prevLow = w[j].Low
			} else {
				return count
			}
		case -1:
			if w[j].High > prevHigh {
				count++
				prevHigh = w[j].High
			} else {
				return count
			}
		}
	}
	return count
}

// lastPullback 度量最近一次回调：回调深度 / 最近主趋势腿高度，以及回调持续 bar 数。
func lastPullback(w market.Window, i int, ind indicatorSet, lookback int) (float64, int) {
	start := i - lookback
	if start < 0 {
		start = 0
	}
	if i-start < 3 {
		return 0, 0
	}
	up := ind.emaAt(w, i) <= w[i].Close
	if up {
		// 主腿 = 窗口最低点到最近最高点；回调 = 最高点之后到现在的回落
		hiIdx := start
		for j := start; j <= i; j++ {
			if w[j].High > w[hiIdx].High {
				hiIdx = j
			}
		}
		loPrice := w[start].Low
		for j := start; j <= hiIdx; j++ {
			if w[j].Low < loPrice {
				loPrice = w[j].Low
			}
		}
		leg := w[hiIdx].High - loPrice
		if leg <= 0 || hiIdx >= i {
			return 0, 0
		}
		pullLow := w[hiIdx].Low
		for j := hiIdx; j <= i; j++ {
			if w[j].Low < pullLow {
				pullLow = w[j].Low
			}
		}
		return clamp01((w[hiIdx].High - pullLow) / leg), i - hiIdx
	}
	loIdx := start
	for j := start; j <= i; j++ {
		if w[j].Low < w[loIdx].Low {
			loIdx = j
		}
	}
	hiPrice := w[start].High
	for j := start; j <= loIdx; j++ {
		if w[j].High > hiPrice {
			hiPrice = w[j].High
		}
	}
	leg := hiPrice - w[loIdx].Low
	if leg <= 0 || loIdx >= i {
		return 0, 0
	}
	pullHigh := w[loIdx].High
	for j := loIdx; j <= i; j++ {
		if w[j].High > pullHigh {
			pullHigh = w[j].High
		}
	}
	return clamp01((pullHigh - w[loIdx].Low) / leg), i - loIdx
}

// spikeStrength 以最近 3 根 bar 的同向趋势 bar 强度近似 spike。
func spikeStrength(w market.Window, i int, ind indicatorSet) float64 {
	if i < 2 {
		return 0
	}
	atr := ind.atrAt(w, i)
	if atr <= 0 {
		return 0
	}
	sameDir := (w[i].Bullish() && w[i-1].Bullish() && w[i-2].Bullish()) ||
		(w[i].Bearish() && w[i-1].Bearish() && w[i-2].Bearish())
	if !sameDir {
		return 0
	}
	sum := 0.0
	for j := i - 2; j <= i; j++ {
		sum += w[j].Body() / atr
	}
	return clamp01(sum / 3.0)
}
