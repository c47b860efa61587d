package feature

import "brookside/internal/market"

// computeReversal 计算反转前兆信号组。
func computeReversal(w market.Window, i int, ind indicatorSet, lt LocalTrend, sw Swing, lookback int) Reversal {
	climax, pullbackBars := climaxRunup(w, i, ind, lookback)
	overshoot := channelOvershoot(w, i, ind)
	tlBreak := trendlineBreak(w, i, ind, lt)
	hl, lh := higherLowLowerHigh(w, i, sw)
	finalFlag := finalFlagScore(lt, sw, climax)

	return Reversal{
		TrendlineBreakScore:   tlBreak,
		ChannelOvershootScore: overshoot,
		ClimaxRunupScore:      climax,
		PullbackAfterClimax:   pullbackBars,
		HigherLowScore:        hl,
		LowerHighScore:        lh,
		FinalFlagScore:        finalFlag,
	}
}

// climaxRunup: 近 lookback 内出现连续大实体同向 bar 的程度，以及 climax 峰值后已回调的 bar 数。
func climaxRunup(w market.Window, i int, ind indicatorSet, lookback int) (float64, int) {
	start := i - lookback
	if start < 1 {
		start = 1
	}
	atr := ind.atrAt(w, i)
	if atr <= 0 {
		return 0, 0
	}
	bestRun := 0.0
	bestIdx := -1
	run := 0.0
	runLen := 0
	dir := 0
	for j := start; j <= i; j++ {
		d := 0
		if w[j].Bullish() {
			d = 1
		} else if w[j].Bearish() {
			d = -1
		}
		big := w[j].Body()/atr >= 0.8
		if d != 0 && d == dir && big {
			run += w[j].Body() / atr
			runLen++
		} else if d != 0 && big {
			dir = d
			run = w[j].Body() / atr
			runLen = 1
		} else {
			dir = 0
			run = 0
			runLen = 0
		}
		if runLen >= 2 && run > bestRun {
			bestRun = run
			bestIdx = j
		}
	}
	if bestIdx < 0 {
		return 0, 0
	}
	return clamp01(bestRun / 4.0), i - bestIdx
}

// channelOvershoot: 收盘越出 EMA±2.5*ATR 通道的程度。
func channelOvershoot(w market.Window, i int, ind indicatorSet) float64 {
	atr := ind.atrAt(w, i)
	if atr <= 0 {
		return 0
	}
	ema := ind.emaAt(w, i)
	band := 2.5 * atr
	over := 0.0
	if w[i].Close > ema+band {
		over = (w[i].Close - (ema + band)) / atr
	} else if w[i].Close < ema-band {
		over = ((ema - band) - w[i].Close) / atr
	}
	return clamp01(over)
}

// trendlineBreak: 趋势持续后收盘穿越 EMA 的新鲜程度（近 3 根内首次穿越给高分）。
func trendlineBreak(w market.Window, i int, ind indicatorSet, lt LocalTrend) float64 {
	if i < 3 || lt.TrendPersistence < 0.3 {
		return 0
	}
	side := func(j int) int {
		if w[j].Close > ind.emaAt(w, j) {
			return 1
		}
		return -1
	}
	cur := side(i)
	for back := 1; back <= 3; back++ {
		if side(i-back) != cur {
			// 越近的穿越越新鲜
			return clamp01(1 - float64(back-1)*0.3)
		}
	}
	return 0
}

// higherLowLowerHigh: 下行摆动中出现更高低点 → HL；上行中更低高点 → LH。
func higherLowLowerHigh(w market.Window, i int, sw Swing) (hl, lh float64) {
	if sw.Direction < 0 && sw.Leg2VsLeg1Ratio > 0 && sw.Leg2VsLeg1Ratio < 1 {
		hl = clamp01(1 - sw.Leg2VsLeg1Ratio)
	}
	if sw.Direction > 0 && sw.Leg2VsLeg1Ratio > 0 && sw.Leg2VsLeg1Ratio < 1 {
		lh = clamp01(1 - sw.Leg2VsLeg1Ratio)
	}
	return hl, lh
}

// finalFlagScore: 长趋势 + 楔形/衰减推进 + climax 之后 → 终结旗形。
func finalFlagScore(lt LocalTrend, sw Swing, climax float64) float64 {
	if lt.TrendPersistence < 0.4 {
		return 0
	}
	return clamp01(0.4*climax + 0.4*sw.WedgeScore + 0.2*lt.PullbackDepthRel)
}
