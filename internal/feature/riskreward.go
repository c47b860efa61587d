package feature

import "brookside/internal/market"

// computeRiskReward 给出 ATR 单位的粗粒度距离估计，供检索改写与候选生成参考。
// 注意这里只产生“距离”，具体价位由 LevelComputer 负责。
func computeRiskReward(w market.Window, i int, ind indicatorSet, confirm int) RiskReward {
	atr := ind.atrAt(w, i)
	if atr <= 0 {
		return RiskReward{}
	}
	points := market.SwingPoints(w[:i+1], confirm)
	cur := w[i].Close

	support := 0.0
	resistance := 0.0
	for j := len(points) - 1; j >= 0; j-- {
		p := points[j]
		if p.High && p.Price > cur && resistance == 0 {
			resistance = (p.Price - cur) / atr
		}
		if !p.High && p.Price < cur && support == 0 {
			support = (cur - p.Price) / atr
		}
		if support > 0 && resistance > 0 {
			break
		}
	}

	stop := maxF(support, 1.0) // 止损至少一个 ATR 结构缓冲
	scalp := 1.0
	swing := 2.0
	rr := RiskReward{
		NearestSupportDist:    support,
		NearestResistanceDist: resistance,
		StopDistanceSuggested: stop,
		ScalpTargetDist:       scalp,
		SwingTargetDist:       swing,
	}
	if stop > 0 {
		rr.RRScalpEstimate = scalp / stop
		rr.RRSwingEstimate = swing / stop
	}
	return rr
}

// computeRegimeScores 综合各组特征给出 regime 评分（全部 [0,1]）。
func computeRegimeScores(lt LocalTrend, tr TradingRange, rev Reversal, sw Swing) RegimeScores {
	trend := 0.4*minF(absF(lt.EMASlope)*5, 1) +
		0.3*directionalRatio(lt.BarsAboveEMARatio) +
		0.3*minF(float64(lt.MicroChannelBars)/10, 1)

	heightScore := 0.0
	switch h := tr.RangeHeightATR; {
	case h <= 0:
		heightScore = 0
	case h < 0.5:
		heightScore = h / 0.5
	case h <= 2.0:
		heightScore = 1
	default:
		heightScore = maxF(0, 1-(h-2.0)/3.0)
	}
	rng := 0.6*tr.OverlapRatio + 0.4*heightScore

	reversal := 0.35*rev.ClimaxRunupScore +
		0.25*rev.FinalFlagScore +
		0.2*maxF(rev.HigherLowScore, rev.LowerHighScore) +
		0.1*rev.TrendlineBreakScore +
		0.1*rev.ChannelOvershootScore

	breakout := 0.5*tr.BreakoutFailRatio + 0.3*tr.BarbwireScore +
		0.2*minF(float64(tr.BreakoutAttempts)/4, 1)

	return RegimeScores{
		TrendingScore:      clamp01(trend),
		RangingScore:       clamp01(rng),
		ReversalSetupScore: clamp01(reversal),
		BreakoutModeScore:  clamp01(breakout),
	}
}

// directionalRatio 把“在 EMA 上方比例”折算成方向一致性：0.5 最弱，两端最强。
func directionalRatio(aboveRatio float64) float64 {
	return clamp01(absF(aboveRatio-0.5) * 2)
}
