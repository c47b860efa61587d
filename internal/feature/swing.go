package feature

import "brookside/internal/market"

// computeSwing 从已确认摆动点得出结构评分。
// 摆动点不足两个时整组取中性默认值。
func computeSwing(w market.Window, i int, ind indicatorSet, lookback, confirm int) Swing {
	start := i - lookback
	if start < 0 {
		start = 0
	}
	sub := w[start : i+1]
	points := market.SwingPoints(sub, confirm)
	if len(points) < 2 {
		return Swing{}
	}
	atr := ind.atrAt(w, i)

	dir := swingDirection(points)
	hhll := hhllScore(points)
	leg1, leg2 := legSizes(points, atr)
	ratio := 0.0
	if leg1 > 0 {
		ratio = leg2 / leg1
	}
	pushes := pushCount(points)
	wedge := wedgeScore(points, pushes)
	dt, db := doubleExtremeScores(points, atr)

	return Swing{
		Direction:       dir,
		HHLLScore:       hhll,
		Leg1SizeATR:     leg1,
		Leg2SizeATR:     leg2,
		Leg2VsLeg1Ratio: ratio,
		WedgePushCount:  pushes,
		WedgeScore:      wedge,
		DoubleTopScore:  dt,
		DoubleBotScore:  db,
	}
}

// swingDirection: 最近 high/low 各自相对前一个升降一致则给方向，否则 0。
func swingDirection(points []market.SwingPoint) float64 {
	var highs, lows []float64
	for _, p := range points {
		if p.High {
			highs = append(highs, p.Price)
		} else {
			lows = append(lows, p.Price)
		}
	}
	upVotes := 0
	downVotes := 0
	if n := len(highs); n >= 2 {
		if highs[n-1] > highs[n-2] {
			upVotes++
		} else if highs[n-1] < highs[n-2] {
			downVotes++
		}
	}
	if n := len(lows); n >= 2 {
		if lows[n-1] > lows[n-2] {
			upVotes++
		} else if lows[n-1] < lows[n-2] {
			downVotes++
		}
	}
	switch {
	case upVotes > downVotes:
		return 1
	case downVotes > upVotes:
		return -1
	default:
		return 0
	}
}

// hhllScore: HH/HL（或 LH/LL）结构的一致程度。
func hhllScore(points []market.SwingPoint) float64 {
	var highs, lows []float64
	for _, p := range points {
		if p.High {
			highs = append(highs, p.Price)
		} else {
			lows = append(lows, p.Price)
		}
	}
	agree := 0
	total := 0
	for i := 1; i < len(highs); i++ {
		total++
		if highs[i] > highs[i-1] {
			agree++
		} else {
			agree--
		}
	}
	for i := 1; i < len(lows); i++ {
		total++
		if lows[i] > lows[i-1] {
			agree++
		} else {
			agree--
		}
	}
	if total == 0 {
		return 0
	}
	return clamp01(absF(float64(agree)) / float64(total))
}

// legSizes 返回最近两腿长度（ATR 单位）。腿 = 相邻异向摆动点的价差。
func legSizes(points []market.SwingPoint, atr float64) (float64, float64) {
	if atr <= 0 {
		return 0, 0
	}
	var legs []float64
	for i := 1; i < len(points); i++ {
		if points[i].High != points[i-1].High {
			legs = append(legs, absF(points[i].Price-points[i-1].Price)/atr)
		}
	}
	switch len(legs) {
	case 0:
		return 0, 0
	case 1:
		return legs[0], 0
	default:
		return legs[len(legs)-2], legs[len(legs)-1]
	}
}

// pushCount 统计最近一段同向推进次数（连续更高的 swing high 或更低的 swing low），
// 楔形三推的 1/2/3 计数来源。
func pushCount(points []market.SwingPoint) int {
	var highs, lows []float64
	for _, p := range points {
		if p.High {
			highs = append(highs, p.Price)
		} else {
			lows = append(lows, p.Price)
		}
	}
	upPushes := 1
	for i := len(highs) - 1; i >= 1; i-- {
		if highs[i] > highs[i-1] {
			upPushes++
		} else {
			break
		}
	}
	downPushes := 1
	for i := len(lows) - 1; i >= 1; i-- {
		if lows[i] < lows[i-1] {
			downPushes++
		} else {
			break
		}
	}
	if len(highs) < 2 && len(lows) < 2 {
		return 0
	}
	if upPushes >= downPushes {
		return upPushes
	}
	return downPushes
}

// wedgeScore: 三推以上且第二腿不长于第一腿（动能递减）→ 楔形。
func wedgeScore(points []market.SwingPoint, pushes int) float64 {
	if pushes < 3 {
		return 0
	}
	score := 0.6
	if pushes >= 3 {
		score += 0.2
	}
	// 动能递减加分
	var legs []float64
	for i := 1; i < len(points); i++ {
		if points[i].High != points[i-1].High {
			legs = append(legs, absF(points[i].Price-points[i-1].Price))
		}
	}
	if n := len(legs); n >= 2 && legs[n-1] < legs[n-2] {
		score += 0.2
	}
	return clamp01(score)
}

// doubleExtremeScores: 最近两个同向极值价差在 0.3*ATR 内 → 双顶/双底。
// 价差越小评分越高。
func doubleExtremeScores(points []market.SwingPoint, atr float64) (top, bottom float64) {
	if atr <= 0 {
		return 0, 0
	}
	var highs, lows []float64
	for _, p := range points {
		if p.High {
			highs = append(highs, p.Price)
		} else {
			lows = append(lows, p.Price)
		}
	}
	tol := 0.3 * atr
	if n := len(highs); n >= 2 {
		d := absF(highs[n-1] - highs[n-2])
		if d <= tol {
			top = clamp01(1 - d/tol)
		}
	}
	if n := len(lows); n >= 2 {
		d := absF(lows[n-1] - lows[n-2])
		if d <= tol {
			bottom = clamp01(1 - d/tol)
		}
	}
	return top, bottom
}
