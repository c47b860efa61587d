package feature

import "brookside/internal/market"

// computeBarStats 计算决策 bar 的形态统计。
// 实体大 + 收盘贴极端 + 影线短 → 趋势 bar；实体小 → doji。
func computeBarStats(w market.Window, i int, ind indicatorSet, volLookback int) BarStats {
	cur := w[i]
	prev := cur
	if i > 0 {
		prev = w[i-1]
	}
	atr := ind.atrAt(w, i)
	rng := cur.Range()

	body := cur.Body()
	hi := cur.High
	lo := cur.Low
	op := cur.Open
	cl := cur.Close
	upperTail := hi - maxF(op, cl)
	if upperTail < 0 {
		upperTail = 0
	}
	lowerTail := minF(op, cl) - lo
	if lowerTail < 0 {
		lowerTail = 0
	}

	bodyRel := body / rng
	upperRel := upperTail / rng
	lowerRel := lowerTail / rng
	closePos := (cl - lo) / rng

	gap := 0.0
	if atr > 0 && i > 0 {
		gap = (op - prev.Close) / atr
	}

	trendBody := minF(bodyRel/0.7, 1)
	closeToEdge := clamp01(absF(closePos-0.5) * 2) // 收盘离中点越远越像趋势 bar
	tailPenalty := maxF(0, 1-(upperRel+lowerRel))
	trendScore := clamp01(trendBody*0.5 + closeToEdge*0.3 + tailPenalty*0.2)

	doji := 0.0
	if bodyRel < 0.4 {
		doji = clamp01((0.4 - bodyRel) / 0.4)
	}

	outside := 0.0
	inside := 0.0
	if i > 0 {
		if hi > prev.High && lo < prev.Low {
			outside = 1
		}
		if hi < prev.High && lo > prev.Low {
			inside = 1
		}
	}

	return BarStats{
		BodyRel:        clamp01(bodyRel),
		UpperTailRel:   clamp01(upperRel),
		LowerTailRel:   clamp01(lowerRel),
		ClosePosRel:    clamp01(closePos),
		RangeRelATR:    rng / atr,
		GapToPrevClose: gap,
		TrendBarScore:  trendScore,
		DojiScore:      doji,
		OutsideScore:   outside,
		InsideScore:    inside,
		VolumeZScore:   volumeZScore(w, i, volLookback),
	}
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
