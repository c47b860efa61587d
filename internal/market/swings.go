package market

// SwingPoint 是一个已确认的摆动极值。
type SwingPoint struct {
	Index int     // 在窗口内的下标
	Price float64 // high 或 low
	High  bool    // true=swing high, false=swing low
}

// SwingPoints 用严格局部极值检测摆动点：bar i 的 high 必须严格高于
// 前后各 confirm 根 bar 的 high 才算 swing high（low 镜像）。
// 只返回已确认的点（右侧有足够 bar），按时间序排列。
func SwingPoints(w Window, confirm int) []SwingPoint {
	if confirm < 1 {
		confirm = 1
	}
	n := len(w)
	var out []SwingPoint
	for i := confirm; i < n-confirm; i++ {
		isHigh := true
		isLow := true
		for j := i - confirm; j <= i+confirm; j++ {
			if j == i {
				continue
			}
			if w[j].High >= w[i].High {
				isHigh = false
			}
			if w[j].Low <= w[i].Low {
				isLow = false
			}
			if !isHigh && !isLow {
				break
			}
		}
		if isHigh {
			out = append(out, SwingPoint{Index: i, Price: w[i].High, High: true})
		}
		if isLow {
			out = append(out, SwingPoint{Index: i, Price: w[i].Low, High: false})
		}
	}
	return out
}

// LastSwings 返回最近的 swing high 与 swing low（可能缺失）。
func LastSwings(points []SwingPoint) (high *SwingPoint, low *SwingPoint) {
	for i := len(points) - 1; i >= 0; i-- {
		p := points[i]
		if p.High && high == nil {
			cp := p
			high = &cp
		}
		if !p.High && low == nil {
			cp := p
			low = &cp
		}
		if high != nil && low != nil {
			break
		}
	}
	return high, low
}
