package regime

import (
	"brookside/internal/feature"
)

// Label 是封闭的行情状态集合。分类函数是全函数：任何快照都会得到其中之一。
type Label string

const (
	TrendUp       Label = "TREND_UP"
	TrendDown     Label = "TREND_DOWN"
	Range         Label = "RANGE"
	ReversalSetup Label = "REVERSAL_SETUP"
	Ambiguous     Label = "AMBIGUOUS"
)

// All 列出全部合法标签。
func All() []Label {
	return []Label{TrendUp, TrendDown, Range, ReversalSetup, Ambiguous}
}

// Book 返回标签对应的战法书标识（检索路由使用）。AMBIGUOUS 无主书。
func (l Label) Book() string {
	switch l {
	case TrendUp, TrendDown:
		return "TREND"
	case Range:
		return "RANGE"
	case ReversalSetup:
		return "REVERSAL"
	default:
		return ""
	}
}

// Result 带上得出标签的依据评分，满足可解释性要求。
type Result struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"` // 胜者与次者的归一化差距 [0,1]
	// 判据快照：分类只看这几个数
	TrendScore    float64 `json:"trend_score"`
	RangeScore    float64 `json:"range_score"`
	ReversalScore float64 `json:"reversal_score"`
	EMASlope      float64 `json:"ema_slope"`
}

// Thresholds 集中存放分类阈值，避免散落在调用点。
type Thresholds struct {
	Clear             float64 // trend/range“明确”门槛
	AmbiguousMargin   float64 // 两者都明确且差距小于该值 → AMBIGUOUS
	ReversalThreshold float64 // reversal 需要的更高门槛
}

// Classify 是纯函数 Snapshot → Result，永不报错（AMBIGUOUS 是安全默认值）。
func Classify(snap *feature.Snapshot, th Thresholds) Result {
	trend := snap.Regime.TrendingScore
	rng := snap.Regime.RangingScore
	rev := snap.Regime.ReversalSetupScore
	slope := snap.LocalTrend.EMASlope

	res := Result{
		TrendScore:    trend,
		RangeScore:    rng,
		ReversalScore: rev,
		EMASlope:      slope,
	}

	// 反转优先：超过更高门槛且同时压过 trend 与 range，方向不影响判定。
	if rev >= th.ReversalThreshold && rev > trend && rev > rng {
		res.Label = ReversalSetup
		res.Confidence = normalizedMargin(rev, maxF(trend, rng))
		return res
	}

	// trend 与 range 同时“明确”且贴得太近 → 显式暴露歧义，而不是硬选一边。
	if trend >= th.Clear && rng >= th.Clear && absF(trend-rng) < th.AmbiguousMargin {
		res.Label = Ambiguous
		res.Confidence = normalizedMargin(maxF(trend, rng), minF(trend, rng))
		return res
	}

	if trend > rng {
		if slope >= 0 {
			res.Label = TrendUp
		} else {
			res.Label = TrendDown
		}
		res.Confidence = normalizedMargin(trend, maxF(rng, rev))
		return res
	}

	res.Label = Range
	res.Confidence = normalizedMargin(rng, maxF(trend, rev))
	return res
}

// normalizedMargin: (胜者-次者)/胜者，胜者为 0 时置 0。
func normalizedMargin(winner, runnerUp float64) float64 {
	if winner <= 0 {
		return 0
	}
	m := (winner - runnerUp) / winner
	if m < 0 {
		return 0
	}
	if m > 1 {
		return 1
	}
	return m
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
