package feature

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"brookside/internal/market"
)

// 指标序列统一在这里预计算一次，各子特征只做下标访问。
type indicatorSet struct {
	ema []float64
	atr []float64
}

func computeIndicators(w market.Window, emaPeriod, atrPeriod int) indicatorSet {
	closes := w.Closes()
	set := indicatorSet{}
	if len(closes) >= emaPeriod && emaPeriod > 1 {
		set.ema = talib.Ema(closes, emaPeriod)
	}
	if len(closes) > atrPeriod && atrPeriod > 0 {
		set.atr = talib.Atr(w.Highs(), w.Lows(), closes, atrPeriod)
	}
	return set
}

// emaAt 返回 i 处 EMA；序列不足时退化为窗口均价（中性、确定性）。
func (s indicatorSet) emaAt(w market.Window, i int) float64 {
	if i >= 0 && i < len(s.ema) && s.ema[i] > 0 && !math.IsNaN(s.ema[i]) {
		return s.ema[i]
	}
	sum := 0.0
	for j := 0; j <= i && j < len(w); j++ {
		sum += w[j].Close
	}
	if i+1 <= 0 {
		return 0
	}
	return sum / float64(i+1)
}

// atrAt 返回 i 处 ATR；序列不足时退化为可用 bar 的平均振幅。
func (s indicatorSet) atrAt(w market.Window, i int) float64 {
	if i >= 0 && i < len(s.atr) && s.atr[i] > 0 && !math.IsNaN(s.atr[i]) {
		return s.atr[i]
	}
	sum := 0.0
	n := 0
	for j := 0; j <= i && j < len(w); j++ {
		sum += w[j].Range()
		n++
	}
	if n == 0 {
		return 1e-9
	}
	v := sum / float64(n)
	if v <= 0 {
		return 1e-9
	}
	return v
}

// volumeZScore 计算 i 处成交量相对近 lookback 根的 z 分数。
func volumeZScore(w market.Window, i, lookback int) float64 {
	start := i - lookback
	if start < 0 {
		start = 0
	}
	n := i - start
	if n < 2 {
		return 0
	}
	mean := 0.0
	for j := start; j < i; j++ {
		mean += w[j].Volume
	}
	mean /= float64(n)
	varSum := 0.0
	for j := start; j < i; j++ {
		d := w[j].Volume - mean
		varSum += d * d
	}
	std := math.Sqrt(varSum / float64(n))
	if std <= 0 {
		return 0
	}
	return (w[i].Volume - mean) / std
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	if math.IsNaN(v) {
		return 0
	}
	return v
}
