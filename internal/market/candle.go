package market

import (
	"fmt"
	"time"
)

// Candle 是一根已收盘的 K 线，入库后不可变。
type Candle struct {
	OpenTime  int64   `json:"open_time"` // 毫秒时间戳
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Bullish 返回是否为阳线。
func (c Candle) Bullish() bool { return c.Close > c.Open }

// Bearish 返回是否为阴线。
func (c Candle) Bearish() bool { return c.Close < c.Open }

// Range 返回高低差，最小返回一个极小正数避免除零。
func (c Candle) Range() float64 {
	r := c.High - c.Low
	if r <= 0 {
		return 1e-9
	}
	return r
}

// Body 返回实体高度。
func (c Candle) Body() float64 {
	if c.Close >= c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// OpenAt 返回 bar 开盘时间（给定时区）。
func (c Candle) OpenAt(loc *time.Location) time.Time {
	return time.UnixMilli(c.OpenTime).In(loc)
}

// Window 是按 open_time 严格递增排列的一段 K 线，决策只消费窗口，不持有全历史。
type Window []Candle

// Validate 检查时间序严格递增。顺序错乱说明上游数据损坏，直接失败。
func (w Window) Validate() error {
	for i := 1; i < len(w); i++ {
		if w[i].OpenTime <= w[i-1].OpenTime {
			return fmt.Errorf("window 乱序: bar[%d].open_time=%d <= bar[%d].open_time=%d",
				i, w[i].OpenTime, i-1, w[i-1].OpenTime)
		}
	}
	return nil
}

// Last 返回决策 bar（窗口最后一根）。窗口为空时返回零值。
func (w Window) Last() Candle {
	if len(w) == 0 {
		return Candle{}
	}
	return w[len(w)-1]
}

// Closes 提取收盘价序列，指标计算使用。
func (w Window) Closes() []float64 {
	out := make([]float64, len(w))
	for i, c := range w {
		out[i] = c.Close
	}
	return out
}

// Highs 提取最高价序列。
func (w Window) Highs() []float64 {
	out := make([]float64, len(w))
	for i, c := range w {
		out[i] = c.High
	}
	return out
}

// Lows 提取最低价序列。
func (w Window) Lows() []float64 {
	out := make([]float64, len(w))
	for i, c := range w {
		out[i] = c.Low
	}
	return out
}

// Volumes 提取成交量序列。
func (w Window) Volumes() []float64 {
	out := make([]float64, len(w))
	for i, c := range w {
		out[i] = c.Volume
	}
	return out
}
