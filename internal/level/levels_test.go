package level

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brookside/internal/market"
)

func testConfig() Config {
	return Config{
		EMAPeriod:        20,
		ATRPeriod:        14,
		OpeningRangeBars: 3,
		SwingLookback:    50,
		SwingConfirm:     3,
	}
}

// sessionBars 生成 UTC 某日 9:00 起的 5 分钟 bar，价格逐根给定。
func sessionBars(day time.Time, closes []float64) market.Window {
	start := time.Date(day.Year(), day.Month(), day.Day(), 9, 0, 0, 0, time.UTC)
	w := make(market.Window, len(closes))
	for i, c := range closes {
		open := c - 0.5
		openTime := start.Add(time.Duration(i) * 5 * time.Minute)
		w[i] = market.Candle{
			OpenTime:  openTime.UnixMilli(),
			CloseTime: openTime.Add(5*time.Minute).UnixMilli() - 1,
			Open:      open,
			High:      c + 1,
			Low:       open - 1,
			Close:     c,
			Volume:    1000,
		}
	}
	return w
}

func twoDayWindow() market.Window {
	d1 := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	prior := sessionBars(d1, []float64{100, 102, 105, 103, 101, 99})
	today := sessionBars(d1.AddDate(0, 0, 1), []float64{100, 101, 102, 103, 104})
	return append(prior, today...)
}

func TestComputePriorDayLevels(t *testing.T) {
	c := NewComputer(testConfig(), market.NewSessionCalendar("UTC"))
	res, err := c.Compute(twoDayWindow())
	require.NoError(t, err)

	hi, ok := Find(res.Levels, PriorDayHigh)
	require.True(t, ok)
	assert.Equal(t, 106.0, hi.Price) // 前日最高 close 105 + 1
	assert.Equal(t, 2, hi.SourceBarIndex)

	lo, ok := Find(res.Levels, PriorDayLow)
	require.True(t, ok)
	assert.Equal(t, 97.5, lo.Price) // 前日最低 close 99 → open 98.5 → low 97.5

	cl, ok := Find(res.Levels, PriorDayClose)
	require.True(t, ok)
	assert.Equal(t, 99.0, cl.Price)
	assert.Equal(t, 5, cl.SourceBarIndex)
}

func TestComputeOpeningRange(t *testing.T) {
	c := NewComputer(testConfig(), market.NewSessionCalendar("UTC"))
	res, err := c.Compute(twoDayWindow())
	require.NoError(t, err)
	require.NoError(t, res.OpeningRangeErr)

	// 当日前 3 根：close 100,101,102 → high 103, low 98.5
	hi, ok := Find(res.Levels, OpeningRangeHigh)
	require.True(t, ok)
	assert.Equal(t, 103.0, hi.Price)

	lo, ok := Find(res.Levels, OpeningRangeLow)
	require.True(t, ok)
	assert.Equal(t, 98.5, lo.Price)
}

// 当日 bar 不足开盘区间时给出 IncompleteSessionError，但其余价位照常返回。
func TestComputeOpeningRangeIncomplete(t *testing.T) {
	d1 := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	w := append(
		sessionBars(d1, []float64{100, 102, 105, 103, 101, 99}),
		sessionBars(d1.AddDate(0, 0, 1), []float64{100, 101})...,
	)

	c := NewComputer(testConfig(), market.NewSessionCalendar("UTC"))
	res, err := c.Compute(w)
	require.NoError(t, err)

	var ise *IncompleteSessionError
	require.True(t, errors.As(res.OpeningRangeErr, &ise))
	assert.Equal(t, 2, ise.Have)
	assert.Equal(t, 3, ise.Need)

	_, ok := Find(res.Levels, OpeningRangeHigh)
	assert.False(t, ok)
	_, ok = Find(res.Levels, PriorDayHigh)
	assert.True(t, ok) // 其余价位不受影响
}

// 禁止前视：所有价位的来源 bar 不得晚于决策 bar。
func TestComputeNoLookahead(t *testing.T) {
	w := twoDayWindow()
	c := NewComputer(testConfig(), market.NewSessionCalendar("UTC"))
	res, err := c.Compute(w)
	require.NoError(t, err)

	last := len(w) - 1
	for _, lv := range res.Levels {
		assert.LessOrEqualf(t, lv.SourceBarIndex, last, "kind=%s", lv.Kind)
		assert.GreaterOrEqualf(t, lv.SourceBarIndex, 0, "kind=%s", lv.Kind)
	}
}

func TestComputePriceContext(t *testing.T) {
	w := twoDayWindow()
	c := NewComputer(testConfig(), market.NewSessionCalendar("UTC"))
	res, err := c.Compute(w)
	require.NoError(t, err)

	pc := res.PriceCtx
	assert.Equal(t, w.Last().Close, pc.CurrentPrice)
	assert.Greater(t, pc.CurrentATR, 0.0)
	assert.Equal(t, 99.5, pc.DayOpen)  // 当日第一根 open
	assert.Equal(t, 105.0, pc.DayHigh) // 当日最高 close 104 + 1
	assert.Equal(t, 98.5, pc.DayLow)
}

// 同一窗口两次计算结果必须一致。
func TestComputeDeterministic(t *testing.T) {
	w := twoDayWindow()
	c := NewComputer(testConfig(), market.NewSessionCalendar("UTC"))

	a, err := c.Compute(w)
	require.NoError(t, err)
	b, err := c.Compute(w)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestComputeEmptyWindow(t *testing.T) {
	c := NewComputer(testConfig(), market.NewSessionCalendar("UTC"))
	_, err := c.Compute(nil)
	assert.Error(t, err)
}
