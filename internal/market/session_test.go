package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// dayBars 生成 UTC 某天从 9:00 开始的 n 根 5 分钟 bar。
func dayBars(day time.Time, n int) Window {
	var w Window
	start := time.Date(day.Year(), day.Month(), day.Day(), 9, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		open := start.Add(time.Duration(i) * 5 * time.Minute)
		w = append(w, mkBar(open.UnixMilli(), 100, 101, 99, 100))
	}
	return w
}

func twoDayWindow() Window {
	d1 := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	return append(dayBars(d1, 6), dayBars(d2, 4)...)
}

func TestSplitSessions(t *testing.T) {
	cal := NewSessionCalendar("UTC")
	sessions := cal.SplitSessions(twoDayWindow())

	assert.Equal(t, [][2]int{{0, 6}, {6, 10}}, sessions)
}

func TestCurrentAndPriorSession(t *testing.T) {
	cal := NewSessionCalendar("UTC")
	w := twoDayWindow()

	cs, ce := cal.CurrentSession(w)
	assert.Equal(t, 6, cs)
	assert.Equal(t, 10, ce)

	ps, pe, ok := cal.PriorSession(w)
	assert.True(t, ok)
	assert.Equal(t, 0, ps)
	assert.Equal(t, 6, pe)

	// 单日窗口没有前一交易日
	_, _, ok = cal.PriorSession(dayBars(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), 5))
	assert.False(t, ok)
}

func TestTimeOfDayFraction(t *testing.T) {
	cal := NewSessionCalendar("UTC")
	w := twoDayWindow()

	assert.Equal(t, 0.0, cal.TimeOfDayFraction(w, 6)) // 当日第一根
	assert.Equal(t, 1.0, cal.TimeOfDayFraction(w, 9)) // 当日最后一根
	assert.InDelta(t, 1.0/3.0, cal.TimeOfDayFraction(w, 7), 1e-9)

	// 越界下标不恐慌
	assert.Equal(t, 0.0, cal.TimeOfDayFraction(w, 99))
}

func TestBadTimezoneFallsBackToUTC(t *testing.T) {
	cal := NewSessionCalendar("No/Such_Zone")
	assert.Equal(t, time.UTC, cal.Location())
}
