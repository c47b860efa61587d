package market

import (
	"time"
)

// SessionCalendar 把 bar 按交易日分组。这里用日历日（指定时区）近似交易日，
// 对 RTH 数据足够；ETH 分界由上游数据源负责切好。
type SessionCalendar struct {
	loc *time.Location
}

// NewSessionCalendar 创建日历；timezone 解析失败时回退 UTC。
func NewSessionCalendar(timezone string) *SessionCalendar {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	return &SessionCalendar{loc: loc}
}

// Location 返回日历时区。
func (s *SessionCalendar) Location() *time.Location { return s.loc }

// SessionKey 返回 bar 所在交易日的标识（YYYY-MM-DD）。
func (s *SessionCalendar) SessionKey(c Candle) string {
	return c.OpenAt(s.loc).Format("2006-01-02")
}

// SplitSessions 返回窗口内每个交易日的起止下标（闭区间起、开区间止），按时间序。
func (s *SessionCalendar) SplitSessions(w Window) [][2]int {
	if len(w) == 0 {
		return nil
	}
	var out [][2]int
	start := 0
	key := s.SessionKey(w[0])
	for i := 1; i < len(w); i++ {
		k := s.SessionKey(w[i])
		if k != key {
			out = append(out, [2]int{start, i})
			start = i
			key = k
		}
	}
	out = append(out, [2]int{start, len(w)})
	return out
}

// CurrentSession 返回决策 bar 所在交易日的起止下标。
func (s *SessionCalendar) CurrentSession(w Window) (int, int) {
	sessions := s.SplitSessions(w)
	if len(sessions) == 0 {
		return 0, 0
	}
	last := sessions[len(sessions)-1]
	return last[0], last[1]
}

// PriorSession 返回决策 bar 前一个交易日的起止下标；窗口内没有前一日时 ok=false。
func (s *SessionCalendar) PriorSession(w Window) (int, int, bool) {
	sessions := s.SplitSessions(w)
	if len(sessions) < 2 {
		return 0, 0, false
	}
	prior := sessions[len(sessions)-2]
	return prior[0], prior[1], true
}

// TimeOfDayFraction 把 bar 在当日 session 中的位置线性映射到 [0,1]。
// 单日只有一根 bar 时返回 0。
func (s *SessionCalendar) TimeOfDayFraction(w Window, i int) float64 {
	if i < 0 || i >= len(w) {
		return 0
	}
	sessions := s.SplitSessions(w)
	for _, span := range sessions {
		if i >= span[0] && i < span[1] {
			n := span[1] - span[0]
			if n <= 1 {
				return 0
			}
			return float64(i-span[0]) / float64(n-1)
		}
	}
	return 0
}
