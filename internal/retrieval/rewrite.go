package retrieval

import (
	"fmt"
	"sort"

	"brookside/internal/candidate"
	"brookside/internal/feature"
	"brookside/internal/regime"
)

// Rewriter 把计划里的基准意图扩写成若干 (intent, sub-topic) 查询。
// 查询条数受 MaxQueries 约束，超出时按触发特征评分裁剪。
type Rewriter struct {
	MaxQueries int
}

// subTopic 把一个非零形态评分映射为一条 pattern 查询。
type subTopic struct {
	topic string
	score func(s *feature.Snapshot) float64
	text  func(s *feature.Snapshot) string
}

// 子话题表是固定顺序的，同分裁剪时顺序保证结果可复现。
var patternTopics = []subTopic{
	{
		topic: "wedge",
		score: func(s *feature.Snapshot) float64 { return s.Swing.WedgeScore },
		text: func(s *feature.Snapshot) string {
			return fmt.Sprintf("wedge with %d pushes, wedge_score=%.2f: with-trend entry or reversal precursor?",
				s.Swing.WedgePushCount, s.Swing.WedgeScore)
		},
	},
	{
		topic: "double_top",
		score: func(s *feature.Snapshot) float64 { return s.Swing.DoubleTopScore },
		text: func(s *feature.Snapshot) string {
			return fmt.Sprintf("double top test, score=%.2f: range edge fade or major reversal?", s.Swing.DoubleTopScore)
		},
	},
	{
		topic: "double_bottom",
		score: func(s *feature.Snapshot) float64 { return s.Swing.DoubleBotScore },
		text: func(s *feature.Snapshot) string {
			return fmt.Sprintf("double bottom test, score=%.2f: range edge fade or major reversal?", s.Swing.DoubleBotScore)
		},
	},
	{
		topic: "micro_channel",
		score: func(s *feature.Snapshot) float64 {
			return minF(float64(s.LocalTrend.MicroChannelBars)/10, 1)
		},
		text: func(s *feature.Snapshot) string {
			return fmt.Sprintf("micro channel of %d bars: how to enter, where is the first pullback tradeable?",
				s.LocalTrend.MicroChannelBars)
		},
	},
	{
		topic: "climax",
		score: func(s *feature.Snapshot) float64 { return s.Reversal.ClimaxRunupScore },
		text: func(s *feature.Snapshot) string {
			return fmt.Sprintf("climax run-up score=%.2f after %d pullback bars: scalp only or two-legged correction?",
				s.Reversal.ClimaxRunupScore, s.Reversal.PullbackAfterClimax)
		},
	},
	{
		topic: "final_flag",
		score: func(s *feature.Snapshot) float64 { return s.Reversal.FinalFlagScore },
		text: func(s *feature.Snapshot) string {
			return fmt.Sprintf("possible final flag, score=%.2f: failed breakout reversal rules", s.Reversal.FinalFlagScore)
		},
	},
	{
		topic: "barbwire",
		score: func(s *feature.Snapshot) float64 { return s.TradingRange.BarbwireScore },
		text: func(s *feature.Snapshot) string {
			return fmt.Sprintf("barbwire score=%.2f, overlap=%.2f: stand aside rules and scalp exceptions",
				s.TradingRange.BarbwireScore, s.TradingRange.OverlapRatio)
		},
	},
	{
		topic: "breakout_failure",
		score: func(s *feature.Snapshot) float64 { return s.TradingRange.BreakoutFailRatio },
		text: func(s *feature.Snapshot) string {
			return fmt.Sprintf("breakout fail ratio=%.2f over %d attempts: fade or follow the next breakout?",
				s.TradingRange.BreakoutFailRatio, s.TradingRange.BreakoutAttempts)
		},
	},
}

// triggerFloor 以下的形态评分视为没触发，不生成子话题查询。
const triggerFloor = 0.3

// Rewrite 展开计划的查询集合并套上限。
// 基准的 regime / management 查询不参与裁剪（意图覆盖优先于话题数量）。
func (rw *Rewriter) Rewrite(plan Plan, snap *feature.Snapshot) []Query {
	max := rw.MaxQueries
	if max <= 0 {
		max = 6
	}

	var keep []Query
	var patterns []Query
	for _, q := range plan.Queries {
		if q.Intent == IntentPattern {
			patterns = append(patterns, q)
			continue
		}
		keep = append(keep, q)
	}

	for _, st := range patternTopics {
		score := st.score(snap)
		if score < triggerFloor {
			continue
		}
		patterns = append(patterns, Query{
			Intent:       IntentPattern,
			Topic:        st.topic,
			Text:         st.text(snap),
			TriggerScore: score,
		})
	}

	// 触发评分降序裁剪，同分保序
	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].TriggerScore > patterns[j].TriggerScore
	})
	room := max - len(keep)
	if room < 1 {
		room = 1
	}
	if len(patterns) > room {
		patterns = patterns[:room]
	}
	return append(patterns, keep...)
}

// patternQuery 是 pattern 意图的基准查询：把非零结构评分编成一段模板文本。
func patternQuery(s *feature.Snapshot) string {
	return fmt.Sprintf(
		"Bar: trend_bar=%.2f doji=%.2f close_pos=%.2f | Structure: wedge=%.2f double_top=%.2f double_bottom=%.2f micro_channel=%d | what setup is present?",
		s.Bar.TrendBarScore, s.Bar.DojiScore, s.Bar.ClosePosRel,
		s.Swing.WedgeScore, s.Swing.DoubleTopScore, s.Swing.DoubleBotScore,
		s.LocalTrend.MicroChannelBars,
	)
}

// regimeQuery 是 regime 意图的基准查询。
func regimeQuery(s *feature.Snapshot, res regime.Result) string {
	return fmt.Sprintf(
		"Regime candidate %s (conf=%.2f): trending=%.2f ranging=%.2f reversal=%.2f overlap=%.2f ema_slope=%.3f | does the evidence support it?",
		res.Label, res.Confidence,
		s.Regime.TrendingScore, s.Regime.RangingScore, s.Regime.ReversalSetupScore,
		s.TradingRange.OverlapRatio, s.LocalTrend.EMASlope,
	)
}

// managementQuery 是 management 意图的基准查询。
func managementQuery(pos candidate.PositionState) string {
	return fmt.Sprintf(
		"Open %s position, unrealized=%.2fR: trailing stop, scale-out and exit management rules",
		pos.Side, pos.UnrealizedR,
	)
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
