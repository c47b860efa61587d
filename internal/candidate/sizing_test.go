package candidate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundToTick(t *testing.T) {
	assert.Equal(t, 100.25, roundToTick(100.3, 0.25))
	assert.Equal(t, 100.25, roundToTick(100.2, 0.25))
	assert.Equal(t, 100.2, roundToTick(100.2, 0)) // tick 未知时原样返回
}

// 止损取整必须朝对自己更不利的方向：多头向下、空头向上。
func TestRoundStopAway(t *testing.T) {
	assert.Equal(t, 99.75, roundStopAway(99.9, 0.25, Long))
	assert.Equal(t, 100.25, roundStopAway(100.1, 0.25, Short))
}

func TestComputeSizingBasic(t *testing.T) {
	// 1% × $10000 = $100 单笔风险；2 点止损 × $50/点 = $100/手 → 1 手
	acct := AccountState{Equity: 10000, MaxRiskPerTradeR: 0.01, MaxDailyLossR: 3}
	spec := InstrumentSpec{TickSize: 0.25, PointValue: 50}
	c := OrderCandidate{Side: Long, EntryPrice: 100, StopPrice: 98,
		Targets: []Target{{Price: 104, SizeFraction: 1}}}

	sz := computeSizing(c, acct, spec)
	assert.Equal(t, int64(1), sz.SuggestedQuantity)
	assert.InDelta(t, 100.0, sz.RiskPerUnit, 1e-9)
	assert.InDelta(t, 100.0, sz.CashRisk, 1e-9)
	assert.InDelta(t, 1.0, sz.RiskInR, 1e-9)
	// 不变量：现金风险不超过单笔上限
	assert.LessOrEqual(t, sz.CashRisk, acct.MaxRiskPerTrade()+1e-9)
}

func TestComputeSizingCappedByDailyBudget(t *testing.T) {
	// 今日已亏 2.5R，剩 0.5R = $50 预算 → 手数被压到 0
	acct := AccountState{Equity: 10000, MaxRiskPerTradeR: 0.01, MaxDailyLossR: 3, RealizedPnLRToday: -2.5}
	spec := InstrumentSpec{TickSize: 0.25, PointValue: 50}
	c := OrderCandidate{Side: Short, EntryPrice: 100, StopPrice: 102,
		Targets: []Target{{Price: 96, SizeFraction: 1}}}

	sz := computeSizing(c, acct, spec)
	assert.Equal(t, int64(0), sz.SuggestedQuantity)
}

func TestComputeSizingInvalidStop(t *testing.T) {
	acct := AccountState{Equity: 10000, MaxRiskPerTradeR: 0.01, MaxDailyLossR: 3}
	spec := InstrumentSpec{PointValue: 50}
	// 多头止损在入场之上 → 距离非正，直接 0 手
	c := OrderCandidate{Side: Long, EntryPrice: 100, StopPrice: 101}
	assert.Equal(t, int64(0), computeSizing(c, acct, spec).SuggestedQuantity)
}

func TestRemainingDailyBudget(t *testing.T) {
	acct := AccountState{Equity: 10000, MaxRiskPerTradeR: 0.01, MaxDailyLossR: 3}

	assert.InDelta(t, 300.0, acct.RemainingDailyBudget(), 1e-9)

	acct.RealizedPnLRToday = -1
	assert.InDelta(t, 200.0, acct.RemainingDailyBudget(), 1e-9)

	// 盈利不追加预算
	acct.RealizedPnLRToday = 2
	assert.InDelta(t, 300.0, acct.RemainingDailyBudget(), 1e-9)

	annihilated := AccountState{Equity: 10000, MaxRiskPerTradeR: 0.01, MaxDailyLossR: 3, RealizedPnLRToday: -5}
	assert.Equal(t, 0.0, annihilated.RemainingDailyBudget())
}
