package candidate

import (
	"github.com/shopspring/decimal"
)

// 价格全部按 tick 取整；取整方向遵循“对自己更不利”的保守原则：
// 止损向更差方向取整，入场向最近 tick 取整。

// roundToTick 取最近 tick。
func roundToTick(price, tick float64) float64 {
	if tick <= 0 {
		return price
	}
	p := decimal.NewFromFloat(price)
	t := decimal.NewFromFloat(tick)
	steps := p.Div(t).Round(0)
	f, _ := steps.Mul(t).Float64()
	return f
}

// roundStopAway 把止损向远离入场的方向取整（多头向下、空头向上）。
func roundStopAway(price, tick float64, side Side) float64 {
	if tick <= 0 {
		return price
	}
	p := decimal.NewFromFloat(price)
	t := decimal.NewFromFloat(tick)
	steps := p.Div(t)
	if side == Long {
		steps = steps.Floor()
	} else {
		steps = steps.Ceil()
	}
	f, _ := steps.Mul(t).Float64()
	return f
}

// computeSizing 按风险预算给出数量建议。
// quantity = floor(min(单笔上限, 当日剩余预算) / (止损距离 × point_value))
func computeSizing(c OrderCandidate, acct AccountState, spec InstrumentSpec) SizingResult {
	stopDist := c.EntryPrice - c.StopPrice
	if c.Side == Short {
		stopDist = c.StopPrice - c.EntryPrice
	}
	if stopDist <= 0 || spec.PointValue <= 0 {
		return SizingResult{}
	}
	riskPerUnit, _ := decimal.NewFromFloat(stopDist).
		Mul(decimal.NewFromFloat(spec.PointValue)).Float64()

	budget := acct.MaxRiskPerTrade()
	if rem := acct.RemainingDailyBudget(); rem < budget {
		budget = rem
	}
	if budget <= 0 || riskPerUnit <= 0 {
		return SizingResult{RiskPerUnit: riskPerUnit}
	}
	qty := decimal.NewFromFloat(budget).
		Div(decimal.NewFromFloat(riskPerUnit)).
		Floor().IntPart()
	if qty < 0 {
		qty = 0
	}
	cashRisk := float64(qty) * riskPerUnit
	riskInR := 0.0
	if oneR := acct.OneR(); oneR > 0 {
		riskInR = cashRisk / oneR
	}
	return SizingResult{
		RiskPerUnit:       riskPerUnit,
		SuggestedQuantity: qty,
		CashRisk:          cashRisk,
		RiskInR:           riskInR,
	}
}
