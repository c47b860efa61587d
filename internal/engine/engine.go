package engine

import (
	"context"
	"errors"

	"brookside/internal/candidate"
	"brookside/internal/decisionctx"
	"brookside/internal/feature"
	"brookside/internal/level"
	"brookside/internal/logger"
	"brookside/internal/market"
	"brookside/internal/regime"
	"brookside/internal/retrieval"
	"brookside/internal/store/decisionlog"
)

// Engine 把各阶段串成一次 bar-close 决策：
// 窗口 → 快照 → {regime, 价位} → {候选, 检索计划} → 检索 → 上下文。
// 计算层错误是该轮的致命错误；检索层故障只降级不中断。
type Engine struct {
	Extractor *feature.Extractor
	Regime    regime.Thresholds
	Levels    *level.Computer
	Generator *candidate.Generator
	Router    *retrieval.Router
	Rewriter  *retrieval.Rewriter
	Retriever *retrieval.Retriever
	Builder   *decisionctx.Builder

	// RequireOpeningRange 为 true 时，开盘区间价位缺失判该轮失败。
	RequireOpeningRange bool

	// Log 可为 nil（不落库）。
	Log *decisionlog.Store
}

// Request 是一次评估的全部外部输入。
type Request struct {
	Symbol   string
	Window   market.Window
	Account  candidate.AccountState
	Position candidate.PositionState
	Spec     candidate.InstrumentSpec
}

// Evaluate 执行一次完整决策。返回值二选一：
// 完整上下文（可能带 degraded 标记），或一个带明确类别的致命错误。
func (e *Engine) Evaluate(ctx context.Context, req Request) (decisionctx.DecisionContext, error) {
	snap, err := e.Extractor.Extract(req.Symbol, req.Window)
	if err != nil {
		return decisionctx.DecisionContext{}, err
	}

	res := regime.Classify(snap, e.Regime)

	lv, err := e.Levels.Compute(req.Window)
	if err != nil {
		return decisionctx.DecisionContext{}, err
	}
	if lv.OpeningRangeErr != nil {
		var ise *level.IncompleteSessionError
		if e.RequireOpeningRange && errors.As(lv.OpeningRangeErr, &ise) {
			return decisionctx.DecisionContext{}, lv.OpeningRangeErr
		}
		logger.Debugf("开盘区间缺失，跳过该价位: %v", lv.OpeningRangeErr)
	}

	cands := e.Generator.Generate(candidate.Input{
		Snapshot: snap,
		Regime:   res,
		Levels:   lv.Levels,
		PriceCtx: lv.PriceCtx,
		Account:  req.Account,
		Spec:     req.Spec,
	})

	plan := e.Router.BuildPlan(snap, res, req.Position)
	plan.Queries = e.Rewriter.Rewrite(plan, snap)

	retrieved := e.Retriever.Retrieve(ctx, plan)
	if retrieved.Degraded {
		logger.Warnf("向量索引不可达，以纯战法上下文继续 symbol=%s", req.Symbol)
	}

	dctx := e.Builder.Build(decisionctx.Input{
		Snapshot:  snap,
		Regime:    res,
		Levels:    lv,
		Cands:     cands,
		Account:   req.Account,
		Position:  req.Position,
		Plan:      plan,
		Retrieved: retrieved,
	})
	if err := dctx.Validate(); err != nil {
		return decisionctx.DecisionContext{}, err
	}

	if e.Log != nil {
		if err := e.Log.Save(ctx, dctx); err != nil {
			logger.Errorf("决策日志写入失败 trace=%s: %v", dctx.TraceID, err)
		}
	}

	logger.Infof("决策完成 symbol=%s regime=%s conf=%.2f status=%s candidates=%d degraded=%v",
		req.Symbol, res.Label, res.Confidence, cands.Status, len(cands.Candidates), dctx.Degraded)
	return dctx, nil
}
