package decisionctx

import (
	"time"

	"github.com/google/uuid"

	"brookside/internal/candidate"
	"brookside/internal/doctrine"
	"brookside/internal/feature"
	"brookside/internal/level"
	"brookside/internal/logger"
	"brookside/internal/regime"
	"brookside/internal/retrieval"
)

// Builder 把各阶段产物合成为 DecisionContext。
type Builder struct {
	docs *doctrine.Store
}

func NewBuilder(docs *doctrine.Store) *Builder {
	return &Builder{docs: docs}
}

// Input 是合成所需的全部阶段产物。
type Input struct {
	Snapshot  *feature.Snapshot
	Regime    regime.Result
	Levels    level.Result
	Cands     candidate.Result
	Account   candidate.AccountState
	Position  candidate.PositionState
	Plan      retrieval.Plan
	Retrieved retrieval.RetrieveResult
}

// Build 合成上下文。超预算时先裁检索段落、再动战法文档：
// 战法与计算数字是承重结构，检索文字是补充材料。
func (b *Builder) Build(in Input) DecisionContext {
	ctx := DecisionContext{
		TraceID:       uuid.NewString(),
		GeneratedAt:   time.Now().UnixMilli(),
		SchemaVersion: feature.SchemaVersion,
		Symbol:        in.Snapshot.Meta.Symbol,
		BarCloseTime:  in.Snapshot.Meta.Timestamp,
		Snapshot:      in.Snapshot,
		Regime:        in.Regime,
		Levels:        in.Levels.Levels,
		PriceCtx:      in.Levels.PriceCtx,
		Candidates:    in.Cands,
		Account:       in.Account,
		Position:      in.Position,
		Plan:          in.Plan,
		Degraded:      in.Retrieved.Degraded,
		TokenBudget:   in.Plan.TokenBudget,
	}

	docTokens := 0
	for _, id := range in.Plan.DoctrineIDs {
		d, ok := b.docs.Get(id)
		if !ok {
			logger.Warnf("计划引用的战法文档不存在: %s", id)
			continue
		}
		ctx.Doctrine = append(ctx.Doctrine, CitedDoctrine{
			Citation:     DoctrineCitation(d),
			Title:        d.Title,
			Role:         d.Role,
			Regime:       d.Regime,
			Text:         d.Text,
			ApproxTokens: d.ApproxTokens,
		})
		docTokens += d.ApproxTokens
	}

	// 检索段落在 Retriever 已按预算裁过一轮；这里连同战法一起复核总量，
	// 超出时从尾部（相关性质量最低的书的段落）继续裁。
	budget := in.Plan.TokenBudget
	chunks := in.Retrieved.Chunks
	used := docTokens
	for _, rc := range chunks {
		used += rc.NTokens
	}
	for used > budget && len(chunks) > 0 {
		last := chunks[len(chunks)-1]
		used -= last.NTokens
		chunks = chunks[:len(chunks)-1]
	}

	for _, rc := range chunks {
		ctx.Retrieved = append(ctx.Retrieved, CitedChunk{
			Citation:   ChunkCitation(rc.Chunk),
			Book:       rc.Book,
			ChunkID:    rc.ChunkID,
			Seq:        rc.Seq,
			PageStart:  rc.PageStart,
			PageEnd:    rc.PageEnd,
			Section:    rc.Section,
			Score:      rc.Score,
			NeighborOf: rc.NeighborOf,
			Text:       rc.Text,
			NTokens:    rc.NTokens,
		})
	}
	ctx.TokensUsed = used

	for _, d := range ctx.Doctrine {
		ctx.Citations = append(ctx.Citations, d.Citation)
	}
	for _, rc := range ctx.Retrieved {
		ctx.Citations = append(ctx.Citations, rc.Citation)
	}
	return ctx
}
