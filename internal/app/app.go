package app

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"brookside/internal/candidate"
	"brookside/internal/config"
	"brookside/internal/decisionctx"
	"brookside/internal/doctrine"
	"brookside/internal/engine"
	"brookside/internal/feature"
	"brookside/internal/level"
	"brookside/internal/logger"
	"brookside/internal/market"
	"brookside/internal/regime"
	"brookside/internal/retrieval"
	"brookside/internal/store/decisionlog"
	httpapi "brookside/internal/transport/http"
)

// App 负责应用级编排：加载配置→初始化依赖→按模式运行。
type App struct {
	cfg    *config.Config
	engine *engine.Engine
	source market.CandleSource
	http   *httpapi.Server
	logs   *decisionlog.Store
}

// New 根据配置构建应用对象（不启动）。
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	docs, err := doctrine.Load(cfg.Doctrine.Dir)
	if err != nil {
		return nil, fmt.Errorf("加载战法文档失败: %w", err)
	}

	cal := market.NewSessionCalendar(cfg.Session.Timezone)

	ext := feature.NewExtractor(feature.Config{
		EMAPeriod:        cfg.Feature.EMAPeriod,
		ATRPeriod:        cfg.Feature.ATRPeriod,
		TrendLookback:    cfg.Feature.TrendLookback,
		RangeLookback:    cfg.Feature.RangeLookback,
		SwingLookback:    cfg.Feature.SwingLookback,
		SwingConfirm:     cfg.Feature.SwingConfirm,
		VolumeLookback:   cfg.Feature.VolumeLookback,
		TimeframeMinutes: cfg.Session.TimeframeMinutes,
	}, cal)

	levels := level.NewComputer(level.Config{
		EMAPeriod:        cfg.Feature.EMAPeriod,
		ATRPeriod:        cfg.Feature.ATRPeriod,
		OpeningRangeBars: cfg.Session.OpeningRangeBars,
		SwingLookback:    cfg.Feature.SwingLookback,
		SwingConfirm:     cfg.Feature.SwingConfirm,
	}, cal)

	gen := candidate.NewGenerator(candidate.Config{
		MinRRWithTrend:    cfg.Risk.MinRRWithTrend,
		MinRRCounterTrend: cfg.Risk.MinRRCounterTrend,
		StopATRBuffer:     cfg.Risk.StopATRBuffer,
	})

	var index retrieval.VectorIndex = retrieval.NewHTTPIndex(cfg.Retrieval.Endpoint)
	if cfg.Retrieval.Cache.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Retrieval.Cache.Addr})
		ttl := time.Duration(cfg.Retrieval.Cache.TTLSeconds) * time.Second
		index = retrieval.NewCachedIndex(index, rdb, ttl)
	}

	router := retrieval.NewRouter(retrieval.RouterConfig{
		LowConfidenceThreshold: cfg.Retrieval.LowConfidenceThreshold,
		ConflictThreshold:      cfg.Regime.ConflictThreshold,
		TopKPerQuery:           cfg.Retrieval.TopKPerQuery,
		NeighborN:              cfg.Retrieval.NeighborN,
		WideNeighborN:          cfg.Retrieval.WideNeighborN,
		FinalK:                 cfg.Retrieval.FinalK,
		WideFinalK:             cfg.Retrieval.WideFinalK,
		TokenBudget:            cfg.Retrieval.TokenBudget,
	}, docs)

	var logs *decisionlog.Store
	if cfg.App.DecisionLogPath != "" {
		logs, err = decisionlog.Open(cfg.App.DecisionLogPath)
		if err != nil {
			return nil, err
		}
	}

	eng := &engine.Engine{
		Extractor: ext,
		Regime: regime.Thresholds{
			Clear:             cfg.Regime.ClearThreshold,
			AmbiguousMargin:   cfg.Regime.AmbiguousMargin,
			ReversalThreshold: cfg.Regime.ReversalThreshold,
		},
		Levels:              levels,
		Generator:           gen,
		Router:              router,
		Rewriter:            &retrieval.Rewriter{MaxQueries: cfg.Retrieval.MaxQueries},
		Retriever:           retrieval.NewRetriever(index, time.Duration(cfg.Retrieval.TimeoutSeconds)*time.Second),
		Builder:             decisionctx.NewBuilder(docs),
		RequireOpeningRange: cfg.Session.RequireOpeningRange,
		Log:                 logs,
	}

	source, err := buildSource(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, engine: eng, source: source, logs: logs}
	if cfg.App.HTTPAddr != "" {
		a.http, err = httpapi.NewServer(httpapi.ServerConfig{
			Addr:     cfg.App.HTTPAddr,
			Engine:   eng,
			Source:   source,
			Logs:     logs,
			Symbol:   cfg.Data.Symbol,
			Interval: cfg.Data.Interval,
			Window:   cfg.Data.WindowBars,
			Account:  a.account(),
			Spec:     a.spec(),
		})
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}

func buildSource(cfg *config.Config) (market.CandleSource, error) {
	switch cfg.Data.Source {
	case "csv":
		return &market.CSVSource{Path: cfg.Data.CSVPath}, nil
	case "binance":
		return market.NewBinanceSource(cfg.Data.BinanceURL), nil
	default:
		return nil, fmt.Errorf("未知数据源: %q", cfg.Data.Source)
	}
}

func (a *App) account() candidate.AccountState {
	return candidate.AccountState{
		Equity:           a.cfg.Risk.Equity,
		MaxRiskPerTradeR: a.cfg.Risk.MaxRiskPerTradePct,
		MaxDailyLossR:    a.cfg.Risk.MaxDailyLossR,
	}
}

func (a *App) spec() candidate.InstrumentSpec {
	return candidate.InstrumentSpec{
		TickSize:     a.cfg.Instrument.TickSize,
		PointValue:   a.cfg.Instrument.PointValue,
		QuantityUnit: a.cfg.Instrument.QuantityUnit,
	}
}

// EvaluateOnce 拉一次窗口并执行一次完整决策。
func (a *App) EvaluateOnce(ctx context.Context) (decisionctx.DecisionContext, error) {
	w, err := a.source.Fetch(ctx, market.FetchRequest{
		Symbol:   a.cfg.Data.Symbol,
		Interval: a.cfg.Data.Interval,
		Limit:    a.cfg.Data.WindowBars,
	})
	if err != nil {
		return decisionctx.DecisionContext{}, fmt.Errorf("拉取 bar 窗口失败: %w", err)
	}
	return a.engine.Evaluate(ctx, engine.Request{
		Symbol:   a.cfg.Data.Symbol,
		Window:   w,
		Account:  a.account(),
		Position: candidate.PositionState{},
		Spec:     a.spec(),
	})
}

// Watch 监听 CSV 文件变化，每次写入后重新评估。仅 csv 数据源可用。
func (a *App) Watch(ctx context.Context) error {
	if a.cfg.Data.Source != "csv" {
		return fmt.Errorf("watch 模式仅支持 csv 数据源")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监听失败: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(a.cfg.Data.CSVPath); err != nil {
		return fmt.Errorf("监听 %s 失败: %w", a.cfg.Data.CSVPath, err)
	}
	logger.Infof("监听 %s，文件更新后自动重评估", a.cfg.Data.CSVPath)

	// 编辑器原子写会触发连续事件，去抖后只评估最后一次
	var timer *time.Timer
	fire := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(300*time.Millisecond, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("文件监听错误: %v", err)
		case <-fire:
			if _, err := a.EvaluateOnce(ctx); err != nil {
				logger.Errorf("重评估失败: %v", err)
			}
		}
	}
}

// Serve 启动 HTTP 服务直到 ctx 取消。
func (a *App) Serve(ctx context.Context) error {
	if a.http == nil {
		return fmt.Errorf("未配置 http_addr，无法启动服务")
	}
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return a.http.Start(ctx) })
	if a.cfg.Data.Source == "csv" && a.cfg.Data.Watch {
		group.Go(func() error { return a.Watch(ctx) })
	}
	return group.Wait()
}
