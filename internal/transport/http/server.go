package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"brookside/internal/candidate"
	"brookside/internal/engine"
	"brookside/internal/feature"
	"brookside/internal/logger"
	"brookside/internal/market"
	"brookside/internal/store/decisionlog"
)

// Server 提供最小化的决策 HTTP 服务（按需评估 + 历史查询）。
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig 描述 HTTP 服务依赖。
type ServerConfig struct {
	Addr     string
	Engine   *engine.Engine
	Source   market.CandleSource
	Logs     *decisionlog.Store
	Symbol   string
	Interval string
	Window   int
	Account  candidate.AccountState
	Spec     candidate.InstrumentSpec
}

// NewServer 构建 HTTP server。
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Engine == nil || cfg.Source == nil {
		return nil, errors.New("http server requires engine and candle source")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9980"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.POST("/evaluate", evaluateHandler(cfg))
	api.GET("/decisions", decisionsHandler(cfg.Logs))
	api.GET("/decisions/:trace", decisionHandler(cfg.Logs))

	return &Server{addr: cfg.Addr, router: router}, nil
}

// evaluateRequest 允许逐请求覆盖默认的 symbol 与持仓状态。
type evaluateRequest struct {
	Symbol   string                   `json:"symbol"`
	Position *candidate.PositionState `json:"position"`
}

func evaluateHandler(cfg ServerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 空 body 合法：全部走默认配置
		var req evaluateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			req = evaluateRequest{}
		}
		symbol := req.Symbol
		if symbol == "" {
			symbol = cfg.Symbol
		}
		pos := candidate.PositionState{}
		if req.Position != nil {
			pos = *req.Position
		}

		w, err := cfg.Source.Fetch(c.Request.Context(), market.FetchRequest{
			Symbol:   symbol,
			Interval: cfg.Interval,
			Limit:    cfg.Window,
		})
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}

		dctx, err := cfg.Engine.Evaluate(c.Request.Context(), engine.Request{
			Symbol:   symbol,
			Window:   w,
			Account:  cfg.Account,
			Position: pos,
			Spec:     cfg.Spec,
		})
		if err != nil {
			var ide *feature.InsufficientDataError
			if errors.As(err, &ide) {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "kind": "insufficient_data"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, dctx)
	}
}

func decisionsHandler(logs *decisionlog.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if logs == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "decision log disabled"})
			return
		}
		limit := 20
		if v := c.Query("limit"); v != "" {
			if n, err := parsePositive(v); err == nil {
				limit = n
			}
		}
		recs, err := logs.Recent(c.Request.Context(), c.Query("symbol"), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"decisions": recs})
	}
}

func decisionHandler(logs *decisionlog.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if logs == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "decision log disabled"})
			return
		}
		rec, err := logs.ByTrace(c.Request.Context(), c.Param("trace"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

func parsePositive(s string) (int, error) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errors.New("not a number")
		}
		n = n*10 + int(r-'0')
	}
	if n <= 0 {
		return 0, errors.New("not positive")
	}
	return n, nil
}

// requestLogger 记录接口调用，便于追踪评估触发来源。
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		c.Next()
		logger.Debugf("HTTP %s %s status=%d dur=%s", method, path, c.Writer.Status(), time.Since(start))
	}
}

// Start 启动 HTTP 服务，直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	logger.Infof("HTTP 服务监听 %s", s.addr)
	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}
