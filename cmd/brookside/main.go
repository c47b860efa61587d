package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"brookside/internal/app"
	bscfg "brookside/internal/config"
	"brookside/internal/logger"
)

func main() {
	cfgPath := flag.String("config", "", "配置文件路径（默认 configs/config.yaml）")
	mode := flag.String("mode", "once", "运行模式: once | watch | serve")
	flag.Parse()

	path := *cfgPath
	if path == "" {
		path = os.Getenv("BROOKSIDE_CONFIG")
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	cfg, err := bscfg.Load(path)
	if err != nil {
		log.Fatalf("读取配置失败: %v", err)
	}
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		log.Fatalf("初始化日志文件失败: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.Infof("✓ 配置加载成功（环境=%s，数据源=%s，symbol=%s）", cfg.App.Env, cfg.Data.Source, cfg.Data.Symbol)

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("初始化应用失败: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "once":
		dctx, err := a.EvaluateOnce(ctx)
		if err != nil {
			log.Fatalf("评估失败: %v", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(dctx); err != nil {
			log.Fatalf("输出失败: %v", err)
		}
	case "watch":
		if err := a.Watch(ctx); err != nil && ctx.Err() == nil {
			log.Fatalf("监听模式失败: %v", err)
		}
	case "serve":
		if err := a.Serve(ctx); err != nil && ctx.Err() == nil {
			log.Fatalf("服务退出: %v", err)
		}
	default:
		log.Fatalf("未知运行模式: %q", *mode)
	}
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}
