package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/BaSui01/turnkeeper"
	agentctx "github.com/BaSui01/turnkeeper/agent/context"
	"github.com/BaSui01/turnkeeper/agent/conversation"
	"github.com/BaSui01/turnkeeper/config"
	"github.com/BaSui01/turnkeeper/internal/cache"
	"github.com/BaSui01/turnkeeper/internal/metrics"
	"github.com/BaSui01/turnkeeper/internal/telemetry"
	"github.com/BaSui01/turnkeeper/llm"
	"github.com/BaSui01/turnkeeper/llm/factory"
	"github.com/BaSui01/turnkeeper/llm/tokenizer"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// app 持有一次命令执行所需的全部组件
type app struct {
	logger    *zap.Logger
	collector *metrics.Collector
	pool      *llm.ClientPool
	scheduler *conversation.Scheduler
	loop      *conversation.Loop

	closers []func(context.Context) error
}

func wireApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{logger: logger}
	wired := false
	defer func() {
		if !wired {
			a.Close(context.Background())
		}
	}()

	// 1. 追踪
	tp, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, tp.Shutdown)

	// 2. 指标
	reg := prometheus.NewRegistry()
	a.collector = metrics.NewCollector(cfg.Metrics.Namespace, reg, logger)
	if cfg.Metrics.Enabled && cfg.Metrics.Addr != "" {
		a.serveMetrics(cfg.Metrics.Addr)
	}

	// 3. 决策模型：共享客户端池（限流 + 熔断）
	guard := cfg.LLM.Guard
	guard.Breaker.OnStateChange = a.collector.ObserveBreakerState
	a.pool = llm.NewClientPool(factory.PoolFactory(cfg.LLM.ProviderConfigs(), logger), guard, logger)
	model, err := a.pool.Get(cfg.LLM.PoolKey())
	if err != nil {
		return nil, fmt.Errorf("create model client: %w", err)
	}

	// 4. 摘要缓存：Redis 优先，否则进程内
	engineOpts := []turnkeeper.Option{
		turnkeeper.WithLogger(logger),
		turnkeeper.WithRetryPolicy(cfg.Retry),
		turnkeeper.WithCompressorConfig(cfg.Scheduler.Compressor),
		turnkeeper.WithSelectorConfig(cfg.Scheduler.Selector),
		turnkeeper.WithTerminationConfig(cfg.Scheduler.Termination),
		turnkeeper.WithLoopConfig(cfg.Scheduler.Loop),
		turnkeeper.WithTokenizer(tokenizer.ForModel(cfg.LLM.Model)),
		turnkeeper.WithMetrics(a.collector),
	}
	switch {
	case cfg.Cache.Enabled:
		rc, err := cache.NewRedisSummaryCache(cfg.Cache, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return rc.Close() })
		engineOpts = append(engineOpts, turnkeeper.WithSummaryCache(rc))
	case cfg.Scheduler.SummaryCacheSize > 0:
		engineOpts = append(engineOpts, turnkeeper.WithSummaryCache(agentctx.NewMemoryCache(cfg.Scheduler.SummaryCacheSize)))
	}

	// 5. 压缩器、决策客户端、选择器、终止判断、调度器
	eng := turnkeeper.New(model, engineOpts...)
	a.scheduler = eng.Scheduler
	a.loop = eng.Loop

	logger.Debug("application wired",
		zap.String("provider", cfg.LLM.PoolKey().Provider),
		zap.String("model", cfg.LLM.Model),
		zap.Bool("redis_cache", cfg.Cache.Enabled),
		zap.Bool("telemetry", tp.Enabled()),
	)
	wired = true
	return a, nil
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.collector.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	a.logger.Info("metrics server listening", zap.String("addr", addr))
	a.closers = append(a.closers, srv.Shutdown)
}

// Close 逆序释放资源
func (a *app) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
