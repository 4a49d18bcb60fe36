package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"stockline/pkg/api"
	"stockline/pkg/cache"
	"stockline/pkg/config"
	"stockline/pkg/kline"
	"stockline/pkg/logger"
	"stockline/pkg/provider"
	"stockline/pkg/stocklist"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径，留空用缺省位置")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log := logger.WithComponent("Main")

	reg, err := buildRegistry(cfg)
	if err != nil {
		log.Fatalf("构建数据源注册表失败: %v", err)
	}

	listCache, err := buildCache(cfg)
	if err != nil {
		log.Fatalf("初始化缓存失败: %v", err)
	}
	if listCache != nil {
		defer listCache.Close()
	}

	resolver := kline.NewResolver(reg, kline.Policy{
		LookbackDays:      cfg.Resolver.LookbackDays,
		RejectEmptyWindow: cfg.Resolver.RejectEmptyWindow,
	})
	lists := stocklist.NewService(reg, listCache, cfg.Cache.TTL)

	// 每日定时预热各市场股票列表缓存
	var scheduler *cron.Cron
	if listCache != nil && cfg.Resolver.WarmCron != "" {
		scheduler = cron.New(cron.WithSeconds())
		_, err := scheduler.AddFunc(cfg.Resolver.WarmCron, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			for _, m := range []string{"cn", "hk", "us"} {
				lists.Warm(ctx, m)
			}
		})
		if err != nil {
			log.Fatalf("注册预热任务失败: %v", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	server := api.NewServer(resolver, lists, cfg.Server.Mode)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: server.Handler(),
	}

	go func() {
		log.Infof("HTTP服务启动，监听 :%d", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP服务异常退出: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("收到退出信号，开始优雅关闭")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Errorf("HTTP服务关闭失败: %v", err)
	}
	log.Info("服务已退出")
}

func buildCache(cfg *config.Config) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case "memory":
		return cache.NewMemoryCache(time.Minute), nil
	case "redis":
		return cache.NewRedisCache(
			cfg.Cache.Redis.Addr,
			cfg.Cache.Redis.Password,
			cfg.Cache.Redis.DB,
			cfg.Cache.Redis.Prefix,
		)
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Cache.Backend)
	}
}

func breakerConfig(cfg *config.Config) provider.BreakerConfig {
	return provider.BreakerConfig{
		Enabled:     cfg.Breaker.Enabled,
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: cfg.Breaker.MaxFailures,
	}
}
