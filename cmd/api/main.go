package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-suggester/internal/api"
	"recipe-suggester/internal/core/ai/cache"
	"recipe-suggester/internal/core/ai/queue"
	"recipe-suggester/internal/core/auth"
	"recipe-suggester/internal/core/image"
	"recipe-suggester/internal/core/recipe"
	"recipe-suggester/internal/core/service"
	"recipe-suggester/internal/core/store"
	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger("api", cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("store_driver", cfg.Store.Driver),
		zap.Bool("openrouter_enabled", cfg.OpenRouter.Enabled),
		zap.String("openrouter_api_key", config.MaskSecret(cfg.OpenRouter.APIKey)),
		zap.String("openrouter_model", cfg.OpenRouter.Model),
		zap.Bool("google_login", cfg.Auth.Google.Enabled()),
	)

	if err := run(cfg); err != nil {
		common.LogError("Server exited with error", zap.Error(err))
		common.Sync()
		os.Exit(1)
	}
	common.LogInfo("Server exited")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobs, err := store.NewJobStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init job store: %w", err)
	}
	defer jobs.Close()

	// Redis 任務儲存時快取共用同一連線
	var cacheManager cache.Cache
	if redisJobs, ok := jobs.(*store.RedisJobStore); ok {
		cacheManager = cache.New(cfg, redisJobs.Client())
	} else {
		cacheManager = cache.New(cfg, nil)
	}
	if cacheManager != nil {
		defer cacheManager.Close()
	}

	var (
		completer service.Completer
		detector  recipe.Detector = recipe.NewMockDetector()
	)
	if cfg.OpenRouter.Enabled {
		openRouter := service.NewOpenRouterService(cfg)
		completer = openRouter
		detector = recipe.NewVisionDetector(openRouter)
	} else {
		common.LogWarn("OpenRouter 未啟用，使用固定辨識結果與內建食譜範本")
	}

	q := queue.NewManager(cfg)
	defer q.Close()

	runner := recipe.NewRunner(cfg, jobs, q, detector, recipe.NewGenerator(completer, cacheManager))

	router, err := api.SetupRouter(cfg, api.Dependencies{
		Store:  store.NewMemory(),
		Jobs:   jobs,
		Runner: runner,
		Images: image.NewService(cfg),
		JWT:    auth.NewJWTManagerFromConfig(cfg),
		Queue:  q,

		Passwords: auth.NewPasswordHasherFromConfig(cfg),
		Google:    auth.NewGoogleOAuthFromConfig(cfg),
	})
	if err != nil {
		return fmt.Errorf("setup router: %w", err)
	}

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return q.Run(gctx)
	})

	g.Go(func() error {
		common.LogInfo("啟動應用",
			zap.String("addr", srv.Addr),
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		common.LogInfo("Shutting down server...")

		// 設置關閉超時
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		q.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
