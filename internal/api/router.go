package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	authHandler "recipe-suggester/internal/api/handlers/auth"
	categoryHandler "recipe-suggester/internal/api/handlers/category"
	"recipe-suggester/internal/api/handlers/health"
	jobHandler "recipe-suggester/internal/api/handlers/job"
	recipeHandler "recipe-suggester/internal/api/handlers/recipe"
	"recipe-suggester/internal/api/middleware"
	"recipe-suggester/internal/core/auth"
	"recipe-suggester/internal/core/image"
	"recipe-suggester/internal/core/store"
	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/pkg/common"
	"recipe-suggester/internal/telemetry"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// 超時設置
	timeoutDuration = 120 * time.Second
	// 請求體大小上限的額外空間（multipart 標頭）
	multipartOverhead = 1 << 20
)

// Dependencies 路由需要的服務
type Dependencies struct {
	Store  *store.Memory
	Jobs   store.JobStore
	Runner jobHandler.Runner
	Images *image.Service
	JWT    *auth.JWTManager
	Queue  health.QueueStatuser

	// 以下可為 nil：密碼雜湊使用預設成本，Google 登入停用
	Passwords *auth.PasswordHasher
	Google    *auth.GoogleOAuth
}

func (d Dependencies) validate() error {
	switch {
	case d.Store == nil:
		return fmt.Errorf("store is required")
	case d.Jobs == nil:
		return fmt.Errorf("job store is required")
	case d.Runner == nil:
		return fmt.Errorf("job runner is required")
	case d.Images == nil:
		return fmt.Errorf("image service is required")
	case d.JWT == nil:
		return fmt.Errorf("jwt manager is required")
	}
	return nil
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, fmt.Errorf("setup router: %w", err)
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New())

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	router.Use(cors.New(corsConfig))

	router.Use(middleware.BodySizeLimit(cfg.Image.MaxSizeBytes + multipartOverhead))

	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	// 設置超時並注入共用服務
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Set("config", cfg)
		c.Set("job_store", deps.Jobs)
		if deps.Queue != nil {
			c.Set("queue", deps.Queue)
		}

		c.Next()

		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.Duration("timeout", timeoutDuration),
			)
			c.AbortWithStatusJSON(http.StatusGatewayTimeout, common.ErrorResponse{
				Code:   "REQUEST_TIMEOUT",
				Detail: "Request timeout",
			})
		}
	})

	// 健康檢查路由
	router.GET("/health", health.HealthCheck)
	router.GET("/health/db", health.StoreCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)
	router.GET("/metrics", gin.WrapH(telemetry.Handler()))

	authH := authHandler.NewHandler(deps.Store, deps.JWT, deps.Passwords, deps.Google)
	recipeH := recipeHandler.NewHandler(deps.Store, deps.Jobs, deps.Images)
	categoryH := categoryHandler.NewHandler(deps.Store)
	jobH := jobHandler.NewHandler(deps.Store, deps.Jobs, deps.Runner, deps.Images)

	requireAuth := middleware.Auth(deps.JWT)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/signup", authH.Signup)
		authGroup.POST("/login", authH.Login)
		authGroup.GET("/google", authH.GoogleAuthURL)
		authGroup.POST("/google/callback", authH.GoogleCallback)
		authGroup.GET("/me", requireAuth, authH.Me)
	}

	recipeGroup := router.Group("/recipes", requireAuth)
	{
		recipeGroup.POST("", recipeH.Create)
		recipeGroup.GET("", recipeH.List)
		recipeGroup.GET("/:recipe_id", recipeH.Get)
		recipeGroup.PATCH("/:recipe_id", recipeH.Update)
		recipeGroup.DELETE("/:recipe_id", recipeH.Delete)
		recipeGroup.POST("/:recipe_id/upload", recipeH.Upload)
	}

	categoryGroup := router.Group("/categories", requireAuth)
	{
		categoryGroup.POST("", categoryH.Create)
		categoryGroup.GET("", categoryH.List)
		categoryGroup.POST("/assign", categoryH.Assign)
		categoryGroup.PATCH("/:category_id", categoryH.Update)
		categoryGroup.DELETE("/:category_id", categoryH.Delete)
	}

	jobGroup := router.Group("/jobs", requireAuth)
	if cfg.DedupWindow > 0 {
		jobGroup.Use(middleware.Deduplication(cfg.DedupWindow))
	}
	{
		jobGroup.POST("/ingredients/:recipe_id", jobH.CreateIngredientsJob)
		jobGroup.GET("/ingredients/:job_id", jobH.GetIngredientsJob)
		jobGroup.POST("/recipe/:recipe_id", jobH.CreateRecipeJob)
		jobGroup.GET("/recipe/:job_id", jobH.GetRecipeJob)
		jobGroup.GET("/by-recipe/:recipe_id", jobH.GetJobsByRecipe)
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Bool("google_login", deps.Google != nil),
		zap.Duration("dedup_window", cfg.DedupWindow),
		zap.Duration("timeout", timeoutDuration),
	)

	return router, nil
}
