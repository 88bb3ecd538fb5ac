package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig        `mapstructure:"app"`
	Server      ServerConfig     `mapstructure:"server"`
	Client      ClientConfig     `mapstructure:"client"`
	Poller      PollerConfig     `mapstructure:"poller"`
	Jobs        JobsConfig       `mapstructure:"jobs"`
	Store       StoreConfig      `mapstructure:"store"`
	Auth        AuthConfig       `mapstructure:"auth"`
	OpenRouter  OpenRouterConfig `mapstructure:"openrouter"`
	Cache       CacheConfig      `mapstructure:"cache"`
	Queue       QueueConfig      `mapstructure:"queue"`
	RateLimit   RateLimitConfig  `mapstructure:"rate_limit"`
	Image       ImageConfig      `mapstructure:"image"`
	DedupWindow time.Duration    `mapstructure:"dedup_window"`
	LogLevel    string           `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// ClientConfig 後端 API 客戶端設定
type ClientConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Token    string        `mapstructure:"token"`
	Email    string        `mapstructure:"email"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// PollerConfig 任務輪詢設定
type PollerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	CaptionInterval time.Duration `mapstructure:"caption_interval"`
}

// JobsConfig 背景任務設定（僅參考後端使用）
type JobsConfig struct {
	DetectionDelay  time.Duration `mapstructure:"detection_delay"`
	GenerationDelay time.Duration `mapstructure:"generation_delay"`
}

// StoreConfig 任務儲存設定
type StoreConfig struct {
	Driver        string `mapstructure:"driver"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
}

// AuthConfig JWT、密碼雜湊與 Google 登入設定
type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	Issuer     string        `mapstructure:"issuer"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
	Google     GoogleConfig  `mapstructure:"google"`
}

// GoogleConfig Google OAuth 設定；ClientID 為空時停用 Google 登入
type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
	// 以下僅測試或代理時覆寫
	AuthURL     string `mapstructure:"auth_url"`
	TokenURL    string `mapstructure:"token_url"`
	UserInfoURL string `mapstructure:"userinfo_url"`
}

// Enabled 是否設定了 Google 登入
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// OpenRouterConfig OpenRouter 配置
type OpenRouterConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// QueueConfig 請求隊列設定
type QueueConfig struct {
	Workers int `mapstructure:"workers"`
	MaxSize int `mapstructure:"max_size"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// ImageConfig 圖片配置
type ImageConfig struct {
	MaxSizeBytes int64  `mapstructure:"max_size_bytes"`
	MaxDimension int    `mapstructure:"max_dimension"`
	UploadDir    string `mapstructure:"upload_dir"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 不存在時直接使用環境變數與預設值
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()

	// 設定預設值
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	bindEnv(v, "client.base_url", "API_URL")
	bindEnv(v, "client.token", "API_TOKEN")
	bindEnv(v, "client.email", "API_EMAIL")
	bindEnv(v, "client.password", "API_PASSWORD")
	bindEnv(v, "poller.interval", "POLL_INTERVAL")
	bindEnv(v, "openrouter.enabled", "OPENROUTER_ENABLED")
	bindEnv(v, "openrouter.api_key", "OPENROUTER_API_KEY")
	bindEnv(v, "openrouter.model", "OPENROUTER_MODEL")
	bindEnv(v, "openrouter.max_tokens", "MODEL_MAX_TOKENS")
	bindEnv(v, "store.driver", "STORE_DRIVER")
	bindEnv(v, "store.redis_addr", "REDIS_ADDR")
	bindEnv(v, "auth.jwt_secret", "JWT_SECRET")
	bindEnv(v, "auth.bcrypt_cost", "BCRYPT_COST")
	bindEnv(v, "auth.google.client_id", "GOOGLE_CLIENT_ID")
	bindEnv(v, "auth.google.client_secret", "GOOGLE_CLIENT_SECRET")
	bindEnv(v, "auth.google.redirect_url", "GOOGLE_REDIRECT_URI")
	bindEnv(v, "cache.enabled", "CACHE_ENABLED")
	bindEnv(v, "rate_limit.enabled", "RATE_LIMIT_ENABLED")
	bindEnv(v, "rate_limit.requests", "RATE_LIMIT_REQUESTS")
	bindEnv(v, "rate_limit.window", "RATE_LIMIT_WINDOW")
	bindEnv(v, "dedup_window", "DEDUP_WINDOW")
	bindEnv(v, "log_level", "LOG_LEVEL")

	// 設定設定檔名稱和路徑
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	// 讀取設定檔
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 解析設定
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func bindEnv(v *viper.Viper, key, env string) {
	// BindEnv 只在參數為空時回傳錯誤
	_ = v.BindEnv(key, "APP_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
}

// MaskSecret 遮罩密鑰，只顯示前後各 4 個字符
func MaskSecret(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "recipe-suggester")

	// 伺服器設定
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173", "http://localhost:8080"})

	// 客戶端設定
	v.SetDefault("client.base_url", "http://localhost:8000")
	v.SetDefault("client.timeout", "30s")

	// 輪詢設定
	v.SetDefault("poller.interval", "1000ms")
	v.SetDefault("poller.caption_interval", "2000ms")

	// 背景任務
	v.SetDefault("jobs.detection_delay", "5s")
	v.SetDefault("jobs.generation_delay", "8s")

	// 儲存設定
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_db", 0)

	// JWT 設定
	v.SetDefault("auth.jwt_secret", "change-me-in-production-at-least-32-chars")
	v.SetDefault("auth.issuer", "recipe-suggester")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.google.redirect_url", "http://localhost:5173/auth/google/callback")
	v.SetDefault("auth.google.userinfo_url", "https://www.googleapis.com/oauth2/v3/userinfo")

	// OpenRouter 設定
	v.SetDefault("openrouter.enabled", false)
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.model", "openai/gpt-4o-mini")
	v.SetDefault("openrouter.max_tokens", 2000)
	v.SetDefault("openrouter.timeout", "60s")

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_interval", "10m")

	// 隊列設定
	v.SetDefault("queue.workers", 5)
	v.SetDefault("queue.max_size", 100)

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	// 圖片設定
	v.SetDefault("image.max_size_bytes", 10*1024*1024) // 10MB
	v.SetDefault("image.max_dimension", 1600)
	v.SetDefault("image.upload_dir", "uploads/recipes")

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	// 驗證伺服器設定
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	// 驗證客戶端設定
	if config.Client.BaseURL == "" {
		return fmt.Errorf("client base url is required")
	}

	// 驗證輪詢設定
	if config.Poller.Interval <= 0 {
		return fmt.Errorf("invalid poller interval")
	}
	if config.Poller.CaptionInterval <= 0 {
		return fmt.Errorf("invalid poller caption interval")
	}

	// 驗證儲存設定
	switch config.Store.Driver {
	case "memory":
	case "redis":
		if config.Store.RedisAddr == "" {
			return fmt.Errorf("redis address is required for redis store")
		}
	default:
		return fmt.Errorf("unknown store driver %q", config.Store.Driver)
	}

	if len(config.Auth.JWTSecret) < 32 {
		return fmt.Errorf("jwt secret must be at least 32 characters")
	}
	if config.Auth.BcryptCost < 4 || config.Auth.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost must be between 4 and 31")
	}
	if config.Auth.Google.Enabled() && config.Auth.Google.RedirectURL == "" {
		return fmt.Errorf("google redirect url is required when google login is enabled")
	}

	// 驗證快取設定
	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	// 驗證隊列設定
	if config.Queue.Workers <= 0 {
		return fmt.Errorf("invalid queue workers")
	}
	if config.Queue.MaxSize <= 0 {
		return fmt.Errorf("invalid queue max size")
	}

	return nil
}
