package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (SOKO_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (SOKO_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	LogisticsURL string `usage:"Base URL of the logistics quoting service" flag:"logistics-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (SOKO_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Mpesa        MpesaConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// MpesaConfig holds the mobile-money gateway settings and the manual payment
// fallback details quoted when an STK push cannot complete.
type MpesaConfig struct {
	GatewayURL    string `usage:"Base URL of the STK push gateway" flag:"mpesa-gateway-url"`
	Shortcode     string `default:"400200" usage:"Business shortcode for STK pushes" flag:"mpesa-shortcode"`
	Paybill       string `default:"400200" usage:"Paybill quoted in manual payment instructions" flag:"mpesa-paybill"`
	AccountPrefix string `default:"KS-" usage:"Account reference prefix for manual payments" flag:"mpesa-account-prefix"`
}

// RateLimitConfig controls the per-client fixed window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SOKO",
		Files:     []string{"config.yaml", "/etc/soko/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set SOKO_DATABASE_URL or DATABASE_URL")
	}
	if cfg.LogisticsURL == "" {
		return nil, errors.New("logistics URL is required: set SOKO_LOGISTICS_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's SOKO_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
