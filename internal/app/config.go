package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/upsell"
)

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (STOREFRONT_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Store        string `default:"postgres" usage:"Document store driver: postgres or memory"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (STOREFRONT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	ImageBaseURL string `default:"" usage:"Base URL for relative product image paths" flag:"image-base-url"`
	ShippingFee  int64  `default:"20000" usage:"Flat checkout shipping fee" flag:"shipping-fee"`
	// StrictTransitions rejects admin status changes outside the order
	// status graph.
	StrictTransitions bool `default:"false" usage:"Enforce the order status transition graph" flag:"strict-transitions"`
	Upsell            upsell.Config
	AMQP              AMQPConfig
	RateLimit         RateLimitConfig
	CORS              CORSConfig
	Graceful          GracefulConfig
}

// AMQPConfig configures change notifications. An empty URL disables them.
type AMQPConfig struct {
	URL            string        `usage:"AMQP broker URL for change notifications" flag:"amqp-url"`
	Exchange       string        `default:"storefront.events" usage:"Topic exchange for change notifications"`
	PublishTimeout time.Duration `default:"2s" usage:"Maximum wait for the broker per change notification"`
}

// RateLimitConfig controls the per-client sliding window limit on checkout.
type RateLimitConfig struct {
	Max    int           `default:"10" usage:"Max checkouts per client per window"`
	Window time.Duration `default:"1m" usage:"Rate limit window duration"`
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

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STOREFRONT",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults(os.Getenv)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables that
// use standard names (DATABASE_URL, PORT, GEMINI_API_KEY) to the
// application's configuration.
func (c *Config) applyPlatformDefaults(getenv func(string) string) {
	if c.DatabaseURL == "" {
		c.DatabaseURL = getenv("DATABASE_URL")
	}
	if port := getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
	if c.Upsell.APIKey == "" {
		c.Upsell.APIKey = getenv("GEMINI_API_KEY")
	}
}

func (c *Config) validate() error {
	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required: set STOREFRONT_DATABASE_URL or DATABASE_URL")
		}
	case StoreMemory:
	default:
		return errors.Errorf("unknown store %q: want %s or %s", c.Store, StorePostgres, StoreMemory)
	}
	if c.ShippingFee < 0 {
		return errors.New("shipping fee must not be negative")
	}
	if c.RateLimit.Max < 1 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit needs a positive max and window")
	}
	return nil
}
