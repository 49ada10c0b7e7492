package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr string `yaml:"http_addr"`
	// BaseURL is the public site origin used for sitemap locations,
	// admin links in notification emails and internal-link detection.
	BaseURL  string `yaml:"base_url"`
	LogLevel string `yaml:"log_level"`
	GelfAddr string `yaml:"gelf_addr"`

	OxiDBHost  string `yaml:"oxidb_host"`
	OxiDBPort  int    `yaml:"oxidb_port"`
	PoolSize   int    `yaml:"pool_size"`
	TxPoolSize int    `yaml:"tx_pool_size"`
	TxAttempts int    `yaml:"tx_attempts"`

	JWTSecret  string `yaml:"jwt_secret"`
	AdminEmail string `yaml:"admin_email"`
	AdminPass  string `yaml:"admin_pass"`

	// LeadStore selects where leads live: "oxidb", "postgres" or "sqlite".
	LeadStore   string `yaml:"lead_store"`
	DatabaseURL string `yaml:"database_url"`

	// CounterBackend selects form analytics counters: "oxidb" or "redis".
	CounterBackend string `yaml:"counter_backend"`
	RedisAddr      string `yaml:"redis_addr"`
	RedisPassword  string `yaml:"redis_password"`
	RedisDB        int    `yaml:"redis_db"`

	SMTP SMTPConfig `yaml:"smtp"`
	AI   AIConfig   `yaml:"ai"`

	PublicRPS      float64       `yaml:"public_rps"`
	PublicBurst    int           `yaml:"public_burst"`
	CORSOrigins    []string      `yaml:"cors_origins"`
	TrustedProxies []string      `yaml:"trusted_proxies"`
	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	WebhookAgent   string        `yaml:"webhook_user_agent"`
	SchedulerEvery time.Duration `yaml:"scheduler_interval"`

	RobotsDisallow   []string `yaml:"robots_disallow"`
	RobotsCrawlDelay int      `yaml:"robots_crawl_delay"`

	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
	Environment  string `yaml:"environment"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type AIConfig struct {
	// Provider is "openai" or "gemini". Empty disables AI features.
	Provider         string        `yaml:"provider"`
	APIKey           string        `yaml:"api_key"`
	BaseURL          string        `yaml:"base_url"`
	DefaultModel     string        `yaml:"default_model"`
	Timeout          time.Duration `yaml:"timeout"`
	MaxRetries       int           `yaml:"max_retries"`
	RequestsPerMin   int           `yaml:"requests_per_minute"`
	AutoOptimization bool          `yaml:"auto_optimization"`
}

func defaults() *Config {
	return &Config{
		HTTPAddr:       ":8080",
		BaseURL:        "http://localhost:8080",
		LogLevel:       "info",
		OxiDBHost:      "127.0.0.1",
		OxiDBPort:      4444,
		PoolSize:       3,
		TxPoolSize:     2,
		TxAttempts:     5,
		JWTSecret:      "oxisite-dev-secret-change-me",
		AdminEmail:     "admin@oxisite.local",
		AdminPass:      "admin123",
		LeadStore:      "oxidb",
		CounterBackend: "oxidb",
		RedisAddr:      "127.0.0.1:6379",
		SMTP:           SMTPConfig{Port: 587, From: "noreply@oxisite.local"},
		AI: AIConfig{
			DefaultModel:   "gpt-4",
			Timeout:        60 * time.Second,
			MaxRetries:     1,
			RequestsPerMin: 60,
		},
		PublicRPS:      2,
		PublicBurst:    5,
		CORSOrigins:    []string{"*"},
		HTTPTimeout:    10 * time.Second,
		WebhookAgent:   "OxiSite-Webhook/1.0",
		SchedulerEvery: time.Minute,
		Environment:    "development",
	}
}

// Load builds the configuration from defaults, an optional YAML file named
// by OXISITE_CONFIG, and environment variables, in increasing precedence.
func Load() (*Config, error) {
	cfg := defaults()
	if path := os.Getenv("OXISITE_CONFIG"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.HTTPAddr = getEnv("SITE_ADDR", c.HTTPAddr)
	c.BaseURL = strings.TrimRight(getEnv("SITE_BASE_URL", c.BaseURL), "/")
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.GelfAddr = getEnv("GELF_ADDR", c.GelfAddr)
	c.OxiDBHost = getEnv("OXIDB_HOST", c.OxiDBHost)
	c.OxiDBPort = getEnvInt("OXIDB_PORT", c.OxiDBPort)
	c.PoolSize = getEnvInt("SITE_POOL_SIZE", c.PoolSize)
	c.TxPoolSize = getEnvInt("SITE_TX_POOL_SIZE", c.TxPoolSize)
	c.JWTSecret = getEnv("SITE_JWT_SECRET", c.JWTSecret)
	c.AdminEmail = getEnv("SITE_ADMIN_EMAIL", c.AdminEmail)
	c.AdminPass = getEnv("SITE_ADMIN_PASS", c.AdminPass)
	c.LeadStore = getEnv("LEAD_STORE", c.LeadStore)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.CounterBackend = getEnv("COUNTER_BACKEND", c.CounterBackend)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getEnvInt("REDIS_DB", c.RedisDB)

	c.SMTP.Host = getEnv("SMTP_HOST", c.SMTP.Host)
	c.SMTP.Port = getEnvInt("SMTP_PORT", c.SMTP.Port)
	c.SMTP.Username = getEnv("SMTP_USERNAME", c.SMTP.Username)
	c.SMTP.Password = getEnv("SMTP_PASSWORD", c.SMTP.Password)
	c.SMTP.From = getEnv("SMTP_FROM", c.SMTP.From)

	c.AI.Provider = getEnv("AI_PROVIDER", c.AI.Provider)
	c.AI.APIKey = getEnv("AI_API_KEY", c.AI.APIKey)
	if c.AI.APIKey == "" {
		switch c.AI.Provider {
		case "openai":
			c.AI.APIKey = os.Getenv("OPENAI_API_KEY")
		case "gemini":
			c.AI.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	c.AI.BaseURL = getEnv("AI_BASE_URL", c.AI.BaseURL)
	c.AI.DefaultModel = getEnv("AI_MODEL", c.AI.DefaultModel)
	c.AI.Timeout = getEnvDuration("AI_TIMEOUT", c.AI.Timeout)
	c.AI.MaxRetries = getEnvInt("AI_MAX_RETRIES", c.AI.MaxRetries)
	c.AI.RequestsPerMin = getEnvInt("AI_REQUESTS_PER_MINUTE", c.AI.RequestsPerMin)
	c.AI.AutoOptimization = getEnvBool("AI_AUTO_OPTIMIZATION", c.AI.AutoOptimization)

	c.PublicRPS = getEnvFloat("PUBLIC_RPS", c.PublicRPS)
	c.PublicBurst = getEnvInt("PUBLIC_BURST", c.PublicBurst)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		c.TrustedProxies = splitList(v)
	}
	c.HTTPTimeout = getEnvDuration("OUTBOUND_TIMEOUT", c.HTTPTimeout)
	c.WebhookAgent = getEnv("WEBHOOK_USER_AGENT", c.WebhookAgent)
	c.SchedulerEvery = getEnvDuration("SCHEDULER_INTERVAL", c.SchedulerEvery)
	if v := os.Getenv("ROBOTS_DISALLOW"); v != "" {
		c.RobotsDisallow = splitList(v)
	}
	c.RobotsCrawlDelay = getEnvInt("ROBOTS_CRAWL_DELAY", c.RobotsCrawlDelay)

	c.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTLPEndpoint)
	c.OTLPInsecure = getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", c.OTLPInsecure)
	c.Environment = getEnv("SITE_ENV", c.Environment)
}

func (c *Config) validate() error {
	switch c.LeadStore {
	case "oxidb":
	case "postgres", "sqlite":
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: lead store %q needs DATABASE_URL", c.LeadStore)
		}
	default:
		return fmt.Errorf("config: unknown lead store %q", c.LeadStore)
	}
	switch c.CounterBackend {
	case "oxidb", "redis":
	default:
		return fmt.Errorf("config: unknown counter backend %q", c.CounterBackend)
	}
	switch c.AI.Provider {
	case "", "openai", "gemini":
	default:
		return fmt.Errorf("config: unknown AI provider %q", c.AI.Provider)
	}
	if c.AI.MaxRetries < 0 {
		return fmt.Errorf("config: AI max retries must not be negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
