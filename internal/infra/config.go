package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	JWTSecret   string
	JWTTTL      time.Duration

	// Mint parameters.
	MaxSupply      int64
	PriceKoinu     int64
	PaymentAddress string
	SessionTTL     time.Duration
	ChallengeTTL   time.Duration
	PaymentVerify  string
	CollectionName string
	ContentBaseURL string

	// Collaborator endpoints.
	GeneratorBaseURL string
	GeneratorAPIKey  string
	GeneratorModel   string
	InscriberRPCURL  string
	NodeRPCURL       string
	NodeRPCUser      string
	NodeRPCPass      string

	// Worker knobs.
	JobPollInterval time.Duration
	JobLease        time.Duration
	SweepSpec       string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	AllowedOrigins   string
}

// Payment verification modes. "check" gates the payment transition on the
// payment-status collaborator; "trust" accepts the claimed tx reference as-is
// and belongs in development environments only.
const (
	PaymentVerifyCheck = "check"
	PaymentVerifyTrust = "trust"
)

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWTTTL:      time.Hour * time.Duration(getEnvInt("JWT_TTL_HOURS", 24)),

		MaxSupply:      int64(getEnvInt("MINT_MAX_SUPPLY", 10000)),
		PriceKoinu:     int64(getEnvInt("MINT_PRICE_KOINU", 42000000000)),
		PaymentAddress: os.Getenv("MINT_PAYMENT_ADDRESS"),
		SessionTTL:     time.Minute * time.Duration(getEnvInt("MINT_SESSION_TTL_MINUTES", 30)),
		ChallengeTTL:   time.Minute * time.Duration(getEnvInt("AUTH_CHALLENGE_TTL_MINUTES", 5)),
		PaymentVerify:  getEnv("PAYMENT_VERIFY_MODE", PaymentVerifyCheck),
		CollectionName: getEnv("MINT_COLLECTION_NAME", "dogemint"),
		ContentBaseURL: getEnv("CONTENT_BASE_URL", "http://localhost:8080/content"),

		GeneratorBaseURL: getEnv("GENERATOR_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeneratorAPIKey:  os.Getenv("GENERATOR_API_KEY"),
		GeneratorModel:   getEnv("GENERATOR_MODEL", "gemini-2.5-flash"),
		InscriberRPCURL:  getEnv("INSCRIBER_RPC_URL", "http://localhost:8335"),
		NodeRPCURL:       getEnv("NODE_RPC_URL", "http://localhost:22555"),
		NodeRPCUser:      os.Getenv("NODE_RPC_USER"),
		NodeRPCPass:      os.Getenv("NODE_RPC_PASS"),

		JobPollInterval: time.Second * time.Duration(getEnvInt("JOB_POLL_INTERVAL_SECONDS", 2)),
		JobLease:        time.Minute * time.Duration(getEnvInt("JOB_LEASE_MINUTES", 5)),
		SweepSpec:       getEnv("RECONCILE_CRON_SPEC", "* * * * *"),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		AllowedOrigins:   getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.PaymentVerify != PaymentVerifyCheck && cfg.PaymentVerify != PaymentVerifyTrust {
		return nil, fmt.Errorf("PAYMENT_VERIFY_MODE must be %q or %q", PaymentVerifyCheck, PaymentVerifyTrust)
	}

	if cfg.MaxSupply <= 0 {
		return nil, fmt.Errorf("MINT_MAX_SUPPLY must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
