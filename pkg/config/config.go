package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "skipper"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App     AppConfig
	Redis   RedisConfig
	Google  GoogleConfig
	Paddle  PaddleConfig
	License LicenseConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SKIPPER_APP_ENV" default:"dev"`
	Port         string `envconfig:"SKIPPER_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SKIPPER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SKIPPER_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type RedisConfig struct {
	URL          string        `envconfig:"SKIPPER_REDIS_URL"`
	Address      string        `envconfig:"SKIPPER_REDIS_ADDR"`
	Password     string        `envconfig:"SKIPPER_REDIS_PASSWORD"`
	DB           int           `envconfig:"SKIPPER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SKIPPER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SKIPPER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SKIPPER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SKIPPER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SKIPPER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GoogleConfig struct {
	ClientID string `envconfig:"SKIPPER_GOOGLE_CLIENT_ID" required:"true"`
}

type PaddleConfig struct {
	APIKey         string        `envconfig:"SKIPPER_PADDLE_API_KEY" required:"true"`
	BaseURL        string        `envconfig:"SKIPPER_PADDLE_BASE_URL" default:"https://api.paddle.com"`
	WebhookSecret  string        `envconfig:"SKIPPER_PADDLE_WEBHOOK_SECRET" required:"true"`
	PriceMonthly   string        `envconfig:"SKIPPER_PADDLE_PRICE_MONTHLY" default:"pri_01jyb06mcbg2hqsp64mwth8em1"`
	PriceYearly    string        `envconfig:"SKIPPER_PADDLE_PRICE_YEARLY" default:"pri_01jyb32gjsmvf819q2s04hqvr7"`
	PortalReturn   string        `envconfig:"SKIPPER_PADDLE_PORTAL_RETURN_URL" default:"https://netflix-skipper.vercel.app"`
	RequestTimeout time.Duration `envconfig:"SKIPPER_PADDLE_REQUEST_TIMEOUT" default:"10s"`
	MaxSkew        time.Duration `envconfig:"SKIPPER_PADDLE_SIGNATURE_MAX_SKEW" default:"5m"`
	EventTTL       time.Duration `envconfig:"SKIPPER_PADDLE_EVENT_TTL" default:"168h"`
}

type LicenseConfig struct {
	BillingCycleDays int `envconfig:"SKIPPER_BILLING_CYCLE_DAYS" default:"30"`
	GraceDays        int `envconfig:"SKIPPER_GRACE_DAYS" default:"5"`
	TrialDays        int `envconfig:"SKIPPER_TRIAL_DAYS" default:"0"`
}

// ExpiryAfter returns how long a premium license survives without a payment.
func (l LicenseConfig) ExpiryAfter() time.Duration {
	return time.Duration(l.BillingCycleDays+l.GraceDays) * 24 * time.Hour
}

// TrialEnabled reports whether lazy record creation grants a trial.
func (l LicenseConfig) TrialEnabled() bool {
	return l.TrialDays > 0
}

// TrialPeriod returns the configured trial length.
func (l LicenseConfig) TrialPeriod() time.Duration {
	return time.Duration(l.TrialDays) * 24 * time.Hour
}
