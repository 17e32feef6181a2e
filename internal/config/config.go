package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	JWTSecret string `env:"JWT_SECRET,required" validate:"required,min=32"`

	DelhiveryBaseURL    string `env:"DELHIVERY_BASE_URL" envDefault:"https://track.delhivery.com" validate:"required,url"`
	DelhiveryAPIKey     string `env:"DELHIVERY_API_KEY,required" validate:"required"`
	DelhiveryPickupName string `env:"DELHIVERY_PICKUP_NAME,required" validate:"required"`
	PickupPin           string `env:"PICKUP_PIN" envDefault:"600001" validate:"required"`

	RazorpayKeyID     string `env:"RAZORPAY_KEY_ID,required" validate:"required"`
	RazorpayKeySecret string `env:"RAZORPAY_KEY_SECRET,required" validate:"required"`
	RazorpayBaseURL   string `env:"RAZORPAY_BASE_URL" envDefault:"https://api.razorpay.com" validate:"required,url"`

	WarehouseConfigPath string `env:"WAREHOUSE_CONFIG_PATH" envDefault:"warehouse.yaml" validate:"required"`

	CacheProvider         string `env:"CACHE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RedisConnectionString string `env:"REDIS_CONNECTION_STRING" envDefault:"redis://localhost:6379/0" validate:"required_if=CacheProvider redis"`

	ResendAPIKey string `env:"RESEND_API_KEY"`
	EmailFrom    string `env:"EMAIL_FROM" validate:"omitempty,email"`

	BaseURL string `env:"BASE_URL" validate:"omitempty,url"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
	Port      string     `env:"PORT" envDefault:"8080"`
}

var (
	configValidator = validator.New()
	pinPattern      = regexp.MustCompile(`^[0-9]{6}$`)
)

func Load() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}

	if !pinPattern.MatchString(c.PickupPin) {
		return fmt.Errorf("PICKUP_PIN must be a 6-digit PIN code")
	}

	hasResendKey := strings.TrimSpace(c.ResendAPIKey) != ""
	hasEmailFrom := strings.TrimSpace(c.EmailFrom) != ""
	if hasResendKey != hasEmailFrom {
		return fmt.Errorf("RESEND_API_KEY and EMAIL_FROM must be set together")
	}

	if baseURL := strings.TrimSpace(c.BaseURL); baseURL != "" {
		parsed, err := url.Parse(baseURL)
		if err != nil || parsed.Hostname() == "" {
			return fmt.Errorf("BASE_URL must be a valid absolute URL")
		}
	}

	return nil
}

// EmailEnabled reports whether order lifecycle emails are configured.
func (c *Config) EmailEnabled() bool {
	return strings.TrimSpace(c.ResendAPIKey) != "" && strings.TrimSpace(c.EmailFrom) != ""
}
