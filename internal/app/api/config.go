package api

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.temporal.io/sdk/client"

	paydomain "github.com/Apurer/go-storefront-api/internal/domains/payments/domain"
)

// Config carries environment-driven settings for the API process.
type Config struct {
	Port     string
	Currency string

	PostgresDSN     string
	PostgresMigrate bool
	RedisAddr       string

	KafkaBrokers []string
	KafkaTopic   string
	SMTP         SMTPConfig

	Payments PaymentConfig

	TaskQueueCapacity int
	TaskQueueWorkers  int
	TaskTimeout       time.Duration

	TemporalAddress   string
	TemporalNamespace string
	TemporalDisabled  bool

	ShutdownTimeout time.Duration
}

// SMTPConfig enables the email observer when Host is set.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type PaymentConfig struct {
	CallTimeout    time.Duration
	CardBaseURL    string
	CardAPIKey     string
	DeclineAbove   decimal.Decimal
	BlockedWallets []string
	Retries        uint64
}

// LoadConfig reads .env (when present) and the process environment, applies defaults and validates.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:              envDefault("PORT", "8080"),
		Currency:          strings.ToUpper(envDefault("DEFAULT_CURRENCY", paydomain.DefaultCurrency)),
		PostgresDSN:       strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		PostgresMigrate:   isTruthy(envDefault("POSTGRES_MIGRATE", "true")),
		RedisAddr:         strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		KafkaBrokers:      splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:        envDefault("KAFKA_TOPIC", "storefront.notifications"),
		TemporalAddress:   envDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		TemporalNamespace: envDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		TemporalDisabled:  isTruthy(os.Getenv("TEMPORAL_DISABLED")),
		SMTP: SMTPConfig{
			Host:     strings.TrimSpace(os.Getenv("SMTP_HOST")),
			Port:     envDefault("SMTP_PORT", "587"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     envDefault("SMTP_FROM", "orders@storefront.local"),
		},
		Payments: PaymentConfig{
			CardBaseURL:    strings.TrimSpace(os.Getenv("PAYMENT_CARD_BASE_URL")),
			CardAPIKey:     os.Getenv("PAYMENT_CARD_API_KEY"),
			BlockedWallets: splitList(os.Getenv("PAYMENT_WALLET_BLOCKED")),
		},
	}

	var err error
	if cfg.TaskQueueCapacity, err = positiveInt("TASK_QUEUE_CAPACITY", 100); err != nil {
		return Config{}, err
	}
	if cfg.TaskQueueWorkers, err = positiveInt("TASK_QUEUE_WORKERS", 4); err != nil {
		return Config{}, err
	}
	if cfg.TaskTimeout, err = duration("TASK_TIMEOUT", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = duration("SHUTDOWN_TIMEOUT", 15*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Payments.CallTimeout, err = duration("PAYMENT_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	retries, err := nonNegativeInt("PAYMENT_RETRIES", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.Payments.Retries = uint64(retries)
	cfg.Payments.DeclineAbove, err = decimal.NewFromString(envDefault("PAYMENT_DECLINE_ABOVE", "10000"))
	if err != nil {
		return Config{}, fmt.Errorf("PAYMENT_DECLINE_ABOVE must be a decimal amount")
	}
	if len(cfg.Currency) != 3 {
		return Config{}, fmt.Errorf("DEFAULT_CURRENCY must be a three letter ISO code")
	}
	return cfg, nil
}

func envDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func isTruthy(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "yes"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func positiveInt(key string, fallback int) (int, error) {
	n, err := nonNegativeInt(key, fallback)
	if err == nil && n == 0 {
		err = fmt.Errorf("%s must be a positive integer", key)
	}
	return n, err
}

func nonNegativeInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}

func duration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration such as 10s", key)
	}
	return d, nil
}
