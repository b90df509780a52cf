package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Configはアプリ全体の設定
type Config struct {
	Port string `mapstructure:"PORT"` // サーバーポート（8080）

	DatabaseURL      string `mapstructure:"DATABASE_URL"` // あれば POSTGRES_* より優先
	PostgresUser     string `mapstructure:"POSTGRES_USER"`
	PostgresPassword string `mapstructure:"POSTGRES_PASSWORD"`
	PostgresDB       string `mapstructure:"POSTGRES_DB"`
	PostgresHost     string `mapstructure:"POSTGRES_HOST"`
	PostgresPort     int    `mapstructure:"POSTGRES_PORT"`
	PostgresSSLMode  string `mapstructure:"POSTGRES_SSLMODE"`

	JWTSecret string `mapstructure:"JWT_SECRET"` // JWT署名シークレット

	GoEnv    string `mapstructure:"GO_ENV"` // dev/prod
	LogLevel string `mapstructure:"LOG_LEVEL"`

	PaystackSecretKey string        `mapstructure:"PAYSTACK_SECRET_KEY"`
	PaystackBaseURL   string        `mapstructure:"PAYSTACK_BASE_URL"`
	PaystackTimeout   time.Duration `mapstructure:"PAYSTACK_TIMEOUT"`

	PaymentCallbackURL string `mapstructure:"PAYMENT_CALLBACK_URL"` // 決済後の戻り先（フロント）
	PickupFollowUpURL  string `mapstructure:"PICKUP_FOLLOW_UP_URL"` // 店頭受取の連絡先ページ
	OrderCodePrefix    string `mapstructure:"ORDER_CODE_PREFIX"`

	RedisAddr      string        `mapstructure:"REDIS_ADDR"` // 空ならキャッシュなし
	RedisPassword  string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB        int           `mapstructure:"REDIS_DB"`
	CachePrefix    string        `mapstructure:"CACHE_PREFIX"`
	OrdersCacheTTL time.Duration `mapstructure:"ORDERS_CACHE_TTL"`

	KafkaBrokers    []string `mapstructure:"KAFKA_BROKERS"` // 空ならイベントはログのみ
	KafkaOrderTopic string   `mapstructure:"KAFKA_ORDER_TOPIC"`
}

var defaults = map[string]interface{}{
	"PORT":                 "8080",
	"POSTGRES_HOST":        "localhost",
	"POSTGRES_PORT":        5432,
	"POSTGRES_SSLMODE":     "disable",
	"GO_ENV":               "dev",
	"LOG_LEVEL":            "info",
	"PAYSTACK_BASE_URL":    "https://api.paystack.co",
	"PAYSTACK_TIMEOUT":     "10s",
	"PAYMENT_CALLBACK_URL": "http://localhost:5173/checkout/success-payment",
	"PICKUP_FOLLOW_UP_URL": "http://localhost:5173/contact-us",
	"ORDER_CODE_PREFIX":    "BiC",
	"REDIS_DB":             0,
	"CACHE_PREFIX":         "storefront",
	"ORDERS_CACHE_TTL":     "5m",
	"KAFKA_ORDER_TOPIC":    "storefront.orders",
}

// 既定値の無いキー（環境変数だけから読む）
var envOnly = []string{
	"DATABASE_URL",
	"POSTGRES_USER",
	"POSTGRES_PASSWORD",
	"POSTGRES_DB",
	"JWT_SECRET",
	"PAYSTACK_SECRET_KEY",
	"REDIS_ADDR",
	"REDIS_PASSWORD",
	"KAFKA_BROKERS",
}

// Loadは環境変数
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	for k, def := range defaults {
		v.SetDefault(k, def)
	}
	for _, k := range envOnly {
		if err := v.BindEnv(k); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.KafkaBrokers = splitList(v.GetString("KAFKA_BROKERS"))

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	//必須チェック
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.DatabaseURL == "" {
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required")
		}
		if c.PostgresPassword == "" {
			return fmt.Errorf("POSTGRES_PASSWORD is required")
		}
		if c.PostgresDB == "" {
			return fmt.Errorf("POSTGRES_DB is required")
		}
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required")
		}
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.PaystackSecretKey == "" {
		return fmt.Errorf("PAYSTACK_SECRET_KEY is required")
	}
	if c.PaystackTimeout <= 0 {
		return fmt.Errorf("PAYSTACK_TIMEOUT must be positive")
	}
	if c.OrdersCacheTTL <= 0 {
		return fmt.Errorf("ORDERS_CACHE_TTL must be positive")
	}
	return nil
}

// DSN は gorm/postgres 用の接続文字列
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

func (c Config) IsProduction() bool {
	return c.GoEnv == "prod" || c.GoEnv == "production"
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
