package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Session  SessionConfig  `mapstructure:"session"`
	PAYUNi   PAYUNiConfig   `mapstructure:"payuni"`
	OAuth    OAuthConfig    `mapstructure:"oauth"`
	Turnstile TurnstileConfig `mapstructure:"turnstile"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Mode          string `mapstructure:"mode"`            // debug, release, test
	ResultPageURL string `mapstructure:"result_page_url"` // frontend page /payment-return redirects to
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// SessionConfig governs the ancillary session-cookie concern; the core only
// ever reads the identity it produces.
type SessionConfig struct {
	Secret string        `mapstructure:"secret"` // >=32 bytes, HS256 key for session tokens
	Expiry time.Duration `mapstructure:"expiry"`
}

// PAYUNiConfig holds the gateway credentials and the AES-256-GCM seal key/IV.
type PAYUNiConfig struct {
	MerchantID string `mapstructure:"merchant_id"`
	APIBase    string `mapstructure:"api_base"`
	HashKey    string `mapstructure:"hash_key"` // 32-byte AES-256 key
	HashIV     string `mapstructure:"hash_iv"`  // 16-byte AES-GCM nonce
	NotifyURL  string `mapstructure:"notify_url"`
	ReturnURL  string `mapstructure:"return_url"`
}

// OAuthConfig is the ancillary Google login concern; out of scope beyond the
// identity it eventually hands to ports.UserRepository.
type OAuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
}

// TurnstileConfig is the ancillary captcha concern, modelled behind
// ports.CaptchaVerifier.
type TurnstileConfig struct {
	SecretKey string `mapstructure:"secret_key"`
}

// CatalogConfig points at the static product catalog file (§ ports.ProductCatalog).
type CatalogConfig struct {
	ProductsFile string `mapstructure:"products_file"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
	File   string `mapstructure:"file"`   // optional rotating log file path
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: PAYUNI_.
// Nested keys use underscore: PAYUNI_DATABASE_HOST, PAYUNI_PAYUNI_HASH_KEY, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.result_page_url", "/result.html")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "payuni_gateway")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("session.secret", "")
	v.SetDefault("session.expiry", "720h")
	v.SetDefault("payuni.merchant_id", "")
	v.SetDefault("payuni.api_base", "https://sandbox-api.payuni.com.tw")
	v.SetDefault("payuni.hash_key", "")
	v.SetDefault("payuni.hash_iv", "")
	v.SetDefault("payuni.notify_url", "")
	v.SetDefault("payuni.return_url", "")
	v.SetDefault("oauth.client_id", "")
	v.SetDefault("oauth.client_secret", "")
	v.SetDefault("oauth.redirect_url", "")
	v.SetDefault("turnstile.secret_key", "")
	v.SetDefault("catalog.products_file", "config/products.yaml")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.file", "")

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: PAYUNI_DATABASE_HOST -> database.host
	v.SetEnvPrefix("PAYUNI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
