// Package config provides configuration loading for the GiveWidget API.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Stripe   StripeConfig   `mapstructure:"stripe"`
	Email    EmailConfig    `mapstructure:"email"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Cron     CronConfig     `mapstructure:"cron"`
	Donation DonationConfig `mapstructure:"donation"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"` // dev, staging, prod
	BaseURL      string        `mapstructure:"base_url"`    // public URL for checkout redirects
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StripeConfig holds payment processor configuration.
type StripeConfig struct {
	SecretKey      string `mapstructure:"secret_key"`
	WebhookSecret  string `mapstructure:"webhook_secret"`
	PriceIDMonthly string `mapstructure:"price_id_monthly"`
	PriceIDYearly  string `mapstructure:"price_id_yearly"`
	TrialDays      int    `mapstructure:"trial_days"`
	ConnectRefresh string `mapstructure:"connect_refresh_url"`
	ConnectReturn  string `mapstructure:"connect_return_url"`
}

// EmailConfig holds SMTP configuration for outbound notifications.
type EmailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	Enabled  bool   `mapstructure:"enabled"`
}

// Addr returns the SMTP address string.
func (c EmailConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AdminConfig holds the shared-secret credential for privileged endpoints.
type AdminConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// CronConfig holds settings for scheduled jobs.
type CronConfig struct {
	Secret            string `mapstructure:"secret"` // optional bearer secret for /cron/* endpoints
	ReminderSchedule  string `mapstructure:"reminder_schedule"`
	KeepaliveSchedule string `mapstructure:"keepalive_schedule"`
}

// DonationConfig holds donation amount defaults.
type DonationConfig struct {
	MinAmount     int64  `mapstructure:"min_amount"`
	DefaultAmount int64  `mapstructure:"default_amount"`
	Currency      string `mapstructure:"currency"`
}

// Load reads configuration from files and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/givewidget")

	// Enable environment variable override
	v.SetEnvPrefix("GIVEWIDGET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Explicitly bind secrets (nested struct issue with viper)
	v.BindEnv("stripe.secret_key", "GIVEWIDGET_STRIPE_SECRET_KEY")
	v.BindEnv("stripe.webhook_secret", "GIVEWIDGET_STRIPE_WEBHOOK_SECRET")
	v.BindEnv("stripe.price_id_monthly", "GIVEWIDGET_STRIPE_PRICE_ID_MONTHLY")
	v.BindEnv("stripe.price_id_yearly", "GIVEWIDGET_STRIPE_PRICE_ID_YEARLY")
	v.BindEnv("admin.api_key", "GIVEWIDGET_ADMIN_API_KEY")
	v.BindEnv("cron.secret", "GIVEWIDGET_CRON_SECRET")
	v.BindEnv("email.password", "GIVEWIDGET_EMAIL_PASSWORD")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all settings.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.environment", "dev")
	v.SetDefault("server.base_url", "http://localhost:8080")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "givewidget")
	v.SetDefault("database.password", "givewidget")
	v.SetDefault("database.database", "givewidget")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Stripe defaults
	v.SetDefault("stripe.trial_days", 7)
	v.SetDefault("stripe.connect_refresh_url", "http://localhost:8080/connect/stripe")
	v.SetDefault("stripe.connect_return_url", "http://localhost:3000/dashboard")

	// Email defaults
	v.SetDefault("email.host", "localhost")
	v.SetDefault("email.port", 587)
	v.SetDefault("email.from", "noreply@givewidget.app")
	v.SetDefault("email.enabled", false)

	// Cron defaults
	v.SetDefault("cron.reminder_schedule", "0 9 * * *")
	v.SetDefault("cron.keepalive_schedule", "0 */6 * * *")

	// Donation defaults
	v.SetDefault("donation.min_amount", 5)
	v.SetDefault("donation.default_amount", 50)
	v.SetDefault("donation.currency", "pln")
}
