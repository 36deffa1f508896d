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
	Limits   LimitsConfig   `mapstructure:"limits"`
	Fraud    FraudConfig    `mapstructure:"fraud"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
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
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
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

// LimitsConfig holds transaction limit thresholds. Amounts are minor units
// (cents) of the configured currency. The withdrawal fee is basis points so
// fee arithmetic stays exact (200 bps = 2%).
type LimitsConfig struct {
	Currency             string `mapstructure:"currency"`
	MinTransactionCents  int64  `mapstructure:"min_transaction_cents"`
	MaxTransactionCents  int64  `mapstructure:"max_transaction_cents"`
	DailyDepositCents    int64  `mapstructure:"daily_deposit_cents"`
	DailyTransferCents   int64  `mapstructure:"daily_transfer_cents"`
	MinWithdrawalCents   int64  `mapstructure:"min_withdrawal_cents"`
	MaxWithdrawalCents   int64  `mapstructure:"max_withdrawal_cents"`
	WithdrawalFeeBps     int64  `mapstructure:"withdrawal_fee_bps"`
	Timezone             string `mapstructure:"timezone"`
	ReferenceMaxAttempts int    `mapstructure:"reference_max_attempts"`
}

// Location resolves the limit-window timezone, falling back to UTC.
func (l LimitsConfig) Location() *time.Location {
	loc, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// FraudConfig holds claim fraud scoring thresholds.
type FraudConfig struct {
	HighAmountCents    int64   `mapstructure:"high_amount_cents"`
	RecentClaimDays    int     `mapstructure:"recent_claim_days"`
	RecentClaimMax     int     `mapstructure:"recent_claim_max"`
	NewBeneficiaryDays int     `mapstructure:"new_beneficiary_days"`
	ReviewScore        float64 `mapstructure:"review_score"`
	EdgeDensityCutoff  float64 `mapstructure:"edge_density_cutoff"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: STK_.
// Nested keys use underscore: STK_DATABASE_HOST, STK_LIMITS_CURRENCY, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "stokvel_ledger")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.query_timeout", "5s")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("limits.currency", "ZAR")
	v.SetDefault("limits.min_transaction_cents", 100)     // R1.00
	v.SetDefault("limits.max_transaction_cents", 5000000) // R50,000.00
	v.SetDefault("limits.daily_deposit_cents", 1000000)   // R10,000.00
	v.SetDefault("limits.daily_transfer_cents", 500000)   // R5,000.00
	v.SetDefault("limits.min_withdrawal_cents", 1000)     // R10.00
	v.SetDefault("limits.max_withdrawal_cents", 5000000)  // R50,000.00
	v.SetDefault("limits.withdrawal_fee_bps", 200)        // 2%
	v.SetDefault("limits.timezone", "UTC")
	v.SetDefault("limits.reference_max_attempts", 3)
	v.SetDefault("fraud.high_amount_cents", 10000000) // R100,000.00
	v.SetDefault("fraud.recent_claim_days", 30)
	v.SetDefault("fraud.recent_claim_max", 3)
	v.SetDefault("fraud.new_beneficiary_days", 7)
	v.SetDefault("fraud.review_score", 0.7)
	v.SetDefault("fraud.edge_density_cutoff", 0.5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: STK_DATABASE_HOST -> database.host
	v.SetEnvPrefix("STK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional; env vars can carry everything.
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
