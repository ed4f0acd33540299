package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gig-market/internal/common/catalogprotocol"
	"gig-market/internal/gigmarket"
	"gig-market/internal/gigmarket/catalog"
	"gig-market/internal/gigmarket/data/database"
	"gig-market/internal/gigmarket/service"
	"gig-market/internal/gigmarket/settlement"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	configPathFlag           = "c"
	configPathEnv            = "CONFIG_PATH"
	serverAddressFlag        = "a"
	serverAddressEnv         = "RUN_ADDRESS"
	serverAddressDefault     = "localhost:8080"
	catalogAddressFlag       = "r"
	catalogAddressEnv        = "CATALOG_ADDRESS"
	dbConnectionStringFlag   = "d"
	dbConnectionStringEnv    = "DATABASE_URI"
	jwtSecretEnv             = "JWT_SECRET"
	jwtSecretDefault         = "secret"
	platformFeeRateEnv       = "PLATFORM_FEE_RATE"
	platformFeeRateDefault   = "0.10"
	minWithdrawalEnv         = "MIN_WITHDRAWAL"
	settlementTickEnv        = "SETTLEMENT_TICK"
	settlementTickDefault    = time.Hour
	settlementMaturityEnv    = "SETTLEMENT_MATURITY"
	settlementMaturityDef    = 24 * time.Hour
	settlementWorkersEnv     = "SETTLEMENT_WORKERS"
	settlementWorkersDefault = 4
	settlementBatchDefault   = 500
	logLevelFlag             = "l"
	logLevelEnv              = "LOG_LEVEL"
	logLevelDefault          = "info"
	shutdownTimeoutDefault   = 5 * time.Second
	catalogTimeoutDefault    = 5 * time.Second
)

var (
	ErrInvalidConfig = errors.New("invalid config")
)

type Config struct {
	Server          gigmarket.Config
	JWTConfig       JWTConfig
	DB              database.Config
	Catalog         catalog.Config
	Orders          service.OrdersConfig
	Wallet          service.WalletConfig
	Settlement      settlement.Config
	Log             LogConfig
	Seed            Seed
	ShutdownTimeout time.Duration
}

type JWTConfig struct {
	Algorithm      string
	Secret         string
	// ExpirationTime is the lifetime of the development tokens issued for
	// seeded users when running without a database.
	ExpirationTime time.Duration
}

type LogConfig struct {
	Level    string
	Encoding string
}

// Seed lists users and listings loaded into the in-memory store at startup.
// Ignored when a database is configured, except for listings when no
// catalog address is set.
type Seed struct {
	Users    []SeedUser                `yaml:"users"`
	Services []catalogprotocol.Service `yaml:"services"`
}

type SeedUser struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	Role          string `yaml:"role"`
	WalletBalance int64  `yaml:"wallet_balance"`
}

// Duration wraps time.Duration to support YAML unmarshalling.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a string")
	}
	if value.Value == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	d.Duration = parsed
	return nil
}

// fileConfig mirrors the optional YAML file. Zero values keep defaults.
type fileConfig struct {
	Server struct {
		Address         string   `yaml:"address"`
		ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Database struct {
		URI string `yaml:"uri"`
	} `yaml:"database"`
	Catalog struct {
		Address string   `yaml:"address"`
		Timeout Duration `yaml:"timeout"`
	} `yaml:"catalog"`
	JWT struct {
		Secret     string   `yaml:"secret"`
		Expiration Duration `yaml:"expiration"`
	} `yaml:"jwt"`
	Fees struct {
		PlatformRate string `yaml:"platform_rate"`
	} `yaml:"fees"`
	Wallet struct {
		MinWithdrawal int64 `yaml:"min_withdrawal"`
	} `yaml:"wallet"`
	Settlement struct {
		Tick      Duration `yaml:"tick"`
		Maturity  Duration `yaml:"maturity"`
		Workers   int      `yaml:"workers"`
		BatchSize int      `yaml:"batch_size"`
	} `yaml:"settlement"`
	Log struct {
		Level    string `yaml:"level"`
		Encoding string `yaml:"encoding"`
	} `yaml:"log"`
	Seed Seed `yaml:"seed"`
}

func Load() (*Config, error) {
	return load(flag.CommandLine, os.Args[1:], os.LookupEnv)
}

// load applies defaults, then the YAML file, then explicitly set flags,
// then environment variables.
func load(fs *flag.FlagSet, args []string, lookupEnv func(string) (string, bool)) (*Config, error) {
	cfg := defaultConfig()

	configPath := fs.String(configPathFlag, "", "Path to YAML config file")
	serverAddress := fs.String(serverAddressFlag, serverAddressDefault, "Server address host:port")
	catalogAddress := fs.String(catalogAddressFlag, "", "Service catalog address, in-memory catalog when empty")
	dbConnectionString := fs.String(dbConnectionStringFlag, "", "PostgreSQL connection string, in-memory store when empty")
	logLevel := fs.String(logLevelFlag, logLevelDefault, "Log level")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	path := *configPath
	if valStr, ok := lookupEnv(configPathEnv); ok {
		path = valStr
	}
	if path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case serverAddressFlag:
			cfg.Server.ServerAddress = *serverAddress
		case catalogAddressFlag:
			cfg.Catalog.ServerAddress = *catalogAddress
		case dbConnectionStringFlag:
			cfg.DB.ConnectionString = *dbConnectionString
		case logLevelFlag:
			cfg.Log.Level = *logLevel
		}
	})

	if err := applyEnv(cfg, lookupEnv); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: gigmarket.Config{
			ServerAddress:   serverAddressDefault,
			ShutdownTimeout: shutdownTimeoutDefault,
		},
		JWTConfig: JWTConfig{
			Algorithm:      "HS256",
			Secret:         jwtSecretDefault,
			ExpirationTime: time.Hour,
		},
		Catalog: catalog.Config{
			Timeout: catalogTimeoutDefault,
		},
		Orders: service.OrdersConfig{
			PlatformFeeRate: decimal.RequireFromString(platformFeeRateDefault),
		},
		Wallet: service.WalletConfig{
			MinWithdrawal: service.DefaultMinWithdrawal,
		},
		Settlement: settlement.Config{
			TickPeriod:     settlementTickDefault,
			MaturityWindow: settlementMaturityDef,
			WorkersCount:   settlementWorkersDefault,
			BatchSize:      settlementBatchDefault,
		},
		Log: LogConfig{
			Level: logLevelDefault,
		},
		ShutdownTimeout: shutdownTimeoutDefault,
	}
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	var file fileConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("failed to decode config file: %w", err)
	}

	setString(&cfg.Server.ServerAddress, file.Server.Address)
	setDuration(&cfg.Server.ShutdownTimeout, file.Server.ShutdownTimeout.Duration)
	setDuration(&cfg.ShutdownTimeout, file.Server.ShutdownTimeout.Duration)
	setString(&cfg.DB.ConnectionString, file.Database.URI)
	setString(&cfg.Catalog.ServerAddress, file.Catalog.Address)
	setDuration(&cfg.Catalog.Timeout, file.Catalog.Timeout.Duration)
	setString(&cfg.JWTConfig.Secret, file.JWT.Secret)
	setDuration(&cfg.JWTConfig.ExpirationTime, file.JWT.Expiration.Duration)
	if file.Fees.PlatformRate != "" {
		rate, err := decimal.NewFromString(file.Fees.PlatformRate)
		if err != nil {
			return fmt.Errorf("%w: fees.platform_rate: %w", ErrInvalidConfig, err)
		}
		cfg.Orders.PlatformFeeRate = rate
	}
	if file.Wallet.MinWithdrawal != 0 {
		cfg.Wallet.MinWithdrawal = file.Wallet.MinWithdrawal
	}
	setDuration(&cfg.Settlement.TickPeriod, file.Settlement.Tick.Duration)
	setDuration(&cfg.Settlement.MaturityWindow, file.Settlement.Maturity.Duration)
	if file.Settlement.Workers != 0 {
		cfg.Settlement.WorkersCount = file.Settlement.Workers
	}
	if file.Settlement.BatchSize != 0 {
		cfg.Settlement.BatchSize = file.Settlement.BatchSize
	}
	setString(&cfg.Log.Level, file.Log.Level)
	setString(&cfg.Log.Encoding, file.Log.Encoding)
	cfg.Seed = file.Seed
	return nil
}

func applyEnv(cfg *Config, lookupEnv func(string) (string, bool)) error {
	if valStr, ok := lookupEnv(serverAddressEnv); ok {
		cfg.Server.ServerAddress = valStr
	}
	if valStr, ok := lookupEnv(catalogAddressEnv); ok {
		cfg.Catalog.ServerAddress = valStr
	}
	if valStr, ok := lookupEnv(dbConnectionStringEnv); ok {
		cfg.DB.ConnectionString = valStr
	}
	if valStr, ok := lookupEnv(jwtSecretEnv); ok {
		cfg.JWTConfig.Secret = valStr
	}
	if valStr, ok := lookupEnv(logLevelEnv); ok {
		cfg.Log.Level = valStr
	}
	if valStr, ok := lookupEnv(platformFeeRateEnv); ok {
		rate, err := decimal.NewFromString(valStr)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, platformFeeRateEnv, err)
		}
		cfg.Orders.PlatformFeeRate = rate
	}
	if valStr, ok := lookupEnv(minWithdrawalEnv); ok {
		val, err := strconv.ParseInt(valStr, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, minWithdrawalEnv, err)
		}
		cfg.Wallet.MinWithdrawal = val
	}
	if valStr, ok := lookupEnv(settlementTickEnv); ok {
		val, err := time.ParseDuration(valStr)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, settlementTickEnv, err)
		}
		cfg.Settlement.TickPeriod = val
	}
	if valStr, ok := lookupEnv(settlementMaturityEnv); ok {
		val, err := time.ParseDuration(valStr)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, settlementMaturityEnv, err)
		}
		cfg.Settlement.MaturityWindow = val
	}
	if valStr, ok := lookupEnv(settlementWorkersEnv); ok {
		val, err := strconv.Atoi(valStr)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, settlementWorkersEnv, err)
		}
		cfg.Settlement.WorkersCount = val
	}
	return nil
}

func validate(cfg *Config) error {
	rate := cfg.Orders.PlatformFeeRate
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: platform fee rate must be in [0, 1), got %s", ErrInvalidConfig, rate)
	}
	if cfg.Wallet.MinWithdrawal <= 0 {
		return fmt.Errorf("%w: minimum withdrawal must be positive", ErrInvalidConfig)
	}
	if cfg.Settlement.TickPeriod <= 0 {
		return fmt.Errorf("%w: settlement tick must be positive", ErrInvalidConfig)
	}
	if cfg.Settlement.MaturityWindow < 0 {
		return fmt.Errorf("%w: settlement maturity must not be negative", ErrInvalidConfig)
	}
	if cfg.Settlement.WorkersCount <= 0 {
		return fmt.Errorf("%w: settlement workers must be positive", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.JWTConfig.Secret) == "" {
		return fmt.Errorf("%w: jwt secret must be set", ErrInvalidConfig)
	}
	return nil
}

func setString(dst *string, val string) {
	if val != "" {
		*dst = val
	}
}

func setDuration(dst *time.Duration, val time.Duration) {
	if val != 0 {
		*dst = val
	}
}
