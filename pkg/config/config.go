package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/seclave/hsign/pkg/logger"
)

const (
	// Environment constants
	Production  = "production"
	Development = "development"

	// Storage backends for the keystore
	StorageTypeBadger   = "badger"
	StorageTypePostgres = "postgres"

	defaultStorageType         = StorageTypeBadger
	defaultDBPath              = "."
	defaultBackupDir           = "backups"
	defaultBackupPeriodSeconds = 300
	defaultRequestSubject      = "hww.v1.request"
	defaultSignSessionTimeout  = 2 * time.Minute

	EnvConfigFile = "HSIGN_CONFIG_FILE"
)

type Config struct {
	NATs *NATsConfig `mapstructure:"nats"`

	Environment string `mapstructure:"environment"`

	// Device identity
	DeviceName string `mapstructure:"device_name"`

	// Keystore configuration
	StorageType             string        `mapstructure:"storage_type"`
	DBPath                  string        `mapstructure:"db_path"`
	KeystorePassword        string        `mapstructure:"keystore_password"`
	PostgresDSN             string        `mapstructure:"postgres_dsn"`
	PostgresMaxIdleConns    int           `mapstructure:"postgres_max_idle_conns"`
	PostgresMaxOpenConns    int           `mapstructure:"postgres_max_open_conns"`
	PostgresConnMaxLifetime time.Duration `mapstructure:"postgres_conn_max_lifetime"`

	// Backup workflows
	BackupDir           string `mapstructure:"backup_dir"`
	BackupEnabled       bool   `mapstructure:"backup_enabled"`
	BackupPeriodSeconds int    `mapstructure:"backup_period_seconds"`
	BackupPassword      string `mapstructure:"backup_password"`

	// Coin subsystem toggle. When false every coin-family request is
	// answered with the disabled error and no coin handler is wired in.
	CoinEnabled bool `mapstructure:"coin_enabled"`

	// Transport
	RequestSubject string `mapstructure:"request_subject"`
	AuditEnabled   bool   `mapstructure:"audit_enabled"`

	SignSessionTimeout time.Duration `mapstructure:"sign_session_timeout"`
}

type NATsConfig struct {
	URL      string     `mapstructure:"url"`
	Username string     `mapstructure:"username"`
	Password string     `mapstructure:"password"`
	TLS      *TLSConfig `mapstructure:"tls"`
}

type TLSConfig struct {
	ClientCert string `mapstructure:"client_cert"`
	ClientKey  string `mapstructure:"client_key"`
	CACert     string `mapstructure:"ca_cert"`
}

var (
	app *Config
	mu  sync.RWMutex
)

func initConfig() error {
	// env
	viper.SetEnvPrefix("HSIGN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("environment", Development)
	viper.SetDefault("storage_type", defaultStorageType)
	viper.SetDefault("db_path", defaultDBPath)
	viper.SetDefault("backup_dir", defaultBackupDir)
	viper.SetDefault("backup_period_seconds", defaultBackupPeriodSeconds)
	viper.SetDefault("backup_enabled", true)
	viper.SetDefault("coin_enabled", true)
	viper.SetDefault("audit_enabled", true)
	viper.SetDefault("request_subject", defaultRequestSubject)

	// set env config file
	configFile := os.Getenv(EnvConfigFile)
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/hsign/")
		viper.AddConfigPath("$HOME/.hsign/")
	}

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("viper read config: %w", err)
	}

	return nil
}

func SetEnvConfigPath(configPath string) {
	if configPath != "" {
		os.Setenv(EnvConfigFile, configPath)
	}
}

func LoadConfig() (*Config, error) {
	var cfg Config
	decoderConfig := &mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	}

	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}

	if err := decoder.Decode(viper.AllSettings()); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateEnvironment(cfg.Environment); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if err := validateStorageType(cfg.StorageType); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	setConfig(&cfg)
	return &cfg, nil
}

func Load() (*Config, error) {
	if err := initConfig(); err != nil {
		return nil, err
	}
	return LoadConfig()
}

func validateEnvironment(environment string) error {
	validEnvironments := []string{Production, Development}

	if !slices.Contains(validEnvironments, environment) {
		return fmt.Errorf("invalid environment '%s'. Must be one of: %s", environment, strings.Join(validEnvironments, ", "))
	}
	return nil
}

func validateStorageType(storageType string) error {
	validTypes := []string{StorageTypeBadger, StorageTypePostgres}

	if !slices.Contains(validTypes, storageType) {
		return fmt.Errorf("invalid storage_type '%s'. Must be one of: %s", storageType, strings.Join(validTypes, ", "))
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = Development
	}
	if cfg.StorageType == "" {
		cfg.StorageType = defaultStorageType
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.BackupDir == "" {
		cfg.BackupDir = defaultBackupDir
	}
	if cfg.BackupPeriodSeconds == 0 {
		cfg.BackupPeriodSeconds = defaultBackupPeriodSeconds
	}
	if cfg.RequestSubject == "" {
		cfg.RequestSubject = defaultRequestSubject
	}
	if cfg.SignSessionTimeout == 0 {
		cfg.SignSessionTimeout = defaultSignSessionTimeout
	}
}

func setConfig(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	app = cfg
}

// GetConfig returns the in-memory application configuration.
// It panics if the configuration has not been loaded yet.
func GetConfig() *Config {
	mu.RLock()
	defer mu.RUnlock()
	if app == nil {
		logger.Fatal("configuration not loaded", nil)
	}
	return app
}

// Update applies the provided function while holding the configuration write lock.
// It panics if the configuration has not been loaded yet.
func Update(fn func(cfg *Config)) {
	mu.Lock()
	defer mu.Unlock()
	if app == nil {
		panic("configuration not loaded")
	}
	fn(app)
}

func KeystorePassword() string {
	return GetConfig().KeystorePassword
}

func SetKeystorePassword(password string) {
	Update(func(cfg *Config) {
		cfg.KeystorePassword = password
	})
}

func BackupPassword() string {
	return GetConfig().BackupPassword
}

func SetBackupPassword(password string) {
	Update(func(cfg *Config) {
		cfg.BackupPassword = password
	})
}

func StorageType() string {
	return GetConfig().StorageType
}

func DBPath() string {
	return GetConfig().DBPath
}

func BackupEnabled() bool {
	return GetConfig().BackupEnabled
}

func BackupPeriodSeconds() int {
	return GetConfig().BackupPeriodSeconds
}

func BackupDir() string {
	return GetConfig().BackupDir
}

func CoinEnabled() bool {
	return GetConfig().CoinEnabled
}

func AuditEnabled() bool {
	return GetConfig().AuditEnabled
}

func RequestSubject() string {
	return GetConfig().RequestSubject
}

func SignSessionTimeout() time.Duration {
	return GetConfig().SignSessionTimeout
}

func NATs() *NATsConfig {
	return GetConfig().NATs
}

func Environment() string {
	return GetConfig().Environment
}

func IsProduction() bool {
	return strings.EqualFold(Environment(), Production)
}
