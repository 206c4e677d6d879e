package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers
const (
	StorageDriverS3    = "s3"
	StorageDriverMinio = "minio"
)

// Config holds all application configuration
type Config struct {
	App            AppConfig
	Database       DatabaseConfig
	LegacyDatabase DatabaseConfig
	Storage        StorageConfig
	Media          MediaConfig
	Migration      MigrationConfig
	Log            LogConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// DatabaseConfig holds database connection settings.
// It is used for both the target store and the legacy source store.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	SlowThreshold   time.Duration
}

// StorageConfig holds object storage settings
type StorageConfig struct {
	Driver            string // s3 or minio
	Endpoint          string
	Region            string
	Bucket            string
	AccessKey         string
	SecretKey         string
	UseSSL            bool
	UsePathStyle      bool
	PublicBaseURL     string // base of the public object URLs; derived from endpoint and bucket when empty
	PresignExpiration time.Duration
}

// MediaConfig holds image migration settings
type MediaConfig struct {
	DownloadTimeout time.Duration
	MaxAttempts     int
	RetryDelay      time.Duration
	MaxImageBytes   int64
}

// MigrationConfig holds data migration run settings
type MigrationConfig struct {
	ReportDir     string
	SchemaPath    string // golang-migrate source path for the target schema
	LegacySchema  string // postgres schema holding the legacy tables
	AutoMigrateUp bool   // apply pending schema migrations before the data run
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with HOSTCAT_ prefix (e.g., HOSTCAT_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("HOSTCAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Database:       loadDatabase(v, "database"),
		LegacyDatabase: loadDatabase(v, "legacy_database"),
		Storage: StorageConfig{
			Driver:            v.GetString("storage.driver"),
			Endpoint:          v.GetString("storage.endpoint"),
			Region:            v.GetString("storage.region"),
			Bucket:            v.GetString("storage.bucket"),
			AccessKey:         v.GetString("storage.access_key"),
			SecretKey:         v.GetString("storage.secret_key"),
			UseSSL:            v.GetBool("storage.use_ssl"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			PublicBaseURL:     v.GetString("storage.public_base_url"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
		},
		Media: MediaConfig{
			DownloadTimeout: v.GetDuration("media.download_timeout"),
			MaxAttempts:     v.GetInt("media.max_attempts"),
			RetryDelay:      v.GetDuration("media.retry_delay"),
			MaxImageBytes:   v.GetInt64("media.max_image_bytes"),
		},
		Migration: MigrationConfig{
			ReportDir:     v.GetString("migration.report_dir"),
			SchemaPath:    v.GetString("migration.schema_path"),
			LegacySchema:  v.GetString("migration.legacy_schema"),
			AutoMigrateUp: v.GetBool("migration.auto_migrate_up"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadDatabase(v *viper.Viper, section string) DatabaseConfig {
	return DatabaseConfig{
		Host:            v.GetString(section + ".host"),
		Port:            v.GetInt(section + ".port"),
		User:            v.GetString(section + ".user"),
		Password:        v.GetString(section + ".password"),
		DBName:          v.GetString(section + ".dbname"),
		SSLMode:         v.GetString(section + ".sslmode"),
		MaxOpenConns:    v.GetInt(section + ".max_open_conns"),
		MaxIdleConns:    v.GetInt(section + ".max_idle_conns"),
		ConnMaxLifetime: v.GetInt(section + ".conn_max_lifetime"),
		ConnMaxIdleTime: v.GetInt(section + ".conn_max_idle_time"),
		SlowThreshold:   v.GetDuration(section + ".slow_threshold"),
	}
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "hostcatalog-migrator"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}

	applyDatabaseDefaults(&cfg.Database, "hostcatalog")
	applyDatabaseDefaults(&cfg.LegacyDatabase, "hostcatalog_legacy")
	// One sequential reader does not need a large pool
	if cfg.LegacyDatabase.MaxOpenConns > 4 {
		cfg.LegacyDatabase.MaxOpenConns = 4
	}
	if cfg.LegacyDatabase.MaxIdleConns > cfg.LegacyDatabase.MaxOpenConns {
		cfg.LegacyDatabase.MaxIdleConns = cfg.LegacyDatabase.MaxOpenConns
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = StorageDriverS3
	}
	if cfg.Storage.Endpoint == "" {
		cfg.Storage.Endpoint = "http://localhost:9000"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "hostcatalog"
	}
	if cfg.Storage.PresignExpiration == 0 {
		cfg.Storage.PresignExpiration = 15 * time.Minute
	}

	if cfg.Media.DownloadTimeout == 0 {
		cfg.Media.DownloadTimeout = 30 * time.Second
	}
	if cfg.Media.MaxAttempts == 0 {
		cfg.Media.MaxAttempts = 3
	}
	if cfg.Media.RetryDelay == 0 {
		cfg.Media.RetryDelay = 2 * time.Second
	}
	if cfg.Media.MaxImageBytes == 0 {
		cfg.Media.MaxImageBytes = 10 << 20 // 10MB
	}

	if cfg.Migration.ReportDir == "" {
		cfg.Migration.ReportDir = "."
	}
	if cfg.Migration.SchemaPath == "" {
		cfg.Migration.SchemaPath = "file://migrations"
	}
	if cfg.Migration.LegacySchema == "" {
		cfg.Migration.LegacySchema = "public"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
}

func applyDatabaseDefaults(d *DatabaseConfig, dbName string) {
	if d.Host == "" {
		d.Host = "localhost"
	}
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.User == "" {
		d.User = "postgres"
	}
	if d.DBName == "" {
		d.DBName = dbName
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.MaxOpenConns == 0 {
		d.MaxOpenConns = 10
	}
	if d.MaxIdleConns == 0 {
		d.MaxIdleConns = 2
	}
	if d.ConnMaxLifetime == 0 {
		d.ConnMaxLifetime = 60
	}
	if d.ConnMaxIdleTime == 0 {
		d.ConnMaxIdleTime = 30
	}
	if d.SlowThreshold == 0 {
		d.SlowThreshold = 200 * time.Millisecond
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	for name, d := range map[string]DatabaseConfig{"database": c.Database, "legacy_database": c.LegacyDatabase} {
		if d.MaxOpenConns <= 0 {
			return fmt.Errorf("%s.max_open_conns must be positive", name)
		}
		if d.MaxIdleConns < 0 {
			return fmt.Errorf("%s.max_idle_conns cannot be negative", name)
		}
		if d.MaxIdleConns > d.MaxOpenConns {
			return fmt.Errorf("%s.max_idle_conns (%d) cannot exceed %s.max_open_conns (%d)",
				name, d.MaxIdleConns, name, d.MaxOpenConns)
		}
	}

	switch c.Storage.Driver {
	case StorageDriverS3, StorageDriverMinio:
	default:
		return fmt.Errorf("storage.driver must be %q or %q, got %q", StorageDriverS3, StorageDriverMinio, c.Storage.Driver)
	}

	if c.Media.MaxAttempts < 1 {
		return fmt.Errorf("media.max_attempts must be at least 1")
	}
	if c.Media.RetryDelay < 0 {
		return fmt.Errorf("media.retry_delay cannot be negative")
	}

	if c.App.Env == "production" {
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	return nil
}

// RequireStoreCredentials checks that both database passwords are supplied and,
// unless images are skipped, the object storage keys as well.
func (c *Config) RequireStoreCredentials(withStorage bool) error {
	var errs []error
	if c.Database.Password == "" {
		errs = append(errs, errors.New("database.password is required (HOSTCAT_DATABASE_PASSWORD)"))
	}
	if c.LegacyDatabase.Password == "" {
		errs = append(errs, errors.New("legacy_database.password is required (HOSTCAT_LEGACY_DATABASE_PASSWORD)"))
	}
	if withStorage {
		if c.Storage.AccessKey == "" {
			errs = append(errs, errors.New("storage.access_key is required (HOSTCAT_STORAGE_ACCESS_KEY)"))
		}
		if c.Storage.SecretKey == "" {
			errs = append(errs, errors.New("storage.secret_key is required (HOSTCAT_STORAGE_SECRET_KEY)"))
		}
	}
	return errors.Join(errs...)
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// ObjectURL returns the public URL of an object key
func (s *StorageConfig) ObjectURL(key string) string {
	base := strings.TrimRight(s.PublicBaseURL, "/")
	if base == "" {
		base = strings.TrimRight(s.Endpoint, "/") + "/" + s.Bucket
	}
	return base + "/" + strings.TrimLeft(key, "/")
}
