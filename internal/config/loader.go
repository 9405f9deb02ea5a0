package config

import (
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/rpattn/fieldgate/internal/changes"
	"github.com/rpattn/fieldgate/internal/db"
)

const envPrefix = "FIELDGATE"

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the full runtime configuration.
type Config struct {
	Database        db.Config
	StorageDriver   string
	HTTPAddr        string
	AllowedOrigins  []string
	ChildTableLimit int
	LogLevel        string
}

// Load reads config.yaml from configPath when present, then applies
// FIELDGATE_* environment overrides (FIELDGATE_DATABASE_HOST and so on).
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, errors.Wrap(err, "reading config.yaml")
		}
		log.Debug("no config.yaml found, using defaults and env vars")
	} else {
		log.WithField("file", v.ConfigFileUsed()).Debug("loaded config file")
	}

	cfg := Config{
		Database: db.Config{
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			DBName:   v.GetString("database.dbname"),
			SSLMode:  v.GetString("database.sslmode"),
			MaxConns: v.GetInt32("database.max_conns"),
		},
		StorageDriver:   strings.ToLower(v.GetString("storage.driver")),
		HTTPAddr:        v.GetString("http.addr"),
		AllowedOrigins:  v.GetStringSlice("http.allowed_origins"),
		ChildTableLimit: v.GetInt("workflow.child_table_limit"),
		LogLevel:        v.GetString("log.level"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := db.DefaultConfig()
	v.SetDefault("database.host", defaults.Host)
	v.SetDefault("database.port", defaults.Port)
	v.SetDefault("database.user", defaults.User)
	v.SetDefault("database.password", defaults.Password)
	v.SetDefault("database.dbname", defaults.DBName)
	v.SetDefault("database.sslmode", defaults.SSLMode)
	v.SetDefault("database.max_conns", 5)
	v.SetDefault("storage.driver", DriverPostgres)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("workflow.child_table_limit", changes.DefaultChildTableLimit)
	v.SetDefault("log.level", "info")
}

func (c Config) validate() error {
	switch c.StorageDriver {
	case DriverPostgres, DriverMemory:
	default:
		return errors.Errorf("unknown storage.driver %q (want %s or %s)", c.StorageDriver, DriverPostgres, DriverMemory)
	}
	if c.ChildTableLimit <= 0 {
		return errors.Errorf("workflow.child_table_limit must be positive, got %d", c.ChildTableLimit)
	}
	return nil
}
