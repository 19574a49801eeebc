// Package config loads runtime settings from config.yaml with environment
// overrides under the VERBFLOW_ prefix.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/verbflow/verbflow/internal/db"
)

// Config holds the full runtime configuration.
type Config struct {
	Database       db.Config
	Tenant         string
	ExportDir      string
	MigrationsPath string
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Database:       db.DefaultConfig(),
		Tenant:         "default",
		ExportDir:      "exports",
		MigrationsPath: "migrations",
	}
}

// Load reads config.yaml from the given path and applies environment
// overrides like VERBFLOW_DATABASE_HOST or VERBFLOW_TENANT.
func Load(configPath string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()
	v.SetEnvPrefix("VERBFLOW")

	v.BindEnv("database.host", "VERBFLOW_DATABASE_HOST")
	v.BindEnv("database.port", "VERBFLOW_DATABASE_PORT")
	v.BindEnv("database.user", "VERBFLOW_DATABASE_USER")
	v.BindEnv("database.password", "VERBFLOW_DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "VERBFLOW_DATABASE_DBNAME")
	v.BindEnv("database.sslmode", "VERBFLOW_DATABASE_SSLMODE")
	v.BindEnv("tenant", "VERBFLOW_TENANT")
	v.BindEnv("export.dir", "VERBFLOW_EXPORT_DIR")
	v.BindEnv("migrations.path", "VERBFLOW_MIGRATIONS_PATH")

	if err := v.ReadInConfig(); err != nil {
		fmt.Println("No config.yaml found, using defaults and env vars")
	} else {
		fmt.Println("Loaded config.yaml")
	}

	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("tenant") {
		cfg.Tenant = v.GetString("tenant")
	}
	if v.IsSet("export.dir") {
		cfg.ExportDir = v.GetString("export.dir")
	}
	if v.IsSet("migrations.path") {
		cfg.MigrationsPath = v.GetString("migrations.path")
	}

	return cfg, nil
}
