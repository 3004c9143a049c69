package config

import (
	"strings"

	"guestlist-backend/utils"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Config is everything the server reads from the environment.
type Config struct {
	Port        string
	CorsOrigins []string

	DBDriver   string
	SQLitePath string

	DefaultCountryPrefix string

	LogLevel  string
	LogFormat string // json | console

	AdminEmail    string
	AdminPassword string
}

func Load() *Config {
	driver := strings.ToLower(utils.EnvOrDefault("DB_DRIVER", DriverMySQL))
	if driver != DriverSQLite {
		driver = DriverMySQL
	}
	return &Config{
		Port:                 utils.EnvOrDefault("PORT", "8080"),
		CorsOrigins:          utils.EnvList("CORS_ORIGINS"),
		DBDriver:             driver,
		SQLitePath:           utils.EnvOrDefault("SQLITE_PATH", "guestlist.db"),
		DefaultCountryPrefix: utils.EnvOrDefault("DEFAULT_COUNTRY_PREFIX", utils.DefaultCountryPrefix),
		LogLevel:             utils.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            strings.ToLower(utils.EnvOrDefault("LOG_FORMAT", "json")),
		AdminEmail:           utils.EnvOrDefault("ADMIN_EMAIL", ""),
		AdminPassword:        utils.EnvOrDefault("ADMIN_PASSWORD", ""),
	}
}
