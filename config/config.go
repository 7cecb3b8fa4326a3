package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DBType          string        `mapstructure:"DB_TYPE"` // memory, sqlite, postgres, mysql
	DSN             string        `mapstructure:"DSN"`
	SkipAutoMigrate bool          `mapstructure:"SKIP_AUTO_MIGRATE"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	Port            int           `mapstructure:"PORT"`
	MaxDepth        int           `mapstructure:"MAX_DEPTH"`
	NamespaceDir    string        `mapstructure:"NAMESPACE_DIR"`
	RedisAddr       string        `mapstructure:"REDIS_ADDR"`
	CacheTTL        time.Duration `mapstructure:"CACHE_TTL"`
	AuditRetention  int           `mapstructure:"AUDIT_RETENTION"` // max in-memory audit events
}

func LoadConfig() (*Config, error) {
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("PORT", 4466)
	viper.SetDefault("DB_TYPE", "sqlite")
	viper.SetDefault("DSN", "relato.db")
	viper.SetDefault("SKIP_AUTO_MIGRATE", false)
	viper.SetDefault("MAX_DEPTH", 32)
	viper.SetDefault("NAMESPACE_DIR", "")
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("CACHE_TTL", "10s")
	viper.SetDefault("AUDIT_RETENTION", 10000)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
