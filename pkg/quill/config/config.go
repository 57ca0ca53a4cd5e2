// Package config loads server configuration from an optional YAML file and
// QUILL_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every setting of the server
type Config struct {
	Server struct {
		Port    string
		BaseURL string `mapstructure:"base_url"`
		Mode    string
	}
	Database struct {
		Driver string
		DSN    string
	}
	Auth struct {
		JWTSecret     string        `mapstructure:"jwt_secret"`
		TokenTTL      time.Duration `mapstructure:"token_ttl"`
		CookieSecure  bool          `mapstructure:"cookie_secure"`
		AdminEmail    string        `mapstructure:"admin_email"`
		AdminPassword string        `mapstructure:"admin_password"`
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	RabbitMQ struct {
		URL   string `mapstructure:"url"`
		Queue string
	}
	CORS struct {
		AllowOrigins []string `mapstructure:"allow_origins"`
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "quill.db")
	v.SetDefault("auth.jwt_secret", "quill-dev-secret-change-in-production")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.cookie_secure", false)
	v.SetDefault("auth.admin_email", "admin@quill.local")
	v.SetDefault("auth.admin_password", "changeme")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("rabbitmq.queue", "quill.events")
	v.SetDefault("cors.allow_origins", []string{"*"})
}

// Load reads configuration. path may be empty, in which case quill.yaml is
// looked up in the working directory and ./config; a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("QUILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("quill")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}
