package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Auth struct {
		Username string
		Password string
	}
	Session struct {
		Driver     string
		Secret     string
		CookieName string
		Secure     bool
		Retention  time.Duration
	}
	Database struct {
		Path string
	}
	Redis struct {
		Addr     string
		Username string
		Password string
		DB       int
		Prefix   string
	}
	CSRF struct {
		Enabled bool
		Key     string
	}
	Upload struct {
		Dir      string
		MaxBytes int64
	}
	Log struct {
		Level  string
		Format string
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	_ = godotenv.Load() // optional .env, never overrides the environment

	v := viper.New()
	v.SetEnvPrefix("LOGIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:5000")
	v.SetDefault("auth.username", "admin")
	v.SetDefault("auth.password", "actionfi")
	v.SetDefault("session.driver", "memory")
	v.SetDefault("session.secret", "")
	v.SetDefault("session.cookiename", "login_session")
	v.SetDefault("session.secure", false)
	v.SetDefault("session.retention", time.Duration(0))
	v.SetDefault("database.path", "data/login.db")
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.username", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "login:session:")
	v.SetDefault("csrf.enabled", true)
	v.SetDefault("csrf.key", "")
	v.SetDefault("upload.dir", "data/uploads")
	v.SetDefault("upload.maxbytes", int64(32<<20))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		addr, err := withPort(cfg.Server.Addr, port)
		if err != nil {
			return Config{}, err
		}
		cfg.Server.Addr = addr
	}

	return cfg, nil
}

func withPort(addr, port string) (string, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("invalid server.addr %q: %w", addr, err)
	}
	return net.JoinHostPort(host, port), nil
}
