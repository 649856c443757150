package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"pkg.mon.icu/forum/internal/config/hook"
	"pkg.mon.icu/forum/internal/storage/entity"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// MemoryUser is an account created when the memory storage driver starts. Users get IDs 1, 2,
// ... in the order listed.
type MemoryUser struct {
	Username string
	Role     entity.Role
}

type Config struct {
	Storage struct {
		Driver      string
		PostgresDSN string
		MemoryUsers []MemoryUser
	}

	Logging struct {
		Level zapcore.Level
	}

	Api struct {
		Port      uint16
		JwtSecret string
	}

	Events struct {
		// Buffer is the number of frames queued per live connection before frames are dropped.
		Buffer int
	}

	Rating struct {
		ReconcileInterval time.Duration
	}

	Comments struct {
		HoldRegexp *regexp.Regexp
	}

	Discord struct {
		Auth    string
		Channel string
	}
}

func Read() (*Config, error) {
	v := viper.New()
	configureDefaults(v)
	configureEnv(v)
	configureLocation(v)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}
	return unmarshalConfig(v)
}

func configureDefaults(v *viper.Viper) {
	v.SetDefault("storage.driver", DriverPostgres)
	v.SetDefault("logging.level", "info")
	v.SetDefault("api.port", 8080)
	v.SetDefault("events.buffer", 16)
	v.SetDefault("rating.reconcileinterval", "1m")
	v.SetDefault("comments.holdregexp", "")
	v.SetDefault("discord.auth", "")
	v.SetDefault("discord.channel", "")
	v.SetDefault("storage.postgresdsn", "")
	v.SetDefault("api.jwtsecret", "")
}

func configureEnv(v *viper.Viper) {
	v.AutomaticEnv()
	v.SetEnvPrefix("conf")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
}

func configureLocation(v *viper.Viper) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
}

func unmarshalConfig(v *viper.Viper) (*Config, error) {
	c := &Config{}
	if err := v.Unmarshal(c, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		hook.Level(), mapstructure.StringToTimeDurationHookFunc(), hook.Regexp(),
	))); err != nil {
		return nil, err
	}
	return c, c.validate()
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverMemory:
		for _, u := range c.Storage.MemoryUsers {
			if u.Username == "" {
				return errors.New("storage.memoryusers entries need a username")
			}
			if u.Role != "" && u.Role != entity.RoleUser && u.Role != entity.RoleAdmin {
				return fmt.Errorf("storage.memoryusers: role of %s must be user or admin", u.Username)
			}
		}
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			return errors.New("storage.postgresdsn is required by the postgres driver")
		}
	default:
		return errors.New("storage.driver must be postgres or memory")
	}
	if c.Api.JwtSecret == "" {
		return errors.New("api.jwtsecret is required")
	}
	if c.Events.Buffer < 1 {
		return errors.New("events.buffer must be positive")
	}
	if c.Rating.ReconcileInterval <= 0 {
		return errors.New("rating.reconcileinterval must be positive")
	}
	return nil
}
