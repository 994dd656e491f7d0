package portal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-portal/internal/xdg"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of environment variables read by LoadConfig
const EnvPrefix = "PORTAL_"

const (
	StoreDriverFile   = "file"
	StoreDriverSQLite = "sqlite"
	StoreDriverRedis  = "redis"
	StoreDriverMemory = "memory"
)

type Config struct {
	API    APIConfig    `koanf:"api"`
	Store  StoreConfig  `koanf:"store"`
	Log    LogConfig    `koanf:"log"`
	Portal PortalConfig `koanf:"portal"`
	Server ServerConfig `koanf:"server"`
}

type APIConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

type StoreConfig struct {
	Driver      string `koanf:"driver"`
	Path        string `koanf:"path"`
	RedisAddr   string `koanf:"redis_addr"`
	RedisPrefix string `koanf:"redis_prefix"`
}

type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// PortalConfig configures the web portal served by `portal serve`
type PortalConfig struct {
	Addr string `koanf:"addr"`
}

// ServerConfig configures the reference API served by `portal api`
type ServerConfig struct {
	Addr          string        `koanf:"addr"`
	Database      string        `koanf:"database"`
	SigningKey    string        `koanf:"signing_key"`
	TokenTTL      time.Duration `koanf:"token_ttl"`
	AllowedOrigin string        `koanf:"allowed_origin"`
}

// DefaultConfig returns the values used when nothing else is configured
func DefaultConfig() map[string]any {
	return map[string]any{
		"api.url":               DefaultBaseURL,
		"api.timeout":           10 * time.Second,
		"store.driver":          StoreDriverFile,
		"store.path":            xdg.SessionFile(),
		"store.redis_addr":      "localhost:6379",
		"store.redis_prefix":    defaultRedisPrefix,
		"log.format":            "text",
		"log.level":             "info",
		"portal.addr":           ":3000",
		"server.addr":           ":8080",
		"server.database":       "file:portal.db?cache=shared",
		"server.signing_key":    "",
		"server.token_ttl":      24 * time.Hour,
		"server.allowed_origin": "http://localhost:3000",
	}
}

// flagKeys maps CLI flag names to config keys
var flagKeys = map[string]string{
	"api-url":        "api.url",
	"api-timeout":    "api.timeout",
	"store":          "store.driver",
	"store-path":     "store.path",
	"redis-addr":     "store.redis_addr",
	"redis-prefix":   "store.redis_prefix",
	"log-format":     "log.format",
	"log-level":      "log.level",
	"addr":           "portal.addr",
	"api-addr":       "server.addr",
	"database":       "server.database",
	"signing-key":    "server.signing_key",
	"token-ttl":      "server.token_ttl",
	"allowed-origin": "server.allowed_origin",
}

// LoadConfig layers defaults, an optional YAML file, PORTAL_* environment
// variables and changed CLI flags, in that order. A missing file at path
// is not an error.
func LoadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(DefaultConfig(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stat config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey turns PORTAL_STORE_REDIS_ADDR into store.redis_addr
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.API),
		validation.Field(&c.Store),
	)
}

func (c APIConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.URL, validation.Required),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

func (c StoreConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Driver,
			validation.Required,
			validation.In(StoreDriverFile, StoreDriverSQLite, StoreDriverRedis, StoreDriverMemory),
		),
		validation.Field(&c.Path,
			validation.When(c.Driver == StoreDriverFile || c.Driver == StoreDriverSQLite, validation.Required),
		),
		validation.Field(&c.RedisAddr,
			validation.When(c.Driver == StoreDriverRedis, validation.Required),
		),
	)
}
