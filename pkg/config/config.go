// Package config loads the FormStencil configuration file.
//
// Every key has a default, so a missing file is not an error. Secrets and
// connection strings may be supplied through the environment instead of the
// file; see ApplyEnv.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xob0t/FormStencil/pkg/layout"
)

// DefaultPath is the config file read when no path is given.
const DefaultPath = "formstencil.yaml"

// Config is the whole configuration.
type Config struct {
	TemplatesDir string `yaml:"templates_dir"`
	ConfigDir    string `yaml:"config_dir"`
	OutputDir    string `yaml:"output_dir"`

	Auth    Auth    `yaml:"auth"`
	Store   Store   `yaml:"store"`
	Fonts   Fonts   `yaml:"fonts"`
	Render  Render  `yaml:"render"`
	Session Session `yaml:"session"`
	Server  Server  `yaml:"server"`
	Log     Log     `yaml:"log"`
}

type Auth struct {
	Password     string        `yaml:"password"`
	PasswordHash string        `yaml:"password_hash"`
	JWTSecret    string        `yaml:"jwt_secret"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
}

// Store selects the layout store backend.
type Store struct {
	Backend string `yaml:"backend"`
	Redis   Redis  `yaml:"redis"`
	DSN     string `yaml:"dsn"` // postgres or mysql
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type Fonts struct {
	// Paths are tried before the built-in system font list.
	Paths []string `yaml:"paths"`
}

type Render struct {
	Timeout time.Duration `yaml:"timeout"`
}

type Session struct {
	TTL time.Duration `yaml:"ttl"`
}

type Server struct {
	Listen string  `yaml:"listen"`
	Rate   float64 `yaml:"rate"`  // messages per second per user
	Burst  int     `yaml:"burst"` // messages allowed at once
}

type Log struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns the configuration used for absent keys.
func Default() Config {
	return Config{
		TemplatesDir: "templates",
		ConfigDir:    "config",
		OutputDir:    "filled_documents",
		Auth:         Auth{TokenTTL: 12 * time.Hour},
		Store: Store{
			Backend: layout.BackendFile,
			Redis:   Redis{Addr: "localhost:6379", Prefix: layout.DefaultRedisPrefix},
		},
		Render:  Render{Timeout: 30 * time.Second},
		Session: Session{TTL: 30 * time.Minute},
		Server:  Server{Listen: ":8080", Rate: 2, Burst: 5},
		Log:     Log{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults and applies environment overrides.
// A missing file yields the defaults. Unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := Decode(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Decode strictly decodes YAML into cfg, keeping values for absent keys.
func Decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Encode writes cfg as YAML.
func Encode(w io.Writer, cfg Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

// Environment variables read by ApplyEnv.
const (
	EnvPassword     = "FORMSTENCIL_PASSWORD"
	EnvAdminPass    = "ADMIN_PASSWORD"
	EnvPasswordHash = "FORMSTENCIL_PASSWORD_HASH"
	EnvJWTSecret    = "FORMSTENCIL_JWT_SECRET"
	EnvRedisAddr    = "FORMSTENCIL_REDIS_ADDR"
	EnvDSN          = "FORMSTENCIL_DSN"
)

// ApplyEnv overrides secrets and connection settings from getenv. Empty
// variables are ignored. FORMSTENCIL_PASSWORD wins over ADMIN_PASSWORD.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}
	set(&c.Auth.Password, EnvPassword, EnvAdminPass)
	set(&c.Auth.PasswordHash, EnvPasswordHash)
	set(&c.Auth.JWTSecret, EnvJWTSecret)
	set(&c.Store.Redis.Addr, EnvRedisAddr)
	set(&c.Store.DSN, EnvDSN)
}

// Validate reports every setting that cannot work.
func (c Config) Validate() error {
	var errs []error
	for _, d := range []struct{ key, dir string }{
		{"templates_dir", c.TemplatesDir},
		{"config_dir", c.ConfigDir},
		{"output_dir", c.OutputDir},
	} {
		if d.dir == "" {
			errs = append(errs, fmt.Errorf("%s is empty", d.key))
		}
	}

	switch c.Store.Backend {
	case layout.BackendFile, "":
	case layout.BackendRedis:
		if c.Store.Redis.Addr == "" {
			errs = append(errs, errors.New("store.redis.addr is empty"))
		}
	case layout.BackendPostgres, layout.BackendMySQL:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for %s", c.Store.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.backend %q", c.Store.Backend))
	}

	if c.Render.Timeout < 0 {
		errs = append(errs, errors.New("render.timeout is negative"))
	}
	if c.Server.Rate <= 0 || c.Server.Burst < 1 {
		errs = append(errs, errors.New("server.rate and server.burst must be positive"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LayoutOptions returns the layout store options the config selects.
func (c Config) LayoutOptions() layout.Options {
	return layout.Options{
		Backend: c.Store.Backend,
		Dir:     c.ConfigDir,
		Redis: layout.RedisOptions{
			Addr:     c.Store.Redis.Addr,
			Password: c.Store.Redis.Password,
			DB:       c.Store.Redis.DB,
			Prefix:   c.Store.Redis.Prefix,
		},
		DSN: c.Store.DSN,
	}
}
