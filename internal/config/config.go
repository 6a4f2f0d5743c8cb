package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gnomegl/commitctx/internal/cache"
	"github.com/gnomegl/commitctx/internal/github"
	"github.com/gnomegl/commitctx/internal/gitlab"
	"github.com/gnomegl/commitctx/internal/linksign"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type CacheConfig struct {
	Backend string `yaml:"backend"`
	// GCInterval is the memory cache sweep interval in seconds.
	GCInterval int               `yaml:"gc_interval"`
	Redis      cache.RedisConfig `yaml:"redis"`
}

type MailConfig struct {
	From string `yaml:"from"`
}

type AppConfig struct {
	ListenAddr   string          `yaml:"listen_addr"`
	UsersFile    string          `yaml:"users_file"`
	OutputFormat string          `yaml:"output_format"`
	Log          LogConfig       `yaml:"log"`
	Cache        CacheConfig     `yaml:"cache"`
	GitLab       gitlab.Config   `yaml:"gitlab"`
	GitHub       github.Config   `yaml:"github"`
	Links        linksign.Config `yaml:"links"`
	Mail         MailConfig      `yaml:"mail"`
}

func Default() *AppConfig {
	return &AppConfig{
		ListenAddr:   ":8080",
		OutputFormat: "text",
		Log:          LogConfig{Level: "info", Format: "console"},
		Cache:        CacheConfig{Backend: CacheMemory, GCInterval: 60},
		Links:        linksign.Config{MaxAge: linksign.DefaultMaxAge},
		Mail:         MailConfig{From: "commitctx@localhost"},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*AppConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *AppConfig) Validate() error {
	var errs []error
	switch c.Cache.Backend {
	case CacheMemory, CacheRedis, CacheNone:
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache.Backend))
	}
	if c.Links.MaxAge < 0 {
		errs = append(errs, errors.New("links.max_age must not be negative"))
	}
	if c.Cache.Backend == CacheMemory && c.Cache.GCInterval <= 0 {
		errs = append(errs, errors.New("cache.gc_interval must be positive"))
	}
	return errors.Join(errs...)
}

// ParseConfig loads the --config file and applies every flag the user set.
func ParseConfig(c *cli.Context) (*AppConfig, error) {
	cfg, err := Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	setString(c, "log-level", &cfg.Log.Level)
	setString(c, "log-format", &cfg.Log.Format)
	setString(c, "cache", &cfg.Cache.Backend)
	setString(c, "redis-addr", &cfg.Cache.Redis.Addr)
	setString(c, "users-file", &cfg.UsersFile)
	setString(c, "gitlab-url", &cfg.GitLab.BaseURL)
	setString(c, "gitlab-token", &cfg.GitLab.Token)
	setString(c, "github-url", &cfg.GitHub.BaseURL)
	setString(c, "token", &cfg.GitHub.Token)
	setString(c, "token-file", &cfg.GitHub.TokenFile)
	setString(c, "proxy-file", &cfg.GitHub.ProxyFile)
	setString(c, "url-prefix", &cfg.Links.URLPrefix)
	setString(c, "region-url", &cfg.Links.RegionURL)
	setString(c, "secret", &cfg.Links.Secret)
	setString(c, "listen", &cfg.ListenAddr)
	setString(c, "output-format", &cfg.OutputFormat)
	setString(c, "from", &cfg.Mail.From)
	if isSet(c, "max-age") {
		cfg.Links.MaxAge = c.Duration("max-age")
	}

	cfg.Cache.Backend = strings.ToLower(cfg.Cache.Backend)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// isSet looks through the whole lineage so global flags work after a subcommand.
func isSet(c *cli.Context, name string) bool {
	for _, ctx := range c.Lineage() {
		if ctx.IsSet(name) {
			return true
		}
	}
	return false
}

func setString(c *cli.Context, name string, dst *string) {
	if isSet(c, name) {
		*dst = c.String(name)
	}
}
