package service

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gnomegl/commitctx/internal/blame"
	"github.com/gnomegl/commitctx/internal/cache"
	"github.com/gnomegl/commitctx/internal/config"
	"github.com/gnomegl/commitctx/internal/github"
	"github.com/gnomegl/commitctx/internal/gitlab"
	"github.com/gnomegl/commitctx/internal/linksign"
	"github.com/gnomegl/commitctx/internal/logging"
	"github.com/gnomegl/commitctx/internal/metrics"
	"github.com/gnomegl/commitctx/internal/users"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Orchestrator wires the configured components together for the commands.
type Orchestrator struct {
	config   *config.AppConfig
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	cache    cache.Cache

	stdout io.Writer
	stderr io.Writer

	users    *users.Directory
	links    *linksign.Service
	blamers  map[string]blame.FileBlamer
	progress bool
}

type Option func(*Orchestrator)

func WithOutput(stdout, stderr io.Writer) Option {
	return func(o *Orchestrator) {
		o.stdout = stdout
		o.stderr = stderr
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithProgress toggles the progress bar on stderr.
func WithProgress(enabled bool) Option {
	return func(o *Orchestrator) { o.progress = enabled }
}

func NewOrchestrator(ctx context.Context, cfg *config.AppConfig, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		config:   cfg,
		registry: prometheus.NewRegistry(),
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		blamers:  make(map[string]blame.FileBlamer),
		progress: true,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return nil, err
		}
		o.logger = logger
	}
	o.metrics = metrics.New(o.registry)

	c, err := newCache(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}
	o.cache = c

	if cfg.UsersFile != "" {
		dir, err := users.LoadDirectory(cfg.UsersFile)
		if err != nil {
			return nil, err
		}
		o.users = dir
	} else {
		o.users = users.NewDirectory()
	}

	return o, nil
}

func newCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, error) {
	switch cfg.Backend {
	case config.CacheRedis:
		return cache.NewRedis(ctx, cfg.Redis)
	case config.CacheNone:
		return cache.Noop{}, nil
	}
	return cache.NewMemory(cfg.GCInterval)
}

// Blamer returns the blame client of provider, creating it on first use.
func (o *Orchestrator) Blamer(ctx context.Context, provider string) (blame.FileBlamer, error) {
	if b, ok := o.blamers[provider]; ok {
		return b, nil
	}

	var b blame.FileBlamer
	switch provider {
	case "gitlab":
		api, err := gitlab.NewClient(o.config.GitLab)
		if err != nil {
			return nil, err
		}
		b = gitlab.NewBlamer(api,
			gitlab.WithCache(o.cache),
			gitlab.WithIntegrationID(o.config.GitLab.IntegrationID),
			gitlab.WithLogger(o.logger),
			gitlab.WithMetrics(o.metrics),
		)
	case "github":
		pool, err := o.githubPool(ctx)
		if err != nil {
			return nil, err
		}
		b = github.NewBlamer(pool,
			github.WithCache(o.cache),
			github.WithIntegrationID(o.config.GitHub.IntegrationID),
			github.WithLogger(o.logger),
			github.WithMetrics(o.metrics),
		)
	default:
		return nil, fmt.Errorf("unsupported provider %q (gitlab, github)", provider)
	}

	o.blamers[provider] = b
	return b, nil
}

func (o *Orchestrator) githubPool(ctx context.Context) (*github.ClientPool, error) {
	cfg := o.config.GitHub

	var tokens, proxies []string
	if cfg.TokenFile != "" {
		list, err := github.ReadTokenFile(cfg.TokenFile)
		if err != nil {
			return nil, err
		}
		tokens = list
	} else if token := github.ResolveToken(cfg.Token); token != "" {
		tokens = []string{token}
	}
	if cfg.ProxyFile != "" {
		list, err := github.ReadProxyFile(cfg.ProxyFile)
		if err != nil {
			return nil, err
		}
		proxies = list
	}

	pool, err := github.NewClientPool(tokens, proxies, cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Validate(ctx); err != nil {
		return nil, fmt.Errorf("token validation failed: %v", err)
	}
	o.logger.Debug("github.pool_ready", zap.Int("clients", pool.Size()))
	return pool, nil
}

// Links returns the link signing service.
func (o *Orchestrator) Links() (*linksign.Service, error) {
	if o.links != nil {
		return o.links, nil
	}
	links, err := linksign.NewService(o.config.Links, o.users,
		linksign.WithLogger(o.logger),
		linksign.WithMetrics(o.metrics),
	)
	if err != nil {
		return nil, err
	}
	o.links = links
	return links, nil
}

func (o *Orchestrator) Close() error {
	_ = o.logger.Sync()
	if c, ok := o.cache.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
