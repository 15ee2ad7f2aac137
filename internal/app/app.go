// Package app wires configuration into a ready survey service. It is shared
// by the API server and the CLI.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Vinayak1844/Statathon-Project/internal/cache"
	"github.com/Vinayak1844/Statathon-Project/internal/config"
	"github.com/Vinayak1844/Statathon-Project/internal/extract"
	"github.com/Vinayak1844/Statathon-Project/internal/llm"
	"github.com/Vinayak1844/Statathon-Project/internal/observability"
	"github.com/Vinayak1844/Statathon-Project/internal/query"
	"github.com/Vinayak1844/Statathon-Project/internal/reference"
	"github.com/Vinayak1844/Statathon-Project/internal/session"
	"github.com/Vinayak1844/Statathon-Project/internal/storage"
	"github.com/Vinayak1844/Statathon-Project/internal/survey"
)

// App holds the long-lived components built from a Config.
type App struct {
	DB      *sql.DB
	Dialect storage.Dialect
	Cache   cache.Client
	Service *survey.Service
	// ChatEnabled reports whether a language model client was built.
	ChatEnabled bool

	references *reference.CachingResolver
	closers    []func() error
}

// Options trims what New builds.
type Options struct {
	// WithChat builds the language model client and session store. A client
	// that cannot be built leaves chat disabled instead of failing New.
	WithChat bool
}

// New opens the database and builds the service graph.
func New(ctx context.Context, cfg *config.Config, logger *observability.Logger, opts Options) (*App, error) {
	dialect, err := storage.DialectFor(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}

	db, err := storage.Open(ctx, storage.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	a := &App{DB: db, Dialect: dialect}
	a.closers = append(a.closers, db.Close)

	if err := a.build(ctx, cfg, logger, opts); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, cfg *config.Config, logger *observability.Logger, opts Options) error {
	needCache := (cfg.Reference.ResolveNames && cfg.Reference.Cache.Enabled) ||
		(opts.WithChat && cfg.Sessions.Enabled)
	if needCache {
		client, err := NewCache(ctx, cfg.Cache)
		if err != nil {
			return err
		}
		a.Cache = client
		a.closers = append(a.closers, client.Close)
	}

	var resolver reference.Resolver
	if cfg.Reference.ResolveNames {
		sqlResolver, err := reference.NewSQLResolver(a.DB, logger, reference.SQLResolverConfig{
			Table:   cfg.Database.CodesTable,
			Dialect: a.Dialect,
		})
		if err != nil {
			return fmt.Errorf("reference resolver: %w", err)
		}
		resolver = sqlResolver
		if cfg.Reference.Cache.Enabled {
			a.references = reference.NewCachingResolver(sqlResolver, a.Cache, cfg.Reference.Cache.TTL, logger)
			resolver = a.references
		}
	}

	builder, err := query.NewBuilder(resolver, query.Options{
		Table:        cfg.Database.DatasetTable,
		Dialect:      a.Dialect,
		ResolveNames: cfg.Reference.ResolveNames,
	})
	if err != nil {
		return fmt.Errorf("query builder: %w", err)
	}

	var svcOpts []survey.Option
	if opts.WithChat {
		completer, err := llm.New(LLMConfig(cfg.LLM), logger)
		if err != nil {
			// filtering must keep working without a model
			if logger != nil {
				logger.Warn().Err(err).Str("provider", cfg.LLM.Provider).Msg("Chat disabled: language model client unavailable")
			}
		} else {
			a.ChatEnabled = true
			svcOpts = append(svcOpts, survey.WithExtractor(extract.New(completer, logger)))
		}
	}

	if a.ChatEnabled && cfg.Sessions.Enabled {
		store := session.NewCacheStore(a.Cache, session.Config{
			TTL:      cfg.Sessions.TTL,
			MaxTurns: cfg.Sessions.MaxTurns,
		}, logger)
		svcOpts = append(svcOpts, survey.WithSessions(store))
	}

	a.Service = survey.NewService(builder, storage.NewDataset(a.DB), logger, svcOpts...)
	return nil
}

// NewCache builds the configured cache client.
func NewCache(ctx context.Context, cfg config.CacheConfig) (cache.Client, error) {
	switch cfg.Driver {
	case "redis":
		client, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return client, nil
	default:
		return cache.NewMemoryClient(cfg.MaxEntries), nil
	}
}

// LLMConfig maps the llm config section onto the client config.
func LLMConfig(c config.LLMConfig) llm.Config {
	retry := llm.DefaultRetryConfig()
	retry.MaxRetries = c.MaxRetries
	return llm.Config{
		Provider:    c.Provider,
		APIKey:      c.APIKey,
		Model:       c.Model,
		BaseURL:     c.BaseURL,
		Timeout:     c.Timeout,
		Retry:       retry,
		RateLimit:   c.RateLimit,
		Burst:       c.Burst,
		StaticReply: c.StaticReply,
	}
}

// InvalidateReferences drops cached code lookups. It is a no-op when the
// reference cache is off.
func (a *App) InvalidateReferences(ctx context.Context) error {
	if a.references == nil {
		return nil
	}
	return a.references.Invalidate(ctx)
}

// Ping checks the database and, when it is remote, the cache.
func (a *App) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := a.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if p, ok := a.Cache.(cache.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("cache: %w", err)
		}
	}
	return nil
}

// Close releases everything New opened, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
