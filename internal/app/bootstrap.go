package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/okian/gridelo/internal/adapters/cache"
	"github.com/okian/gridelo/internal/adapters/repository"
	"github.com/okian/gridelo/internal/adapters/source"
	"github.com/okian/gridelo/internal/config"
	"github.com/okian/gridelo/internal/domain/aggregate"
	"github.com/okian/gridelo/internal/domain/identity"
	"github.com/okian/gridelo/internal/domain/normalize"
	"github.com/okian/gridelo/internal/domain/rating"
	"github.com/okian/gridelo/pkg/logger"
)

// Components is everything Build wires from a Config. Close releases the store
// and the cache; the Service itself is started and stopped by the caller.
type Components struct {
	Service  *Service
	Store    repository.Store
	Cache    cache.Store
	Resolver *identity.Resolver
}

// Build wires the rating pipeline described by cfg. When an aliases file is
// configured it is loaded now and watched until ctx is done.
func Build(ctx context.Context, cfg *config.Config, log logger.Logger) (*Components, error) {
	if log == nil {
		log = logger.Nop()
	}

	store, err := openStore(cfg, log)
	if err != nil {
		return nil, err
	}

	responses, err := openCache(ctx, cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	c := &Components{Store: store, Cache: responses}

	resolver := identity.NewResolver(identity.WithLogger(log.Named("identity")))
	if cfg.AliasesFile != "" {
		if err := resolver.LoadFile(cfg.AliasesFile); err != nil {
			_ = c.Close()
			return nil, err
		}
		go func() {
			if err := resolver.Watch(ctx, cfg.AliasesFile); err != nil {
				log.Warn(ctx, "alias table is not watched", logger.String("path", cfg.AliasesFile), logger.Error(err))
			}
		}()
	}
	c.Resolver = resolver

	client := source.NewClient(
		source.WithTimeout(cfg.HTTPTimeout),
		source.WithRetries(cfg.HTTPRetries),
		source.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
		source.WithCache(responses, cfg.CacheTTL),
		source.WithLogger(log.Named("source")),
	)
	selector := source.NewSelector(cfg.ModernCutoffSeason,
		source.NewModern(client, cfg.ModernBaseURL),
		source.NewLegacy(client, cfg.LegacyBaseURL),
	)
	agg := aggregate.New(selector,
		aggregate.WithNormalizer(normalize.New(normalize.WithResolver(resolver))),
		aggregate.WithLogger(log.Named("aggregate")),
	)

	c.Service = New(
		WithStore(store),
		WithCollector(agg),
		WithEngine(rating.NewEngine(
			rating.WithInitialRating(cfg.InitialRating),
			rating.WithKFactor(cfg.KFactor),
		)),
		WithStartSeason(cfg.StartSeason),
		WithQueueSize(cfg.TriggerQueueSize),
		WithSuspectThreshold(cfg.SuspectThreshold),
		WithRunOnStart(cfg.RunOnStart),
		WithLogger(log.Named("service")),
	)

	log.Info(ctx, "pipeline wired",
		logger.String("store", cfg.StoreDriver),
		logger.String("cache", cfg.CacheDriver),
		logger.Int("aliases", resolver.Aliases()),
		logger.Int("modernCutoff", cfg.ModernCutoffSeason))
	return c, nil
}

// Close releases the cache and the store.
func (c *Components) Close() error {
	var errs []error
	if c.Cache != nil {
		errs = append(errs, c.Cache.Close())
	}
	if c.Store != nil {
		errs = append(errs, c.Store.Close())
	}
	return errors.Join(errs...)
}

func openStore(cfg *config.Config, log logger.Logger) (repository.Store, error) {
	opts := []repository.Option{
		repository.WithBatchSize(cfg.StoreBatchSize),
		repository.WithLogger(log.Named("store")),
	}
	if cfg.StoreDriver == "memory" {
		return repository.NewMemoryStore(opts...), nil
	}
	gs, err := repository.Open(cfg.StoreDriver, cfg.StoreDSN, opts...)
	if err != nil {
		return nil, err
	}
	return gs, nil
}

func openCache(ctx context.Context, cfg *config.Config) (cache.Store, error) {
	switch cfg.CacheDriver {
	case "none":
		return cache.Nop{}, nil
	case "redis":
		rs := cache.NewRedisStore(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, fmt.Errorf("redis cache at %s: %w", cfg.RedisAddr, err)
		}
		return rs, nil
	default:
		return cache.NewMemoryStore(), nil
	}
}
