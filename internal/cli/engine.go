package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/lantern"
	"github.com/aretw0/lantern/pkg/adapters/file"
	"github.com/aretw0/lantern/pkg/adapters/memory"
	"github.com/aretw0/lantern/pkg/adapters/redis"
	"github.com/aretw0/lantern/pkg/observability"
	"github.com/aretw0/lantern/pkg/ports"
	"github.com/aretw0/lantern/pkg/presentation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Runtime bundles an engine with the adapters the CLI built for it.
type Runtime struct {
	Engine    *lantern.Engine
	Headless  *presentation.Headless
	Publisher ports.AnalyticsPublisher
	Registry  *prometheus.Registry

	closers []io.Closer
}

// Close releases the connections opened by NewRuntime.
func (r *Runtime) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// NewRuntime builds an engine from cfg. Steps are rendered to out.
// Experiences are read from cfg.ExperiencesDir, through a Redis cache when Redis is configured,
// and analytics go to Redis or, without it, to memory.
func NewRuntime(cfg Config, out io.Writer, logger *slog.Logger, opts ...lantern.Option) (*Runtime, error) {
	headless, err := presentation.NewHeadless(out, presentation.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("error initializing presentation: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics := observability.NewMetrics(reg)

	rt := &Runtime{Headless: headless, Registry: reg}

	var loader ports.ExperienceLoader = file.NewLoader(cfg.ExperiencesDir)
	if cfg.Redis.Addr != "" {
		redisOpts := []redis.Option{redis.WithLogger(logger)}
		if cfg.Redis.Prefix != "" {
			redisOpts = append(redisOpts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redisOpts...)
		rt.closers = append(rt.closers, store)
		loader = store.ReadThrough(loader)
		rt.Publisher = redis.NewPublisher(store.Client(), redisOpts...)
	} else {
		rt.Publisher = memory.NewPublisher()
	}

	engineOpts := []lantern.Option{
		lantern.WithLoader(loader),
		lantern.WithBuilder(headless),
		lantern.WithPublisher(rt.Publisher),
		lantern.WithMetrics(metrics),
		lantern.WithTokens(cfg.Tokens),
		lantern.WithLogger(logger),
	}
	rt.Engine, err = lantern.New(append(engineOpts, opts...)...)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return rt, nil
}
