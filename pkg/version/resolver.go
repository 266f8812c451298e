package version

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackbump/pkg/cache"
	"github.com/matzehuels/stackbump/pkg/changeset"
	"github.com/matzehuels/stackbump/pkg/config"
	"github.com/matzehuels/stackbump/pkg/dag"
	"github.com/matzehuels/stackbump/pkg/deps"
	"github.com/matzehuels/stackbump/pkg/errors"
	"github.com/matzehuels/stackbump/pkg/observability"
)

// Resolver runs discovery, graph construction, cycle detection, direct
// resolution and propagation as one call.
//
// Resolver is stateless apart from its collaborators; one instance may serve
// concurrent calls.
type Resolver struct {
	Discoverer deps.Discoverer
	Strategy   config.Strategy
	Config     config.DependencyConfig
	Logger     *log.Logger

	// Cache memoises resolutions by input hash. Nil disables caching.
	Cache    cache.Cache
	CacheTTL time.Duration
}

// NewResolver creates a resolver reading packages from d and configured by
// cfg. The dependency config is validated here so a bad propagation bump
// fails before any work is done. A nil logger discards output.
func NewResolver(d deps.Discoverer, cfg config.Config, logger *log.Logger) (*Resolver, error) {
	if err := cfg.Dependencies.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Resolver{
		Discoverer: d,
		Strategy:   cfg.Strategy,
		Config:     cfg.Dependencies,
		Logger:     logger,
	}, nil
}

// Resolve computes the version updates for cs.
//
// Cycles are always reported in the result when detection is enabled. When
// FailOnCircular is also set and a cycle exists, Resolve fails with
// CIRCULAR_DEPENDENCY wrapping an [errors.CycleError]. Any failure aborts
// the whole call; partial results are never returned.
func (r *Resolver) Resolve(ctx context.Context, cs changeset.Changeset) (res *VersionResolution, err error) {
	start := time.Now()
	stats := observability.ResolveStats{}
	observability.Resolve().OnResolveStart(ctx, len(cs.Packages))
	defer func() {
		if res != nil {
			stats.Direct, stats.Propagated = res.Counts()
			stats.Cycles = len(res.CircularDependencies)
		}
		observability.Resolve().OnResolveComplete(ctx, stats, time.Since(start), err)
	}()

	infos, err := r.Discoverer.Discover(ctx)
	if err != nil {
		return nil, err
	}
	stats.Packages = len(infos)
	r.Logger.Debug("discovered packages", "count", len(infos))

	key, cached := r.lookup(ctx, infos, cs)
	if cached != nil {
		stats.CacheHit = true
		return cached, nil
	}

	res, err = r.resolve(infos, cs)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, res)
	return res, nil
}

func (r *Resolver) resolve(infos []deps.PackageInfo, cs changeset.Changeset) (*VersionResolution, error) {
	var (
		g    *dag.Graph
		pkgs Packages
		err  error
	)
	if r.Config.PropagateUpdates || r.Config.DetectCircular {
		g, err = dag.NewBuilder(r.Config, r.Logger).Build(infos)
		if err != nil {
			return nil, err
		}
		pkgs = FromGraph(g)
	} else {
		r.Logger.Debug("skipping graph construction")
		if pkgs, err = NewPackages(infos); err != nil {
			return nil, err
		}
	}

	var cycles []dag.CircularDependency
	if r.Config.DetectCircular {
		cycles = g.DetectCycles()
		for _, c := range cycles {
			r.Logger.Warn("circular dependency", "cycle", c.DisplayCycle())
		}
		if r.Config.FailOnCircular && len(cycles) > 0 {
			ce := &errors.CycleError{}
			for _, c := range cycles {
				ce.Cycles = append(ce.Cycles, c.DisplayCycle())
			}
			return nil, errors.Wrap(errors.ErrCodeCircularDependency, ce, "resolution aborted")
		}
	}

	res, err := NewEngine(r.Strategy, r.Logger).Resolve(cs, pkgs)
	if err != nil {
		return nil, err
	}
	res.CircularDependencies = cycles

	if r.Config.PropagateUpdates {
		p, err := NewPropagator(r.Config, r.Logger)
		if err != nil {
			return nil, err
		}
		p.Propagate(g, pkgs, res)
	}
	return res, nil
}

// cacheInputs is everything a resolution depends on.
type cacheInputs struct {
	Packages  []deps.PackageInfo      `json:"packages"`
	Changeset changeset.Changeset     `json:"changeset"`
	Strategy  config.Strategy         `json:"strategy"`
	Config    config.DependencyConfig `json:"config"`
}

// lookup returns the cache key and, on a hit, the stored resolution.
// Cache failures are logged and treated as misses.
func (r *Resolver) lookup(ctx context.Context, infos []deps.PackageInfo, cs changeset.Changeset) (string, *VersionResolution) {
	if r.Cache == nil {
		return "", nil
	}
	key, err := cache.ResolutionKey(cacheInputs{Packages: infos, Changeset: cs, Strategy: r.Strategy, Config: r.Config})
	if err != nil {
		r.Logger.Warn("cache key", "error", err)
		return "", nil
	}
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "error", err)
		return key, nil
	}
	if !hit {
		observability.Cache().OnCacheMiss(ctx, cache.ResolutionPrefix)
		return key, nil
	}
	var res VersionResolution
	if err := json.Unmarshal(data, &res); err != nil {
		r.Logger.Warn("discarding corrupt cache entry", "error", err)
		_ = r.Cache.Delete(ctx, key)
		return key, nil
	}
	observability.Cache().OnCacheHit(ctx, cache.ResolutionPrefix)
	r.Logger.Debug("resolution cache hit", "key", key)
	return key, &res
}

func (r *Resolver) store(ctx context.Context, key string, res *VersionResolution) {
	if r.Cache == nil || key == "" {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		r.Logger.Warn("encode resolution for cache", "error", err)
		return
	}
	if err := r.Cache.Set(ctx, key, data, r.CacheTTL); err != nil {
		r.Logger.Warn("cache write failed", "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, cache.ResolutionPrefix, len(data))
}
