package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/hlsched/pkg/cache"
	"github.com/matzehuels/hlsched/pkg/dag"
	"github.com/matzehuels/hlsched/pkg/dag/transform"
	pkgio "github.com/matzehuels/hlsched/pkg/io"
	"github.com/matzehuels/hlsched/pkg/observability"
	"github.com/matzehuels/hlsched/pkg/report"
	"github.com/matzehuels/hlsched/pkg/resource"
	"github.com/matzehuels/hlsched/pkg/sched"
	"github.com/matzehuels/hlsched/pkg/verify"
)

// Runner executes the pipeline with caching. It holds no per-run state, so
// one Runner can serve concurrent requests.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil keyer selects the default keyer, a nil
// cache disables caching.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute schedules p and optionally verifies and renders the result.
// When verification finds violations, the result is returned together with
// the INFEASIBLE_SCHEDULE error.
func (r *Runner) Execute(ctx context.Context, p *pkgio.Problem, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{Problem: p, Artifacts: make(map[string][]byte)}
	warn := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		if !slices.Contains(result.Warnings, msg) {
			result.Warnings = append(result.Warnings, msg)
			r.Logger.Warn(msg)
		}
	}

	g, err := p.Graph(warn)
	if err != nil {
		return nil, err
	}
	if opts.Reduce && transform.FindCycle(g) == nil {
		if n := transform.TransitiveReduction(g); n > 0 {
			r.Logger.Debug("reduced dependencies", "problem", p.Name, "removed", n)
		}
	}
	result.Graph = g
	result.Inventory = p.Resources
	if len(opts.Resources) > 0 {
		result.Inventory = opts.Resources.Clone()
	}
	result.ProblemHash = ProblemHash(p)
	result.Stats.Operations = g.Operations()
	result.Stats.Edges = g.EdgeCount()

	// Stage 1: Schedule
	start := time.Now()
	res, hit, err := r.ScheduleWithCacheInfo(ctx, p.Name, g, result.ProblemHash, result.Inventory, opts)
	if err != nil {
		return nil, fmt.Errorf("schedule: %w", err)
	}
	result.Schedule = res
	result.Stats.ScheduleTime = time.Since(start)
	result.CacheInfo.ScheduleHit = hit
	// The scheduler already logged its own warnings.
	for _, w := range res.Warnings {
		if !slices.Contains(result.Warnings, w) {
			result.Warnings = append(result.Warnings, w)
		}
	}
	result.Binding = report.Bind(g, res.Starts)

	r.Logger.Info("scheduled",
		"problem", p.Name,
		"latency", res.Latency,
		"critical_path", res.CriticalPath,
		"iterations", len(res.Iterations),
		"cached", hit,
		"duration", result.Stats.ScheduleTime)

	// Stage 2: Verify
	var verifyErr error
	if opts.Verify {
		start = time.Now()
		result.Verify = verify.Check(g, result.Inventory, res.Starts, res.Latency)
		result.Stats.VerifyTime = time.Since(start)
		observability.Scheduler().OnVerify(ctx, p.Name, len(result.Verify.Violations))
		verifyErr = result.Verify.Err()
		if verifyErr != nil {
			r.Logger.Error("schedule failed verification", "violations", len(result.Verify.Violations))
		}
	}

	// Stage 3: Render
	if len(opts.Formats) > 0 {
		start = time.Now()
		artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, g, res.Starts, result.Binding, opts)
		if err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}
		result.Artifacts = artifacts
		result.Stats.RenderTime = time.Since(start)
		result.CacheInfo.RenderHit = renderHit
		r.Logger.Info("rendered outputs", "formats", opts.Formats, "duration", result.Stats.RenderTime)
	}

	return result, verifyErr
}

// cachedSchedule is the cached form of a [sched.Result].
type cachedSchedule struct {
	Latency       int               `json:"latency"`
	CriticalPath  int               `json:"critical_path"`
	InitialTarget int               `json:"initial_target"`
	State         sched.State       `json:"state"`
	Iterations    []sched.Iteration `json:"iterations"`
	Starts        map[string]int    `json:"starts"`
	Warnings      []string          `json:"warnings,omitempty"`
}

// ScheduleWithCacheInfo runs the scheduler on g, consulting the cache first
// unless opts.Refresh is set, and reports whether the result was cached.
func (r *Runner) ScheduleWithCacheInfo(ctx context.Context, name string, g *dag.DAG, problemHash string, inv resource.Inventory, opts Options) (*sched.Result, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	key := r.Keyer.ScheduleKey(problemHash, opts.ScheduleKeyOpts(inv))

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err != nil {
			r.Logger.Warn("cache lookup failed", "err", err)
		} else if hit {
			var c cachedSchedule
			if err := json.Unmarshal(data, &c); err == nil {
				observability.Cache().OnCacheHit(ctx, "schedule")
				return &sched.Result{
					Latency:       c.Latency,
					CriticalPath:  c.CriticalPath,
					InitialTarget: c.InitialTarget,
					State:         c.State,
					Iterations:    c.Iterations,
					Starts:        c.Starts,
					Warnings:      c.Warnings,
				}, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "schedule")
	}

	observability.Scheduler().OnRunStart(ctx, name, g.Operations())
	start := time.Now()
	res, err := sched.Run(ctx, g, inv, opts.SchedOptions())
	iterations, latency := 0, 0
	if res != nil {
		iterations, latency = len(res.Iterations), res.Latency
	}
	observability.Scheduler().OnRunComplete(ctx, name, latency, iterations, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	data, err := json.Marshal(cachedSchedule{
		Latency:       res.Latency,
		CriticalPath:  res.CriticalPath,
		InitialTarget: res.InitialTarget,
		State:         res.State,
		Iterations:    res.Iterations,
		Starts:        res.Starts,
		Warnings:      res.Warnings,
	})
	if err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLSchedule); err != nil {
			r.Logger.Warn("cache store failed", "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "schedule", len(data))
		}
	}
	return res, false, nil
}

// Schedule is ScheduleWithCacheInfo without the cache hit info.
func (r *Runner) Schedule(ctx context.Context, name string, g *dag.DAG, problemHash string, inv resource.Inventory, opts Options) (*sched.Result, error) {
	res, _, err := r.ScheduleWithCacheInfo(ctx, name, g, problemHash, inv, opts)
	return res, err
}

// RenderWithCacheInfo renders every format in opts.Formats, reusing cached
// artifacts when all of them are present.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, g *dag.DAG, starts map[string]int, b *report.Binding, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	dot := report.ToDOT(g, starts, b, report.DOTOptions{Detailed: opts.Detailed})
	hash := cache.Hash([]byte(dot))

	artifacts := make(map[string][]byte)
	for _, format := range opts.Formats {
		data, hit, err := r.Cache.Get(ctx, r.Keyer.ArtifactKey(hash, opts.ArtifactKeyOpts(format)))
		if err != nil || !hit {
			break
		}
		artifacts[format] = data
	}
	if len(artifacts) == len(opts.Formats) {
		observability.Cache().OnCacheHit(ctx, "artifact")
		return artifacts, true, nil
	}
	observability.Cache().OnCacheMiss(ctx, "artifact")

	rendered, err := RenderDOT(ctx, dot, opts.Formats)
	if err != nil {
		return nil, false, err
	}
	for format, data := range rendered {
		if err := r.Cache.Set(ctx, r.Keyer.ArtifactKey(hash, opts.ArtifactKeyOpts(format)), data, cache.TTLArtifact); err == nil {
			observability.Cache().OnCacheSet(ctx, "artifact", len(data))
		}
	}
	return rendered, false, nil
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// ProblemHash hashes the operations and dependencies of p. The inventory
// and name are excluded; the inventory is part of the schedule key.
func ProblemHash(p *pkgio.Problem) string {
	data, _ := json.Marshal(struct {
		Operations   []pkgio.Operation  `json:"operations"`
		Dependencies []pkgio.Dependency `json:"dependencies"`
	}{p.Operations, p.Dependencies})
	return cache.Hash(data)
}
