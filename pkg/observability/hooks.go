// Package observability lets the process owner observe scheduling runs,
// cache traffic and API requests without the libraries depending on a
// metrics or tracing backend.
//
// Libraries emit events through [Scheduler], [Cache] and [HTTP]. Until a
// hook is registered these return no-op receivers. The CLI registers
// [LogHooks] when run with --verbose:
//
//	observability.Register(observability.NewLogHooks(logger))
package observability

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// SchedulerHooks receives events from scheduling runs.
type SchedulerHooks interface {
	OnRunStart(ctx context.Context, problem string, operations int)
	OnRunComplete(ctx context.Context, problem string, latency, iterations int, duration time.Duration, err error)

	// OnIteration is called once per controller iteration with the state
	// the controller moved to.
	OnIteration(ctx context.Context, iteration, target, achieved int, state string)

	// OnVerify records how many violations a schedule check found.
	OnVerify(ctx context.Context, problem string, violations int)
}

// CacheHooks receives cache traffic. kind is "schedule" or "artifact".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, kind string)
	OnCacheMiss(ctx context.Context, kind string)
	OnCacheSet(ctx context.Context, kind string, size int)
}

// HTTPHooks receives events from the API server.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, path string)
	OnResponse(ctx context.Context, method, path string, statusCode int, duration time.Duration)
}

// NoopSchedulerHooks discards scheduler events.
type NoopSchedulerHooks struct{}

func (NoopSchedulerHooks) OnRunStart(context.Context, string, int) {}
func (NoopSchedulerHooks) OnRunComplete(context.Context, string, int, int, time.Duration, error) {
}
func (NoopSchedulerHooks) OnIteration(context.Context, int, int, int, string) {}
func (NoopSchedulerHooks) OnVerify(context.Context, string, int)              {}

// NoopCacheHooks discards cache events.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks discards HTTP events.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// LogHooks implements all three hook interfaces by writing debug lines to
// a logger.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks returns hooks that log to logger, or to log.Default() when
// logger is nil.
func NewLogHooks(logger *log.Logger) *LogHooks {
	if logger == nil {
		logger = log.Default()
	}
	return &LogHooks{logger: logger.WithPrefix("obs")}
}

func (h *LogHooks) OnRunStart(_ context.Context, problem string, operations int) {
	h.logger.Debug("run start", "problem", problem, "operations", operations)
}

func (h *LogHooks) OnRunComplete(_ context.Context, problem string, latency, iterations int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("run failed", "problem", problem, "duration", d, "err", err)
		return
	}
	h.logger.Debug("run done", "problem", problem, "latency", latency, "iterations", iterations, "duration", d)
}

func (h *LogHooks) OnIteration(_ context.Context, iteration, target, achieved int, state string) {
	h.logger.Debug("iteration", "n", iteration, "target", target, "achieved", achieved, "state", state)
}

func (h *LogHooks) OnVerify(_ context.Context, problem string, violations int) {
	h.logger.Debug("verify", "problem", problem, "violations", violations)
}

func (h *LogHooks) OnCacheHit(_ context.Context, kind string) {
	h.logger.Debug("cache hit", "kind", kind)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, kind string) {
	h.logger.Debug("cache miss", "kind", kind)
}

func (h *LogHooks) OnCacheSet(_ context.Context, kind string, size int) {
	h.logger.Debug("cache set", "kind", kind, "bytes", size)
}

func (h *LogHooks) OnRequest(_ context.Context, method, path string) {
	h.logger.Debug("request", "method", method, "path", path)
}

func (h *LogHooks) OnResponse(_ context.Context, method, path string, status int, d time.Duration) {
	h.logger.Debug("response", "method", method, "path", path, "status", status, "duration", d)
}

var (
	hooksMu        sync.RWMutex
	schedulerHooks SchedulerHooks = NoopSchedulerHooks{}
	cacheHooks     CacheHooks     = NoopCacheHooks{}
	httpHooks      HTTPHooks      = NoopHTTPHooks{}
)

// Register installs h for every hook interface it implements. Call it at
// startup, before any run.
func Register(h any) {
	if s, ok := h.(SchedulerHooks); ok {
		SetSchedulerHooks(s)
	}
	if c, ok := h.(CacheHooks); ok {
		SetCacheHooks(c)
	}
	if x, ok := h.(HTTPHooks); ok {
		SetHTTPHooks(x)
	}
}

// SetSchedulerHooks registers scheduler hooks. Nil is ignored.
func SetSchedulerHooks(h SchedulerHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		schedulerHooks = h
	}
}

// SetCacheHooks registers cache hooks. Nil is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers HTTP hooks. Nil is ignored.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

func Scheduler() SchedulerHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return schedulerHooks
}

func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores the no-op hooks.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	schedulerHooks = NoopSchedulerHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
