package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestRegistry(t *testing.T) {
	t.Cleanup(Reset)
	Reset()

	if _, ok := Scheduler().(NoopSchedulerHooks); !ok {
		t.Errorf("Scheduler() = %T, want NoopSchedulerHooks", Scheduler())
	}

	custom := &countingHooks{}
	SetSchedulerHooks(custom)
	SetSchedulerHooks(nil)
	if Scheduler() != custom {
		t.Errorf("Scheduler() = %T after SetSchedulerHooks(nil), want the custom hooks", Scheduler())
	}

	Reset()
	if _, ok := Scheduler().(NoopSchedulerHooks); !ok {
		t.Errorf("Scheduler() = %T after Reset, want NoopSchedulerHooks", Scheduler())
	}
}

func TestRegister(t *testing.T) {
	t.Cleanup(Reset)
	Reset()

	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	h := NewLogHooks(logger)
	Register(h)

	if Scheduler() != SchedulerHooks(h) || Cache() != CacheHooks(h) || HTTP() != HTTPHooks(h) {
		t.Fatal("Register() did not install LogHooks for every interface")
	}

	// Only scheduler hooks: the cache registry keeps the log hooks.
	only := &countingHooks{}
	Register(only)
	if Scheduler() != SchedulerHooks(only) {
		t.Errorf("Scheduler() = %T, want countingHooks", Scheduler())
	}
	if Cache() != CacheHooks(h) {
		t.Errorf("Cache() = %T, want LogHooks", Cache())
	}
}

func TestLogHooks(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	h := NewLogHooks(log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel}))

	h.OnRunStart(ctx, "hal", 11)
	h.OnIteration(ctx, 2, 5, 6, "probing")
	h.OnRunComplete(ctx, "hal", 6, 3, time.Millisecond, nil)
	h.OnRunComplete(ctx, "loop", 0, 0, time.Millisecond, errors.New("cycle"))
	h.OnVerify(ctx, "hal", 0)
	h.OnCacheHit(ctx, "schedule")
	h.OnCacheMiss(ctx, "artifact")
	h.OnCacheSet(ctx, "schedule", 1024)
	h.OnRequest(ctx, "POST", "/v1/schedule")
	h.OnResponse(ctx, "POST", "/v1/schedule", 200, time.Second)

	out := buf.String()
	for _, want := range []string{"run start", "target=5", "run done", "run failed", "cache miss", "bytes=1024", "status=200"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestLogHooks_InfoLevelIsQuiet(t *testing.T) {
	var buf bytes.Buffer
	h := NewLogHooks(log.NewWithOptions(&buf, log.Options{Level: log.InfoLevel}))
	h.OnCacheHit(context.Background(), "schedule")
	if buf.Len() != 0 {
		t.Errorf("output at info level = %q, want empty", buf.String())
	}
}

type countingHooks struct {
	NoopSchedulerHooks
	runs int
}

func (c *countingHooks) OnRunStart(context.Context, string, int) { c.runs++ }
