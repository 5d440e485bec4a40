// Package pipeline runs the load → schedule → verify → render flow shared
// by the CLI, the HTTP server and the benchmark runner.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	res, err := runner.Execute(ctx, problem, pipeline.Options{
//	    Priority: "force",
//	    Verify:   true,
//	    Formats:  []string{"svg"},
//	})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Schedule.Latency)
//	svg := res.Artifacts["svg"]
//
// Scheduling results are cached by a hash of the problem's operations and
// dependencies plus every option that changes the outcome, so a repeated
// run only re-verifies and re-renders.
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/hlsched/pkg/cache"
	"github.com/matzehuels/hlsched/pkg/dag"
	"github.com/matzehuels/hlsched/pkg/errors"
	pkgio "github.com/matzehuels/hlsched/pkg/io"
	"github.com/matzehuels/hlsched/pkg/report"
	"github.com/matzehuels/hlsched/pkg/resource"
	"github.com/matzehuels/hlsched/pkg/sched"
	"github.com/matzehuels/hlsched/pkg/verify"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultMaxIterations is the controller's iteration budget.
	DefaultMaxIterations = sched.DefaultMaxIterations

	// DefaultCycleBudgetFactor bounds each list-scheduling pass.
	DefaultCycleBudgetFactor = sched.DefaultCycleBudgetFactor

	// DefaultPNGScale is the resolution multiplier of PNG artifacts.
	DefaultPNGScale = 2.0
)

// Artifact formats.
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
	FormatPNG = "png"
	FormatPDF = "pdf"
)

// ValidFormats is the set of supported artifact formats.
var ValidFormats = map[string]bool{
	FormatDOT: true,
	FormatSVG: true,
	FormatPNG: true,
	FormatPDF: true,
}

// =============================================================================
// Options
// =============================================================================

// Options configures a pipeline run. It is also the JSON body of the
// server's schedule endpoint, next to the problem.
type Options struct {
	// Scheduler options
	Priority          string `json:"priority,omitempty"`
	MaxIterations     int    `json:"max_iterations,omitempty"`
	CycleBudgetFactor int    `json:"cycle_budget_factor,omitempty"`

	// Resources replaces the problem's inventory when non-empty.
	Resources resource.Inventory `json:"resources,omitempty"`

	// Reduce removes transitively implied dependencies before scheduling.
	Reduce bool `json:"reduce,omitempty"`

	// Verify re-checks the final schedule and fails the run on violations.
	Verify bool `json:"verify,omitempty"`
	// Refresh skips the cache lookup; the fresh result is still stored.
	Refresh bool `json:"refresh,omitempty"`

	// Render options
	Formats  []string `json:"formats,omitempty"`
	Detailed bool     `json:"detailed,omitempty"`

	Logger *log.Logger `json:"-"`

	validated bool
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidOption, "invalid format: %q (must be one of: dot, svg, png, pdf)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAndSetDefaults checks the options and fills in defaults. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	mode, err := sched.ParsePriorityMode(o.Priority)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOption, err, "priority")
	}
	o.Priority = string(mode)
	if o.MaxIterations < 0 {
		return errors.New(errors.ErrCodeInvalidOption, "max_iterations must not be negative, got %d", o.MaxIterations)
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.CycleBudgetFactor < 0 {
		return errors.New(errors.ErrCodeInvalidOption, "cycle_budget_factor must not be negative, got %d", o.CycleBudgetFactor)
	}
	if o.CycleBudgetFactor == 0 {
		o.CycleBudgetFactor = DefaultCycleBudgetFactor
	}
	if len(o.Resources) > 0 {
		o.Resources = o.Resources.Canonical()
		if err := o.Resources.Validate(); err != nil {
			return err
		}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// SchedOptions converts to the scheduler's options.
func (o *Options) SchedOptions() sched.Options {
	return sched.Options{
		Priority:          sched.PriorityMode(o.Priority),
		MaxIterations:     o.MaxIterations,
		CycleBudgetFactor: o.CycleBudgetFactor,
		Logger:            o.Logger,
	}
}

// ScheduleKeyOpts returns cache key options for a schedule under inv.
func (o *Options) ScheduleKeyOpts(inv resource.Inventory) cache.ScheduleKeyOpts {
	return cache.ScheduleKeyOpts{
		Priority:          o.Priority,
		MaxIterations:     o.MaxIterations,
		CycleBudgetFactor: o.CycleBudgetFactor,
		Resources:         inv.String(),
		Reduce:            o.Reduce,
	}
}

// ArtifactKeyOpts returns cache key options for one artifact format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{Format: format, Detailed: o.Detailed}
}

// =============================================================================
// Result
// =============================================================================

// Result contains the outputs of a pipeline run.
type Result struct {
	Problem *pkgio.Problem
	Graph   *dag.DAG

	// Inventory is the inventory the problem was scheduled under.
	Inventory resource.Inventory

	// ProblemHash identifies the problem's operations and dependencies.
	ProblemHash string

	// Schedule is the scheduler's result. On a cache hit its Schedule and
	// Analysis fields are nil.
	Schedule *sched.Result

	Binding *report.Binding

	// Verify is set when Options.Verify was requested.
	Verify *verify.Report

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Warnings collects graph-building and scheduler diagnostics.
	Warnings []string

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Operations   int
	Edges        int
	ScheduleTime time.Duration
	VerifyTime   time.Duration
	RenderTime   time.Duration
}

// CacheInfo tracks cache hits for each stage.
type CacheInfo struct {
	ScheduleHit bool
	RenderHit   bool // whether all artifacts came from cache
}
