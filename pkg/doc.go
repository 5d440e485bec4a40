// Package pkg provides the libraries behind hlsched, an iterative
// resource-constrained list scheduler for high-level synthesis.
//
// # Overview
//
// hlsched takes a data-flow graph of operations, each bound to a functional
// unit type, and a unit inventory. It assigns every operation a start cycle
// so that no dependency is violated and no cycle uses more units of a type
// than the inventory allows, searching downward from the critical path for
// the shortest latency the list scheduler can reach.
//
// # Architecture
//
// The typical data flow:
//
//	Problem file (JSON, YAML, HCL, DOT)
//	         ↓
//	    [io] package (load + resolve opcodes against the library)
//	         ↓
//	    [dag] package (graph with SOURCE/SINK anchors)
//	         ↓
//	    [sched] package (analysis, list scheduling, latency search)
//	         ↓
//	    [verify] + [report] packages (feasibility check, binding, output)
//
// [pipeline] runs these stages with caching and is shared by the CLI and the
// HTTP server.
//
// # Main Packages
//
// [dag] - Operation graph with anchor nodes, metadata and topological
// helpers. [dag/transform] adds transitive reduction and cycle diagnostics.
//
// [resource] - Unit inventories and the resource library (opcode to type,
// latency and power figures).
//
// [sched] - ASAP/ALAP analysis, priority functions and the iterative
// latency controller.
//
// [verify] - Independent re-check of a schedule against dependencies and
// unit limits.
//
// [report] - Unit binding, Gantt charts, operation tables, DOT/SVG/PNG/PDF
// rendering and summaries.
//
// [io] - Problem and result file formats.
//
// ## Infrastructure
//
// [cache] - Content-addressed caching of schedules and artifacts (file,
// Redis, null).
//
// [store] - Persistent benchmark runs (SQLite, MongoDB).
//
// [bench] - Parallel benchmark suites with scaled inventories and
// constraint checks.
//
// [server] - HTTP API over the pipeline.
//
// [errors] - Coded errors shared by all packages.
//
// [observability] - Hooks for scheduler and pipeline events.
//
// # Quick Start
//
//	p, _ := io.Load("fir.json", io.LoadOptions{Library: resource.DefaultLibrary()})
//	res, _ := pipeline.NewRunner(nil, nil, nil).Execute(ctx, p, pipeline.Options{Verify: true})
//	fmt.Println(res.Schedule.Latency)
//
// [dag]: https://pkg.go.dev/github.com/matzehuels/hlsched/pkg/dag
// [dag/transform]: https://pkg.go.dev/github.com/matzehuels/hlsched/pkg/dag/transform
// [resource]: https://pkg.go.dev/github.com/matzehuels/hlsched/pkg/resource
// [sched]: https://pkg.go.dev/github.com/matzehuels/hlsched/pkg/sched
// [verify]: https://pkg.go.dev/github.com/matzehuels/hlsched/pkg/verify
// [report]: https://pkg.go.dev/github.com/matzehuels/hlsched/pkg/report
// [io]: https://pkg.go.dev/github.com/matzehuels/hlsched/pkg/io
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/hlsched/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/hlsched/pkg/cache
// [store]: https://pkg.go.dev/github.com/matzehuels/hlsched/pkg/store
// [bench]: https://pkg.go.dev/github.com/matzehuels/hlsched/pkg/bench
// [server]: https://pkg.go.dev/github.com/matzehuels/hlsched/pkg/server
// [errors]: https://pkg.go.dev/github.com/matzehuels/hlsched/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/hlsched/pkg/observability
package pkg
