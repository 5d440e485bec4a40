package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/matzehuels/hlsched/pkg/buildinfo"
	"github.com/matzehuels/hlsched/pkg/dag"
	"github.com/matzehuels/hlsched/pkg/errors"
	pkgio "github.com/matzehuels/hlsched/pkg/io"
	"github.com/matzehuels/hlsched/pkg/observability"
	"github.com/matzehuels/hlsched/pkg/pipeline"
	"github.com/matzehuels/hlsched/pkg/resource"
	"github.com/matzehuels/hlsched/pkg/sched"
	"github.com/matzehuels/hlsched/pkg/store"
	"github.com/matzehuels/hlsched/pkg/verify"
)

type healthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
	Store  string `json:"store"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := "disabled"
	if s.store != nil {
		st = "enabled"
	}
	respondOK(w, RequestIDFromContext(r.Context()), healthResponse{
		Status: "healthy",
		Uptime: time.Since(s.startTime).Round(time.Second).String(),
		Store:  st,
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	respondOK(w, RequestIDFromContext(r.Context()), buildinfo.Get())
}

// scheduleRequest carries either a JSON problem or the source text of a
// problem in another format.
type scheduleRequest struct {
	Problem *pkgio.Problem   `json:"problem,omitempty"`
	Source  string           `json:"source,omitempty"`
	Format  string           `json:"format,omitempty"`
	Options pipeline.Options `json:"options"`
}

type scheduleResponse struct {
	Name          string                   `json:"name"`
	ProblemHash   string                   `json:"problem_hash"`
	Latency       int                      `json:"latency"`
	CriticalPath  int                      `json:"critical_path"`
	InitialTarget int                      `json:"initial_target"`
	State         sched.State              `json:"state"`
	Iterations    []sched.Iteration        `json:"iterations"`
	Starts        map[string]int           `json:"starts"`
	Units         map[string]int           `json:"units"`
	Used          map[dag.ResourceType]int `json:"used"`
	Verify        *verify.Report           `json:"verify,omitempty"`
	Warnings      []string                 `json:"warnings,omitempty"`
	Cached        bool                     `json:"cached"`
	RunID         string                   `json:"run_id,omitempty"`
	Artifacts     map[string]string        `json:"artifacts,omitempty"`
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req scheduleRequest
	if err := s.decode(w, r, &req); err != nil {
		respondErr(w, reqID, err)
		return
	}
	var warnings []string
	warn := func(format string, args ...any) { warnings = append(warnings, fmt.Sprintf(format, args...)) }

	p, err := s.loadProblem(req.Problem, req.Source, req.Format, warn)
	if err != nil {
		respondErr(w, reqID, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	res, err := s.runner.Execute(ctx, p, req.Options)
	if err != nil && res == nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			err = errors.Wrap(errors.ErrCodeTimeout, err, "scheduling exceeded %s", s.timeout)
		}
		respondErr(w, reqID, err)
		return
	}
	if err != nil {
		// Verification failed; the schedule itself is still reported.
		s.logger.Warn("infeasible schedule", "problem", p.Name, "err", err, "request_id", reqID)
	}

	out := scheduleResponse{
		Name:          p.Name,
		ProblemHash:   res.ProblemHash,
		Latency:       res.Schedule.Latency,
		CriticalPath:  res.Schedule.CriticalPath,
		InitialTarget: res.Schedule.InitialTarget,
		State:         res.Schedule.State,
		Iterations:    res.Schedule.Iterations,
		Starts:        res.Schedule.Starts,
		Units:         res.Binding.Unit,
		Used:          res.Binding.Used,
		Verify:        res.Verify,
		Warnings:      append(warnings, res.Warnings...),
		Cached:        res.CacheInfo.ScheduleHit,
		Artifacts:     encodeArtifacts(res.Artifacts),
	}
	if s.store != nil {
		out.RunID = s.saveRun(r.Context(), p, req.Options.Priority, res)
	}
	respondOK(w, reqID, out)
}

func (s *Server) saveRun(ctx context.Context, p *pkgio.Problem, priority string, res *pipeline.Result) string {
	mode, _ := sched.ParsePriorityMode(priority)
	run := &store.Run{
		DFG:           p.Name,
		Variant:       string(mode),
		ScaleFactor:   1,
		ActualLatency: res.Schedule.Latency,
		Status:        store.StatusNoData,
		RuntimeMS:     float64(res.Stats.ScheduleTime.Microseconds()) / 1000,
	}
	if run.DFG == "" {
		run.DFG = res.ProblemHash[:12]
	}
	for _, n := range res.Binding.Used {
		run.FUsUsed += n
	}
	if err := s.store.SaveRun(ctx, run); err != nil {
		s.logger.Warn("store run failed", "err", err)
		return ""
	}
	return run.ID
}

func encodeArtifacts(artifacts map[string][]byte) map[string]string {
	if len(artifacts) == 0 {
		return nil
	}
	out := make(map[string]string, len(artifacts))
	for format, data := range artifacts {
		switch format {
		case pipeline.FormatDOT, pipeline.FormatSVG:
			out[format] = string(data)
		default:
			out[format] = base64.StdEncoding.EncodeToString(data)
		}
	}
	return out
}

type verifyRequest struct {
	Problem   *pkgio.Problem     `json:"problem,omitempty"`
	Source    string             `json:"source,omitempty"`
	Format    string             `json:"format,omitempty"`
	Resources resource.Inventory `json:"resources,omitempty"`
	Starts    map[string]int     `json:"starts"`
	// Latency is the claimed schedule length; omit to skip the comparison.
	Latency *int `json:"latency,omitempty"`
}

type verifyResponse struct {
	OK bool `json:"ok"`
	*verify.Report
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req verifyRequest
	if err := s.decode(w, r, &req); err != nil {
		respondErr(w, reqID, err)
		return
	}
	p, err := s.loadProblem(req.Problem, req.Source, req.Format, nil)
	if err != nil {
		respondErr(w, reqID, err)
		return
	}
	g, err := p.Graph(nil)
	if err != nil {
		respondErr(w, reqID, err)
		return
	}
	inv := p.Resources
	if len(req.Resources) > 0 {
		inv = req.Resources.Canonical()
		if err := inv.Validate(); err != nil {
			respondErr(w, reqID, err)
			return
		}
	}
	reported := -1
	if req.Latency != nil {
		reported = *req.Latency
	}

	rep := verify.Check(g, inv, req.Starts, reported)
	observability.Scheduler().OnVerify(r.Context(), p.Name, len(rep.Violations))
	respondOK(w, reqID, verifyResponse{OK: rep.OK(), Report: rep})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	if s.store == nil {
		respondErr(w, reqID, errors.New(errors.ErrCodeUnsupported, "no run store configured"))
		return
	}

	q := r.URL.Query()
	f := store.Filter{
		DFG:     q.Get("dfg"),
		Variant: q.Get("variant"),
		Status:  store.Status(strings.ToUpper(q.Get("status"))),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondErr(w, reqID, errors.New(errors.ErrCodeInvalidInput, "limit must be an integer, got %q", v))
			return
		}
		f.Limit = n
	}

	runs, err := s.store.ListRuns(r.Context(), f)
	if err != nil {
		respondErr(w, reqID, err)
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	respondOK(w, reqID, runs)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode request body")
	}
	return nil
}

// loadProblem resolves an inline problem or parses source text.
func (s *Server) loadProblem(p *pkgio.Problem, source, format string, warn dag.WarnFunc) (*pkgio.Problem, error) {
	if source != "" {
		f, err := pkgio.ParseFormat(format)
		if err != nil {
			return nil, err
		}
		return pkgio.Read(strings.NewReader(source), pkgio.LoadOptions{Format: f, Library: s.library, Warn: warn})
	}
	if p == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "request needs a problem or a source")
	}
	if err := p.Resolve(s.library, warn); err != nil {
		return nil, err
	}
	return p, nil
}
