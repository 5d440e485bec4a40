package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/hlsched/pkg/errors"
	"github.com/matzehuels/hlsched/pkg/store"
)

type envelope struct {
	Status    string          `json:"status"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
	Error     *APIError       `json:"error"`
}

const demoProblem = `{
  "name": "demo",
  "operations": [
    {"id": "a", "latency": 1, "type": "ALU"},
    {"id": "b", "latency": 1, "type": "ALU"},
    {"id": "m", "latency": 2, "type": "MUL"},
    {"id": "c", "latency": 1, "type": "ALU"}
  ],
  "dependencies": [{"from": "a", "to": "m"}, {"from": "m", "to": "c"}, {"from": "b", "to": "c"}],
  "resources": {"ALU": 1, "MUL": 1}
}`

func testServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	return New(nil, log.New(io.Discard), opts...)
}

func do(t *testing.T, srv *Server, method, path, body string, wantStatus int) envelope {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != wantStatus {
		t.Fatalf("%s %s: status = %d, want %d, body = %s", method, path, w.Code, wantStatus, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Errorf("%s %s: missing X-Request-ID", method, path)
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: invalid JSON: %v", method, path, err)
	}
	return env
}

func TestHealthAndVersion(t *testing.T) {
	srv := testServer(t)
	env := do(t, srv, "GET", "/healthz", "", http.StatusOK)
	if env.Status != "ok" || env.RequestID == "" {
		t.Errorf("healthz envelope = %+v", env)
	}

	env = do(t, srv, "GET", "/version", "", http.StatusOK)
	var info struct {
		Version string `json:"version"`
	}
	json.Unmarshal(env.Data, &info)
	if info.Version == "" {
		t.Error("version is empty")
	}
}

func TestSchedule(t *testing.T) {
	srv := testServer(t)
	body := `{"problem": ` + demoProblem + `, "options": {"verify": true, "formats": ["dot"]}}`
	env := do(t, srv, "POST", "/v1/schedule", body, http.StatusOK)

	var data scheduleResponse
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.Latency != 4 || data.CriticalPath != 4 {
		t.Errorf("latency, critical path = %d, %d, want 4, 4", data.Latency, data.CriticalPath)
	}
	if data.Verify == nil || len(data.Verify.Violations) != 0 {
		t.Errorf("verify = %+v, want no violations", data.Verify)
	}
	if !strings.HasPrefix(data.Artifacts["dot"], `digraph "demo"`) {
		t.Errorf("dot artifact = %.40q", data.Artifacts["dot"])
	}
	if data.Starts["c"] != 4 {
		t.Errorf("start of c = %d, want 4", data.Starts["c"])
	}
}

func TestSchedule_Source(t *testing.T) {
	srv := testServer(t)
	src := `operation "x" {
  opcode = "MUL"
}
operation "y" {
  type    = "ALU"
  latency = 1
  after   = ["x"]
}
`
	body, _ := json.Marshal(map[string]any{"source": src, "format": "hcl"})
	env := do(t, srv, "POST", "/v1/schedule", string(body), http.StatusOK)

	var data scheduleResponse
	json.Unmarshal(env.Data, &data)
	// MUL takes 2 cycles in the default library.
	if data.Latency != 3 {
		t.Errorf("latency = %d, want 3", data.Latency)
	}
}

func TestSchedule_Errors(t *testing.T) {
	srv := testServer(t)
	tests := []struct {
		name   string
		body   string
		status int
		code   errors.Code
	}{
		{"malformed", `{"problem": `, http.StatusBadRequest, errors.ErrCodeInvalidFormat},
		{"unknown field", `{"problm": {}}`, http.StatusBadRequest, errors.ErrCodeInvalidFormat},
		{"empty", `{}`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"bad format", `{"source": "x", "format": "xml"}`, http.StatusBadRequest, errors.ErrCodeInvalidOption},
		{"cycle", `{"problem": {"operations": [{"id": "a", "latency": 1, "type": "ALU"}, {"id": "b", "latency": 1, "type": "ALU"}],
			"dependencies": [{"from": "a", "to": "b"}, {"from": "b", "to": "a"}], "resources": {"ALU": 1}}}`,
			http.StatusUnprocessableEntity, errors.ErrCodeCycleDetected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := do(t, srv, "POST", "/v1/schedule", tt.body, tt.status)
			if env.Status != "error" || env.Error == nil || env.Error.Code != tt.code {
				t.Errorf("error = %+v, want code %s", env.Error, tt.code)
			}
		})
	}
}

func TestVerify(t *testing.T) {
	srv := testServer(t)
	tests := []struct {
		name   string
		starts string
		ok     bool
	}{
		{"feasible", `{"a": 1, "b": 2, "m": 2, "c": 4}`, true},
		{"shared ALU", `{"a": 1, "b": 1, "m": 2, "c": 4}`, false},
		{"early consumer", `{"a": 1, "b": 2, "m": 2, "c": 3}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"problem": ` + demoProblem + `, "starts": ` + tt.starts + `}`
			env := do(t, srv, "POST", "/v1/verify", body, http.StatusOK)
			var data struct {
				OK bool `json:"ok"`
			}
			json.Unmarshal(env.Data, &data)
			if data.OK != tt.ok {
				t.Errorf("ok = %v, want %v: %s", data.OK, tt.ok, env.Data)
			}
		})
	}
}

func TestSchedule_LowerCaseResources(t *testing.T) {
	srv := testServer(t)
	body := `{"problem": ` + demoProblem + `, "options": {"resources": {"alu": 2, "Mul": 1}}}`
	env := do(t, srv, "POST", "/v1/schedule", body, http.StatusOK)

	var data scheduleResponse
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	// a and b share cycle 1 on two ALUs; m and c still chain to 4.
	if data.Latency != 4 || data.Starts["a"] != 1 || data.Starts["b"] != 1 {
		t.Errorf("latency = %d, starts = %v, want 4 with a and b at 1", data.Latency, data.Starts)
	}
}

func TestVerify_Resources(t *testing.T) {
	srv := testServer(t)
	shared := `{"a": 1, "b": 1, "m": 2, "c": 4}`

	body := `{"problem": ` + demoProblem + `, "resources": {"alu": 2, "mul": 1}, "starts": ` + shared + `}`
	env := do(t, srv, "POST", "/v1/verify", body, http.StatusOK)
	var data struct {
		OK bool `json:"ok"`
	}
	json.Unmarshal(env.Data, &data)
	if !data.OK {
		t.Errorf("ok = false with two ALUs: %s", env.Data)
	}

	body = `{"problem": ` + demoProblem + `, "resources": {"alu": 0, "mul": 1}, "starts": ` + shared + `}`
	env = do(t, srv, "POST", "/v1/verify", body, http.StatusBadRequest)
	if env.Error.Code != errors.ErrCodeInvalidResource {
		t.Errorf("error code = %s, want %s", env.Error.Code, errors.ErrCodeInvalidResource)
	}
}

func TestRuns(t *testing.T) {
	if env := do(t, testServer(t), "GET", "/v1/runs", "", http.StatusNotImplemented); env.Error.Code != errors.ErrCodeUnsupported {
		t.Errorf("runs without store: %+v", env.Error)
	}

	st, err := store.NewSQLiteStore(context.Background(), ":memory:", log.New(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	srv := testServer(t, WithStore(st))

	env := do(t, srv, "POST", "/v1/schedule", `{"problem": `+demoProblem+`}`, http.StatusOK)
	var sched scheduleResponse
	json.Unmarshal(env.Data, &sched)
	if sched.RunID == "" {
		t.Fatal("schedule with a store returned no run_id")
	}

	env = do(t, srv, "GET", "/v1/runs?dfg=demo&limit=5", "", http.StatusOK)
	var runs []store.Run
	if err := json.Unmarshal(env.Data, &runs); err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != sched.RunID || runs[0].ActualLatency != 4 {
		t.Errorf("runs = %+v", runs)
	}

	do(t, srv, "GET", "/v1/runs?limit=many", "", http.StatusBadRequest)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code errors.Code
		want int
	}{
		{errors.ErrCodeInvalidInput, http.StatusBadRequest},
		{errors.ErrCodeSchedulerStalled, http.StatusUnprocessableEntity},
		{errors.ErrCodeTimeout, http.StatusGatewayTimeout},
		{errors.ErrCodeStorage, http.StatusServiceUnavailable},
		{"", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.code); got != tt.want {
			t.Errorf("statusFor(%q) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestRespondErr_PlainError(t *testing.T) {
	w := httptest.NewRecorder()
	respondErr(w, "req", io.ErrUnexpectedEOF)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte(`"INTERNAL_ERROR"`)) {
		t.Errorf("body = %s", w.Body.String())
	}
}
