package bench

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/hlsched/pkg/errors"
	"github.com/matzehuels/hlsched/pkg/sched"
	"github.com/matzehuels/hlsched/pkg/store"
)

const chainJSON = `{
  "operations": [
    {"id": "a", "latency": 1, "type": "ALU"},
    {"id": "b", "latency": 1, "type": "ALU"},
    {"id": "c", "latency": 1, "type": "ALU"}
  ],
  "resources": {"ALU": 2}
}`

const mulYAML = `operations:
  - {id: m1, latency: 2, type: MUL}
  - {id: m2, latency: 2, type: MUL}
dependencies:
  - {from: m1, to: m2}
resources: {MUL: 1}
`

func writeSuite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"chain.json": chainJSON,
		"mul.yaml":   mulYAML,
		"README.md":  "not a problem",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func quietRunner(st store.Store) *Runner {
	return NewRunner(nil, st, log.New(io.Discard))
}

func TestRun(t *testing.T) {
	rows, err := quietRunner(nil).Run(context.Background(), Suite{
		Dir:      writeSuite(t),
		Scales:   []float64{0.5, 1},
		Variants: []sched.PriorityMode{sched.PriorityForce, sched.PrioritySlack},
		Targets:  Constraints{"chain": 2, "mul": 3},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(rows) != 8 {
		t.Fatalf("Run() returned %d rows, want 8", len(rows))
	}

	tests := []struct {
		idx     int
		dfg     string
		scale   float64
		latency int
		status  store.Status
	}{
		// Three independent ALU ops: two units finish in 2, one in 3.
		{0, "chain", 1, 2, store.StatusPass},
		{1, "chain", 0.5, 3, store.StatusFail},
		{4, "mul", 1, 4, store.StatusFail},
	}
	for _, tt := range tests {
		r := rows[tt.idx]
		if r.DFG != tt.dfg || r.ScaleFactor != tt.scale {
			t.Errorf("rows[%d] = %s@%v, want %s@%v", tt.idx, r.DFG, r.ScaleFactor, tt.dfg, tt.scale)
			continue
		}
		if r.ActualLatency != tt.latency || r.Status != tt.status {
			t.Errorf("rows[%d] = latency %d %s, want %d %s", tt.idx, r.ActualLatency, r.Status, tt.latency, tt.status)
		}
		if r.Delta != r.ActualLatency-r.TargetLatency {
			t.Errorf("rows[%d].Delta = %d", tt.idx, r.Delta)
		}
	}
}

func TestRun_PersistsRows(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLiteStore(ctx, ":memory:", log.New(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	rows, err := quietRunner(st).Run(ctx, Suite{Dir: writeSuite(t)})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	saved, err := st.ListRuns(ctx, store.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != len(rows) {
		t.Errorf("stored %d runs, want %d", len(saved), len(rows))
	}
	for _, r := range saved {
		if r.Status != store.StatusNoData {
			t.Errorf("run %s status = %s, want NO_DATA without targets", r.DFG, r.Status)
		}
	}
}

func TestRun_Errors(t *testing.T) {
	ctx := context.Background()
	if _, err := quietRunner(nil).Run(ctx, Suite{Dir: t.TempDir()}); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Run(empty dir) error = %v, want NOT_FOUND", err)
	}
	if _, err := quietRunner(nil).Run(ctx, Suite{Dir: writeSuite(t), Scales: []float64{0}}); err == nil {
		t.Error("Run() with zero scale should fail")
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		actual, target int
		want           store.Status
	}{
		{5, 0, store.StatusNoData},
		{5, 5, store.StatusPass},
		{4, 5, store.StatusPass},
		{6, 5, store.StatusFail},
	}
	for _, tt := range tests {
		if got := status(tt.actual, tt.target); got != tt.want {
			t.Errorf("status(%d, %d) = %s, want %s", tt.actual, tt.target, got, tt.want)
		}
	}
}

func TestLoadConstraints(t *testing.T) {
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "targets.toml")
	txtPath := filepath.Join(dir, "targets.txt")
	os.WriteFile(tomlPath, []byte("[targets]\nhal = 6\newf = 14\n"), 0o644)
	os.WriteFile(txtPath, []byte("// name latency\nhal 6\n\newf 14 extra\n"), 0o644)

	for _, path := range []string{tomlPath, txtPath} {
		t.Run(filepath.Ext(path), func(t *testing.T) {
			c, err := LoadConstraints(path)
			if err != nil {
				t.Fatalf("LoadConstraints() error = %v", err)
			}
			if c.Target("hal") != 6 || c.Target("ewf") != 14 || c.Target("fir") != 0 {
				t.Errorf("LoadConstraints() = %v", c)
			}
		})
	}
}

func TestLoadConstraints_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"neg.toml":  "[targets]\nhal = 0\n",
		"bad.toml":  "[targets\n",
		"bad.txt":   "hal six\n",
		"short.txt": "hal\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			os.WriteFile(path, []byte(body), 0o644)
			if _, err := LoadConstraints(path); err == nil {
				t.Error("LoadConstraints() should fail")
			}
		})
	}
	if _, err := LoadConstraints(filepath.Join(dir, "missing.toml")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("LoadConstraints(missing) error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestWriteCSV(t *testing.T) {
	rows := []Row{
		{DFG: "hal", Variant: "force", ScaleFactor: 1, TargetLatency: 6, ActualLatency: 7, Delta: 1, Status: store.StatusFail, FUsUsed: 3, RuntimeMS: 0.25},
		{DFG: "fir", Variant: "slack", ScaleFactor: 0.5, ActualLatency: 9, Status: store.StatusNoData},
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	recs, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading back CSV: %v", err)
	}
	if len(recs) != 3 || recs[0][0] != "DFG_Name" {
		t.Fatalf("WriteCSV() wrote %v", recs)
	}
	want := []string{"hal", "force", "1.00", "6", "7", "1", "FAIL", "3", "0.250"}
	for i, w := range want {
		if recs[1][i] != w {
			t.Errorf("row 1 col %s = %q, want %q", recs[0][i], recs[1][i], w)
		}
	}
	if recs[2][3] != "" || recs[2][5] != "" {
		t.Errorf("row without target = %v, want empty target and delta", recs[2])
	}
}
