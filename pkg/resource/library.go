package resource

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/hlsched/pkg/dag"
	"github.com/matzehuels/hlsched/pkg/errors"
)

// Resource is one functional unit class of a library.
type Resource struct {
	Name    string   `toml:"name" json:"name"`
	Units   int      `toml:"units" json:"units"`
	Delay   int      `toml:"delay" json:"delay"`
	Leakage float64  `toml:"leakage" json:"leakage"`
	Dynamic float64  `toml:"dynamic" json:"dynamic"`
	Opcodes []string `toml:"opcodes" json:"opcodes,omitempty"`
}

// Type returns the canonical resource type of the class.
func (r Resource) Type() dag.ResourceType { return dag.ParseResourceType(r.Name) }

// Library is an ordered set of resource classes.
//
// The TOML form is:
//
//	[[resource]]
//	name    = "ALU"
//	units   = 2
//	delay   = 1
//	leakage = 1.0
//	dynamic = 2.0
//	opcodes = ["ADD", "SUB", "AND"]
type Library struct {
	Resources []Resource `toml:"resource" json:"resources"`
}

// DefaultLibrary returns the three-class library of the benchmark suite:
// a single-cycle ALU, a two-cycle multiplier and a three-cycle divider,
// one unit each.
func DefaultLibrary() *Library {
	return &Library{Resources: []Resource{
		{Name: "ALU", Units: 1, Delay: 1, Leakage: 1, Dynamic: 1,
			Opcodes: []string{"ADD", "AND", "ASR", "LSR", "LOD", "STR", "SUB"}},
		{Name: "MUL", Units: 1, Delay: 2, Leakage: 3, Dynamic: 4, Opcodes: []string{"MUL"}},
		{Name: "DIV", Units: 1, Delay: 3, Leakage: 4, Dynamic: 6, Opcodes: []string{"DIV"}},
	}}
}

// LoadLibrary reads a TOML library file.
func LoadLibrary(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "library %s", path)
		}
		return nil, err
	}
	return ParseLibrary(data)
}

// ParseLibrary decodes a TOML library and validates it.
func ParseLibrary(data []byte) (*Library, error) {
	var lib Library
	if _, err := toml.Decode(string(data), &lib); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse library")
	}
	if err := lib.Validate(); err != nil {
		return nil, err
	}
	return &lib, nil
}

// ReadLegacyLibrary reads the whitespace-separated library format
//
//	TYPE COUNT DELAY LEAKAGE DYNAMIC
//
// one class per line. Blank lines and lines starting with "//" or "#" are
// skipped. The legacy format has no opcode column, so each class
// implements the opcode of its own name.
func ReadLegacyLibrary(r io.Reader) (*Library, error) {
	var lib Library
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "#") {
			continue
		}
		f := strings.Fields(line)
		if len(f) < 5 {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "library line %d: want 5 fields, got %d", lineNo, len(f))
		}
		res := Resource{Name: strings.ToUpper(f[0]), Opcodes: []string{strings.ToUpper(f[0])}}
		var err error
		if res.Units, err = strconv.Atoi(f[1]); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "library line %d: count", lineNo)
		}
		if res.Delay, err = strconv.Atoi(f[2]); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "library line %d: delay", lineNo)
		}
		if res.Leakage, err = strconv.ParseFloat(f[3], 64); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "library line %d: leakage", lineNo)
		}
		if res.Dynamic, err = strconv.ParseFloat(f[4], 64); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "library line %d: dynamic power", lineNo)
		}
		lib.Resources = append(lib.Resources, res)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := lib.Validate(); err != nil {
		return nil, err
	}
	return &lib, nil
}

// Validate checks names, unit counts, delays and opcode uniqueness.
func (l *Library) Validate() error {
	seen := make(map[dag.ResourceType]bool)
	owner := make(map[string]string)
	for _, r := range l.Resources {
		t := r.Type()
		if err := errors.ValidateResourceType(string(t)); err != nil {
			return err
		}
		if seen[t] {
			return errors.New(errors.ErrCodeInvalidResource, "resource %s declared twice", t)
		}
		seen[t] = true
		if err := errors.ValidateUnits(string(t), r.Units); err != nil {
			return err
		}
		if r.Delay < 0 {
			return errors.New(errors.ErrCodeInvalidResource, "delay of %s must be non-negative, got %d", t, r.Delay)
		}
		for _, op := range r.Opcodes {
			op = strings.ToUpper(op)
			if prev, dup := owner[op]; dup {
				return errors.New(errors.ErrCodeInvalidResource, "opcode %s claimed by both %s and %s", op, prev, t)
			}
			owner[op] = string(t)
		}
	}
	return nil
}

// Inventory returns the unit counts of the library.
func (l *Library) Inventory() Inventory {
	inv := make(Inventory, len(l.Resources))
	for _, r := range l.Resources {
		inv[r.Type()] = r.Units
	}
	return inv
}

// Resource returns the class with type t.
func (l *Library) Resource(t dag.ResourceType) (Resource, bool) {
	for _, r := range l.Resources {
		if r.Type() == t {
			return r, true
		}
	}
	return Resource{}, false
}

// Classify maps an opcode such as "ADD" or "mul" to the class that
// implements it. A class also implements the opcode equal to its own name.
func (l *Library) Classify(opcode string) (Resource, bool) {
	op := strings.ToUpper(strings.TrimSpace(opcode))
	for _, r := range l.Resources {
		for _, o := range r.Opcodes {
			if strings.ToUpper(o) == op {
				return r, true
			}
		}
	}
	return l.Resource(dag.ResourceType(op))
}

// Latencies returns the delay of every class keyed by type.
func (l *Library) Latencies() map[dag.ResourceType]int {
	out := make(map[dag.ResourceType]int, len(l.Resources))
	for _, r := range l.Resources {
		out[r.Type()] = r.Delay
	}
	return out
}

// Power estimates the power of a schedule: leakage per allocated unit plus
// dynamic power per executed operation. Types missing from the library
// contribute nothing.
func (l *Library) Power(usedUnits, opsByType map[dag.ResourceType]int) float64 {
	var total float64
	for _, r := range l.Resources {
		t := r.Type()
		total += r.Leakage*float64(usedUnits[t]) + r.Dynamic*float64(opsByType[t])
	}
	return total
}

// String lists the classes as "ALU(1cc)x2 MUL(2cc)x1".
func (l *Library) String() string {
	parts := make([]string, len(l.Resources))
	for i, r := range l.Resources {
		parts[i] = fmt.Sprintf("%s(%dcc)x%d", r.Type(), r.Delay, r.Units)
	}
	return strings.Join(parts, " ")
}
