package bench

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/hlsched/pkg/errors"
)

// Constraints maps DFG names to target latencies.
type Constraints map[string]int

type constraintsFile struct {
	Targets map[string]int `toml:"targets"`
}

// LoadConstraints reads target latencies from a TOML file
//
//	[targets]
//	hal = 6
//	ewf = 14
//
// or, for any other extension, from "name latency" lines with // comments.
func LoadConstraints(path string) (Constraints, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return ParseConstraints(data)
	}
	return parseLegacyConstraints(data)
}

// ParseConstraints decodes the TOML form.
func ParseConstraints(data []byte) (Constraints, error) {
	var f constraintsFile
	if _, err := toml.Decode(string(data), &f); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse constraints")
	}
	c := Constraints{}
	for name, lat := range f.Targets {
		if lat < 1 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "target for %s must be positive, got %d", name, lat)
		}
		c[name] = lat
	}
	return c, nil
}

func parseLegacyConstraints(data []byte) (Constraints, error) {
	c := Constraints{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "//") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 2 {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "constraints line %d: want \"name latency\"", line)
		}
		lat, err := strconv.Atoi(fields[1])
		if err != nil || lat < 1 {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "constraints line %d: bad latency %q", line, fields[1])
		}
		c[fields[0]] = lat
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read constraints")
	}
	return c, nil
}

// Target returns the target latency for dfg, or 0 when there is none.
func (c Constraints) Target(dfg string) int {
	return c[dfg]
}
