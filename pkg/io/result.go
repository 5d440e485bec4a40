package io

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/matzehuels/hlsched/pkg/dag"
	"github.com/matzehuels/hlsched/pkg/errors"
)

// ResultFile is the plain-text scheduling and binding result.
type ResultFile struct {
	Name    string
	Units   []UnitUsage
	Latency int
	Ops     []OpResult
}

// UnitUsage describes one functional unit type of a result.
type UnitUsage struct {
	Type  dag.ResourceType
	Limit int // Units available
	Used  int // Units the schedule actually occupies
	Delay int
}

// OpResult is the start cycle and unit binding of one operation. Unit is
// -1 for operations that take no unit.
type OpResult struct {
	ID    string
	Start int
	Unit  int
}

// Starts returns the start cycle of every operation keyed by id.
func (rf *ResultFile) Starts() map[string]int {
	out := make(map[string]int, len(rf.Ops))
	for _, op := range rf.Ops {
		out[op.ID] = op.Start
	}
	return out
}

// WriteResultText writes rf in the text result format:
//
//	// problem name
//	hal
//	// <type> <limit> <used> <delay>
//	ALU 2 2 1
//	MUL 1 1 2
//	actual latency 6
//	// <op> <start> <unit>
//	m1 1 0
func WriteResultText(w io.Writer, rf *ResultFile) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "// problem name")
	fmt.Fprintln(bw, rf.Name)
	fmt.Fprintln(bw, "// <type> <limit> <used> <delay>")
	for _, u := range rf.Units {
		fmt.Fprintf(bw, "%s %d %d %d\n", u.Type, u.Limit, u.Used, u.Delay)
	}
	fmt.Fprintf(bw, "actual latency %d\n", rf.Latency)
	fmt.Fprintln(bw, "// <op> <start> <unit>")
	for _, op := range rf.Ops {
		fmt.Fprintf(bw, "%s %d %d\n", op.ID, op.Start, op.Unit)
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "write result")
	}
	return nil
}

// ReadResultText parses a result written by [WriteResultText]. Blank lines
// and lines starting with "//" or "#" are ignored.
func ReadResultText(r io.Reader) (*ResultFile, error) {
	const (
		wantName = iota
		inUnits
		inOps
	)

	rf := &ResultFile{}
	state := wantName
	sc := bufio.NewScanner(r)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		switch {
		case state == wantName:
			rf.Name = line
			state = inUnits

		case state == inUnits && len(fields) == 3 && fields[0] == "actual" && fields[1] == "latency":
			n, err := strconv.Atoi(fields[2])
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "line %d: latency", lineNo)
			}
			rf.Latency = n
			state = inOps

		case state == inUnits:
			if len(fields) != 4 {
				return nil, errors.New(errors.ErrCodeInvalidFormat, "line %d: expected <type> <limit> <used> <delay>", lineNo)
			}
			nums, err := atois(fields[1:])
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "line %d", lineNo)
			}
			rf.Units = append(rf.Units, UnitUsage{
				Type:  dag.ParseResourceType(fields[0]),
				Limit: nums[0],
				Used:  nums[1],
				Delay: nums[2],
			})

		default:
			if len(fields) != 3 {
				return nil, errors.New(errors.ErrCodeInvalidFormat, "line %d: expected <op> <start> <unit>", lineNo)
			}
			nums, err := atois(fields[1:])
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "line %d", lineNo)
			}
			rf.Ops = append(rf.Ops, OpResult{ID: fields[0], Start: nums[0], Unit: nums[1]})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read result")
	}
	if state != inOps {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "result has no \"actual latency\" line")
	}
	return rf, nil
}

// ImportResultText reads a text result file at path.
func ImportResultText(path string) (*ResultFile, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadResultText(f)
}

func atois(fields []string) ([]int, error) {
	out := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", f)
		}
		out[i] = n
	}
	return out, nil
}
