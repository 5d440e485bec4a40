package io

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"github.com/matzehuels/hlsched/pkg/dag"
	"github.com/matzehuels/hlsched/pkg/errors"
	"github.com/matzehuels/hlsched/pkg/resource"
)

// Format identifies a problem file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHCL  Format = "hcl"
	FormatDOT  Format = "dot"
)

// ValidFormats lists the accepted format names.
var ValidFormats = map[Format]bool{
	FormatJSON: true,
	FormatYAML: true,
	FormatHCL:  true,
	FormatDOT:  true,
}

var extensions = map[string]Format{
	".json": FormatJSON,
	".yaml": FormatYAML,
	".yml":  FormatYAML,
	".hcl":  FormatHCL,
	".dot":  FormatDOT,
	".gv":   FormatDOT,
}

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "yml" {
		f = FormatYAML
	}
	if !ValidFormats[f] {
		return "", errors.New(errors.ErrCodeInvalidOption, "unknown problem format %q (want json, yaml, hcl or dot)", s)
	}
	return f, nil
}

// DetectFormat infers the format from a file extension.
func DetectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := extensions[ext]; ok {
		return f, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "cannot infer problem format of %s; use --format", path)
}

// LoadOptions configures [Load] and [Read].
type LoadOptions struct {
	// Format overrides detection by extension.
	Format Format
	// Library classifies opcodes and supplies default latencies and units.
	// Nil means [resource.DefaultLibrary].
	Library *resource.Library
	// Warn receives recoverable diagnostics.
	Warn dag.WarnFunc
}

// Load reads a problem file and resolves it against the library, so the
// result is ready for [Problem.Graph].
func Load(path string, opts LoadOptions) (*Problem, error) {
	if opts.Format == "" {
		f, err := DetectFormat(path)
		if err != nil {
			return nil, err
		}
		opts.Format = f
	}
	src, err := readFile(path)
	if err != nil {
		return nil, err
	}
	p, err := decode(src, path, opts)
	if err != nil {
		return nil, err
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return p, nil
}

// Read decodes and resolves a problem from r. opts.Format is required.
func Read(r io.Reader, opts LoadOptions) (*Problem, error) {
	if !ValidFormats[opts.Format] {
		return nil, errors.New(errors.ErrCodeInvalidOption, "unknown problem format %q", opts.Format)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read problem")
	}
	return decode(buf.Bytes(), "<input>", opts)
}

func decode(src []byte, name string, opts LoadOptions) (*Problem, error) {
	var (
		p   *Problem
		err error
	)
	switch opts.Format {
	case FormatJSON:
		p, err = ReadJSON(bytes.NewReader(src))
	case FormatYAML:
		p, err = ReadYAML(bytes.NewReader(src))
	case FormatHCL:
		p, err = ReadHCL(src, name, opts.Library)
	case FormatDOT:
		p, err = ReadDOT(src, opts.Warn)
	default:
		return nil, errors.New(errors.ErrCodeInvalidOption, "unknown problem format %q", opts.Format)
	}
	if err != nil {
		return nil, err
	}
	if err := p.Resolve(opts.Library, opts.Warn); err != nil {
		return nil, err
	}
	return p, nil
}
