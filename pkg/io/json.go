package io

import (
	"encoding/json"
	"io"
	"os"

	"github.com/matzehuels/hlsched/pkg/errors"
)

// ReadJSON decodes a problem from r.
//
// The input must be a JSON object with an "operations" array; see the
// package documentation for the full shape. Type names and inventory keys
// are canonicalized to upper case. Opcodes are left unresolved; call
// [Problem.Resolve] before building the graph, or use [Load].
//
// ReadJSON does not close r.
func ReadJSON(r io.Reader) (*Problem, error) {
	var p Problem
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode json")
	}
	p.canonicalize()
	return &p, nil
}

// ImportJSON reads a JSON problem file at path.
func ImportJSON(path string) (*Problem, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadJSON(f)
}

// WriteJSON encodes v as indented JSON. It is used for problems as well as
// for scheduling results, which carry their own json tags.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode json")
	}
	return nil
}

// ExportJSON writes v to a JSON file at path.
// This is a convenience wrapper around [WriteJSON] for file-based output.
func ExportJSON(v any, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "create %s", path)
	}
	if err := WriteJSON(f, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "open %s", path)
	}
	return f, nil
}

func readFile(path string) ([]byte, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read %s", path)
	}
	return src, nil
}
