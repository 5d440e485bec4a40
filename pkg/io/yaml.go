package io

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/hlsched/pkg/errors"
)

// ReadYAML decodes a problem from r. The document has the same shape as
// the JSON form.
//
//	name: hal
//	operations:
//	  - {id: m1, latency: 2, type: MUL}
//	  - {id: a1, opcode: ADD}
//	dependencies:
//	  - {from: m1, to: a1}
//	resources: {ALU: 1, MUL: 1}
func ReadYAML(r io.Reader) (*Problem, error) {
	var p Problem
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		if err == io.EOF {
			return &p, nil
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode yaml")
	}
	p.canonicalize()
	return &p, nil
}

// ImportYAML reads a YAML problem file at path.
func ImportYAML(path string) (*Problem, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadYAML(f)
}

// WriteYAML encodes a problem as YAML.
func WriteYAML(w io.Writer, p *Problem) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode yaml")
	}
	return enc.Close()
}
