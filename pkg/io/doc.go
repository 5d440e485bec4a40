// Package io reads scheduling problems and writes scheduling results.
//
// # Overview
//
// A [Problem] is the serializable form of a scheduling input: a list of
// operations, the data dependencies between them and, optionally, the
// functional units available per resource type. [Problem.Graph] turns it
// into a normalized [dag.DAG] ready for the scheduler.
//
// Four input formats are supported, selected by file extension or
// explicitly with [ParseFormat]:
//
//   - JSON (.json) via [ReadJSON]
//   - YAML (.yaml, .yml) via [ReadYAML]
//   - HCL (.hcl) via [ReadHCL]
//   - DOT (.dot, .gv) via [ReadDOT]
//
// # JSON and YAML
//
// Both use the same shape:
//
//	{
//	  "name": "hal",
//	  "operations": [
//	    {"id": "m1", "latency": 2, "type": "MUL"},
//	    {"id": "a1", "opcode": "ADD"}
//	  ],
//	  "dependencies": [{"from": "m1", "to": "a1"}],
//	  "resources": {"ALU": 1, "MUL": 1}
//	}
//
// An operation either names its resource type directly or gives an opcode
// that [Problem.Resolve] classifies with a [resource.Library]. Type keys are
// case-insensitive.
//
// # HCL
//
// HCL files declare one block per resource and operation. Attribute
// expressions may refer to the library through two objects, lat and units:
//
//	resource "MUL" {
//	  units = units.MUL + 1
//	}
//
//	operation "m1" {
//	  type    = "MUL"
//	  latency = lat.MUL
//	}
//
//	operation "a1" {
//	  opcode = "ADD"
//	  after  = ["m1"]
//	}
//
// # DOT
//
// DOT graphs are parsed with Graphviz. A node label is either the
// annotated form "Lat: 2 Type: MUL" or a bare opcode such as "ADD".
// Nodes named SOURCE or SINK become the graph anchors. Anything else is
// loaded as an UNKNOWN pseudo-operation with a warning.
//
// # Results
//
// [WriteResultText] and [ReadResultText] handle the plain-text result file
// consumed by the verifier: the problem name, one line per functional unit
// type, the achieved latency and one "op start unit" line per operation.
package io
