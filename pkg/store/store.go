// Package store persists benchmark and scheduling runs for later comparison.
//
// Two backends implement [Store]: [SQLiteStore], a single-file database
// used by default, and [MongoStore] for shared deployments of the server.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/hlsched/pkg/errors"
)

// Status of a run against its target latency.
type Status string

const (
	StatusPass   Status = "PASS"
	StatusFail   Status = "FAIL"
	StatusNoData Status = "NO_DATA"
	// StatusError marks runs whose scheduler failed outright.
	StatusError Status = "ERROR"
)

// Run is one scheduled DFG under one configuration.
type Run struct {
	ID            string    `json:"id" bson:"_id"`
	DFG           string    `json:"dfg" bson:"dfg"`
	Variant       string    `json:"variant" bson:"variant"`
	ScaleFactor   float64   `json:"scale_factor" bson:"scale_factor"`
	TargetLatency int       `json:"target_latency,omitempty" bson:"target_latency"`
	ActualLatency int       `json:"actual_latency" bson:"actual_latency"`
	Delta         int       `json:"delta" bson:"delta"`
	Status        Status    `json:"status" bson:"status"`
	FUsUsed       int       `json:"fus_used" bson:"fus_used"`
	RuntimeMS     float64   `json:"runtime_ms" bson:"runtime_ms"`
	Error         string    `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
}

// Filter narrows [Store.ListRuns]. Zero fields match everything.
type Filter struct {
	DFG     string
	Variant string
	Status  Status
	Limit   int
}

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// Clamp bounds the limit to [1, MaxListLimit], defaulting to DefaultListLimit.
func (f *Filter) Clamp() {
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultListLimit
	case f.Limit > MaxListLimit:
		f.Limit = MaxListLimit
	}
}

// Store saves and lists runs. ListRuns returns newest first.
type Store interface {
	SaveRun(ctx context.Context, r *Run) error
	ListRuns(ctx context.Context, f Filter) ([]*Run, error)
	Close() error
}

// prepare fills the ID and timestamp of a new run.
func prepare(r *Run) error {
	if r.DFG == "" {
		return errors.New(errors.ErrCodeInvalidInput, "run has no DFG name")
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	return nil
}
