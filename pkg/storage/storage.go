// Package storage persists interview records and pre-interview analysis
// results. Two providers exist: a local JSON file store for development and a
// Postgres store for deployments.
package storage

import (
	"context"
	"errors"

	"github.com/parleylabs/interviewd/pkg/analysis"
	"github.com/parleylabs/interviewd/pkg/interview"
)

// ErrNotFound reports a missing record. Analysis lookups translate it to
// analysis.ErrNotFound at the interface boundary.
var ErrNotFound = errors.New("storage: record not found")

// Provider is the persistence surface the gateway depends on.
type Provider interface {
	SaveInterview(ctx context.Context, rec interview.Record) error
	LoadInterview(ctx context.Context, id string) (interview.Record, error)

	SaveAnalysis(ctx context.Context, rec analysis.Record) error
	LoadAnalysis(ctx context.Context, documentID string) (analysis.Record, error)

	Close()
}
