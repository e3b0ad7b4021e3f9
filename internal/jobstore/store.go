// Package jobstore holds job records for the lifetime of the service.
//
// Every backend honors the same lifecycle: a job is created once on upload, mutated only by
// the pipeline that owns it, and never deleted. A mutation is visible to every Get that
// starts after Mutate returns.
package jobstore

import (
	"context"
	"errors"

	"github.com/therealutkarshpriyadarshi/captioner/pkg/models"
)

var (
	// ErrNotFound is returned when no job exists for an identifier
	ErrNotFound = errors.New("job not found")

	// ErrDuplicateID is returned when creating a job whose identifier is taken
	ErrDuplicateID = errors.New("duplicate job id")
)

// MutateFunc updates a job in place. Returning an error discards the update.
type MutateFunc func(job *models.Job) error

// Store is a concurrency-safe registry of jobs keyed by identifier
type Store interface {
	Create(ctx context.Context, job *models.Job) error
	Get(ctx context.Context, id string) (*models.Job, error)
	Mutate(ctx context.Context, id string, fn MutateFunc) (*models.Job, error)
}
