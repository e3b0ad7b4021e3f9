package events

import (
	"context"
	"errors"
	"time"

	"github.com/therealutkarshpriyadarshi/captioner/pkg/models"
)

// Event types, also used as routing keys
const (
	TypeJobCompleted = "job.completed"
	TypeJobFailed    = "job.failed"
)

// Event announces that a job reached a terminal state
type Event struct {
	Type      string    `json:"type"`
	JobID     string    `json:"jobId"`
	Status    string    `json:"status"`
	Step      string    `json:"step"`
	URL       string    `json:"url,omitempty"`
	Error     string    `json:"error,omitempty"`
	ErrorKind string    `json:"errorKind,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrPublisherClosed is returned by Publish once the publisher has been closed
var ErrPublisherClosed = errors.New("publisher closed")

// Publisher delivers job lifecycle events
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// NewJobEvent builds the terminal event for a finished job
func NewJobEvent(job *models.Job) Event {
	evt := Event{
		Type:      TypeJobCompleted,
		JobID:     job.ID,
		Status:    job.Status,
		Step:      job.Step,
		URL:       job.URL,
		Error:     job.Error,
		ErrorKind: job.ErrorKind,
		Timestamp: time.Now(),
	}
	if job.Status == models.JobStatusFailed {
		evt.Type = TypeJobFailed
	}
	return evt
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, evt Event) error { return nil }

func (NopPublisher) Close() error { return nil }

// Multi fans every event out to each publisher in order
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, evt Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
