package models

import (
	"errors"
	"fmt"
	"time"
)

// Job represents one captioning request, from upload to rendered output
type Job struct {
	ID           string        `json:"id"`
	Status       string        `json:"status"`
	Step         string        `json:"step"`
	InputPath    string        `json:"inputPath"`
	OriginalName string        `json:"originalName"`
	Config       RenderOptions `json:"config"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
	StartedAt    *time.Time    `json:"startedAt,omitempty"`
	CompletedAt  *time.Time    `json:"completedAt,omitempty"`
	URL          string        `json:"url,omitempty"`
	Error        string        `json:"error,omitempty"`
	ErrorKind    string        `json:"errorKind,omitempty"`
}

// JobStatus constants
const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// JobStep constants, in the order a job advances through them
const (
	JobStepUploaded     = "uploaded"
	JobStepTranscribing = "transcribing"
	JobStepRendering    = "rendering"
)

// Error kinds recorded on failed jobs
const (
	ErrorKindExternalTool    = "external_tool_failed"
	ErrorKindMissingOutput   = "missing_output"
	ErrorKindMalformedOutput = "malformed_output"
	ErrorKindInternal        = "internal"
)

var (
	// ErrUploadRejected is returned when a submission carries no usable video or options
	ErrUploadRejected = errors.New("upload rejected")

	// ErrIllegalTransition is returned when a job is moved outside its state machine
	ErrIllegalTransition = errors.New("illegal job transition")
)

var stepOrder = map[string]int{
	JobStepUploaded:     0,
	JobStepTranscribing: 1,
	JobStepRendering:    2,
}

// NewJob creates a queued job for an uploaded video
func NewJob(id, inputPath, originalName string, cfg RenderOptions) *Job {
	now := time.Now()
	return &Job{
		ID:           id,
		Status:       JobStatusQueued,
		Step:         JobStepUploaded,
		InputPath:    inputPath,
		OriginalName: originalName,
		Config:       cfg,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsTerminal reports whether the job has finished, successfully or not
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// Clone returns a copy of the job. Config is shared since it is never mutated.
func (j *Job) Clone() *Job {
	c := *j
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// StartTranscribing moves a queued job to processing/transcribing
func (j *Job) StartTranscribing() error {
	if j.Status != JobStatusQueued {
		return j.illegal(JobStatusProcessing, JobStepTranscribing)
	}
	if err := j.advance(JobStepTranscribing); err != nil {
		return err
	}
	now := time.Now()
	j.Status = JobStatusProcessing
	j.StartedAt = &now
	j.UpdatedAt = now
	return nil
}

// StartRendering moves a transcribing job to processing/rendering
func (j *Job) StartRendering() error {
	if j.Status != JobStatusProcessing || j.Step != JobStepTranscribing {
		return j.illegal(JobStatusProcessing, JobStepRendering)
	}
	if err := j.advance(JobStepRendering); err != nil {
		return err
	}
	j.UpdatedAt = time.Now()
	return nil
}

// Complete marks a rendering job as completed with its public output path
func (j *Job) Complete(url string) error {
	if j.Status != JobStatusProcessing || j.Step != JobStepRendering {
		return j.illegal(JobStatusCompleted, j.Step)
	}
	now := time.Now()
	j.Status = JobStatusCompleted
	j.URL = url
	j.Error = ""
	j.ErrorKind = ""
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}

// Fail marks a job as failed. The step is left where the failure happened.
func (j *Job) Fail(kind, msg string) error {
	if j.IsTerminal() {
		return j.illegal(JobStatusFailed, j.Step)
	}
	if msg == "" {
		msg = "unknown error"
	}
	now := time.Now()
	j.Status = JobStatusFailed
	j.Error = msg
	j.ErrorKind = kind
	j.URL = ""
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}

func (j *Job) advance(step string) error {
	if stepOrder[step] < stepOrder[j.Step] {
		return fmt.Errorf("%w: step %s cannot rewind to %s", ErrIllegalTransition, j.Step, step)
	}
	j.Step = step
	return nil
}

func (j *Job) illegal(status, step string) error {
	return fmt.Errorf("%w: %s/%s -> %s/%s", ErrIllegalTransition, j.Status, j.Step, status, step)
}
