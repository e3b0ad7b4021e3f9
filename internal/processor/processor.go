package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/therealutkarshpriyadarshi/captioner/internal/captions"
	"github.com/therealutkarshpriyadarshi/captioner/internal/config"
	"github.com/therealutkarshpriyadarshi/captioner/internal/events"
	"github.com/therealutkarshpriyadarshi/captioner/internal/jobstore"
	"github.com/therealutkarshpriyadarshi/captioner/internal/logging"
	"github.com/therealutkarshpriyadarshi/captioner/internal/metrics"
	"github.com/therealutkarshpriyadarshi/captioner/internal/props"
	"github.com/therealutkarshpriyadarshi/captioner/internal/runner"
	"github.com/therealutkarshpriyadarshi/captioner/internal/storage"
	"github.com/therealutkarshpriyadarshi/captioner/internal/tracing"
	"github.com/therealutkarshpriyadarshi/captioner/pkg/models"
)

var (
	// ErrMissingOutput is returned when a tool exits cleanly without writing its artifact
	ErrMissingOutput = errors.New("missing output")

	// ErrMalformedOutput is returned when a tool's artifact cannot be parsed
	ErrMalformedOutput = errors.New("malformed output")
)

// Archiver copies finished artifacts to durable storage
type Archiver interface {
	UploadFile(ctx context.Context, objectName, filePath string) error
}

// Processor drives jobs from upload through transcription and rendering
type Processor struct {
	store         jobstore.Store
	runner        runner.Runner
	events        events.Publisher
	archive       Archiver
	logger        *logging.Logger
	layout        Layout
	transcriber   config.TranscriberConfig
	renderer      config.RendererConfig
	publicBaseURL string

	slots chan struct{}
	wg    sync.WaitGroup
}

// Option configures optional collaborators
type Option func(*Processor)

// WithEvents publishes a lifecycle event whenever a job finishes
func WithEvents(p events.Publisher) Option {
	return func(proc *Processor) {
		proc.events = p
	}
}

// WithArchive uploads each completed job's artifacts
func WithArchive(a Archiver) Option {
	return func(proc *Processor) {
		proc.archive = a
	}
}

// New creates a new job processor
func New(cfg *config.Config, layout Layout, store jobstore.Store, r runner.Runner, logger *logging.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = logging.Nop()
	}

	p := &Processor{
		store:         store,
		runner:        r,
		events:        events.NopPublisher{},
		logger:        logger,
		layout:        layout,
		transcriber:   cfg.Transcriber,
		renderer:      cfg.Renderer,
		publicBaseURL: strings.TrimRight(cfg.Server.PublicBaseURL, "/"),
	}
	if n := cfg.Pipeline.MaxConcurrentJobs; n > 0 {
		p.slots = make(chan struct{}, n)
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Submit starts the job's pipeline in its own goroutine and returns immediately.
// The pipeline does not inherit any caller context, so it outlives the request that
// submitted it. When a concurrency limit is configured the job stays queued until a
// slot frees up.
func (p *Processor) Submit(jobID string) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ctx := context.Background()
		queuedAt := time.Now()

		if p.slots != nil {
			metrics.JobsWaiting.Inc()
			p.slots <- struct{}{}
			metrics.JobsWaiting.Dec()
			defer func() { <-p.slots }()
		}
		metrics.JobQueueTime.Observe(time.Since(queuedAt).Seconds())

		if err := p.Process(ctx, jobID); err != nil {
			p.logger.WithJobID(jobID).WithError(err).Warn("Job failed")
		}
	}()
}

// Wait blocks until every submitted pipeline has returned or ctx is done
func (p *Processor) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Process runs one job's pipeline to completion. Every step failure is recorded on the
// job as a terminal failed state and returned.
func (p *Processor) Process(ctx context.Context, jobID string) error {
	start := time.Now()

	span, ctx := tracing.StartSpan(ctx, "job.process")
	defer tracing.FinishSpan(span)
	tracing.SetTag(span, "job_id", jobID)

	metrics.JobsInProgress.Inc()
	defer metrics.JobsInProgress.Dec()

	job, err := p.store.Mutate(ctx, jobID, func(j *models.Job) error { return j.StartTranscribing() })
	if err != nil {
		tracing.LogError(span, err)
		return fmt.Errorf("failed to start job %s: %w", jobID, err)
	}
	p.logger.LogJobEvent(jobID, "transcription_started", job.Status, job.Step, map[string]interface{}{
		"mode": props.Mode(job.Config),
	})

	list, err := p.transcribe(ctx, job)
	if err != nil {
		tracing.LogError(span, err)
		return p.fail(ctx, jobID, start, err)
	}

	rendering, err := p.store.Mutate(ctx, jobID, func(j *models.Job) error { return j.StartRendering() })
	if err != nil {
		tracing.LogError(span, err)
		return p.fail(ctx, jobID, start, err)
	}
	p.logger.LogJobEvent(jobID, "rendering_started", rendering.Status, rendering.Step, map[string]interface{}{
		"captions": len(list),
	})

	if err := p.render(ctx, rendering, list); err != nil {
		tracing.LogError(span, err)
		return p.fail(ctx, jobID, start, err)
	}

	done, err := p.store.Mutate(ctx, jobID, func(j *models.Job) error { return j.Complete(OutputURL(jobID)) })
	if err != nil {
		tracing.LogError(span, err)
		return p.fail(ctx, jobID, start, err)
	}
	p.logger.LogJobEvent(jobID, "completed", done.Status, done.Step, map[string]interface{}{
		"url":      done.URL,
		"duration": time.Since(start).String(),
	})

	metrics.RecordJobFinished(done.Status, "", time.Since(start).Seconds())
	p.archiveArtifacts(ctx, done)
	p.publish(ctx, done)

	return nil
}

// transcribe runs the transcription tool and loads the caption file it writes
func (p *Processor) transcribe(ctx context.Context, job *models.Job) ([]models.Caption, error) {
	span, ctx := tracing.StartSpan(ctx, "job.transcribe")
	defer tracing.FinishSpan(span)
	stepStart := time.Now()

	list, err := p.runTranscription(ctx, job)
	if err != nil {
		tracing.LogError(span, err)
		metrics.RecordStep(models.JobStepTranscribing, "failure", time.Since(stepStart).Seconds())
		return nil, err
	}

	metrics.RecordStep(models.JobStepTranscribing, "success", time.Since(stepStart).Seconds())
	metrics.CaptionsPerJob.Observe(float64(len(list)))
	p.reportHiddenCaptions(job.ID, list)
	return list, nil
}

func (p *Processor) runTranscription(ctx context.Context, job *models.Job) ([]models.Caption, error) {
	inputPath, err := filepath.Abs(job.InputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve input path: %w", err)
	}

	cmd := runner.Command{
		Name: p.transcriber.Command,
		Args: []string{p.transcriber.Script, inputPath, p.transcriber.Model, props.Mode(job.Config)},
		Dir:  p.layout.Root,
	}

	stepCtx, cancel := withTimeout(ctx, p.transcriber.Timeout)
	defer cancel()

	if _, err := p.runner.Run(stepCtx, cmd); err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	captionPath := p.layout.CaptionPath(inputPath)
	if _, err := os.Stat(captionPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: subtitle file not found at %s", ErrMissingOutput, captionPath)
		}
		return nil, fmt.Errorf("failed to stat subtitle file: %w", err)
	}

	list, err := captions.LoadFile(captionPath)
	if err != nil {
		if errors.Is(err, captions.ErrMalformedCaptions) {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformedOutput, captionPath, err)
		}
		return nil, err
	}

	return list, nil
}

// reportHiddenCaptions counts captions the renderer will never show
func (p *Processor) reportHiddenCaptions(jobID string, list []models.Caption) {
	hidden := len(list) - len(captions.Windows(list, p.renderer.FPS))
	if hidden <= 0 {
		return
	}
	metrics.CaptionsHiddenTotal.Add(float64(hidden))
	p.logger.WithJobID(jobID).WithFields(map[string]interface{}{
		"hidden":   hidden,
		"captions": len(list),
		"fps":      p.renderer.FPS,
	}).Warn("Some captions have no display window")
}

// render writes the job's props and runs the renderer
func (p *Processor) render(ctx context.Context, job *models.Job, list []models.Caption) error {
	span, ctx := tracing.StartSpan(ctx, "job.render")
	defer tracing.FinishSpan(span)
	stepStart := time.Now()

	err := p.runRender(ctx, job, list)
	if err != nil {
		tracing.LogError(span, err)
		metrics.RecordStep(models.JobStepRendering, "failure", time.Since(stepStart).Seconds())
		return err
	}

	metrics.RecordStep(models.JobStepRendering, "success", time.Since(stepStart).Seconds())
	return nil
}

func (p *Processor) runRender(ctx context.Context, job *models.Job, list []models.Caption) error {
	urls := props.MediaURLs{Video: p.mediaURL(job.InputPath)}
	if job.Config.WatermarkPath != "" {
		urls.Watermark = p.mediaURL(job.Config.WatermarkPath)
	}

	propsPath := p.layout.PropsPath(job.ID)
	if err := props.WriteFile(propsPath, props.Build(job.Config, list, urls)); err != nil {
		return err
	}

	outputPath := p.layout.OutputPath(job.ID)
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	args := append([]string{}, p.renderer.BaseArgs...)
	args = append(args,
		p.renderer.Entry,
		p.renderer.Composition,
		outputPath,
		"--props="+propsPath,
		"--concurrency="+strconv.Itoa(p.renderer.Concurrency),
	)

	stepCtx, cancel := withTimeout(ctx, p.renderer.Timeout)
	defer cancel()

	if _, err := p.runner.Run(stepCtx, runner.Command{Name: p.renderer.Command, Args: args, Dir: p.layout.Root}); err != nil {
		return fmt.Errorf("rendering failed: %w", err)
	}

	return nil
}

// fail records err on the job as a terminal failure and returns err
func (p *Processor) fail(ctx context.Context, jobID string, start time.Time, err error) error {
	kind := ErrorKind(err)
	log := p.logger.WithJobID(jobID)

	updated, mutateErr := p.store.Mutate(ctx, jobID, func(j *models.Job) error { return j.Fail(kind, err.Error()) })
	if mutateErr != nil {
		log.ErrorWithErr("Failed to record job failure", mutateErr)
		return fmt.Errorf("failed to update job: %w (original error: %v)", mutateErr, err)
	}

	p.logger.WithError(err).LogJobEvent(jobID, "failed", updated.Status, updated.Step, map[string]interface{}{
		"error_kind": kind,
	})
	metrics.RecordJobFinished(updated.Status, kind, time.Since(start).Seconds())
	p.publish(ctx, updated)

	return err
}

// ErrorKind classifies a pipeline error for the job record
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, runner.ErrExternalToolFailed):
		return models.ErrorKindExternalTool
	case errors.Is(err, ErrMissingOutput):
		return models.ErrorKindMissingOutput
	case errors.Is(err, ErrMalformedOutput):
		return models.ErrorKindMalformedOutput
	default:
		return models.ErrorKindInternal
	}
}

func (p *Processor) publish(ctx context.Context, job *models.Job) {
	if err := p.events.Publish(ctx, events.NewJobEvent(job)); err != nil {
		p.logger.WithJobID(job.ID).ErrorWithErr("Failed to publish job event", err)
	}
}

// archiveArtifacts uploads the rendered video, captions and props. Failures are logged
// and never change the job's outcome.
func (p *Processor) archiveArtifacts(ctx context.Context, job *models.Job) {
	if p.archive == nil {
		return
	}

	files := []string{
		p.layout.OutputPath(job.ID),
		p.layout.CaptionPath(job.InputPath),
		p.layout.PropsPath(job.ID),
	}
	for _, f := range files {
		if err := p.archive.UploadFile(ctx, storage.ObjectKey(job.ID, f), f); err != nil {
			p.logger.WithJobID(job.ID).ErrorWithErr("Failed to archive artifact", err)
		}
	}
}

func (p *Processor) mediaURL(path string) string {
	return p.publicBaseURL + "/uploads/" + filepath.Base(path)
}

// withTimeout leaves ctx untouched when d is zero so the runner waits for the tool's
// output in full
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
