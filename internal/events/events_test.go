package events

import (
	"context"
	"encoding/json"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/captioner/internal/config"
	"github.com/therealutkarshpriyadarshi/captioner/pkg/models"
)

func TestNewJobEventCompleted(t *testing.T) {
	job := models.NewJob("abc", "/uploads/abc.mp4", "clip.mp4", models.RenderOptions{})
	require.NoError(t, job.StartTranscribing())
	require.NoError(t, job.StartRendering())
	require.NoError(t, job.Complete("/out/abc.mp4"))

	evt := NewJobEvent(job)
	assert.Equal(t, TypeJobCompleted, evt.Type)
	assert.Equal(t, "abc", evt.JobID)
	assert.Equal(t, "/out/abc.mp4", evt.URL)
	assert.Empty(t, evt.Error)
	assert.False(t, evt.Timestamp.IsZero())
}

func TestNewJobEventFailed(t *testing.T) {
	job := models.NewJob("abc", "/uploads/abc.mp4", "clip.mp4", models.RenderOptions{})
	require.NoError(t, job.StartTranscribing())
	require.NoError(t, job.Fail(models.ErrorKindMissingOutput, "caption file not found"))

	evt := NewJobEvent(job)
	assert.Equal(t, TypeJobFailed, evt.Type)
	assert.Equal(t, models.JobStepTranscribing, evt.Step)
	assert.Equal(t, "caption file not found", evt.Error)
	assert.Equal(t, models.ErrorKindMissingOutput, evt.ErrorKind)
}

func TestBuildPublishing(t *testing.T) {
	job := models.NewJob("abc", "/uploads/abc.mp4", "clip.mp4", models.RenderOptions{})
	require.NoError(t, job.Fail(models.ErrorKindInternal, "boom"))

	msg, err := buildPublishing(NewJobEvent(job))
	require.NoError(t, err)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, "abc:job.failed", msg.MessageId)

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, "abc", decoded.JobID)
	assert.Equal(t, "failed", decoded.Status)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), Event{Type: TypeJobCompleted}))
	assert.NoError(t, p.Close())
}

func TestNewAMQPPublisherUnreachable(t *testing.T) {
	_, err := NewAMQPPublisher(config.EventsConfig{
		Host: "127.0.0.1", Port: 1, User: "guest", Password: "guest", Vhost: "/", Exchange: "x",
	})
	assert.Error(t, err)
}

type stubPublisher struct {
	published []Event
	err       error
	closed    bool
}

func (s *stubPublisher) Publish(ctx context.Context, evt Event) error {
	s.published = append(s.published, evt)
	return s.err
}

func (s *stubPublisher) Close() error {
	s.closed = true
	return nil
}

func TestMultiPublisher(t *testing.T) {
	first := &stubPublisher{err: assert.AnError}
	second := &stubPublisher{}
	multi := Multi{first, second}

	evt := Event{Type: TypeJobFailed, JobID: "abc"}
	err := multi.Publish(context.Background(), evt)
	assert.ErrorIs(t, err, assert.AnError)

	// A failing publisher does not stop delivery to the rest
	assert.Len(t, first.published, 1)
	assert.Len(t, second.published, 1)

	require.NoError(t, multi.Close())
	assert.True(t, first.closed)
	assert.True(t, second.closed)
}

func TestAMQPPublisherClosed(t *testing.T) {
	pub := &AMQPPublisher{exchange: "captioner.jobs"}
	require.NoError(t, pub.Close())

	err := pub.Publish(context.Background(), Event{Type: TypeJobCompleted, JobID: "abc"})
	assert.ErrorIs(t, err, ErrPublisherClosed)

	// Closing twice is harmless
	assert.NoError(t, pub.Close())

	err = Multi{pub}.Publish(context.Background(), Event{Type: TypeJobFailed, JobID: "abc"})
	assert.ErrorIs(t, err, ErrPublisherClosed)
}
