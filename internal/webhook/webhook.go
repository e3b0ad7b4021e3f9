package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/therealutkarshpriyadarshi/captioner/internal/config"
	"github.com/therealutkarshpriyadarshi/captioner/internal/events"
	"github.com/therealutkarshpriyadarshi/captioner/internal/logging"
	"github.com/therealutkarshpriyadarshi/captioner/internal/metrics"
)

// Delivery headers
const (
	HeaderEvent     = "X-Webhook-Event"
	HeaderDelivery  = "X-Webhook-Delivery"
	HeaderSignature = "X-Webhook-Signature"
)

// Publisher posts job events to every configured URL. Deliveries run in the background
// and are retried with exponential backoff; Close waits for the outstanding ones.
type Publisher struct {
	client     *http.Client
	urls       []string
	secret     string
	maxRetries int
	retryDelay time.Duration
	logger     *logging.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPublisher creates a new webhook publisher
func NewPublisher(cfg config.WebhookConfig, logger *logging.Logger) *Publisher {
	if logger == nil {
		logger = logging.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Publisher{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		urls:       cfg.URLs,
		secret:     cfg.Secret,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Publish schedules delivery of evt to every URL
func (p *Publisher) Publish(ctx context.Context, evt events.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return events.ErrPublisherClosed
	}

	for _, url := range p.urls {
		p.wg.Add(1)
		go func(url string) {
			defer p.wg.Done()
			p.deliver(url, evt, payload)
		}(url)
	}

	return nil
}

// Close waits for pending deliveries and cancels retries still running after a grace period
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(p.closeGrace()):
		p.cancel()
		<-done
	}
	return nil
}

func (p *Publisher) closeGrace() time.Duration {
	return p.retryDelay*time.Duration(1<<p.maxRetries) + p.client.Timeout
}

// deliver attempts one event delivery, retrying failures
func (p *Publisher) deliver(url string, evt events.Event, payload []byte) {
	log := p.logger.WithJobID(evt.JobID).WithFields(map[string]interface{}{
		"url":   url,
		"event": evt.Type,
	})
	deliveryID := uuid.New().String()
	delay := p.retryDelay

	for attempt := 0; ; attempt++ {
		statusCode, err := p.send(url, deliveryID, evt.Type, payload)
		if err == nil {
			metrics.RecordEventPublished(evt.Type, "delivered")
			log.WithField("status_code", statusCode).Debug("Webhook delivered")
			return
		}

		if attempt >= p.maxRetries {
			metrics.RecordEventPublished(evt.Type, "failed")
			log.ErrorWithErr("Webhook delivery failed", err)
			return
		}

		log.WithError(err).WithField("attempt", attempt+1).Warn("Webhook delivery failed, retrying")
		select {
		case <-p.ctx.Done():
			metrics.RecordEventPublished(evt.Type, "failed")
			return
		case <-time.After(delay):
		}
		delay *= 2
	}
}

func (p *Publisher) send(url, deliveryID, event string, payload []byte) (int, error) {
	req, err := http.NewRequestWithContext(p.ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Captioner-Webhook/1.0")
	req.Header.Set(HeaderEvent, event)
	req.Header.Set(HeaderDelivery, deliveryID)

	if p.secret != "" {
		req.Header.Set(HeaderSignature, Sign(payload, p.secret))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	return resp.StatusCode, nil
}

// Sign returns the HMAC-SHA256 signature header value for payload
func Sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}

// Verify reports whether signature matches payload
func Verify(payload []byte, secret, signature string) bool {
	return hmac.Equal([]byte(Sign(payload, secret)), []byte(signature))
}
