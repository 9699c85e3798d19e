// internal/pkg/webhook/notifier.go
package webhook

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/config"
)

// Event names an order or payment change announced to subscribers
type Event string

const (
	EventOrderCreated       Event = "order.created"
	EventOrderStatusChanged Event = "order.status_changed"
	EventOrderDeleted       Event = "order.deleted"
	EventPaymentRecorded    Event = "payment.recorded"
	EventPaymentDeleted     Event = "payment.deleted"
)

// SecretHeader carries the shared secret on every delivery
const SecretHeader = "X-Webhook-Secret"

// Publisher announces committed changes. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, event Event, data interface{})
}

// Payload is the JSON body posted to the webhook endpoint
type Payload struct {
	Event      Event       `json:"event"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// Notifier posts events to a single configured endpoint
type Notifier struct {
	client *resty.Client
	url    string
	secret string
	logger *logrus.Logger

	pending sync.WaitGroup
}

// New creates a notifier. An empty URL yields a notifier that sends nothing.
func New(cfg config.WebhookConfig, logger *logrus.Logger) *Notifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Notifier{
		client: resty.New().SetTimeout(timeout),
		url:    cfg.URL,
		secret: cfg.Secret,
		logger: logger,
	}
}

// Enabled reports whether an endpoint is configured
func (n *Notifier) Enabled() bool {
	return n.url != ""
}

// Publish delivers the event in the background and logs any failure instead of
// returning it. Delivery outlives the caller's cancellation but keeps its values.
func (n *Notifier) Publish(ctx context.Context, event Event, data interface{}) {
	if !n.Enabled() {
		return
	}

	ctx = context.WithoutCancel(ctx)
	n.pending.Add(1)
	go func() {
		defer n.pending.Done()
		n.send(ctx, event, data)
	}()
}

// Wait blocks until every started delivery has finished or ctx is done
func (n *Notifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Notifier) send(ctx context.Context, event Event, data interface{}) {
	if err := n.deliver(ctx, event, data); err != nil {
		n.logger.WithFields(logrus.Fields{
			"event": event,
			"url":   n.url,
			"error": err.Error(),
		}).Warn("Webhook delivery failed")
		return
	}

	n.logger.WithField("event", event).Debug("Webhook delivered")
}

func (n *Notifier) deliver(ctx context.Context, event Event, data interface{}) error {
	req := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetBody(Payload{
			Event:      event,
			OccurredAt: time.Now().UTC(),
			Data:       data,
		})
	if n.secret != "" {
		req.SetHeader(SecretHeader, n.secret)
	}

	resp, err := req.Post(n.url)
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook endpoint responded with status %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	return nil
}

// Nop discards every event
type Nop struct{}

func (Nop) Publish(context.Context, Event, interface{}) {}
