package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-api/internal/config"
)

func TestPublishPostsPayload(t *testing.T) {
	received := make(chan Payload, 1)
	secrets := make(chan string, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secrets <- r.Header.Get(SecretHeader)
		var payload Payload
		if err := json.NewDecoder(r.Body).Decode(&payload); err == nil {
			received <- payload
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	logger, hook := test.NewNullLogger()
	n := New(config.WebhookConfig{URL: server.URL, Secret: "s3cret", Timeout: time.Second}, logger)

	n.Publish(context.Background(), EventOrderCreated, map[string]string{"order_id": "o-1"})
	require.NoError(t, n.Wait(context.Background()))

	select {
	case payload := <-received:
		assert.Equal(t, EventOrderCreated, payload.Event)
		assert.False(t, payload.OccurredAt.IsZero())
		assert.Equal(t, map[string]interface{}{"order_id": "o-1"}, payload.Data)
	default:
		t.Fatal("webhook was not delivered")
	}
	assert.Equal(t, "s3cret", <-secrets)
	for _, entry := range hook.AllEntries() {
		assert.NotEqual(t, logrus.WarnLevel, entry.Level)
	}
}

func TestPublishDoesNotBlockTheCaller(t *testing.T) {
	release := make(chan struct{})
	delivered := make(chan Event, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		var payload Payload
		if err := json.NewDecoder(r.Body).Decode(&payload); err == nil {
			delivered <- payload.Event
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	logger, hook := test.NewNullLogger()
	n := New(config.WebhookConfig{URL: server.URL, Timeout: 5 * time.Second}, logger)

	// The request context is already gone by the time the endpoint answers
	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	n.Publish(ctx, EventPaymentRecorded, nil)
	cancel()
	assert.Less(t, time.Since(start), time.Second)

	close(release)
	require.NoError(t, n.Wait(context.Background()))
	assert.Equal(t, EventPaymentRecorded, <-delivered)
	for _, entry := range hook.AllEntries() {
		assert.NotEqual(t, logrus.WarnLevel, entry.Level)
	}
}

func TestWaitHonoursDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()
	defer close(release)

	logger, _ := test.NewNullLogger()
	n := New(config.WebhookConfig{URL: server.URL, Timeout: 5 * time.Second}, logger)
	n.Publish(context.Background(), EventOrderDeleted, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, n.Wait(ctx), context.DeadlineExceeded)
}

func TestPublishLogsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	logger, hook := test.NewNullLogger()
	n := New(config.WebhookConfig{URL: server.URL}, logger)

	n.Publish(context.Background(), EventPaymentRecorded, nil)
	require.NoError(t, n.Wait(context.Background()))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, EventPaymentRecorded, entry.Data["event"])
}

func TestPublishDisabled(t *testing.T) {
	logger, hook := test.NewNullLogger()
	n := New(config.WebhookConfig{}, logger)

	assert.False(t, n.Enabled())
	n.Publish(context.Background(), EventOrderDeleted, nil)
	require.NoError(t, n.Wait(context.Background()))
	assert.Empty(t, hook.AllEntries())
}
