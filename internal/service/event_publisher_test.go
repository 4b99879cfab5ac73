package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longtq2501/Tutor-Pro-sub000/internal/models"
	"github.com/longtq2501/Tutor-Pro-sub000/pkg/config"
	"github.com/longtq2501/Tutor-Pro-sub000/pkg/middleware/requestid"
)

type sinkStub struct {
	mu       sync.Mutex
	payloads []interface{}
	failures int
}

func (s *sinkStub) Publish(ctx context.Context, payload interface{}) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return 0, errors.New("redis down")
	}
	s.payloads = append(s.payloads, payload)
	return 1, nil
}

func (s *sinkStub) received() []interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]interface{}(nil), s.payloads...)
}

func TestQueueEventPublisherDelivers(t *testing.T) {
	sink := &sinkStub{failures: 1}
	pub := NewQueueEventPublisher(sink, config.NotificationConfig{Workers: 1, BufferSize: 4, MaxRetries: 2, RetryDelay: 10 * time.Millisecond}, nil, nil)
	pub.Start(context.Background())
	defer pub.Stop()

	ctx := requestid.WithValue(context.Background(), "req-1")
	pub.Publish(ctx, models.SessionEvent{Type: models.EventSessionCreated, SessionID: "s1"})

	require.Eventually(t, func() bool { return len(sink.received()) == 1 }, time.Second, 5*time.Millisecond)
	event := sink.received()[0].(models.SessionEvent)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "req-1", event.RequestID)
	assert.False(t, event.OccurredAt.IsZero())
}

func TestQueueEventPublisherDropsWhenStopped(t *testing.T) {
	sink := &sinkStub{}
	metrics := NewMetricsService()
	pub := NewQueueEventPublisher(sink, config.NotificationConfig{Workers: 1}, metrics, nil)

	assert.NotPanics(t, func() {
		pub.Publish(context.Background(), models.SessionEvent{Type: models.EventSessionRescheduled, SessionID: "s1"})
	})
	assert.Empty(t, sink.received())
}
