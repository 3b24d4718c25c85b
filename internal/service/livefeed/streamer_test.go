package livefeed

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-notify/internal/domain"
)

type recordedEvent struct {
	name string
	data any
}

type recordingWriter struct {
	mu     sync.Mutex
	events []recordedEvent
	failOn string
}

func (w *recordingWriter) WriteEvent(name string, data any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if name == w.failOn {
		return errors.New("client gone")
	}
	w.events = append(w.events, recordedEvent{name: name, data: data})
	return nil
}

func (w *recordingWriter) named(name string) []recordedEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []recordedEvent
	for _, e := range w.events {
		if e.name == name {
			out = append(out, e)
		}
	}
	return out
}

type fakeSource struct {
	mu    sync.Mutex
	items []domain.Notification
	err   error
}

func (s *fakeSource) add(n domain.Notification) {
	s.mu.Lock()
	s.items = append(s.items, n)
	s.mu.Unlock()
}

func (s *fakeSource) ListCreatedAfter(_ context.Context, userID uuid.UUID, channel domain.Channel, after time.Time, limit int) ([]domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.Notification
	for _, n := range s.items {
		if n.UserID == userID && n.Channel == channel && n.CreatedAt.After(after) {
			out = append(out, n)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func newNotification(userID uuid.UUID, createdAt time.Time) domain.Notification {
	return domain.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      domain.EventTaskAssigned,
		Channel:   domain.ChannelInApp,
		Title:     "Новая задача",
		Message:   "Вам назначена задача",
		CreatedAt: createdAt,
	}
}

func fastConfig(maxDuration time.Duration) Config {
	return Config{
		PollInterval:      10 * time.Millisecond,
		HeartbeatInterval: 25 * time.Millisecond,
		MaxDuration:       maxDuration,
	}
}

func TestStream_TimeoutEndsWithDisconnected(t *testing.T) {
	userID := uuid.New()
	w := &recordingWriter{}
	s := NewStreamer(&fakeSource{}, nil, fastConfig(80*time.Millisecond))

	err := s.Stream(context.Background(), userID, w)
	require.NoError(t, err)

	connected := w.named(EventConnected)
	require.Len(t, connected, 1)
	assert.Equal(t, userID, connected[0].data.(connectedEvent).UserID)
	assert.Equal(t, EventConnected, w.events[0].name)

	assert.NotEmpty(t, w.named(EventHeartbeat))

	disconnected := w.named(EventDisconnected)
	require.Len(t, disconnected, 1)
	assert.Equal(t, "timeout", disconnected[0].data.(disconnectedEvent).Reason)
	assert.Equal(t, EventDisconnected, w.events[len(w.events)-1].name)
}

func TestStream_ClientCancelIsClosed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := &recordingWriter{}
	s := NewStreamer(&fakeSource{}, nil, fastConfig(time.Minute))

	done := make(chan error, 1)
	go func() { done <- s.Stream(ctx, uuid.New(), w) }()

	require.Eventually(t, func() bool { return len(w.named(EventConnected)) == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("stream did not stop after cancel")
	}
	disconnected := w.named(EventDisconnected)
	require.Len(t, disconnected, 1)
	assert.Equal(t, "closed", disconnected[0].data.(disconnectedEvent).Reason)
}

func TestStream_PollDeliversEachNotificationOnce(t *testing.T) {
	userID := uuid.New()
	source := &fakeSource{}
	start := time.Now()
	first := newNotification(userID, start.Add(time.Second))
	second := newNotification(userID, start.Add(2*time.Second))
	other := newNotification(uuid.New(), start.Add(time.Second))
	source.add(first)
	source.add(other)

	w := &recordingWriter{}
	s := NewStreamer(source, nil, fastConfig(150*time.Millisecond))

	done := make(chan error, 1)
	go func() { done <- s.Stream(context.Background(), userID, w) }()

	require.Eventually(t, func() bool { return len(w.named(EventNotification)) == 1 }, time.Second, 5*time.Millisecond)
	source.add(second)
	require.NoError(t, <-done)

	got := w.named(EventNotification)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].data.(domain.Notification).ID)
	assert.Equal(t, second.ID, got[1].data.(domain.Notification).ID)
}

func TestStream_PollToleratesClockAheadOfDatabase(t *testing.T) {
	userID := uuid.New()
	source := &fakeSource{}
	// Stamped by a database clock two seconds behind the app clock.
	lagging := newNotification(userID, time.Now().Add(-2*time.Second))
	stale := newNotification(userID, time.Now().Add(-time.Minute))

	w := &recordingWriter{}
	s := NewStreamer(source, nil, fastConfig(150*time.Millisecond))

	done := make(chan error, 1)
	go func() { done <- s.Stream(context.Background(), userID, w) }()

	require.Eventually(t, func() bool { return len(w.named(EventConnected)) == 1 }, time.Second, 5*time.Millisecond)
	source.add(lagging)
	source.add(stale)
	require.NoError(t, <-done)

	got := w.named(EventNotification)
	require.Len(t, got, 1)
	assert.Equal(t, lagging.ID, got[0].data.(domain.Notification).ID)
}

func TestStream_PushedAndPolledAreDeduplicated(t *testing.T) {
	userID := uuid.New()
	source := &fakeSource{}
	broker := NewMemoryBroker()
	w := &recordingWriter{}
	s := NewStreamer(source, broker, fastConfig(150*time.Millisecond))

	done := make(chan error, 1)
	go func() { done <- s.Stream(context.Background(), userID, w) }()

	require.Eventually(t, func() bool {
		broker.mu.RLock()
		defer broker.mu.RUnlock()
		return len(broker.subs[userID]) == 1
	}, time.Second, 5*time.Millisecond)

	n := newNotification(userID, time.Now().Add(time.Second))
	require.NoError(t, broker.Publish(context.Background(), &n))
	source.add(n)

	require.NoError(t, <-done)
	assert.Len(t, w.named(EventNotification), 1)

	broker.mu.RLock()
	defer broker.mu.RUnlock()
	assert.Empty(t, broker.subs, "subscription must be released when the stream ends")
}

func TestStream_PollErrorKeepsStreamOpen(t *testing.T) {
	source := &fakeSource{err: errors.New("db down")}
	w := &recordingWriter{}
	s := NewStreamer(source, nil, fastConfig(60*time.Millisecond))

	require.NoError(t, s.Stream(context.Background(), uuid.New(), w))
	assert.Len(t, w.named(EventDisconnected), 1)
}

func TestStream_WriterFailureIsReturned(t *testing.T) {
	w := &recordingWriter{failOn: EventHeartbeat}
	s := NewStreamer(&fakeSource{}, nil, fastConfig(time.Minute))

	err := s.Stream(context.Background(), uuid.New(), w)
	require.Error(t, err)
	disconnected := w.named(EventDisconnected)
	require.Len(t, disconnected, 1)
	assert.Equal(t, "error", disconnected[0].data.(disconnectedEvent).Reason)
}

func TestSeenSet_EvictsOldest(t *testing.T) {
	set := newSeenSet(2)
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	assert.True(t, set.add(a))
	assert.False(t, set.add(a))
	assert.True(t, set.add(b))
	assert.True(t, set.add(c))
	assert.True(t, set.add(a), "oldest id is forgotten once the set is full")
	assert.False(t, set.add(c))
}

func TestSSEWriter_Format(t *testing.T) {
	var buf bytes.Buffer
	w := NewSSEWriter(bufio.NewWriter(&buf))

	require.NoError(t, w.WriteEvent(EventHeartbeat, map[string]int{"n": 1}))
	require.NoError(t, w.WriteEvent(EventDisconnected, map[string]string{"reason": "timeout"}))

	assert.Equal(t,
		"event: heartbeat\ndata: {\"n\":1}\n\n"+
			"event: disconnected\ndata: {\"reason\":\"timeout\"}\n\n",
		buf.String())
}

func TestSSEWriter_MarshalError(t *testing.T) {
	var buf bytes.Buffer
	w := NewSSEWriter(bufio.NewWriter(&buf))

	err := w.WriteEvent(EventNotification, make(chan int))
	require.Error(t, err)
	assert.Empty(t, buf.String())
}
