package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ellieayla/logstash-output-loginsight/internal/domain"
	"github.com/ellieayla/logstash-output-loginsight/internal/ports"
	"github.com/ellieayla/logstash-output-loginsight/pkg/cfapi"
	"github.com/ellieayla/logstash-output-loginsight/pkg/event"
)

const testURL = "https://li.example.com:9543/api/v1/events/ingest/0"

// mockTransport records deliveries for testing.
type mockTransport struct {
	mu         sync.Mutex
	deliveries []ports.Delivery
	failures   int
	err        error
	block      chan struct{}
}

func (m *mockTransport) Deliver(ctx context.Context, d ports.Delivery) error {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries = append(m.deliveries, d)
	if m.failures > 0 {
		m.failures--
		return m.err
	}
	return nil
}

func (m *mockTransport) Deliveries() []ports.Delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.Delivery{}, m.deliveries...)
}

// mockDeliveryEmitter counts dispatcher notifications.
type mockDeliveryEmitter struct {
	mu        sync.Mutex
	accepted  int
	rejected  []error
	delivered []string
	failed    []string
}

func (m *mockDeliveryEmitter) OnEventAccepted(pending int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accepted++
}

func (m *mockDeliveryEmitter) OnEventRejected(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected = append(m.rejected, err)
}

func (m *mockDeliveryEmitter) OnBatchDelivered(batchID string, events, bytes int, duration time.Duration, pending int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delivered = append(m.delivered, batchID)
}

func (m *mockDeliveryEmitter) OnBatchFailed(batchID string, err error, events, pending int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = append(m.failed, batchID)
}

type wireEnvelope struct {
	Events []struct {
		Timestamp int64  `json:"timestamp"`
		Text      string `json:"text"`
		Fields    []struct {
			Name    string `json:"name"`
			Content any    `json:"content"`
		} `json:"fields"`
	} `json:"events"`
}

func texts(t *testing.T, d ports.Delivery) []string {
	t.Helper()
	var env wireEnvelope
	if err := json.Unmarshal(d.Body, &env); err != nil {
		t.Fatalf("body is not an envelope: %v: %s", err, d.Body)
	}
	out := make([]string, len(env.Events))
	for i, e := range env.Events {
		out[i] = e.Text
	}
	return out
}

func testEvent(msg string) *event.Event {
	return event.New(event.NewObject().
		Set(event.TimestampKey, event.String("2024-01-02T03:04:05.678Z")).
		Set(event.MessageKey, event.String(msg)))
}

func startDispatcher(t *testing.T, cfg DispatcherConfig, tr ports.Transport, em DeliveryEmitter) (*Dispatcher, context.CancelFunc) {
	t.Helper()
	if cfg.URL == "" {
		cfg.URL = testURL
	}
	d := NewDispatcher(cfg, cfapi.NewEncoder(), tr, &mockLogger{}, em)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = d.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-d.Done()
	})
	return d, cancel
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDispatcher_FlushCountFollowsBatchSize(t *testing.T) {
	tests := []struct {
		events   int
		maxItems int
	}{
		{0, 3},
		{1, 3},
		{3, 3},
		{7, 3},
		{10, 1},
		{250, 100},
		{99, 100},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d events by %d", tt.events, tt.maxItems), func(t *testing.T) {
			tr := &mockTransport{}
			d, _ := startDispatcher(t, DispatcherConfig{MaxItems: tt.maxItems, MaxInterval: time.Hour}, tr, nil)

			ctx := context.Background()
			for i := 0; i < tt.events; i++ {
				if err := d.Receive(ctx, testEvent(fmt.Sprint(i))); err != nil {
					t.Fatalf("Receive() error = %v", err)
				}
			}
			if err := d.Flush(ctx); err != nil {
				t.Fatalf("Flush() error = %v", err)
			}

			deliveries := tr.Deliveries()
			want := (tt.events + tt.maxItems - 1) / tt.maxItems
			if len(deliveries) != want {
				t.Fatalf("got %d deliveries, want %d", len(deliveries), want)
			}

			next := 0
			for _, del := range deliveries {
				got := texts(t, del)
				if len(got) > tt.maxItems {
					t.Errorf("batch of %d events exceeds %d", len(got), tt.maxItems)
				}
				if del.Events != len(got) {
					t.Errorf("Delivery.Events = %d, body has %d", del.Events, len(got))
				}
				for _, text := range got {
					if text != fmt.Sprint(next) {
						t.Fatalf("event %q out of order, want %d", text, next)
					}
					next++
				}
			}
			if next != tt.events {
				t.Errorf("delivered %d events, want %d", next, tt.events)
			}
		})
	}
}

func TestDispatcher_TimerFlush(t *testing.T) {
	tr := &mockTransport{}
	d, _ := startDispatcher(t, DispatcherConfig{MaxItems: 100, MaxInterval: 20 * time.Millisecond}, tr, nil)

	for _, msg := range []string{"a", "b", "c"} {
		if err := d.Receive(context.Background(), testEvent(msg)); err != nil {
			t.Fatalf("Receive() error = %v", err)
		}
	}

	waitFor(t, "timer flush", func() bool { return len(tr.Deliveries()) == 1 })

	got := texts(t, tr.Deliveries()[0])
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("delivered %v, want [a b c]", got)
	}
	if d.Pending() != 0 {
		t.Errorf("Pending() = %d after timer flush, want 0", d.Pending())
	}
}

func TestDispatcher_ShutdownFlush(t *testing.T) {
	tr := &mockTransport{}
	d, cancel := startDispatcher(t, DispatcherConfig{MaxItems: 100, MaxInterval: time.Hour}, tr, nil)

	for i := 0; i < 5; i++ {
		if err := d.Receive(context.Background(), testEvent(fmt.Sprint(i))); err != nil {
			t.Fatalf("Receive() error = %v", err)
		}
	}

	cancel()
	select {
	case <-d.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}

	deliveries := tr.Deliveries()
	if len(deliveries) != 1 || len(texts(t, deliveries[0])) != 5 {
		t.Fatalf("deliveries = %d, want one batch of 5", len(deliveries))
	}

	if err := d.Receive(context.Background(), testEvent("late")); !errors.Is(err, domain.ErrClosed) {
		t.Errorf("Receive() after shutdown error = %v, want ErrClosed", err)
	}
	if err := d.Flush(context.Background()); !errors.Is(err, domain.ErrClosed) {
		t.Errorf("Flush() after shutdown error = %v, want ErrClosed", err)
	}
}

func TestDispatcher_MalformedEventIsIsolated(t *testing.T) {
	tr := &mockTransport{}
	em := &mockDeliveryEmitter{}
	d, _ := startDispatcher(t, DispatcherConfig{MaxItems: 10, MaxInterval: time.Hour}, tr, em)
	ctx := context.Background()

	if err := d.Receive(ctx, testEvent("first")); err != nil {
		t.Fatalf("Receive() error = %v", err)
	}

	bad := event.New(event.NewObject().Set(event.MessageKey, event.String("no timestamp")))
	err := d.Receive(ctx, bad)
	var malformed *cfapi.MalformedEventError
	if !errors.As(err, &malformed) {
		t.Fatalf("Receive() error = %v, want *MalformedEventError", err)
	}

	if err := d.Receive(ctx, testEvent("second")); err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if err := d.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	got := texts(t, tr.Deliveries()[0])
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("delivered %v, want [first second]", got)
	}

	em.mu.Lock()
	defer em.mu.Unlock()
	if em.accepted != 2 || len(em.rejected) != 1 {
		t.Errorf("accepted = %d rejected = %d, want 2 and 1", em.accepted, len(em.rejected))
	}
}

func TestDispatcher_FailedBatchIsDropped(t *testing.T) {
	errRemote := errors.New("remote said no")
	tr := &mockTransport{failures: 1, err: errRemote}
	em := &mockDeliveryEmitter{}
	d, _ := startDispatcher(t, DispatcherConfig{MaxItems: 10, MaxInterval: time.Hour}, tr, em)
	ctx := context.Background()

	_ = d.Receive(ctx, testEvent("lost"))
	if err := d.Flush(ctx); !errors.Is(err, errRemote) {
		t.Fatalf("Flush() error = %v, want %v", err, errRemote)
	}

	_ = d.Receive(ctx, testEvent("kept"))
	if err := d.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	deliveries := tr.Deliveries()
	if len(deliveries) != 2 {
		t.Fatalf("got %d deliveries, want 2", len(deliveries))
	}
	if got := texts(t, deliveries[1]); len(got) != 1 || got[0] != "kept" {
		t.Errorf("second delivery = %v, want [kept]", got)
	}

	em.mu.Lock()
	defer em.mu.Unlock()
	if len(em.failed) != 1 || len(em.delivered) != 1 {
		t.Errorf("failed = %d delivered = %d, want 1 and 1", len(em.failed), len(em.delivered))
	}
}

func TestDispatcher_ConcurrentReceivers(t *testing.T) {
	const workers, perWorker = 8, 50

	tr := &mockTransport{}
	d, _ := startDispatcher(t, DispatcherConfig{MaxItems: 7, MaxInterval: 5 * time.Millisecond}, tr, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if err := d.Receive(ctx, testEvent(fmt.Sprintf("%d:%d", w, i))); err != nil {
					t.Errorf("Receive() error = %v", err)
				}
			}
		}(w)
	}
	wg.Wait()

	if err := d.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	seen := make(map[string]bool)
	last := make(map[int]int)
	for w := 0; w < workers; w++ {
		last[w] = -1
	}
	for _, del := range tr.Deliveries() {
		for _, text := range texts(t, del) {
			if seen[text] {
				t.Fatalf("event %s delivered twice", text)
			}
			seen[text] = true

			var w, i int
			if _, err := fmt.Sscanf(text, "%d:%d", &w, &i); err != nil {
				t.Fatalf("bad text %q", text)
			}
			if i != last[w]+1 {
				t.Fatalf("worker %d event %d follows %d", w, i, last[w])
			}
			last[w] = i
		}
	}
	if len(seen) != workers*perWorker {
		t.Errorf("delivered %d distinct events, want %d", len(seen), workers*perWorker)
	}
}

func TestDispatcher_State(t *testing.T) {
	tr := &mockTransport{block: make(chan struct{})}
	d, _ := startDispatcher(t, DispatcherConfig{MaxItems: 2, MaxInterval: time.Hour}, tr, nil)
	ctx := context.Background()

	if got := d.State(); got != DispatchIdle {
		t.Errorf("State() = %v, want Idle", got)
	}

	_ = d.Receive(ctx, testEvent("one"))
	if got := d.State(); got != DispatchAccumulating {
		t.Errorf("State() = %v, want Accumulating", got)
	}

	_ = d.Receive(ctx, testEvent("two"))
	waitFor(t, "flushing state", func() bool { return d.State() == DispatchFlushing })

	// events keep arriving while the batch is in flight
	if err := d.Receive(ctx, testEvent("three")); err != nil {
		t.Fatalf("Receive() during flush error = %v", err)
	}

	close(tr.block)
	waitFor(t, "first delivery", func() bool { return len(tr.Deliveries()) == 1 })
	waitFor(t, "accumulating state", func() bool { return d.State() == DispatchAccumulating })

	if got := texts(t, tr.Deliveries()[0]); len(got) != 2 {
		t.Errorf("first batch = %v, want two events", got)
	}
}

func TestDispatcher_DeliveryMetadata(t *testing.T) {
	tr := &mockTransport{}
	d, _ := startDispatcher(t, DispatcherConfig{MaxItems: 1, MaxInterval: time.Hour}, tr, nil)
	ctx := context.Background()

	_ = d.Receive(ctx, testEvent("a"))
	_ = d.Receive(ctx, testEvent("b"))
	if err := d.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	deliveries := tr.Deliveries()
	if len(deliveries) != 2 {
		t.Fatalf("got %d deliveries, want 2", len(deliveries))
	}
	if deliveries[0].URL != testURL {
		t.Errorf("URL = %q, want %q", deliveries[0].URL, testURL)
	}
	if deliveries[0].RequestID == "" || deliveries[0].RequestID == deliveries[1].RequestID {
		t.Errorf("request ids %q and %q should be distinct and set", deliveries[0].RequestID, deliveries[1].RequestID)
	}
}

// gateTransport reports when a delivery starts and holds it until release
// is closed or the delivery context ends.
type gateTransport struct {
	started chan struct{}
	release chan struct{}
	mockTransport
}

func (g *gateTransport) Deliver(ctx context.Context, d ports.Delivery) error {
	select {
	case g.started <- struct{}{}:
	default:
	}
	select {
	case <-g.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return g.mockTransport.Deliver(ctx, d)
}

func TestDispatcher_CancelDoesNotAbortInFlightDelivery(t *testing.T) {
	tr := &gateTransport{started: make(chan struct{}, 1), release: make(chan struct{})}
	em := &mockDeliveryEmitter{}
	d, cancel := startDispatcher(t, DispatcherConfig{MaxItems: 1, MaxInterval: time.Hour}, tr, em)

	if err := d.Receive(context.Background(), testEvent("in-flight")); err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	select {
	case <-tr.started:
	case <-time.After(2 * time.Second):
		t.Fatal("delivery never started")
	}

	cancel()
	time.Sleep(50 * time.Millisecond)
	close(tr.release)

	select {
	case <-d.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}

	deliveries := tr.Deliveries()
	if len(deliveries) != 1 {
		t.Fatalf("got %d deliveries, want 1", len(deliveries))
	}
	if got := texts(t, deliveries[0]); len(got) != 1 || got[0] != "in-flight" {
		t.Errorf("delivered %v, want [in-flight]", got)
	}
	em.mu.Lock()
	defer em.mu.Unlock()
	if len(em.failed) != 0 {
		t.Errorf("got %d failed batches, want 0", len(em.failed))
	}
	if len(em.delivered) != 1 {
		t.Errorf("got %d delivered batches, want 1", len(em.delivered))
	}
}

func TestDispatcher_ReceiveCanceledContext(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{URL: testURL}, cfapi.NewEncoder(), &mockTransport{}, &mockLogger{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := d.Receive(ctx, testEvent("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("Receive() error = %v, want context.Canceled", err)
	}
	if d.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", d.Pending())
	}
}

func TestDispatchState_String(t *testing.T) {
	tests := []struct {
		state DispatchState
		want  string
	}{
		{DispatchIdle, "Idle"},
		{DispatchAccumulating, "Accumulating"},
		{DispatchFlushing, "Flushing"},
		{DispatchState(9), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String() = %s, want %s", got, tt.want)
		}
	}
}
