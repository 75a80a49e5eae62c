package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ellieayla/logstash-output-loginsight/pkg/log"
	"github.com/ellieayla/logstash-output-loginsight/pkg/loginsight"
)

type countingHandler struct {
	loginsight.BaseEventHandler
	calls int
}

func (c *countingHandler) OnAccept(loginsight.AcceptEvent)                   { c.calls++ }
func (c *countingHandler) OnReject(loginsight.RejectEvent)                   { c.calls++ }
func (c *countingHandler) OnDeliverySuccess(loginsight.DeliverySuccessEvent) { c.calls++ }
func (c *countingHandler) OnDeliveryError(loginsight.DeliveryErrorEvent)     { c.calls++ }
func (c *countingHandler) OnStateChange(loginsight.StateChangeEvent)         { c.calls++ }

// Collectors are process-wide, so tests compare deltas.
func TestHandler_Counters(t *testing.T) {
	next := &countingHandler{}
	h := NewHandler(next)

	accepted := testutil.ToFloat64(EventsReceived.WithLabelValues(ResultAccepted))
	rejected := testutil.ToFloat64(EventsReceived.WithLabelValues(ResultRejected))
	success := testutil.ToFloat64(Batches.WithLabelValues(ResultSuccess))
	failure := testutil.ToFloat64(Batches.WithLabelValues(ResultFailure))
	delivered := testutil.ToFloat64(EventsDelivered)
	dropped := testutil.ToFloat64(EventsDropped)
	bytes := testutil.ToFloat64(DeliveredBytes)

	h.OnAccept(loginsight.AcceptEvent{Pending: 1})
	h.OnAccept(loginsight.AcceptEvent{Pending: 2})
	h.OnReject(loginsight.RejectEvent{Error: errors.New("bad")})
	h.OnDeliverySuccess(loginsight.DeliverySuccessEvent{BatchID: "a", Events: 2, Bytes: 120, Duration: 10 * time.Millisecond, Pending: 0})
	h.OnAccept(loginsight.AcceptEvent{Pending: 1})
	h.OnDeliveryError(loginsight.DeliveryErrorEvent{BatchID: "b", Error: errors.New("500"), Events: 1, Pending: 0})
	h.OnStateChange(loginsight.StateChangeEvent{Previous: loginsight.StateStarting, Current: loginsight.StateRunning})

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"accepted", testutil.ToFloat64(EventsReceived.WithLabelValues(ResultAccepted)) - accepted, 3},
		{"rejected", testutil.ToFloat64(EventsReceived.WithLabelValues(ResultRejected)) - rejected, 1},
		{"batches success", testutil.ToFloat64(Batches.WithLabelValues(ResultSuccess)) - success, 1},
		{"batches failure", testutil.ToFloat64(Batches.WithLabelValues(ResultFailure)) - failure, 1},
		{"events delivered", testutil.ToFloat64(EventsDelivered) - delivered, 2},
		{"events dropped", testutil.ToFloat64(EventsDropped) - dropped, 1},
		{"bytes", testutil.ToFloat64(DeliveredBytes) - bytes, 120},
		{"state", testutil.ToFloat64(ForwarderState), float64(loginsight.StateRunning)},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	if next.calls != 7 {
		t.Errorf("next handler calls = %d, want 7", next.calls)
	}
}

func TestHandler_NilNext(t *testing.T) {
	h := NewHandler(nil)
	before := testutil.ToFloat64(EventsReceived.WithLabelValues(ResultAccepted))
	h.OnAccept(loginsight.AcceptEvent{Pending: 5})
	if got := testutil.ToFloat64(EventsReceived.WithLabelValues(ResultAccepted)) - before; got != 1 {
		t.Errorf("accepted = %v, want 1", got)
	}
}

func TestEventsPending_ReadsSource(t *testing.T) {
	t.Cleanup(func() { SetPendingSource(func() int { return 0 }) })

	pending := 7
	SetPendingSource(func() int { return pending })
	if got := testutil.ToFloat64(EventsPending); got != 7 {
		t.Errorf("pending = %v, want 7", got)
	}

	// no handler call in between: the value follows the buffer
	pending = 0
	if got := testutil.ToFloat64(EventsPending); got != 0 {
		t.Errorf("pending = %v, want 0", got)
	}
}

func TestServer_Routes(t *testing.T) {
	EventsDelivered.Add(0)
	srv := httptest.NewServer(NewServer("127.0.0.1:0", log.NewNoopLogger()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(body), "loginsight_forward_events_delivered_total") {
		t.Error("metrics output missing loginsight_forward_events_delivered_total")
	}

	resp, err = http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", resp.StatusCode)
	}
}
