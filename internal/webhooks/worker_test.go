package webhooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"eldtrip/internal/model"
	"eldtrip/internal/store"
)

func subReq(tenant, url, event string) model.SubscriptionRequest {
	return model.SubscriptionRequest{TenantID: tenant, URL: url, Events: []string{event}, Secret: "s"}
}

type recordStore struct {
	*store.Memory
	mu    sync.Mutex
	marks []markRec
	fails []failRec
}
type markRec struct {
	ID            string
	Success       bool
	Code, Latency int
	LastErr       string
}
type failRec struct {
	ID            string
	Code, Latency int
	LastErr       string
}

func (r *recordStore) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	r.mu.Lock()
	r.marks = append(r.marks, markRec{ID: id, Success: success, Code: responseCode, Latency: latencyMs, LastErr: lastError})
	r.mu.Unlock()
	return r.Memory.MarkWebhookDelivery(ctx, id, success, nextAttemptAt, lastError, responseCode, latencyMs)
}
func (r *recordStore) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	r.mu.Lock()
	r.fails = append(r.fails, failRec{ID: id, Code: responseCode, Latency: latencyMs, LastErr: lastError})
	r.mu.Unlock()
	return r.Memory.FailWebhookDelivery(ctx, id, lastError, responseCode, latencyMs)
}

func TestWorkerProcessOnce_SuccessAndSignature(t *testing.T) {
	var gotSig, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Signature")
		gotType = r.Header.Get("X-Event-Type")
		w.WriteHeader(200)
	}))
	defer srv.Close()

	rs := &recordStore{Memory: store.NewMemory()}
	w := &Worker{Store: rs, HTTP: srv.Client(), Stop: make(chan struct{}), MaxAttempts: 3}
	id, err := rs.Memory.EnqueueWebhook(context.Background(), "t1", "", EventTripPlanned, srv.URL, "secret", []byte(`{"id":"evt1"}`))
	if err != nil || id == "" {
		t.Fatalf("enqueue failed: %v", err)
	}

	w.processOnce()

	if gotSig == "" || gotType != EventTripPlanned {
		t.Fatalf("missing signature/type headers: sig=%q type=%q", gotSig, gotType)
	}
	if !VerifyHMAC("secret", []byte(`{"id":"evt1"}`), gotSig) {
		t.Fatalf("signature does not verify: %q", gotSig)
	}
	if len(rs.marks) == 0 || !rs.marks[0].Success {
		t.Fatalf("expected mark success, got: %+v", rs.marks)
	}
}

func TestWorkerProcessOnce_FailAfterMaxAttempts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(500) }))
	defer srv.Close()
	rs := &recordStore{Memory: store.NewMemory()}
	w := &Worker{Store: rs, HTTP: srv.Client(), Stop: make(chan struct{}), MaxAttempts: 1}
	_, _ = rs.Memory.EnqueueWebhook(context.Background(), "t1", "", EventHOSViolation, srv.URL, "", []byte(`{}`))
	w.processOnce()
	if len(rs.fails) == 0 {
		t.Fatalf("expected fail recorded")
	}
}

func TestPublisherEmitEnqueuesPerSubscription(t *testing.T) {
	m := store.NewMemory()
	p := NewPublisher(m)
	for _, url := range []string{"https://a.example/hook", "https://b.example/hook"} {
		if _, err := m.CreateSubscription(context.Background(), subReq("t1", url, EventTripPlanned)); err != nil {
			t.Fatalf("CreateSubscription: %v", err)
		}
	}
	p.Emit(context.Background(), "t1", EventTripPlanned, map[string]any{"tripId": "abc"})

	due, err := m.FetchDueWebhookDeliveries(context.Background(), 10)
	if err != nil || len(due) != 2 {
		t.Fatalf("want 2 queued deliveries, got %d (%v)", len(due), err)
	}
}

func TestPublisherEmitSkipsUnmatchedEvent(t *testing.T) {
	m := store.NewMemory()
	p := NewPublisher(m)
	if _, err := m.CreateSubscription(context.Background(), subReq("t1", "https://a.example/hook", EventTripDeleted)); err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}
	p.Emit(context.Background(), "t1", EventTripPlanned, nil)
	due, _ := m.FetchDueWebhookDeliveries(context.Background(), 10)
	if len(due) != 0 {
		t.Fatalf("unmatched event should enqueue nothing, got %v", due)
	}
}

func TestNextBackoffCapsAtOneHour(t *testing.T) {
	if d := nextBackoff(0); d != time.Second {
		t.Fatalf("attempt 0: want 1s, got %v", d)
	}
	if d := nextBackoff(3); d != 8*time.Second {
		t.Fatalf("attempt 3: want 8s, got %v", d)
	}
	if d := nextBackoff(20); d != time.Hour {
		t.Fatalf("large attempt: want 1h cap, got %v", d)
	}
}
