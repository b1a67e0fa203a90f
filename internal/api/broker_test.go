package api

import (
    "testing"
    "time"
)

func TestBrokerPublishSubscribe(t *testing.T) {
    b := NewBroker()
    tid := "trip1"
    ch := b.Subscribe(tid)
    defer func() { recover() }() // ignore close panic if already closed

    evt := SSEEvent{Type: "trip.planned", Data: map[string]any{"tripId": tid}}
    b.Publish(tid, evt)

    select {
    case got := <-ch:
        if got.Type != evt.Type { t.Fatalf("got type %s, want %s", got.Type, evt.Type) }
        if got.Data["tripId"].(string) != tid { t.Fatalf("bad payload: %+v", got.Data) }
    case <-time.After(200 * time.Millisecond):
        t.Fatal("timeout waiting for event")
    }

    b.Unsubscribe(tid, ch)
    select {
    case _, ok := <-ch:
        if ok { t.Fatal("channel should be closed after unsubscribe") }
    case <-time.After(50 * time.Millisecond):
        // acceptable if already drained and closed
    }
}

func TestBrokerDropsWhenSubscriberSlow(t *testing.T) {
    b := NewBroker()
    ch := b.Subscribe("trip2")
    // Fill the buffered channel; further publishes must not block.
    for i := 0; i < 20; i++ {
        b.Publish("trip2", SSEEvent{Type: "heartbeat"})
    }
    if len(ch) == 0 { t.Fatal("expected buffered events") }
    b.Unsubscribe("trip2", ch)
}
