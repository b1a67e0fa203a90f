package main

import (
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/gorilla/websocket"

    "eldtrip/internal/api"
)

// The middleware chain wraps every ResponseWriter; the wrapper must still
// support hijacking or WebSocket upgrades fail with a 500.
func TestWebSocketUpgradeThroughMiddleware(t *testing.T) {
    srvDeps, err := api.NewServer()
    if err != nil { t.Fatalf("NewServer: %v", err) }
    ts := httptest.NewServer(newHandler(srvDeps))
    defer ts.Close()

    url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/ws"
    conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
    if err != nil {
        code := 0
        if resp != nil { code = resp.StatusCode }
        t.Fatalf("dial %s: %v (http status %d)", url, err, code)
    }
    defer func() { _ = conn.Close() }()

    if err := conn.WriteJSON(map[string]string{"type": "connection_init"}); err != nil {
        t.Fatalf("write connection_init: %v", err)
    }
    var msg struct {
        Type string `json:"type"`
    }
    if err := conn.ReadJSON(&msg); err != nil {
        t.Fatalf("read ack: %v", err)
    }
    if msg.Type != "connection_ack" {
        t.Fatalf("got %q, want connection_ack", msg.Type)
    }
}

func TestMetricPath(t *testing.T) {
    cases := map[string]string{
        "/v1/trips":                          "/v1/trips",
        "/v1/trips/abc123/logs/2":            "/v1/trips/{id}",
        "/v1/subscriptions/s1":               "/v1/subscriptions/{id}",
        "/v1/admin/webhook-deliveries/d1/retry": "/v1/admin/webhook-deliveries/{id}",
        "/healthz":                           "/healthz",
    }
    for in, want := range cases {
        if got := metricPath(in); got != want {
            t.Fatalf("metricPath(%q) = %q, want %q", in, got, want)
        }
    }
}
