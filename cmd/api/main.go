package main

import (
    "bufio"
    "errors"
    "log"
    "net"
    "net/http"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/prometheus/client_golang/prometheus/promhttp"
    "golang.org/x/time/rate"

    "eldtrip/internal/api"
    "eldtrip/internal/metrics"
)

func main() {
    srvDeps, err := api.NewServer()
    if err != nil {
        log.Fatalf("failed to init server: %v", err)
    }
    metrics.RegisterDefault()

    addr := ":8080"
    if v := os.Getenv("PORT"); v != "" {
        addr = ":" + v
    }

    srv := &http.Server{
        Addr:              addr,
        Handler:           newHandler(srvDeps),
        ReadHeaderTimeout: 5 * time.Second,
    }

    log.Printf("API listening on %s", addr)
    // Start webhook worker
    worker := srvDeps.NewWebhookWorker()
    worker.Start()
    if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
        log.Fatalf("server error: %v", err)
    }
}

// newHandler builds the route table and wraps it in the middleware chain.
func newHandler(srvDeps *api.Server) http.Handler {
    mux := http.NewServeMux()

    // Trips
    mux.HandleFunc("/v1/trips", srvDeps.TripsHandler)
    mux.HandleFunc("/v1/trips/", srvDeps.TripByIDHandler) // includes /logs, /logs/{day}, /events/stream

    // Planning preview and cycle tracking
    mux.HandleFunc("/v1/plan/preview", srvDeps.PreviewHandler)
    mux.HandleFunc("/v1/cycle/status", srvDeps.CycleStatusHandler)

    // HOS rule configuration
    mux.HandleFunc("/v1/hos/config", srvDeps.HOSConfigHandler)
    mux.HandleFunc("/v1/admin/hos/config", srvDeps.AdminHOSConfigHandler)

    // Webhook subscriptions and admin queue
    mux.HandleFunc("/v1/subscriptions", srvDeps.SubscriptionsHandler)
    mux.HandleFunc("/v1/subscriptions/", srvDeps.SubscriptionByIDHandler)
    mux.HandleFunc("/v1/admin/webhook-deliveries", srvDeps.WebhookDeliveriesHandler)
    mux.HandleFunc("/v1/admin/webhook-deliveries/", srvDeps.WebhookDeliveryRetryHandler)

    // WebSocket trip events
    mux.HandleFunc("/v1/ws", srvDeps.TripEventsWSHandler)

    // Health, docs, debug, metrics
    mux.HandleFunc("/healthz", srvDeps.HealthHandler)
    mux.HandleFunc("/readyz", srvDeps.ReadyHandler)
    mux.HandleFunc("/openapi.yaml", srvDeps.OpenAPIHandler)
    mux.HandleFunc("/docs", srvDeps.DocsHandler)
    mux.HandleFunc("/debugz", srvDeps.DebugJSON)
    mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

    return logMiddleware(metricsMiddleware(rateLimitMiddleware(mux)))
}

type statusWriter struct {
    http.ResponseWriter
    code int
}

func (w *statusWriter) WriteHeader(c int) { w.code = c; w.ResponseWriter.WriteHeader(c) }

func (w *statusWriter) Flush() {
    if f, ok := w.ResponseWriter.(http.Flusher); ok { f.Flush() }
}

// Hijack forwards to the wrapped writer so WebSocket upgrades work behind
// the middleware chain.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
    hj, ok := w.ResponseWriter.(http.Hijacker)
    if !ok { return nil, nil, errors.New("response writer does not support hijacking") }
    return hj.Hijack()
}

func logMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        start := time.Now()
        sw := &statusWriter{ResponseWriter: w, code: 200}
        next.ServeHTTP(sw, r)
        log.Printf("%s %s %s %d %v", r.RemoteAddr, r.Method, r.URL.Path, sw.code, time.Since(start))
    })
}

func metricsMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        start := time.Now()
        sw := &statusWriter{ResponseWriter: w, code: 200}
        next.ServeHTTP(sw, r)
        path := metricPath(r.URL.Path)
        status := strconv.Itoa(sw.code)
        metrics.HTTPRequests.WithLabelValues(r.Method, path, status).Inc()
        metrics.HTTPDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
    })
}

// metricPath collapses IDs so metric cardinality stays bounded.
func metricPath(p string) string {
    if strings.HasPrefix(p, "/v1/trips/") { return "/v1/trips/{id}" }
    if strings.HasPrefix(p, "/v1/subscriptions/") { return "/v1/subscriptions/{id}" }
    if strings.HasPrefix(p, "/v1/admin/webhook-deliveries/") { return "/v1/admin/webhook-deliveries/{id}" }
    return p
}

func rateLimitMiddleware(next http.Handler) http.Handler {
    rps := 50.0
    if v := os.Getenv("RATE_RPS"); v != "" {
        if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 { rps = f }
    }
    burst := 100
    if v := os.Getenv("RATE_BURST"); v != "" {
        if n, err := strconv.Atoi(v); err == nil && n > 0 { burst = n }
    }
    limiter := rate.NewLimiter(rate.Limit(rps), burst)
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if !limiter.Allow() {
            http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
            return
        }
        next.ServeHTTP(w, r)
    })
}
