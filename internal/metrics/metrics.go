package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
)

var (
    // Registry is the dedicated Prometheus registry for the API
    Registry = prometheus.NewRegistry()
    // HTTPRequests counts requests by method, path, and status
    HTTPRequests = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
        []string{"method", "path", "status"},
    )
    // HTTPDuration records request durations in seconds
    HTTPDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
        []string{"method", "path", "status"},
    )

    // TripPlans counts planning runs by outcome (ok, invalid, stuck, error)
    TripPlans = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "trip_plans_total", Help: "Trip planning runs by outcome."},
        []string{"outcome"},
    )
    // PlanDuration records planner wall time in seconds
    PlanDuration = prometheus.NewHistogram(
        prometheus.HistogramOpts{Name: "trip_plan_duration_seconds", Help: "Trip planner duration in seconds.", Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}},
    )
    // PlanStops tracks how many stops a plan produced
    PlanStops = prometheus.NewHistogram(
        prometheus.HistogramOpts{Name: "trip_plan_stops", Help: "Planned stops per trip.", Buckets: []float64{1, 2, 4, 8, 16, 32, 64}},
    )

    // WebhookDeliveries counts webhook delivery outcomes
    WebhookDeliveries = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by status."},
        []string{"status"},
    )
)

// RegisterDefault registers collectors to the service registry.
func RegisterDefault() {
    regOnce.Do(func() {
        Registry.MustRegister(HTTPRequests)
        Registry.MustRegister(HTTPDuration)
        Registry.MustRegister(TripPlans)
        Registry.MustRegister(PlanDuration)
        Registry.MustRegister(PlanStops)
        Registry.MustRegister(WebhookDeliveries)
        // Go/process collectors on our registry
        Registry.MustRegister(collectors.NewGoCollector())
        Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    })
}

var regOnce sync.Once
