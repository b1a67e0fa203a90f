package store

import (
    "context"
    "errors"
    "time"

    "eldtrip/internal/eld"
    "eldtrip/internal/hos"
    "eldtrip/internal/model"
)

// Store is the persistence interface used by the API server.
type Store interface {
    // Trips
    CreateTrip(ctx context.Context, trip model.Trip) (model.Trip, error)
    ListTrips(ctx context.Context, tenantID, cursor string, limit int) ([]model.TripOut, string, error)
    GetTrip(ctx context.Context, tenantID, id string) (model.Trip, error)
    DeleteTrip(ctx context.Context, tenantID, id string) error

    // ELD logs
    GetTripLogs(ctx context.Context, tenantID, tripID string) ([]eld.DailyLog, error)
    GetTripLogDay(ctx context.Context, tenantID, tripID string, day int) (eld.DailyLog, error)

    // Cycle tracking: daily summaries across trips since a date
    RecentDailySummaries(ctx context.Context, tenantID string, since time.Time) ([]hos.DailySummary, error)

    // HOS rule overrides per tenant (nil config means no override)
    GetHOSConfig(ctx context.Context, tenantID string) (*hos.Config, error)
    SaveHOSConfig(ctx context.Context, tenantID string, cfg hos.Config) error

    // Subscriptions
    CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
    GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error)
    ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error)
    DeleteSubscription(ctx context.Context, tenantID, id string) error

    // Webhook deliveries
    EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
    FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
    MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
    FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error
    ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]map[string]any, string, error)
    RetryWebhookDelivery(ctx context.Context, tenantID, id string) error

    // Health
    Ping(ctx context.Context) error
}

var ErrNotFound = errors.New("not found")

// WebhookDelivery is one queued webhook attempt record.
type WebhookDelivery struct {
    ID             string
    TenantID       string
    SubscriptionID string
    EventType      string
    URL            string
    Secret         string
    Payload        []byte
    Status         string
    Attempts       int
}
