package store

import (
    "context"
    "sync"
    "time"

    "github.com/google/uuid"

    "eldtrip/internal/eld"
    "eldtrip/internal/hos"
    "eldtrip/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
    mu      sync.Mutex
    trips   map[string]model.Trip            // id -> trip
    byTen   map[string][]string              // tenant -> trip ids in creation order
    hosCfg  map[string]hos.Config            // tenant -> rule override
    subs    map[string][]model.Subscription  // tenant -> subscriptions
    // Webhooks queue state
    deliveries         map[string]*memDelivery
    deliveriesByTenant map[string][]string
}

func NewMemory() *Memory {
    return &Memory{
        trips:              map[string]model.Trip{},
        byTen:              map[string][]string{},
        hosCfg:             map[string]hos.Config{},
        subs:               map[string][]model.Subscription{},
        deliveries:         map[string]*memDelivery{},
        deliveriesByTenant: map[string][]string{},
    }
}

// memDelivery augments WebhookDelivery with scheduling/metrics
type memDelivery struct {
    WebhookDelivery
    NextAttemptAt time.Time
    LastError     string
    ResponseCode  int
    LatencyMs     int
    DeliveredAt   *time.Time
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) CreateTrip(ctx context.Context, trip model.Trip) (model.Trip, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    if trip.ID == "" { trip.ID = uuid.New().String() }
    now := time.Now().UTC()
    trip.CreatedAt = now
    trip.UpdatedAt = now
    m.trips[trip.ID] = trip
    m.byTen[trip.TenantID] = append(m.byTen[trip.TenantID], trip.ID)
    return trip, nil
}

func (m *Memory) ListTrips(ctx context.Context, tenantID, cursor string, limit int) ([]model.TripOut, string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    ids := m.byTen[tenantID]
    start := 0
    if cursor != "" {
        for i, id := range ids {
            if id == cursor { start = i + 1; break }
        }
    }
    if limit <= 0 { limit = 100 }
    out := []model.TripOut{}
    var next string
    for i := start; i < len(ids) && len(out) < limit; i++ {
        t := m.trips[ids[i]]
        out = append(out, model.TripOut{
            ID:                 t.ID,
            CurrentLocation:    t.CurrentLocation,
            PickupLocation:     t.PickupLocation,
            DropoffLocation:    t.DropoffLocation,
            TotalDistanceMiles: t.TotalDistanceMiles,
            EstimatedDays:      t.EstimatedDays,
            CreatedAt:          t.CreatedAt,
        })
        next = ids[i]
    }
    if len(out) < limit { next = "" }
    return out, next, nil
}

func (m *Memory) GetTrip(ctx context.Context, tenantID, id string) (model.Trip, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    t, ok := m.trips[id]
    if !ok || t.TenantID != tenantID { return model.Trip{}, ErrNotFound }
    return t, nil
}

func (m *Memory) DeleteTrip(ctx context.Context, tenantID, id string) error {
    m.mu.Lock(); defer m.mu.Unlock()
    t, ok := m.trips[id]
    if !ok || t.TenantID != tenantID { return ErrNotFound }
    delete(m.trips, id)
    ids := m.byTen[tenantID]
    out := make([]string, 0, len(ids))
    for _, v := range ids { if v != id { out = append(out, v) } }
    m.byTen[tenantID] = out
    return nil
}

func (m *Memory) GetTripLogs(ctx context.Context, tenantID, tripID string) ([]eld.DailyLog, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    t, ok := m.trips[tripID]
    if !ok || t.TenantID != tenantID { return nil, ErrNotFound }
    return append([]eld.DailyLog(nil), t.DailyLogs...), nil
}

func (m *Memory) GetTripLogDay(ctx context.Context, tenantID, tripID string, day int) (eld.DailyLog, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    t, ok := m.trips[tripID]
    if !ok || t.TenantID != tenantID { return eld.DailyLog{}, ErrNotFound }
    for _, log := range t.DailyLogs {
        if log.DayNumber == day { return log, nil }
    }
    return eld.DailyLog{}, ErrNotFound
}

func (m *Memory) RecentDailySummaries(ctx context.Context, tenantID string, since time.Time) ([]hos.DailySummary, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    out := []hos.DailySummary{}
    for _, id := range m.byTen[tenantID] {
        for _, day := range m.trips[id].DailySummaries {
            if !day.Date.Before(since) { out = append(out, day) }
        }
    }
    return out, nil
}

func (m *Memory) GetHOSConfig(ctx context.Context, tenantID string) (*hos.Config, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    if cfg, ok := m.hosCfg[tenantID]; ok { return &cfg, nil }
    return nil, nil
}

func (m *Memory) SaveHOSConfig(ctx context.Context, tenantID string, cfg hos.Config) error {
    m.mu.Lock(); defer m.mu.Unlock()
    m.hosCfg[tenantID] = cfg
    return nil
}

func (m *Memory) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    s := model.Subscription{ID: uuid.New().String(), TenantID: req.TenantID, URL: req.URL, Events: req.Events, Secret: req.Secret}
    m.subs[req.TenantID] = append(m.subs[req.TenantID], s)
    return s, nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    var out []model.Subscription
    for _, s := range m.subs[tenantID] {
        for _, e := range s.Events {
            if e == eventType { out = append(out, s); break }
        }
    }
    return out, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    list := m.subs[tenantID]
    start := 0
    if cursor != "" {
        for i := range list { if list[i].ID == cursor { start = i + 1; break } }
    }
    if limit <= 0 { limit = 100 }
    end := start + limit
    if end > len(list) { end = len(list) }
    items := append([]model.Subscription(nil), list[start:end]...)
    next := ""
    if end < len(list) { next = list[end-1].ID }
    return items, next, nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, tenantID, id string) error {
    m.mu.Lock(); defer m.mu.Unlock()
    arr := m.subs[tenantID]
    out := make([]model.Subscription, 0, len(arr))
    for _, s := range arr { if s.ID != id { out = append(out, s) } }
    m.subs[tenantID] = out
    return nil
}

func (m *Memory) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    id := uuid.New().String()
    d := &memDelivery{WebhookDelivery: WebhookDelivery{ID: id, TenantID: tenantID, SubscriptionID: subscriptionID, EventType: eventType, URL: url, Secret: secret, Payload: payload, Status: "pending"}, NextAttemptAt: time.Now()}
    m.deliveries[id] = d
    m.deliveriesByTenant[tenantID] = append(m.deliveriesByTenant[tenantID], id)
    return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    now := time.Now()
    out := []WebhookDelivery{}
    for _, id := range m.iterDeliveryIDs() {
        d := m.deliveries[id]
        if d == nil { continue }
        if (d.Status == "pending" || d.Status == "retry") && !d.NextAttemptAt.After(now) {
            out = append(out, d.WebhookDelivery)
            if limit > 0 && len(out) >= limit { break }
        }
    }
    return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
    m.mu.Lock(); defer m.mu.Unlock()
    d := m.deliveries[id]
    if d == nil { return nil }
    d.Attempts++
    d.ResponseCode = responseCode
    d.LatencyMs = latencyMs
    if success {
        d.Status = "delivered"
        now := time.Now()
        d.DeliveredAt = &now
    } else {
        d.Status = "retry"
        d.LastError = lastError
        if nextAttemptAt != nil { d.NextAttemptAt = *nextAttemptAt } else { d.NextAttemptAt = time.Now().Add(1 * time.Minute) }
    }
    return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
    m.mu.Lock(); defer m.mu.Unlock()
    d := m.deliveries[id]
    if d != nil {
        d.Status = "failed"
        d.LastError = lastError
        d.ResponseCode = responseCode
        d.LatencyMs = latencyMs
    }
    return nil
}

func (m *Memory) ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]map[string]any, string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    out := []map[string]any{}
    for _, id := range m.deliveriesByTenant[tenantID] {
        d := m.deliveries[id]
        if d == nil { continue }
        if status == "" || d.Status == status {
            item := map[string]any{"id": d.ID, "eventType": d.EventType, "status": d.Status, "attempts": d.Attempts, "url": d.URL}
            if !d.NextAttemptAt.IsZero() { item["nextAttemptAt"] = d.NextAttemptAt }
            if d.LastError != "" { item["lastError"] = d.LastError }
            out = append(out, item)
        }
    }
    return out, "", nil
}

func (m *Memory) RetryWebhookDelivery(ctx context.Context, tenantID, id string) error {
    m.mu.Lock(); defer m.mu.Unlock()
    d := m.deliveries[id]
    if d != nil && d.TenantID == tenantID {
        d.Status = "pending"
        d.NextAttemptAt = time.Now()
    }
    return nil
}

// helper: iterate delivery IDs by tenant order
func (m *Memory) iterDeliveryIDs() []string {
    ids := []string{}
    for _, lst := range m.deliveriesByTenant {
        ids = append(ids, lst...)
    }
    return ids
}
