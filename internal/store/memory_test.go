package store

import (
    "context"
    "errors"
    "testing"
    "time"

    "eldtrip/internal/eld"
    "eldtrip/internal/hos"
    "eldtrip/internal/model"
)

func seedTrip(t *testing.T, m *Memory, tenant string) model.Trip {
    t.Helper()
    trip := model.Trip{
        TenantID:           tenant,
        CurrentLocation:    "Chicago, IL",
        PickupLocation:     "Joliet, IL",
        DropoffLocation:    "Denver, CO",
        TotalDistanceMiles: 1000,
        EstimatedDays:      2,
        DailySummaries: []hos.DailySummary{
            {Date: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), DayNumber: 1, DrivingHours: 11, OnDutyHours: 12},
            {Date: time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), DayNumber: 2, DrivingHours: 7.2, OnDutyHours: 8.2},
        },
        DailyLogs: []eld.DailyLog{
            {Date: "2025-06-02", DayNumber: 1},
            {Date: "2025-06-03", DayNumber: 2},
        },
    }
    out, err := m.CreateTrip(context.Background(), trip)
    if err != nil { t.Fatalf("CreateTrip: %v", err) }
    return out
}

func TestMemoryTripCRUD(t *testing.T) {
    m := NewMemory()
    trip := seedTrip(t, m, "t_demo")
    if trip.ID == "" { t.Fatal("expected generated id") }
    if trip.CreatedAt.IsZero() { t.Fatal("expected created_at set") }

    got, err := m.GetTrip(context.Background(), "t_demo", trip.ID)
    if err != nil { t.Fatalf("GetTrip: %v", err) }
    if got.DropoffLocation != "Denver, CO" { t.Fatalf("unexpected trip: %+v", got) }

    if _, err := m.GetTrip(context.Background(), "t_other", trip.ID); !errors.Is(err, ErrNotFound) {
        t.Fatalf("cross-tenant read should be ErrNotFound, got %v", err)
    }

    if err := m.DeleteTrip(context.Background(), "t_demo", trip.ID); err != nil { t.Fatalf("DeleteTrip: %v", err) }
    if err := m.DeleteTrip(context.Background(), "t_demo", trip.ID); !errors.Is(err, ErrNotFound) {
        t.Fatalf("second delete should be ErrNotFound, got %v", err)
    }
}

func TestMemoryListTripsPagination(t *testing.T) {
    m := NewMemory()
    for i := 0; i < 5; i++ { seedTrip(t, m, "t_demo") }
    page1, next, err := m.ListTrips(context.Background(), "t_demo", "", 2)
    if err != nil { t.Fatalf("ListTrips: %v", err) }
    if len(page1) != 2 || next == "" { t.Fatalf("want 2 items and a cursor, got %d %q", len(page1), next) }
    page2, next2, err := m.ListTrips(context.Background(), "t_demo", next, 10)
    if err != nil { t.Fatalf("ListTrips page 2: %v", err) }
    if len(page2) != 3 || next2 != "" { t.Fatalf("want 3 items and no cursor, got %d %q", len(page2), next2) }
    if page1[0].ID == page2[0].ID { t.Fatal("pages overlap") }
}

func TestMemoryTripLogs(t *testing.T) {
    m := NewMemory()
    trip := seedTrip(t, m, "t_demo")

    logs, err := m.GetTripLogs(context.Background(), "t_demo", trip.ID)
    if err != nil { t.Fatalf("GetTripLogs: %v", err) }
    if len(logs) != 2 { t.Fatalf("want 2 logs, got %d", len(logs)) }

    day2, err := m.GetTripLogDay(context.Background(), "t_demo", trip.ID, 2)
    if err != nil { t.Fatalf("GetTripLogDay: %v", err) }
    if day2.Date != "2025-06-03" { t.Fatalf("unexpected day 2: %+v", day2) }

    if _, err := m.GetTripLogDay(context.Background(), "t_demo", trip.ID, 9); !errors.Is(err, ErrNotFound) {
        t.Fatalf("missing day should be ErrNotFound, got %v", err)
    }
}

func TestMemoryRecentDailySummaries(t *testing.T) {
    m := NewMemory()
    seedTrip(t, m, "t_demo")
    since := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
    days, err := m.RecentDailySummaries(context.Background(), "t_demo", since)
    if err != nil { t.Fatalf("RecentDailySummaries: %v", err) }
    if len(days) != 1 || days[0].DayNumber != 2 { t.Fatalf("want only day 2, got %+v", days) }
}

func TestMemoryHOSConfigOverride(t *testing.T) {
    m := NewMemory()
    cfg, err := m.GetHOSConfig(context.Background(), "t_demo")
    if err != nil || cfg != nil { t.Fatalf("want nil override, got %+v %v", cfg, err) }
    want := hos.DefaultConfig()
    want.MaxDrivingHours = 10
    if err := m.SaveHOSConfig(context.Background(), "t_demo", want); err != nil { t.Fatalf("SaveHOSConfig: %v", err) }
    cfg, err = m.GetHOSConfig(context.Background(), "t_demo")
    if err != nil { t.Fatalf("GetHOSConfig: %v", err) }
    if cfg == nil || cfg.MaxDrivingHours != 10 { t.Fatalf("override not returned: %+v", cfg) }
    // Other tenants stay on defaults
    if cfg2, _ := m.GetHOSConfig(context.Background(), "t_other"); cfg2 != nil { t.Fatalf("tenant isolation broken: %+v", cfg2) }
}

func TestMemorySubscriptions(t *testing.T) {
    m := NewMemory()
    sub, err := m.CreateSubscription(context.Background(), model.SubscriptionRequest{TenantID: "t_demo", URL: "https://example.com/hook", Events: []string{"trip.planned"}, Secret: "s3cr3t"})
    if err != nil { t.Fatalf("CreateSubscription: %v", err) }
    if sub.ID == "" { t.Fatal("expected generated id") }

    matched, err := m.GetSubscriptionsForEvent(context.Background(), "t_demo", "trip.planned")
    if err != nil || len(matched) != 1 { t.Fatalf("want 1 match, got %v %v", matched, err) }
    matched, err = m.GetSubscriptionsForEvent(context.Background(), "t_demo", "hos.violation")
    if err != nil || len(matched) != 0 { t.Fatalf("want no match for other event, got %v %v", matched, err) }

    list, _, err := m.ListSubscriptions(context.Background(), "t_demo", "", 10)
    if err != nil || len(list) != 1 { t.Fatalf("ListSubscriptions: %v %v", list, err) }

    if err := m.DeleteSubscription(context.Background(), "t_demo", sub.ID); err != nil { t.Fatalf("DeleteSubscription: %v", err) }
    list, _, _ = m.ListSubscriptions(context.Background(), "t_demo", "", 10)
    if len(list) != 0 { t.Fatalf("subscription not deleted: %v", list) }
}

func TestMemoryWebhookQueue(t *testing.T) {
    m := NewMemory()
    id, err := m.EnqueueWebhook(context.Background(), "t_demo", "sub1", "trip.planned", "https://example.com/hook", "sec", []byte(`{}`))
    if err != nil { t.Fatalf("EnqueueWebhook: %v", err) }

    due, err := m.FetchDueWebhookDeliveries(context.Background(), 10)
    if err != nil || len(due) != 1 { t.Fatalf("want 1 due delivery, got %v %v", due, err) }
    if due[0].Status != "pending" { t.Fatalf("unexpected status %q", due[0].Status) }

    // Failed attempt goes to retry with a future next_attempt_at
    future := time.Now().Add(time.Hour)
    if err := m.MarkWebhookDelivery(context.Background(), id, false, &future, "connection refused", 0, 12); err != nil {
        t.Fatalf("MarkWebhookDelivery: %v", err)
    }
    due, _ = m.FetchDueWebhookDeliveries(context.Background(), 10)
    if len(due) != 0 { t.Fatalf("retry scheduled in the future should not be due: %v", due) }

    // Admin retry makes it due again
    if err := m.RetryWebhookDelivery(context.Background(), "t_demo", id); err != nil { t.Fatalf("RetryWebhookDelivery: %v", err) }
    due, _ = m.FetchDueWebhookDeliveries(context.Background(), 10)
    if len(due) != 1 { t.Fatalf("retried delivery should be due, got %v", due) }

    // Success removes it from the due set
    if err := m.MarkWebhookDelivery(context.Background(), id, true, nil, "", 200, 35); err != nil { t.Fatalf("mark success: %v", err) }
    due, _ = m.FetchDueWebhookDeliveries(context.Background(), 10)
    if len(due) != 0 { t.Fatalf("delivered webhook should not be due: %v", due) }

    items, _, err := m.ListWebhookDeliveries(context.Background(), "t_demo", "delivered", "", 10)
    if err != nil || len(items) != 1 { t.Fatalf("ListWebhookDeliveries: %v %v", items, err) }
    if items[0]["attempts"].(int) != 2 { t.Fatalf("want 2 attempts, got %v", items[0]["attempts"]) }
}

func TestMemoryFailWebhookDelivery(t *testing.T) {
    m := NewMemory()
    id, _ := m.EnqueueWebhook(context.Background(), "t_demo", "", "trip.planned", "https://example.com/hook", "", []byte(`{}`))
    if err := m.FailWebhookDelivery(context.Background(), id, "gave up after 8 attempts", 503, 120); err != nil {
        t.Fatalf("FailWebhookDelivery: %v", err)
    }
    due, _ := m.FetchDueWebhookDeliveries(context.Background(), 10)
    if len(due) != 0 { t.Fatalf("failed delivery should not be due: %v", due) }
    items, _, _ := m.ListWebhookDeliveries(context.Background(), "t_demo", "failed", "", 10)
    if len(items) != 1 { t.Fatalf("want failed delivery listed, got %v", items) }
}
