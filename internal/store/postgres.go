package store

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "time"

    "github.com/google/uuid"
    _ "github.com/jackc/pgx/v5/stdlib"

    "eldtrip/internal/eld"
    "eldtrip/internal/hos"
    "eldtrip/internal/model"
)

type Postgres struct {
    db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
    db, err := sql.Open("pgx", dsn)
    if err != nil {
        return nil, err
    }
    if err := db.Ping(); err != nil {
        return nil, err
    }
    return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// Migrate creates the schema if it does not exist. Planning artifacts
// (stops, rendered logs, duty periods) are stored as jsonb next to the
// columns that list and cycle queries filter on.
func (p *Postgres) Migrate(ctx context.Context) error {
    stmts := []string{
        `CREATE TABLE IF NOT EXISTS trips (
            id UUID PRIMARY KEY,
            tenant_id TEXT NOT NULL,
            current_location TEXT NOT NULL DEFAULT '',
            pickup_location TEXT NOT NULL DEFAULT '',
            dropoff_location TEXT NOT NULL DEFAULT '',
            locations JSONB,
            current_cycle_used_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
            total_distance_miles DOUBLE PRECISION NOT NULL DEFAULT 0,
            total_trip_duration_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
            estimated_days INT NOT NULL DEFAULT 1,
            stops JSONB,
            compliance JSONB,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
        `CREATE INDEX IF NOT EXISTS trips_tenant_idx ON trips (tenant_id, id)`,
        `CREATE TABLE IF NOT EXISTS daily_summaries (
            id UUID PRIMARY KEY,
            tenant_id TEXT NOT NULL,
            trip_id UUID NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
            log_date DATE NOT NULL,
            day_number INT NOT NULL,
            driving_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
            on_duty_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
            off_duty_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
            sleeper_berth_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
            miles_driven DOUBLE PRECISION NOT NULL DEFAULT 0,
            duty_periods JSONB
        )`,
        `CREATE INDEX IF NOT EXISTS daily_summaries_tenant_date_idx ON daily_summaries (tenant_id, log_date)`,
        `CREATE TABLE IF NOT EXISTS eld_log_days (
            id UUID PRIMARY KEY,
            tenant_id TEXT NOT NULL,
            trip_id UUID NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
            day_number INT NOT NULL,
            log JSONB NOT NULL,
            UNIQUE (trip_id, day_number)
        )`,
        `CREATE TABLE IF NOT EXISTS hos_config (
            tenant_id TEXT PRIMARY KEY,
            config JSONB NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
        `CREATE TABLE IF NOT EXISTS subscriptions (
            id UUID PRIMARY KEY,
            tenant_id TEXT NOT NULL,
            url TEXT NOT NULL,
            events JSONB NOT NULL,
            secret TEXT
        )`,
        `CREATE TABLE IF NOT EXISTS webhook_deliveries (
            id UUID PRIMARY KEY,
            tenant_id TEXT NOT NULL,
            subscription_id UUID,
            event_type TEXT NOT NULL,
            url TEXT NOT NULL,
            secret TEXT,
            payload BYTEA NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            attempts INT NOT NULL DEFAULT 0,
            next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            last_error TEXT,
            response_code INT,
            latency_ms INT,
            delivered_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
        `CREATE INDEX IF NOT EXISTS webhook_deliveries_due_idx ON webhook_deliveries (status, next_attempt_at)`,
    }
    for _, s := range stmts {
        if _, err := p.db.ExecContext(ctx, s); err != nil { return err }
    }
    return nil
}

func (p *Postgres) CreateTrip(ctx context.Context, trip model.Trip) (model.Trip, error) {
    if trip.ID == "" { trip.ID = uuid.New().String() }
    now := time.Now().UTC()
    trip.CreatedAt = now
    trip.UpdatedAt = now

    tx, err := p.db.BeginTx(ctx, nil)
    if err != nil { return model.Trip{}, err }
    defer func() { _ = tx.Rollback() }()

    _, err = tx.ExecContext(ctx, `INSERT INTO trips (id, tenant_id, current_location, pickup_location, dropoff_location, locations, current_cycle_used_hours, total_distance_miles, total_trip_duration_hours, estimated_days, stops, compliance, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$13)`,
        trip.ID, trip.TenantID, trip.CurrentLocation, trip.PickupLocation, trip.DropoffLocation, toJSON(trip.Locations),
        trip.CurrentCycleUsedHours, trip.TotalDistanceMiles, trip.TotalTripDurationHours, trip.EstimatedDays,
        toJSON(trip.Stops), toJSON(trip.Compliance), now)
    if err != nil { return model.Trip{}, err }

    for _, day := range trip.DailySummaries {
        _, err = tx.ExecContext(ctx, `INSERT INTO daily_summaries (id, tenant_id, trip_id, log_date, day_number, driving_hours, on_duty_hours, off_duty_hours, sleeper_berth_hours, miles_driven, duty_periods)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
            uuid.New(), trip.TenantID, trip.ID, day.Date, day.DayNumber, day.DrivingHours, day.OnDutyHours, day.OffDutyHours, day.SleeperBerthHours, day.MilesDriven, toJSON(day.DutyPeriods))
        if err != nil { return model.Trip{}, err }
    }
    for _, log := range trip.DailyLogs {
        _, err = tx.ExecContext(ctx, `INSERT INTO eld_log_days (id, tenant_id, trip_id, day_number, log) VALUES ($1,$2,$3,$4,$5)`,
            uuid.New(), trip.TenantID, trip.ID, log.DayNumber, toJSON(log))
        if err != nil { return model.Trip{}, err }
    }
    if err := tx.Commit(); err != nil { return model.Trip{}, err }
    return trip, nil
}

func (p *Postgres) ListTrips(ctx context.Context, tenantID, cursor string, limit int) ([]model.TripOut, string, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    var rows *sql.Rows
    var err error
    if cursor != "" {
        rows, err = p.db.QueryContext(ctx, `SELECT id::text, current_location, pickup_location, dropoff_location, total_distance_miles, estimated_days, created_at FROM trips WHERE tenant_id=$1 AND id::text > $2 ORDER BY id LIMIT $3`, tenantID, cursor, limit)
    } else {
        rows, err = p.db.QueryContext(ctx, `SELECT id::text, current_location, pickup_location, dropoff_location, total_distance_miles, estimated_days, created_at FROM trips WHERE tenant_id=$1 ORDER BY id LIMIT $2`, tenantID, limit)
    }
    if err != nil { return nil, "", err }
    defer rows.Close()
    out := []model.TripOut{}
    var last string
    for rows.Next() {
        var t model.TripOut
        if err := rows.Scan(&t.ID, &t.CurrentLocation, &t.PickupLocation, &t.DropoffLocation, &t.TotalDistanceMiles, &t.EstimatedDays, &t.CreatedAt); err != nil { return nil, "", err }
        out = append(out, t)
        last = t.ID
    }
    next := ""
    if len(out) == limit { next = last }
    return out, next, nil
}

func (p *Postgres) GetTrip(ctx context.Context, tenantID, id string) (model.Trip, error) {
    var t model.Trip
    var locs, stops, compliance []byte
    row := p.db.QueryRowContext(ctx, `SELECT id::text, tenant_id, current_location, pickup_location, dropoff_location, locations, current_cycle_used_hours, total_distance_miles, total_trip_duration_hours, estimated_days, stops, compliance, created_at, updated_at FROM trips WHERE tenant_id=$1 AND id=$2`, tenantID, id)
    if err := row.Scan(&t.ID, &t.TenantID, &t.CurrentLocation, &t.PickupLocation, &t.DropoffLocation, &locs, &t.CurrentCycleUsedHours, &t.TotalDistanceMiles, &t.TotalTripDurationHours, &t.EstimatedDays, &stops, &compliance, &t.CreatedAt, &t.UpdatedAt); err != nil {
        if errors.Is(err, sql.ErrNoRows) { return t, ErrNotFound }
        return t, err
    }
    if len(locs) > 0 { _ = json.Unmarshal(locs, &t.Locations) }
    if len(stops) > 0 { _ = json.Unmarshal(stops, &t.Stops) }
    if len(compliance) > 0 { _ = json.Unmarshal(compliance, &t.Compliance) }

    rows, err := p.db.QueryContext(ctx, `SELECT log_date, day_number, driving_hours, on_duty_hours, off_duty_hours, sleeper_berth_hours, miles_driven, duty_periods FROM daily_summaries WHERE tenant_id=$1 AND trip_id=$2 ORDER BY day_number`, tenantID, id)
    if err != nil { return t, err }
    defer rows.Close()
    for rows.Next() {
        var day hos.DailySummary
        var periods []byte
        if err := rows.Scan(&day.Date, &day.DayNumber, &day.DrivingHours, &day.OnDutyHours, &day.OffDutyHours, &day.SleeperBerthHours, &day.MilesDriven, &periods); err != nil { return t, err }
        if len(periods) > 0 { _ = json.Unmarshal(periods, &day.DutyPeriods) }
        t.DailySummaries = append(t.DailySummaries, day)
    }

    logs, err := p.GetTripLogs(ctx, tenantID, id)
    if err != nil { return t, err }
    t.DailyLogs = logs
    return t, nil
}

func (p *Postgres) DeleteTrip(ctx context.Context, tenantID, id string) error {
    res, err := p.db.ExecContext(ctx, `DELETE FROM trips WHERE tenant_id=$1 AND id=$2`, tenantID, id)
    if err != nil { return err }
    if n, _ := res.RowsAffected(); n == 0 { return ErrNotFound }
    return nil
}

func (p *Postgres) GetTripLogs(ctx context.Context, tenantID, tripID string) ([]eld.DailyLog, error) {
    rows, err := p.db.QueryContext(ctx, `SELECT log FROM eld_log_days WHERE tenant_id=$1 AND trip_id=$2 ORDER BY day_number`, tenantID, tripID)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []eld.DailyLog{}
    for rows.Next() {
        var js []byte
        if err := rows.Scan(&js); err != nil { return nil, err }
        var log eld.DailyLog
        if err := json.Unmarshal(js, &log); err != nil { return nil, err }
        out = append(out, log)
    }
    return out, nil
}

func (p *Postgres) GetTripLogDay(ctx context.Context, tenantID, tripID string, day int) (eld.DailyLog, error) {
    var js []byte
    err := p.db.QueryRowContext(ctx, `SELECT log FROM eld_log_days WHERE tenant_id=$1 AND trip_id=$2 AND day_number=$3`, tenantID, tripID, day).Scan(&js)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) { return eld.DailyLog{}, ErrNotFound }
        return eld.DailyLog{}, err
    }
    var log eld.DailyLog
    if err := json.Unmarshal(js, &log); err != nil { return eld.DailyLog{}, err }
    return log, nil
}

func (p *Postgres) RecentDailySummaries(ctx context.Context, tenantID string, since time.Time) ([]hos.DailySummary, error) {
    rows, err := p.db.QueryContext(ctx, `SELECT log_date, day_number, driving_hours, on_duty_hours, off_duty_hours, sleeper_berth_hours, miles_driven FROM daily_summaries WHERE tenant_id=$1 AND log_date >= $2 ORDER BY log_date DESC`, tenantID, since)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []hos.DailySummary{}
    for rows.Next() {
        var day hos.DailySummary
        if err := rows.Scan(&day.Date, &day.DayNumber, &day.DrivingHours, &day.OnDutyHours, &day.OffDutyHours, &day.SleeperBerthHours, &day.MilesDriven); err != nil { return nil, err }
        out = append(out, day)
    }
    return out, nil
}

func (p *Postgres) GetHOSConfig(ctx context.Context, tenantID string) (*hos.Config, error) {
    var js []byte
    err := p.db.QueryRowContext(ctx, `SELECT config FROM hos_config WHERE tenant_id=$1`, tenantID).Scan(&js)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) { return nil, nil }
        return nil, err
    }
    var cfg hos.Config
    if err := json.Unmarshal(js, &cfg); err != nil { return nil, err }
    return &cfg, nil
}

func (p *Postgres) SaveHOSConfig(ctx context.Context, tenantID string, cfg hos.Config) error {
    _, err := p.db.ExecContext(ctx, `INSERT INTO hos_config (tenant_id, config, updated_at) VALUES ($1,$2,now())
        ON CONFLICT (tenant_id) DO UPDATE SET config=$2, updated_at=now()`, tenantID, toJSON(cfg))
    return err
}

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
    id := uuid.New().String()
    ev, _ := json.Marshal(req.Events)
    _, err := p.db.ExecContext(ctx, `INSERT INTO subscriptions (id, tenant_id, url, events, secret) VALUES ($1,$2,$3,$4,$5)`, id, req.TenantID, req.URL, ev, req.Secret)
    if err != nil { return model.Subscription{}, err }
    return model.Subscription{ID: id, TenantID: req.TenantID, URL: req.URL, Events: req.Events, Secret: req.Secret}, nil
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
    ev, _ := json.Marshal([]string{eventType})
    rows, err := p.db.QueryContext(ctx, `SELECT id::text, url, secret, events FROM subscriptions WHERE tenant_id=$1 AND events @> $2::jsonb`, tenantID, ev)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []model.Subscription{}
    for rows.Next() {
        var s model.Subscription
        var events []byte
        if err := rows.Scan(&s.ID, &s.URL, &s.Secret, &events); err != nil { return nil, err }
        s.TenantID = tenantID
        _ = json.Unmarshal(events, &s.Events)
        out = append(out, s)
    }
    return out, nil
}

func (p *Postgres) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    var rows *sql.Rows
    var err error
    if cursor != "" {
        rows, err = p.db.QueryContext(ctx, `SELECT id::text, url, secret, events FROM subscriptions WHERE tenant_id=$1 AND id::text > $2 ORDER BY id LIMIT $3`, tenantID, cursor, limit)
    } else {
        rows, err = p.db.QueryContext(ctx, `SELECT id::text, url, secret, events FROM subscriptions WHERE tenant_id=$1 ORDER BY id LIMIT $2`, tenantID, limit)
    }
    if err != nil { return nil, "", err }
    defer rows.Close()
    var out []model.Subscription
    var last string
    for rows.Next() {
        var s model.Subscription
        var ev []byte
        if err := rows.Scan(&s.ID, &s.URL, &s.Secret, &ev); err != nil { return nil, "", err }
        s.TenantID = tenantID
        _ = json.Unmarshal(ev, &s.Events)
        out = append(out, s)
        last = s.ID
    }
    next := ""
    if len(out) == limit { next = last }
    return out, next, nil
}

func (p *Postgres) DeleteSubscription(ctx context.Context, tenantID, id string) error {
    _, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE tenant_id=$1 AND id=$2`, tenantID, id)
    return err
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
    id := uuid.New().String()
    _, err := p.db.ExecContext(ctx, `INSERT INTO webhook_deliveries (id, tenant_id, subscription_id, event_type, url, secret, payload, status, attempts, next_attempt_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,'pending',0,now())`, id, tenantID, nullIfEmpty(subscriptionID), eventType, url, nullIfEmpty(secret), payload)
    if err != nil { return "", err }
    return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
    rows, err := p.db.QueryContext(ctx, `SELECT id::text, tenant_id, COALESCE(subscription_id::text,''), event_type, url, COALESCE(secret,''), payload, status, attempts
        FROM webhook_deliveries WHERE status IN ('pending','retry') AND next_attempt_at <= now() ORDER BY next_attempt_at ASC LIMIT $1`, limit)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []WebhookDelivery{}
    for rows.Next() {
        var d WebhookDelivery
        if err := rows.Scan(&d.ID, &d.TenantID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil { return nil, err }
        out = append(out, d)
    }
    return out, nil
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
    if !success {
        if nextAttemptAt == nil { t := time.Now().Add(1 * time.Minute); nextAttemptAt = &t }
        _, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='retry', last_error=$2, next_attempt_at=$3, updated_at=now(), response_code=$4, latency_ms=$5 WHERE id=$1`, id, nullIfEmpty(lastError), *nextAttemptAt, responseCode, latencyMs)
        return err
    }
    _, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='delivered', delivered_at=now(), updated_at=now(), response_code=$2, latency_ms=$3 WHERE id=$1`, id, responseCode, latencyMs)
    return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
    _, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET status='failed', last_error=$2, updated_at=now(), response_code=$3, latency_ms=$4 WHERE id=$1`, id, nullIfEmpty(lastError), responseCode, latencyMs)
    return err
}

func (p *Postgres) ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]map[string]any, string, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    q := `SELECT id::text, event_type, status, attempts, next_attempt_at, COALESCE(last_error,''), url FROM webhook_deliveries WHERE tenant_id=$1`
    var rows *sql.Rows
    var err error
    if status != "" {
        q += ` AND status=$2 ORDER BY id LIMIT $3`
        rows, err = p.db.QueryContext(ctx, q, tenantID, status, limit)
    } else {
        q += ` ORDER BY id LIMIT $2`
        rows, err = p.db.QueryContext(ctx, q, tenantID, limit)
    }
    if err != nil { return nil, "", err }
    defer rows.Close()
    out := []map[string]any{}
    var last string
    for rows.Next() {
        var id, typ, st, lastErr, url string
        var attempts int
        var nextAt sql.NullTime
        if err := rows.Scan(&id, &typ, &st, &attempts, &nextAt, &lastErr, &url); err != nil { return nil, "", err }
        m := map[string]any{"id": id, "eventType": typ, "status": st, "attempts": attempts, "url": url}
        if nextAt.Valid { m["nextAttemptAt"] = nextAt.Time }
        if lastErr != "" { m["lastError"] = lastErr }
        out = append(out, m)
        last = id
    }
    next := ""
    if len(out) == limit { next = last }
    return out, next, nil
}

func (p *Postgres) RetryWebhookDelivery(ctx context.Context, tenantID, id string) error {
    _, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET status='pending', next_attempt_at=now() WHERE tenant_id=$1 AND id=$2`, tenantID, id)
    return err
}

// Helpers
func toJSON(v any) []byte { b, _ := json.Marshal(v); return b }
func nullIfEmpty(s string) any { if s == "" { return nil }; return s }
