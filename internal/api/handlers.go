package api

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "strconv"
    "strings"
    "time"

    "eldtrip/internal/eld"
    "eldtrip/internal/hos"
    "eldtrip/internal/metrics"
    "eldtrip/internal/model"
    "eldtrip/internal/store"
    "eldtrip/internal/webhooks"
)

// TripsHandler handles POST/GET /v1/trips
func (s *Server) TripsHandler(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodPost:
        p := s.getPrincipal(r)
        if !p.CanPlan() { writeProblem(w, 403, "Forbidden", "dispatcher or admin required", r.URL.Path); return }
        var req model.TripRequest
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if err := validateTripRequest(&req); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid trip request", err.Error(), r.URL.Path)
            return
        }
        cfg := s.effectiveConfig(r.Context(), p.Tenant)
        locs := anchorLocations(&req)
        in := hos.TripInput{
            TotalDistanceMiles:    req.TotalDistanceMiles,
            PickupMilesFromStart:  req.PickupMilesFromStart,
            CurrentCycleUsedHours: req.CurrentCycleUsedHours,
            Locations:             locs,
            RouteCoordinates:      req.RouteCoordinates,
            AdverseConditions:     req.UseAdverseDrivingConditions,
            ShortHaul:             req.UseShortHaulCDL,
            SplitSleeper:          req.UseSplitSleeper,
        }
        if req.DepartureTime != nil { in.Departure = *req.DepartureTime }

        start := time.Now()
        plan, err := hos.NewPlanner(cfg).PlanTrip(in)
        metrics.PlanDuration.Observe(time.Since(start).Seconds())
        if err != nil {
            if errors.Is(err, hos.ErrScheduleStuck) {
                metrics.TripPlans.WithLabelValues("stuck").Inc()
                writeProblem(w, http.StatusUnprocessableEntity, "Schedule infeasible", err.Error(), r.URL.Path)
                return
            }
            metrics.TripPlans.WithLabelValues("invalid").Inc()
            writeProblem(w, http.StatusBadRequest, "Plan trip failed", err.Error(), r.URL.Path)
            return
        }
        metrics.TripPlans.WithLabelValues("ok").Inc()
        metrics.PlanStops.Observe(float64(len(plan.Stops)))

        logs := s.Renderer.RenderPlan(plan, locs)
        compliance := hos.ValidatePlan(cfg, plan.DailySummaries)

        trip := model.Trip{
            TenantID:               p.Tenant,
            CurrentLocation:        req.CurrentLocation,
            PickupLocation:         req.PickupLocation,
            DropoffLocation:        req.DropoffLocation,
            Locations:              locs,
            CurrentCycleUsedHours:  req.CurrentCycleUsedHours,
            TotalDistanceMiles:     req.TotalDistanceMiles,
            TotalTripDurationHours: plan.Arrival.Sub(plan.Departure).Hours(),
            EstimatedDays:          plan.TotalTripDays,
            Stops:                  plan.Stops,
            DailySummaries:         plan.DailySummaries,
            DailyLogs:              logs,
            Compliance:             compliance,
        }
        created, err := s.Store.CreateTrip(r.Context(), trip)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "Create trip failed", err.Error(), r.URL.Path)
            return
        }

        s.Pub.Emit(r.Context(), p.Tenant, webhooks.EventTripPlanned, map[string]any{
            "tripId":        created.ID,
            "estimatedDays": plan.TotalTripDays,
            "arrivalTime":   plan.Arrival.Format(time.RFC3339),
        })
        if !compliance.Compliant {
            s.Pub.Emit(r.Context(), p.Tenant, webhooks.EventHOSViolation, map[string]any{
                "tripId":     created.ID,
                "violations": compliance.Violations,
            })
        }
        s.Broker.Publish(created.ID, SSEEvent{Type: webhooks.EventTripPlanned, Data: map[string]any{"tripId": created.ID}})

        writeJSON(w, http.StatusCreated, planResponse(created, plan, logs, compliance))
    case http.MethodGet:
        _, tenant := s.withTenant(r)
        cursor := r.URL.Query().Get("cursor")
        limit := queryInt(r, "limit", 100)
        items, next, err := s.Store.ListTrips(r.Context(), tenant, cursor, limit)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "List trips failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// anchorLocations fills in address-only anchors when the caller sent plain
// strings instead of resolved coordinates.
func anchorLocations(req *model.TripRequest) hos.Locations {
    locs := req.Locations
    if locs.Current == nil && req.CurrentLocation != "" { locs.Current = &hos.Location{Address: req.CurrentLocation} }
    if locs.Pickup == nil && req.PickupLocation != "" { locs.Pickup = &hos.Location{Address: req.PickupLocation} }
    if locs.Dropoff == nil && req.DropoffLocation != "" { locs.Dropoff = &hos.Location{Address: req.DropoffLocation} }
    return locs
}

func planResponse(trip model.Trip, plan *hos.Plan, logs []eld.DailyLog, compliance hos.ValidationResult) model.PlanResponse {
    return model.PlanResponse{
        ID:                     trip.ID,
        TripID:                 trip.ID,
        TotalDistanceMiles:     trip.TotalDistanceMiles,
        TotalTripDurationHours: trip.TotalTripDurationHours,
        EstimatedDays:          plan.TotalTripDays,
        PlannedStops:           plan.Stops,
        DailyLogs:              logs,
        TotalDrivingHours:      plan.TotalDrivingHours,
        TotalOnDutyHours:       plan.TotalOnDutyHours,
        TotalRestStops:         plan.CountStops(hos.StopRest),
        TotalFuelStops:         plan.CountStops(hos.StopFuel),
        DepartureTime:          plan.Departure,
        EstimatedArrivalTime:   plan.Arrival,
        CycleHoursRemaining:    plan.CycleHoursRemaining,
        Compliance:             compliance,
        CreatedAt:              trip.CreatedAt,
    }
}

// TripByIDHandler handles GET/DELETE /v1/trips/{id} plus the /logs and
// /events/stream subresources.
func (s *Server) TripByIDHandler(w http.ResponseWriter, r *http.Request) {
    path := r.URL.Path
    rest := strings.TrimPrefix(path, "/v1/trips/")
    if rest == path || rest == "" {
        writeProblem(w, http.StatusNotFound, "Not Found", "missing id", path)
        return
    }
    parts := strings.Split(rest, "/")
    id := parts[0]
    if len(parts) > 2 && parts[1] == "events" && parts[2] == "stream" {
        s.streamTripEvents(w, r, id)
        return
    }
    if len(parts) > 1 && parts[1] == "logs" {
        s.tripLogs(w, r, id, parts[2:])
        return
    }

    switch r.Method {
    case http.MethodGet:
        _, tenant := s.withTenant(r)
        trip, err := s.Store.GetTrip(r.Context(), tenant, id)
        if err != nil {
            if errors.Is(err, store.ErrNotFound) { writeProblem(w, http.StatusNotFound, "Trip not found", "", r.URL.Path); return }
            writeProblem(w, http.StatusInternalServerError, "Get trip failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, trip)
    case http.MethodDelete:
        p := s.getPrincipal(r)
        if !p.CanPlan() { writeProblem(w, 403, "Forbidden", "dispatcher or admin required", r.URL.Path); return }
        if err := s.Store.DeleteTrip(r.Context(), p.Tenant, id); err != nil {
            if errors.Is(err, store.ErrNotFound) { writeProblem(w, http.StatusNotFound, "Trip not found", "", r.URL.Path); return }
            writeProblem(w, http.StatusInternalServerError, "Delete trip failed", err.Error(), r.URL.Path)
            return
        }
        s.Pub.Emit(r.Context(), p.Tenant, webhooks.EventTripDeleted, map[string]any{"tripId": id})
        w.WriteHeader(http.StatusNoContent)
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

func (s *Server) tripLogs(w http.ResponseWriter, r *http.Request, id string, rest []string) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    _, tenant := s.withTenant(r)
    if len(rest) == 0 || rest[0] == "" {
        logs, err := s.Store.GetTripLogs(r.Context(), tenant, id)
        if err != nil {
            if errors.Is(err, store.ErrNotFound) { writeProblem(w, http.StatusNotFound, "Trip not found", "", r.URL.Path); return }
            writeProblem(w, http.StatusInternalServerError, "Get logs failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{"tripId": id, "logs": logs})
        return
    }
    day, err := strconv.Atoi(rest[0])
    if err != nil || day < 1 {
        writeProblem(w, http.StatusBadRequest, "Invalid day number", rest[0], r.URL.Path)
        return
    }
    log, err := s.Store.GetTripLogDay(r.Context(), tenant, id, day)
    if err != nil {
        if errors.Is(err, store.ErrNotFound) { writeProblem(w, http.StatusNotFound, "Log day not found", "", r.URL.Path); return }
        writeProblem(w, http.StatusInternalServerError, "Get log day failed", err.Error(), r.URL.Path)
        return
    }
    if r.URL.Query().Get("format") == "printable" {
        writeJSON(w, http.StatusOK, eld.Printable(log))
        return
    }
    writeJSON(w, http.StatusOK, log)
}

func (s *Server) streamTripEvents(w http.ResponseWriter, r *http.Request, id string) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    flusher, ok := w.(http.Flusher)
    if !ok { writeProblem(w, 500, "Streaming unsupported", "", r.URL.Path); return }
    w.Header().Set("Content-Type", "text/event-stream")
    w.Header().Set("Cache-Control", "no-cache")
    w.Header().Set("Connection", "keep-alive")
    ch := s.Broker.Subscribe(id)
    defer s.Broker.Unsubscribe(id, ch)
    // initial heartbeat
    fmt.Fprintf(w, "event: heartbeat\n")
    fmt.Fprintf(w, "data: {\"tripId\":\"%s\",\"ts\":\"%s\"}\n\n", id, time.Now().Format(time.RFC3339))
    flusher.Flush()
    notify := r.Context().Done()
    for {
        select {
        case <-notify:
            return
        case evt := <-ch:
            b, _ := json.Marshal(evt.Data)
            fmt.Fprintf(w, "event: %s\n", evt.Type)
            fmt.Fprintf(w, "data: %s\n\n", string(b))
            flusher.Flush()
        case <-time.After(15 * time.Second):
            fmt.Fprintf(w, "event: heartbeat\n")
            fmt.Fprintf(w, "data: {\"tripId\":\"%s\",\"ts\":\"%s\"}\n\n", id, time.Now().Format(time.RFC3339))
            flusher.Flush()
        }
    }
}

// PreviewHandler handles POST /v1/plan/preview. Nothing is persisted; zero
// fields fall back to demo defaults matching the legacy generate endpoint.
func (s *Server) PreviewHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost { w.WriteHeader(http.StatusMethodNotAllowed); return }
    var req model.PreviewRequest
    if r.Body != nil {
        _ = json.NewDecoder(r.Body).Decode(&req)
    }
    distance := 500.0
    if req.TotalDistanceMiles != nil { distance = *req.TotalDistanceMiles }
    pickup := 50.0
    if req.PickupMilesFromStart != nil { pickup = *req.PickupMilesFromStart }
    cycleUsed := 0.0
    if req.CurrentCycleUsed != nil { cycleUsed = *req.CurrentCycleUsed }

    _, tenant := s.withTenant(r)
    cfg := s.effectiveConfig(r.Context(), tenant)
    plan, err := hos.NewPlanner(cfg).PlanTrip(hos.TripInput{
        TotalDistanceMiles:    distance,
        PickupMilesFromStart:  pickup,
        CurrentCycleUsedHours: cycleUsed,
    })
    if err != nil {
        writeProblem(w, http.StatusBadRequest, "Preview failed", err.Error(), r.URL.Path)
        return
    }
    logs := s.Renderer.RenderPlan(plan, hos.Locations{})
    writeJSON(w, http.StatusOK, model.PreviewResponse{
        Logs: logs,
        Summary: model.PreviewSummary{
            TotalDays:           plan.TotalTripDays,
            TotalDrivingHours:   plan.TotalDrivingHours,
            TotalOnDutyHours:    plan.TotalOnDutyHours,
            CycleHoursRemaining: plan.CycleHoursRemaining,
        },
    })
}

// CycleStatusHandler handles GET /v1/cycle/status: the rolling cycle
// position computed from stored daily summaries.
func (s *Server) CycleStatusHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    _, tenant := s.withTenant(r)
    cfg := s.effectiveConfig(r.Context(), tenant)

    now := time.Now().UTC()
    since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(cfg.CycleDays - 1))
    days, err := s.Store.RecentDailySummaries(r.Context(), tenant, since)
    if err != nil {
        writeProblem(w, http.StatusInternalServerError, "Cycle status failed", err.Error(), r.URL.Path)
        return
    }

    byDate := map[string]*model.CycleDay{}
    order := []string{}
    hoursUsed := 0.0
    for _, d := range days {
        key := d.Date.Format("2006-01-02")
        cd := byDate[key]
        if cd == nil {
            cd = &model.CycleDay{Date: key}
            byDate[key] = cd
            order = append(order, key)
        }
        cd.DrivingHours += d.DrivingHours
        cd.OnDutyHours += d.OnDutyHours
        cd.TotalHours += d.DrivingHours + d.OnDutyHours
        hoursUsed += d.DrivingHours + d.OnDutyHours
    }
    last := make([]model.CycleDay, 0, len(order))
    for _, key := range order { last = append(last, *byDate[key]) }

    remaining := cfg.CycleHours - hoursUsed
    if remaining < 0 { remaining = 0 }
    pct := 0.0
    if cfg.CycleHours > 0 { pct = hoursUsed / cfg.CycleHours * 100 }
    needsRestart := hoursUsed >= cfg.CycleHours
    writeJSON(w, http.StatusOK, model.CycleStatus{
        CycleType:        fmt.Sprintf("%g-hour/%d-day", cfg.CycleHours, cfg.CycleDays),
        CycleLimit:       cfg.CycleHours,
        HoursUsed:        hoursUsed,
        HoursRemaining:   remaining,
        PercentageUsed:   pct,
        Last8Days:        last,
        NeedsRestart:     needsRestart,
        RestartAvailable: needsRestart,
    })
}

// HOSConfigHandler handles GET /v1/hos/config: the effective rule set for
// the caller's tenant.
func (s *Server) HOSConfigHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    _, tenant := s.withTenant(r)
    writeJSON(w, http.StatusOK, s.effectiveConfig(r.Context(), tenant))
}

// AdminHOSConfigHandler handles GET/PUT /v1/admin/hos/config
func (s *Server) AdminHOSConfigHandler(w http.ResponseWriter, r *http.Request) {
    if r.URL.Path != "/v1/admin/hos/config" { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
    p := s.getPrincipal(r)
    if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
    switch r.Method {
    case http.MethodGet:
        cfg, err := s.Store.GetHOSConfig(r.Context(), p.Tenant)
        if err != nil { writeProblem(w, 500, "Get config failed", err.Error(), r.URL.Path); return }
        if cfg == nil { writeJSON(w, 200, map[string]any{"config": nil, "defaults": s.Rules}); return }
        writeJSON(w, 200, map[string]any{"config": cfg, "defaults": s.Rules})
    case http.MethodPut:
        cfg := s.effectiveConfig(r.Context(), p.Tenant)
        if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
            writeProblem(w, 400, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if err := cfg.Validate(); err != nil {
            writeProblem(w, 400, "Invalid HOS config", err.Error(), r.URL.Path)
            return
        }
        if err := s.Store.SaveHOSConfig(r.Context(), p.Tenant, cfg); err != nil {
            writeProblem(w, 500, "Save failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, 200, map[string]bool{"ok": true})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// SubscriptionsHandler handles POST/GET /v1/subscriptions
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodPost:
        p := s.getPrincipal(r)
        if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
        var req model.SubscriptionRequest
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if req.TenantID == "" { req.TenantID = p.Tenant }
        if req.URL == "" || len(req.Events) == 0 {
            writeProblem(w, http.StatusBadRequest, "Invalid subscription", "url and events required", r.URL.Path)
            return
        }
        sub, err := s.Store.CreateSubscription(r.Context(), req)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusCreated, sub)
    case http.MethodGet:
        p := s.getPrincipal(r)
        if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
        cursor := r.URL.Query().Get("cursor")
        limit := queryInt(r, "limit", 100)
        items, next, err := s.Store.ListSubscriptions(r.Context(), p.Tenant, cursor, limit)
        if err != nil { writeProblem(w, 500, "List subscriptions failed", err.Error(), r.URL.Path); return }
        writeJSON(w, 200, map[string]any{"items": items, "nextCursor": next})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// Subscription delete (admin)
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
    if !strings.HasPrefix(r.URL.Path, "/v1/subscriptions/") { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
    if r.Method != http.MethodDelete { w.WriteHeader(405); return }
    p := s.getPrincipal(r)
    if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
    id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
    if err := s.Store.DeleteSubscription(r.Context(), p.Tenant, id); err != nil { writeProblem(w, 500, "Delete subscription failed", err.Error(), r.URL.Path); return }
    w.WriteHeader(204)
}

// Admin: webhook deliveries list and retry
func (s *Server) WebhookDeliveriesHandler(w http.ResponseWriter, r *http.Request) {
    if r.URL.Path != "/v1/admin/webhook-deliveries" { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
    p := s.getPrincipal(r)
    if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
    if r.Method != http.MethodGet { w.WriteHeader(405); return }
    status := r.URL.Query().Get("status")
    cursor := r.URL.Query().Get("cursor")
    limit := queryInt(r, "limit", 100)
    items, next, err := s.Store.ListWebhookDeliveries(r.Context(), p.Tenant, status, cursor, limit)
    if err != nil { writeProblem(w, 500, "List deliveries failed", err.Error(), r.URL.Path); return }
    writeJSON(w, 200, map[string]any{"items": items, "nextCursor": next})
}

func (s *Server) WebhookDeliveryRetryHandler(w http.ResponseWriter, r *http.Request) {
    if !strings.HasPrefix(r.URL.Path, "/v1/admin/webhook-deliveries/") || !strings.HasSuffix(r.URL.Path, "/retry") { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
    if r.Method != http.MethodPost { w.WriteHeader(405); return }
    p := s.getPrincipal(r)
    if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
    id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/admin/webhook-deliveries/"), "/retry")
    if err := s.Store.RetryWebhookDelivery(r.Context(), p.Tenant, id); err != nil { writeProblem(w, 500, "Retry delivery failed", err.Error(), r.URL.Path); return }
    writeJSON(w, 202, map[string]int{"accepted": 1})
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
    ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
    defer cancel()
    if err := s.Store.Ping(ctx); err != nil {
        writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path)
        return
    }
    writeJSON(w, 200, map[string]string{"status": "ready"})
}

func queryInt(r *http.Request, key string, def int) int {
    v := r.URL.Query().Get(key)
    if v == "" { return def }
    n, err := strconv.Atoi(v)
    if err != nil { return def }
    return n
}
