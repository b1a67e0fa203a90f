package api

import (
    "context"
    "net/http"
    "os"
    "strings"

    "eldtrip/internal/auth"
    "eldtrip/internal/eld"
    "eldtrip/internal/hos"
    "eldtrip/internal/store"
    "eldtrip/internal/webhooks"
)

type Server struct {
    Store    store.Store
    Pub      *webhooks.Publisher
    Auth     *auth.Verifier
    Broker   EventBroker
    Rules    hos.Config
    Renderer *eld.Renderer
}

// NewServer creates a Server. If DATABASE_URL is unset, uses in-memory store.
func NewServer() (*Server, error) {
    dsn := os.Getenv("DATABASE_URL")
    var s store.Store
    if strings.TrimSpace(dsn) == "" {
        s = store.NewMemory()
    } else {
        sp, err := store.NewPostgres(dsn)
        if err != nil {
            return nil, err
        }
        if os.Getenv("DB_MIGRATE") != "false" {
            if err := sp.Migrate(context.Background()); err != nil { return nil, err }
        }
        s = sp
    }
    // Broker selection
    var broker EventBroker
    if os.Getenv("REDIS_URL") != "" {
        if rb, err := NewRedisBroker(); err == nil { broker = rb } else { broker = NewBroker() }
    } else {
        broker = NewBroker()
    }
    // Process-level HOS rules, optionally overlaid from a YAML file
    rules := hos.DefaultConfig()
    if path := os.Getenv("HOS_CONFIG_PATH"); path != "" {
        cfg, err := hos.LoadConfig(path)
        if err != nil { return nil, err }
        rules = cfg
    }
    renderer := eld.NewRenderer(os.Getenv("CARRIER_NAME"), os.Getenv("DRIVER_NAME"))
    return &Server{
        Store:    s,
        Pub:      webhooks.NewPublisher(s),
        Auth:     auth.NewVerifierFromEnv(),
        Broker:   broker,
        Rules:    rules,
        Renderer: renderer,
    }, nil
}

func (s *Server) withTenant(r *http.Request) (context.Context, string) {
    // For now, get tenant from header; in production decode from JWT.
    tenant := r.Header.Get("X-Tenant-Id")
    if tenant == "" { tenant = "t_demo" }
    ctx := context.WithValue(r.Context(), ctxKeyTenant{}, tenant)
    return ctx, tenant
}

type ctxKeyTenant struct{}

// effectiveConfig returns the tenant's rule override when one is saved,
// otherwise the process defaults.
func (s *Server) effectiveConfig(ctx context.Context, tenant string) hos.Config {
    if cfg, err := s.Store.GetHOSConfig(ctx, tenant); err == nil && cfg != nil {
        return *cfg
    }
    return s.Rules
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
    return webhooks.NewWorker(s.Store)
}
