//go:build postgres_integration

package store

import (
    "context"
    "os"
    "testing"
)

func TestPostgresConnectivityAndMigrate(t *testing.T) {
    dsn := os.Getenv("DATABASE_URL")
    if dsn == "" { t.Skip("DATABASE_URL not set; skipping integration test") }
    p, err := NewPostgres(dsn)
    if err != nil { t.Fatalf("NewPostgres: %v", err) }
    if err := p.Ping(context.Background()); err != nil { t.Fatalf("Ping: %v", err) }
    if err := p.Migrate(context.Background()); err != nil { t.Fatalf("Migrate: %v", err) }
    // Try simple call
    if _, _, err := p.ListTrips(context.Background(), "t_demo", "", 1); err != nil { t.Fatalf("ListTrips: %v", err) }
}
