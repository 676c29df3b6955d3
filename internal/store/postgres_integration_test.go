//go:build postgres_integration

package store

import (
    "context"
    "os"
    "testing"

    "supplygw/internal/model"
)

func TestPostgresConnectivityAndMigrate(t *testing.T) {
    dsn := os.Getenv("DATABASE_URL")
    if dsn == "" { t.Skip("DATABASE_URL not set; skipping integration test") }
    p, err := NewPostgres(dsn)
    if err != nil { t.Fatalf("NewPostgres: %v", err) }
    defer func() { _ = p.Close() }()
    // Try simple calls
    if _, _, err := p.ListBranches(context.Background(), "integration-probe", "", 1); err != nil { t.Fatalf("ListBranches: %v", err) }
    if _, _, err := p.UpsertBranch(context.Background(), "integration-probe", model.Branch{BranchCode: "IT01", Name: "Integration"}); err != nil {
        t.Fatalf("UpsertBranch: %v", err)
    }
    b, err := p.GetBranch(context.Background(), "integration-probe", "IT01")
    if err != nil { t.Fatalf("GetBranch: %v", err) }
    if b.Name != "Integration" { t.Fatalf("branch: %+v", b) }
}
