package store

import (
    "context"
    "errors"

    "supplygw/internal/model"
)

// Store is the persistence interface used by the engine and the API server.
type Store interface {
    // Branches (keyed by supplier + branchCode; updated in place, never auto-deleted)
    GetBranch(ctx context.Context, supplierID, branchCode string) (model.Branch, error)
    UpsertBranch(ctx context.Context, supplierID string, b model.Branch) (created, changed bool, err error)
    ListBranches(ctx context.Context, supplierID, cursor string, limit int) ([]model.Branch, string, error)
    CountBranches(ctx context.Context, supplierID string) (int, error)

    // Locations (keyed by supplier + unlocode)
    GetLocation(ctx context.Context, supplierID, unlocode string) (model.Location, error)
    UpsertLocation(ctx context.Context, supplierID string, l model.Location) (created, changed bool, err error)
    ListLocations(ctx context.Context, supplierID, cursor string, limit int) ([]model.Location, string, error)

    // Availability samples (at most one live sample per criteria key)
    GetSampleByKey(ctx context.Context, supplierID, key string) (model.AvailabilitySample, error)
    PutSample(ctx context.Context, supplierID, key string, s model.AvailabilitySample) error
    ListSamples(ctx context.Context, supplierID, cursor string, limit int) ([]model.AvailabilitySample, string, error)

    // Verification history (bounded, most recent first)
    SaveVerification(ctx context.Context, supplierID string, v model.VerificationResult, cap int) error
    ListVerifications(ctx context.Context, supplierID string, limit int) ([]model.VerificationResult, error)
    LatestVerification(ctx context.Context, supplierID string) (model.VerificationResult, error)

    // Endpoint test cache (valid only for the address it was run against)
    SaveEndpointTest(ctx context.Context, supplierID string, res model.EndpointTestResult) error
    LatestEndpointTest(ctx context.Context, supplierID string) (model.EndpointTestResult, error)

    // Supplier configuration
    GetSupplierConfig(ctx context.Context, supplierID string) (model.SupplierConfig, error)
    SaveSupplierConfig(ctx context.Context, cfg model.SupplierConfig) error

    // Branch capacity quota
    QuotaStatus(ctx context.Context, supplierID string) (subscribed, used int, err error)
    IncreaseQuota(ctx context.Context, supplierID string, add int) error
}

var ErrNotFound = errors.New("not found")

var (
    _ Store = (*Memory)(nil)
    _ Store = (*Postgres)(nil)
    _ Store = (*SQLite)(nil)
)
