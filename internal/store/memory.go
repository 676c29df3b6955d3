package store

import (
    "context"
    "sort"
    "sync"

    "supplygw/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL or
// SQLITE_PATH is set, and by tests.
type Memory struct {
    mu        sync.Mutex
    branches  map[string]map[string]model.Branch             // supplier -> branchCode -> branch
    locations map[string]map[string]model.Location           // supplier -> unlocode -> location
    samples   map[string]map[string]model.AvailabilitySample // supplier -> criteria key -> sample
    verifs    map[string][]model.VerificationResult          // supplier -> history, most recent first
    tests     map[string]model.EndpointTestResult            // supplier -> last endpoint test
    configs   map[string]model.SupplierConfig                // supplier -> config
    quotas    map[string]int                                 // supplier -> subscribed count
}

const defaultQuota = 50

func NewMemory() *Memory {
    return &Memory{
        branches:  map[string]map[string]model.Branch{},
        locations: map[string]map[string]model.Location{},
        samples:   map[string]map[string]model.AvailabilitySample{},
        verifs:    map[string][]model.VerificationResult{},
        tests:     map[string]model.EndpointTestResult{},
        configs:   map[string]model.SupplierConfig{},
        quotas:    map[string]int{},
    }
}

func (m *Memory) GetBranch(ctx context.Context, supplierID, branchCode string) (model.Branch, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    b, ok := m.branches[supplierID][branchCode]
    if !ok { return model.Branch{}, ErrNotFound }
    return b, nil
}

func (m *Memory) UpsertBranch(ctx context.Context, supplierID string, b model.Branch) (bool, bool, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    if m.branches[supplierID] == nil { m.branches[supplierID] = map[string]model.Branch{} }
    prev, ok := m.branches[supplierID][b.BranchCode]
    m.branches[supplierID][b.BranchCode] = b
    if !ok { return true, true, nil }
    return false, prev != b, nil
}

func (m *Memory) ListBranches(ctx context.Context, supplierID, cursor string, limit int) ([]model.Branch, string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    keys := sortedKeys(m.branches[supplierID])
    out := []model.Branch{}
    var next string
    for _, k := range pageKeys(keys, cursor, &limit) {
        out = append(out, m.branches[supplierID][k])
        next = k
    }
    if len(out) < limit { next = "" }
    return out, next, nil
}

func (m *Memory) CountBranches(ctx context.Context, supplierID string) (int, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    return len(m.branches[supplierID]), nil
}

func (m *Memory) GetLocation(ctx context.Context, supplierID, unlocode string) (model.Location, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    l, ok := m.locations[supplierID][unlocode]
    if !ok { return model.Location{}, ErrNotFound }
    return l, nil
}

func (m *Memory) UpsertLocation(ctx context.Context, supplierID string, l model.Location) (bool, bool, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    if m.locations[supplierID] == nil { m.locations[supplierID] = map[string]model.Location{} }
    prev, ok := m.locations[supplierID][l.Unlocode]
    m.locations[supplierID][l.Unlocode] = l
    if !ok { return true, true, nil }
    return false, prev != l, nil
}

func (m *Memory) ListLocations(ctx context.Context, supplierID, cursor string, limit int) ([]model.Location, string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    keys := sortedKeys(m.locations[supplierID])
    out := []model.Location{}
    var next string
    for _, k := range pageKeys(keys, cursor, &limit) {
        out = append(out, m.locations[supplierID][k])
        next = k
    }
    if len(out) < limit { next = "" }
    return out, next, nil
}

func (m *Memory) GetSampleByKey(ctx context.Context, supplierID, key string) (model.AvailabilitySample, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    s, ok := m.samples[supplierID][key]
    if !ok { return model.AvailabilitySample{}, ErrNotFound }
    return s, nil
}

func (m *Memory) PutSample(ctx context.Context, supplierID, key string, s model.AvailabilitySample) error {
    m.mu.Lock(); defer m.mu.Unlock()
    if m.samples[supplierID] == nil { m.samples[supplierID] = map[string]model.AvailabilitySample{} }
    m.samples[supplierID][key] = s
    return nil
}

func (m *Memory) ListSamples(ctx context.Context, supplierID, cursor string, limit int) ([]model.AvailabilitySample, string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    keys := sortedKeys(m.samples[supplierID])
    out := []model.AvailabilitySample{}
    var next string
    for _, k := range pageKeys(keys, cursor, &limit) {
        out = append(out, m.samples[supplierID][k])
        next = k
    }
    if len(out) < limit { next = "" }
    return out, next, nil
}

func (m *Memory) SaveVerification(ctx context.Context, supplierID string, v model.VerificationResult, cap int) error {
    m.mu.Lock(); defer m.mu.Unlock()
    hist := append([]model.VerificationResult{v}, m.verifs[supplierID]...)
    if cap > 0 && len(hist) > cap { hist = hist[:cap] }
    m.verifs[supplierID] = hist
    return nil
}

func (m *Memory) ListVerifications(ctx context.Context, supplierID string, limit int) ([]model.VerificationResult, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    hist := m.verifs[supplierID]
    if limit > 0 && len(hist) > limit { hist = hist[:limit] }
    out := make([]model.VerificationResult, len(hist))
    copy(out, hist)
    return out, nil
}

func (m *Memory) LatestVerification(ctx context.Context, supplierID string) (model.VerificationResult, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    hist := m.verifs[supplierID]
    if len(hist) == 0 { return model.VerificationResult{}, ErrNotFound }
    return hist[0], nil
}

func (m *Memory) SaveEndpointTest(ctx context.Context, supplierID string, res model.EndpointTestResult) error {
    m.mu.Lock(); defer m.mu.Unlock()
    m.tests[supplierID] = res
    return nil
}

func (m *Memory) LatestEndpointTest(ctx context.Context, supplierID string) (model.EndpointTestResult, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    res, ok := m.tests[supplierID]
    if !ok { return model.EndpointTestResult{}, ErrNotFound }
    return res, nil
}

func (m *Memory) GetSupplierConfig(ctx context.Context, supplierID string) (model.SupplierConfig, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    cfg, ok := m.configs[supplierID]
    if !ok { return model.SupplierConfig{}, ErrNotFound }
    return cfg, nil
}

func (m *Memory) SaveSupplierConfig(ctx context.Context, cfg model.SupplierConfig) error {
    m.mu.Lock(); defer m.mu.Unlock()
    m.configs[cfg.SupplierID] = cfg
    return nil
}

func (m *Memory) QuotaStatus(ctx context.Context, supplierID string) (int, int, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    sub, ok := m.quotas[supplierID]
    if !ok { sub = defaultQuota }
    return sub, len(m.branches[supplierID]), nil
}

func (m *Memory) IncreaseQuota(ctx context.Context, supplierID string, add int) error {
    m.mu.Lock(); defer m.mu.Unlock()
    sub, ok := m.quotas[supplierID]
    if !ok { sub = defaultQuota }
    m.quotas[supplierID] = sub + add
    return nil
}

func sortedKeys[V any](m map[string]V) []string {
    keys := make([]string, 0, len(m))
    for k := range m { keys = append(keys, k) }
    sort.Strings(keys)
    return keys
}

// pageKeys applies the cursor/limit convention used across list calls:
// cursor is the last key of the previous page.
func pageKeys(keys []string, cursor string, limit *int) []string {
    if *limit <= 0 { *limit = 100 }
    start := 0
    if cursor != "" {
        for i, k := range keys {
            if k == cursor { start = i + 1; break }
        }
    }
    end := start + *limit
    if end > len(keys) { end = len(keys) }
    return keys[start:end]
}
