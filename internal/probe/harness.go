// Package probe issues independent connectivity probes against a configured
// supplier endpoint set.
package probe

import (
    "context"
    "fmt"
    "io"
    "net/http"
    "strconv"
    "sync"
    "time"

    "golang.org/x/time/rate"

    "supplygw/internal/metrics"
    "supplygw/internal/model"
)

// Probe names, in fixed execution order.
const (
    ProbeHealth       = "health"
    ProbeLocations    = "locations"
    ProbeAvailability = "availability"
    ProbeBookings     = "bookings"
)

var probeOrder = []string{ProbeHealth, ProbeLocations, ProbeAvailability, ProbeBookings}

// DefaultTimeout is the per-probe budget at the validation layer.
const DefaultTimeout = 10 * time.Second

// Harness runs connectivity probes. Probes are isolated: one probe's failure
// is recorded and never aborts its siblings. Overall ok is the AND of the
// requested probes; health is always required and always runs.
type Harness struct {
    Client  *http.Client
    Limiter *rate.Limiter
    Timeout time.Duration
}

func NewHarness() *Harness {
    return &Harness{
        Client:  &http.Client{Timeout: DefaultTimeout},
        Limiter: rate.NewLimiter(rate.Limit(10), 10),
        Timeout: DefaultTimeout,
    }
}

// Run executes the requested probes against cfg in fixed order and returns
// the aggregate result stamped with the address it was run against.
func (h *Harness) Run(ctx context.Context, cfg model.SupplierConfig, requested []string) model.EndpointTestResult {
    want := map[string]bool{ProbeHealth: true}
    for _, name := range requested { want[name] = true }

    res := model.EndpointTestResult{
        OK:     true,
        Addr:   cfg.Addr(),
        Probes: map[string]*model.EndpointProbeResult{},
        RunAt:  time.Now().UTC(),
    }
    start := time.Now()
    for _, name := range probeOrder {
        if !want[name] { continue }
        pr := h.runProbe(ctx, cfg, name)
        res.Probes[name] = pr
        if !pr.OK { res.OK = false }
        metrics.ProbeLatency.WithLabelValues(name, strconv.FormatBool(pr.OK)).Observe(float64(pr.Ms))
    }
    res.TotalMs = time.Since(start).Milliseconds()
    return res
}

// Probe runs a single named probe outside a full test run.
func (h *Harness) Probe(ctx context.Context, cfg model.SupplierConfig, name string) *model.EndpointProbeResult {
    return h.runProbe(ctx, cfg, name)
}

func (h *Harness) runProbe(ctx context.Context, cfg model.SupplierConfig, name string) *model.EndpointProbeResult {
    url, method := probeTarget(cfg, name)
    if url == "" {
        return &model.EndpointProbeResult{OK: false, Error: "no endpoint configured for " + name}
    }
    if h.Limiter != nil {
        if err := h.Limiter.Wait(ctx); err != nil {
            return &model.EndpointProbeResult{OK: false, Error: err.Error()}
        }
    }
    pctx, cancel := context.WithTimeout(ctx, h.Timeout)
    defer cancel()
    req, err := http.NewRequestWithContext(pctx, method, url, nil)
    if err != nil {
        return &model.EndpointProbeResult{OK: false, Error: err.Error()}
    }
    start := time.Now()
    resp, err := h.Client.Do(req)
    ms := time.Since(start).Milliseconds()
    if err != nil {
        return &model.EndpointProbeResult{OK: false, Ms: ms, Error: err.Error()}
    }
    _, _ = io.Copy(io.Discard, resp.Body)
    _ = resp.Body.Close()
    if resp.StatusCode < 200 || resp.StatusCode >= 400 {
        return &model.EndpointProbeResult{OK: false, Ms: ms, Error: fmt.Sprintf("status %d", resp.StatusCode)}
    }
    return &model.EndpointProbeResult{OK: true, Ms: ms}
}

func probeTarget(cfg model.SupplierConfig, name string) (url, method string) {
    switch name {
    case ProbeHealth:
        if cfg.HealthURL != "" { return cfg.HealthURL, http.MethodGet }
        // suppliers without a dedicated health endpoint answer HEAD on locations
        return cfg.LocationsURL, http.MethodHead
    case ProbeLocations:
        return cfg.LocationsURL, http.MethodGet
    case ProbeAvailability:
        return cfg.AvailabilityURL, http.MethodGet
    case ProbeBookings:
        return cfg.BookingsURL, http.MethodGet
    }
    return "", ""
}

// ResultCache keeps the last test result per supplier together with the
// address it was valid for. A read with a different live address misses.
type ResultCache struct {
    mu sync.Mutex
    m  map[string]model.EndpointTestResult
}

func NewResultCache() *ResultCache { return &ResultCache{m: map[string]model.EndpointTestResult{}} }

func (c *ResultCache) Put(supplierID string, res model.EndpointTestResult) {
    c.mu.Lock(); defer c.mu.Unlock()
    c.m[supplierID] = res
}

// Get returns the cached result only while its stored address still matches
// the live configuration.
func (c *ResultCache) Get(supplierID, liveAddr string) (model.EndpointTestResult, bool) {
    c.mu.Lock(); defer c.mu.Unlock()
    res, ok := c.m[supplierID]
    if !ok || res.Addr != liveAddr { return model.EndpointTestResult{}, false }
    return res, true
}
