// Package verify drives the supplier go-live verification: a fixed sequence
// of checks against the configured endpoints, recorded as a bounded history.
package verify

import (
    "context"
    "errors"
    "fmt"
    "log/slog"
    "sync"
    "time"

    "github.com/google/uuid"

    "supplygw/internal/events"
    "supplygw/internal/importer"
    "supplygw/internal/metrics"
    "supplygw/internal/model"
    "supplygw/internal/probe"
    "supplygw/internal/samples"
    "supplygw/internal/store"
)

// Run states exposed by Status.
const (
    StateIdle    = "IDLE"
    StateRunning = "RUNNING"
    StatePassed  = "PASSED"
    StateFailed  = "FAILED"
)

// HistoryCap bounds the persisted verification history per supplier.
const HistoryCap = 20

// Step names, in execution order.
const (
    StepHealth       = "health"
    StepLocations    = "locations"
    StepAvailability = "availability"
    StepBookings     = "bookings"
)

var ErrRunInProgress = errors.New("verification already running for supplier")

// Orchestrator coordinates verification runs. At most one run per supplier is
// in flight; every step runs even after an earlier one fails so a single run
// reports the full picture.
type Orchestrator struct {
    Store    store.Store
    Harness  *probe.Harness
    Importer *importer.Service
    Samples  *samples.Service
    Broker   events.Broker
    Log      *slog.Logger

    mu      sync.Mutex
    running map[string]bool
}

func New(st store.Store, h *probe.Harness, imp *importer.Service, smp *samples.Service, broker events.Broker, log *slog.Logger) *Orchestrator {
    if log == nil { log = slog.Default() }
    if broker == nil { broker = events.NewMemoryBroker() }
    return &Orchestrator{
        Store:    st,
        Harness:  h,
        Importer: imp,
        Samples:  smp,
        Broker:   broker,
        Log:      log,
        running:  map[string]bool{},
    }
}

// Status reports the supplier's current verification state: RUNNING while a
// run is in flight, otherwise the verdict of the most recent run.
func (o *Orchestrator) Status(ctx context.Context, supplierID string) string {
    o.mu.Lock()
    active := o.running[supplierID]
    o.mu.Unlock()
    if active { return StateRunning }
    latest, err := o.Store.LatestVerification(ctx, supplierID)
    if err != nil { return StateIdle }
    if latest.Passed { return StatePassed }
    return StateFailed
}

// Run executes a full verification for the supplier and persists the result.
func (o *Orchestrator) Run(ctx context.Context, supplierID string) (model.VerificationResult, error) {
    o.mu.Lock()
    if o.running[supplierID] {
        o.mu.Unlock()
        return model.VerificationResult{}, ErrRunInProgress
    }
    o.running[supplierID] = true
    o.mu.Unlock()
    defer func() {
        o.mu.Lock()
        delete(o.running, supplierID)
        o.mu.Unlock()
    }()

    cfg, err := o.Store.GetSupplierConfig(ctx, supplierID)
    if err != nil { return model.VerificationResult{}, err }

    result := model.VerificationResult{ID: uuid.NewString(), CreatedAt: time.Now().UTC()}
    o.Broker.Publish(supplierID, events.Event{Type: events.TypeRunStarted, Data: map[string]any{"runId": result.ID}})

    for _, name := range stepsFor(cfg.Role) {
        step := o.runStep(ctx, supplierID, cfg, name)
        result.Steps = append(result.Steps, step)
        o.Broker.Publish(supplierID, events.Event{Type: events.TypeStep, Data: map[string]any{
            "runId": result.ID, "step": step.Name, "passed": step.Passed, "detail": step.Detail,
        }})
    }

    result.Passed = true
    for _, st := range result.Steps {
        if !st.Passed { result.Passed = false; break }
    }

    if err := o.Store.SaveVerification(ctx, supplierID, result, HistoryCap); err != nil {
        return model.VerificationResult{}, err
    }
    verdict := "failed"
    if result.Passed { verdict = "passed" }
    metrics.Verifications.WithLabelValues(verdict).Inc()
    o.Broker.Publish(supplierID, events.Event{Type: events.TypeRunFinished, Data: map[string]any{
        "runId": result.ID, "passed": result.Passed,
    }})
    o.Log.Info("verification finished", "supplier", supplierID, "run", result.ID, "passed", result.Passed)
    return result, nil
}

// stepsFor selects the step subset for a supplier role. Unknown roles get the
// full sequence.
func stepsFor(role string) []string {
    if role == "locations-only" {
        return []string{StepHealth, StepLocations}
    }
    return []string{StepHealth, StepLocations, StepAvailability, StepBookings}
}

func (o *Orchestrator) runStep(ctx context.Context, supplierID string, cfg model.SupplierConfig, name string) model.VerificationStep {
    switch name {
    case StepHealth:
        return o.stepHealth(ctx, cfg)
    case StepLocations:
        return o.stepLocations(ctx, supplierID, cfg)
    case StepAvailability:
        return o.stepAvailability(ctx, supplierID, cfg)
    case StepBookings:
        return o.stepBookings(ctx, cfg)
    }
    return model.VerificationStep{Name: name, Detail: "unknown step"}
}

func (o *Orchestrator) stepHealth(ctx context.Context, cfg model.SupplierConfig) model.VerificationStep {
    pr := o.Harness.Probe(ctx, cfg, probe.ProbeHealth)
    if !pr.OK {
        return model.VerificationStep{Name: StepHealth, Detail: pr.Error}
    }
    return model.VerificationStep{Name: StepHealth, Passed: true, Detail: fmt.Sprintf("responded in %dms", pr.Ms)}
}

func (o *Orchestrator) stepLocations(ctx context.Context, supplierID string, cfg model.SupplierConfig) model.VerificationStep {
    var res model.ImportResult
    var err error
    if cfg.LegacyRoot != "" {
        res, err = o.Importer.ImportLocationList(ctx, supplierID, "")
    } else {
        res, err = o.Importer.ImportLocations(ctx, supplierID, "")
    }
    if err != nil {
        return model.VerificationStep{Name: StepLocations, Detail: err.Error()}
    }
    if res.Total == 0 {
        return model.VerificationStep{Name: StepLocations, Detail: "endpoint returned no locations"}
    }
    return model.VerificationStep{
        Name:   StepLocations,
        Passed: true,
        Detail: fmt.Sprintf("%d imported, %d updated, %d skipped", res.Imported, res.Updated, res.Skipped),
    }
}

func (o *Orchestrator) stepAvailability(ctx context.Context, supplierID string, cfg model.SupplierConfig) model.VerificationStep {
    locs, _, err := o.Store.ListLocations(ctx, supplierID, "", 1)
    if err != nil || len(locs) == 0 {
        return model.VerificationStep{Name: StepAvailability, Detail: "no imported location to search with"}
    }
    pickup := time.Now().UTC().AddDate(0, 0, 7).Truncate(time.Hour)
    criteria := model.SearchCriteria{
        PickupLoc:   locs[0].Unlocode,
        DropoffLoc:  locs[0].Unlocode,
        PickupISO:   pickup.Format("2006-01-02T15:04:05"),
        DropoffISO:  pickup.AddDate(0, 0, 3).Format("2006-01-02T15:04:05"),
        RequestorID: cfg.RequestorID,
        DriverAge:   30,
    }
    res, err := o.Samples.FetchAndStore(ctx, supplierID, criteria)
    if err != nil {
        return model.VerificationStep{Name: StepAvailability, Detail: err.Error()}
    }
    if res.OffersCount == 0 {
        return model.VerificationStep{Name: StepAvailability, Detail: "supplier returned no offers"}
    }
    return model.VerificationStep{
        Name:   StepAvailability,
        Passed: true,
        Detail: fmt.Sprintf("%d offers for %s", res.OffersCount, criteria.PickupLoc),
    }
}

func (o *Orchestrator) stepBookings(ctx context.Context, cfg model.SupplierConfig) model.VerificationStep {
    if cfg.BookingsURL == "" {
        return model.VerificationStep{Name: StepBookings, Detail: "no bookings endpoint configured"}
    }
    pr := o.Harness.Probe(ctx, cfg, probe.ProbeBookings)
    if !pr.OK {
        return model.VerificationStep{Name: StepBookings, Detail: pr.Error}
    }
    return model.VerificationStep{Name: StepBookings, Passed: true, Detail: fmt.Sprintf("responded in %dms", pr.Ms)}
}
