package importer

import (
    "context"
    "errors"
    "sync"

    "supplygw/internal/engine"
    "supplygw/internal/model"
)

type OperationID string

const (
    OpImportBranches     OperationID = "import-branches"
    OpImportLocations    OperationID = "import-locations"
    OpImportLocationList OperationID = "import-location-list"
)

// Params is everything needed to re-invoke a captured import operation.
type Params struct {
    SupplierID string
    Payload    string
}

// PendingRetry is the first-class record of an import blocked by a capacity
// error, executed later through the dispatch table.
type PendingRetry struct {
    Op     OperationID
    Params Params
    Quota  engine.QuotaDetails
}

type RetryFunc func(ctx context.Context, p Params) (model.ImportResult, error)

var ErrNoPendingRetry = errors.New("no pending quota retry")

// Flow holds at most one pending quota prompt. A new capacity failure
// replaces the previous prompt and its captured operation.
type Flow struct {
    mu       sync.Mutex
    pending  *PendingRetry
    dispatch map[OperationID]RetryFunc
    increase func(ctx context.Context, supplierID string, add int) error
}

func NewFlow(increase func(ctx context.Context, supplierID string, add int) error) *Flow {
    return &Flow{dispatch: map[OperationID]RetryFunc{}, increase: increase}
}

func (f *Flow) Register(op OperationID, fn RetryFunc) {
    f.mu.Lock(); defer f.mu.Unlock()
    f.dispatch[op] = fn
}

func (f *Flow) Capture(p PendingRetry) {
    f.mu.Lock(); defer f.mu.Unlock()
    f.pending = &p
}

// Pending returns a copy of the pending retry, if any.
func (f *Flow) Pending() (PendingRetry, bool) {
    f.mu.Lock(); defer f.mu.Unlock()
    if f.pending == nil { return PendingRetry{}, false }
    return *f.pending, true
}

// Confirm performs exactly one capacity increase followed by exactly one
// re-invocation of the captured operation. The prompt is consumed up front so
// a second confirm cannot fire the operation twice.
func (f *Flow) Confirm(ctx context.Context) (model.ImportResult, error) {
    f.mu.Lock()
    p := f.pending
    f.pending = nil
    var fn RetryFunc
    if p != nil { fn = f.dispatch[p.Op] }
    f.mu.Unlock()
    if p == nil { return model.ImportResult{}, ErrNoPendingRetry }
    if fn == nil { return model.ImportResult{}, errors.New("no handler for operation " + string(p.Op)) }
    if err := f.increase(ctx, p.Params.SupplierID, p.Quota.NeedToAdd); err != nil {
        return model.ImportResult{}, err
    }
    return fn(ctx, p.Params)
}

// Decline discards the pending prompt without side effects.
func (f *Flow) Decline() {
    f.mu.Lock(); defer f.mu.Unlock()
    f.pending = nil
}
