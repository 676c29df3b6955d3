package importer

import (
    "context"
    "errors"
    "fmt"
    "io"
    "log/slog"
    "net/http"
    "strings"
    "time"

    "supplygw/internal/engine"
    "supplygw/internal/format"
    "supplygw/internal/metrics"
    "supplygw/internal/model"
    "supplygw/internal/store"
)

var expectedFormats = []string{"JSON_ARRAY", "JSON_WRAPPED", "XML", "LEGACY_DUMP"}

// Service runs the branch/location import flows: fetch (or accept) a raw
// payload, detect its format, normalize records, apply them to the store and
// report a uniform ImportResult. Format and validation problems are folded
// into the result; connection and quota problems surface as classified errors.
type Service struct {
    Store  store.Store
    Client *http.Client
    Flow   *Flow
    Log    *slog.Logger
}

func NewService(st store.Store, flow *Flow) *Service {
    s := &Service{
        Store:  st,
        Client: &http.Client{Timeout: 15 * time.Second},
        Flow:   flow,
        Log:    slog.Default(),
    }
    if flow != nil {
        flow.Register(OpImportBranches, func(ctx context.Context, p Params) (model.ImportResult, error) {
            return s.ImportBranches(ctx, p.SupplierID, p.Payload)
        })
        flow.Register(OpImportLocations, func(ctx context.Context, p Params) (model.ImportResult, error) {
            return s.ImportLocations(ctx, p.SupplierID, p.Payload)
        })
        flow.Register(OpImportLocationList, func(ctx context.Context, p Params) (model.ImportResult, error) {
            return s.ImportLocationList(ctx, p.SupplierID, p.Payload)
        })
    }
    return s
}

// ImportBranches imports a branch batch. With an empty payload the configured
// branches endpoint is fetched first. Capacity is checked before anything is
// written: a batch that would exceed the subscribed branch count is captured
// for the quota retry flow and nothing is stored.
func (s *Service) ImportBranches(ctx context.Context, supplierID, payload string) (model.ImportResult, error) {
    if payload == "" {
        cfg, err := s.Store.GetSupplierConfig(ctx, supplierID)
        if err != nil { return model.ImportResult{}, err }
        if cfg.BranchesURL == "" { return model.ImportResult{}, errors.New("no branches endpoint configured") }
        payload, err = s.fetch(ctx, http.MethodGet, cfg.BranchesURL, "")
        if err != nil { return model.ImportResult{}, err }
    }
    det := format.Detect(payload, format.EntityBranch)
    if !det.Recognized {
        metrics.Imports.WithLabelValues("branch", "invalid_format").Inc()
        return model.ImportResult{}, engine.InvalidFormat("unrecognized branches response", &engine.FormatDetails{
            Preview: det.Preview, ReceivedKeys: det.TopKeys, Expected: expectedFormats,
        })
    }
    records, recErrs := format.NormalizeBranches(det)

    newCount := 0
    for _, b := range records {
        if _, err := s.Store.GetBranch(ctx, supplierID, b.BranchCode); errors.Is(err, store.ErrNotFound) { newCount++ }
    }
    subscribed, used, err := s.Store.QuotaStatus(ctx, supplierID)
    if err != nil { return model.ImportResult{}, err }
    if used+newCount > subscribed {
        d := engine.QuotaDetails{
            CurrentCount:    used,
            Adding:          newCount,
            NeedToAdd:       used + newCount - subscribed,
            SubscribedCount: subscribed,
        }
        if s.Flow != nil {
            s.Flow.Capture(PendingRetry{Op: OpImportBranches, Params: Params{SupplierID: supplierID, Payload: payload}, Quota: d})
        }
        metrics.Imports.WithLabelValues("branch", "quota_exceeded").Inc()
        return model.ImportResult{}, engine.QuotaExceeded(d)
    }

    res := s.applyBranches(ctx, supplierID, records, recErrs)
    metrics.Imports.WithLabelValues("branch", "ok").Inc()
    s.Log.Info("branches imported", "supplier", supplierID, "imported", res.Imported, "updated", res.Updated, "skipped", res.Skipped, "errors", len(res.Errors))
    return res, nil
}

// ImportLocations imports a location batch (any recognized format).
func (s *Service) ImportLocations(ctx context.Context, supplierID, payload string) (model.ImportResult, error) {
    if payload == "" {
        cfg, err := s.Store.GetSupplierConfig(ctx, supplierID)
        if err != nil { return model.ImportResult{}, err }
        if cfg.LocationsURL == "" { return model.ImportResult{}, errors.New("no locations endpoint configured") }
        payload, err = s.fetch(ctx, http.MethodGet, cfg.LocationsURL, "")
        if err != nil { return model.ImportResult{}, err }
    }
    return s.importLocationPayload(ctx, supplierID, payload)
}

// ImportLocationList drives the legacy list endpoint: it posts a request
// built from the configured request root and requestor account, then
// normalizes the dump response like any other location payload.
func (s *Service) ImportLocationList(ctx context.Context, supplierID, payload string) (model.ImportResult, error) {
    if payload == "" {
        cfg, err := s.Store.GetSupplierConfig(ctx, supplierID)
        if err != nil { return model.ImportResult{}, err }
        if cfg.LocationsURL == "" { return model.ImportResult{}, errors.New("no locations endpoint configured") }
        payload, err = s.fetch(ctx, http.MethodPost, cfg.LocationsURL, legacyListRequest(cfg))
        if err != nil { return model.ImportResult{}, err }
    }
    return s.importLocationPayload(ctx, supplierID, payload)
}

func (s *Service) importLocationPayload(ctx context.Context, supplierID, payload string) (model.ImportResult, error) {
    det := format.Detect(payload, format.EntityLocation)
    if !det.Recognized {
        metrics.Imports.WithLabelValues("location", "invalid_format").Inc()
        return model.ImportResult{}, engine.InvalidFormat("unrecognized locations response", &engine.FormatDetails{
            Preview: det.Preview, ReceivedKeys: det.TopKeys, Expected: expectedFormats,
        })
    }
    records, recErrs := format.NormalizeLocations(det)
    res := s.applyLocations(ctx, supplierID, records, recErrs)
    metrics.Imports.WithLabelValues("location", "ok").Inc()
    s.Log.Info("locations imported", "supplier", supplierID, "imported", res.Imported, "updated", res.Updated, "skipped", res.Skipped, "errors", len(res.Errors))
    return res, nil
}

func (s *Service) applyBranches(ctx context.Context, supplierID string, records []model.Branch, recErrs []model.RecordError) model.ImportResult {
    keys := make([]string, len(records))
    for i, b := range records { keys[i] = b.BranchCode }
    extra := []model.RecordError{}
    res := Aggregate(len(records)+len(recErrs), keys, recErrs, func(i int, key string) Outcome {
        created, changed, err := s.Store.UpsertBranch(ctx, supplierID, records[i])
        if err != nil {
            extra = append(extra, model.RecordError{Index: i, Identifier: key, Message: "store failure", Details: err.Error()})
            return OutcomeSkipped
        }
        return outcomeOf(created, changed, "branch")
    })
    res.Errors = append(res.Errors, extra...)
    return res
}

func (s *Service) applyLocations(ctx context.Context, supplierID string, records []model.Location, recErrs []model.RecordError) model.ImportResult {
    keys := make([]string, len(records))
    for i, l := range records { keys[i] = l.Unlocode }
    extra := []model.RecordError{}
    res := Aggregate(len(records)+len(recErrs), keys, recErrs, func(i int, key string) Outcome {
        created, changed, err := s.Store.UpsertLocation(ctx, supplierID, records[i])
        if err != nil {
            extra = append(extra, model.RecordError{Index: i, Identifier: key, Message: "store failure", Details: err.Error()})
            return OutcomeSkipped
        }
        return outcomeOf(created, changed, "location")
    })
    res.Errors = append(res.Errors, extra...)
    return res
}

func outcomeOf(created, changed bool, entity string) Outcome {
    switch {
    case created:
        metrics.ImportRecords.WithLabelValues(entity, "imported").Inc()
        return OutcomeImported
    case changed:
        metrics.ImportRecords.WithLabelValues(entity, "updated").Inc()
        return OutcomeUpdated
    default:
        metrics.ImportRecords.WithLabelValues(entity, "skipped").Inc()
        return OutcomeSkipped
    }
}

// legacyListRequest builds the XML request body of the legacy list endpoint.
func legacyListRequest(cfg model.SupplierConfig) string {
    root := cfg.LegacyRoot
    if root == "" { root = "VehLocSearchRQ" }
    return fmt.Sprintf(`<%s><Requestor ID=%q/></%s>`, root, cfg.RequestorID, root)
}

func (s *Service) fetch(ctx context.Context, method, url, body string) (string, error) {
    var rd io.Reader
    if body != "" { rd = strings.NewReader(body) }
    req, err := http.NewRequestWithContext(ctx, method, url, rd)
    if err != nil { return "", engine.Connection("invalid endpoint address", err) }
    if body != "" { req.Header.Set("Content-Type", "application/xml") }
    resp, err := s.Client.Do(req)
    if err != nil { return "", engine.Connection("supplier endpoint unreachable", err) }
    defer func() { _ = resp.Body.Close() }()
    b, err := io.ReadAll(resp.Body)
    if err != nil { return "", engine.Connection("reading supplier response failed", err) }
    switch {
    case resp.StatusCode == http.StatusForbidden:
        return "", engine.NotApproved("supplier account not approved")
    case resp.StatusCode >= 400:
        msg := strings.TrimSpace(string(b))
        if msg == "" { msg = fmt.Sprintf("supplier returned status %d", resp.StatusCode) }
        return "", engine.Upstream(msg, nil)
    }
    return string(b), nil
}
