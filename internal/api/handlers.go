package api

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "strings"

    "supplygw/internal/importer"
    "supplygw/internal/model"
    "supplygw/internal/store"
    "supplygw/internal/verify"
)

type importRequest struct {
    SupplierID string `json:"supplierId"`
    Payload    string `json:"payload,omitempty"`
}

// ImportBranchesHandler handles POST /v1/imports/branches
func (s *Server) ImportBranchesHandler(w http.ResponseWriter, r *http.Request) {
    s.importHandler(w, r, s.Importer.ImportBranches)
}

// ImportLocationsHandler handles POST /v1/imports/locations
func (s *Server) ImportLocationsHandler(w http.ResponseWriter, r *http.Request) {
    s.importHandler(w, r, s.Importer.ImportLocations)
}

// ImportLocationListHandler handles POST /v1/imports/location-list
func (s *Server) ImportLocationListHandler(w http.ResponseWriter, r *http.Request) {
    s.importHandler(w, r, s.Importer.ImportLocationList)
}

func (s *Server) importHandler(w http.ResponseWriter, r *http.Request, run func(ctx context.Context, supplierID, payload string) (model.ImportResult, error)) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    var req importRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if req.SupplierID == "" {
        writeProblem(w, http.StatusBadRequest, "Missing supplierId", "", r.URL.Path)
        return
    }
    res, err := run(r.Context(), req.SupplierID, req.Payload)
    if err != nil {
        writeEngineProblem(w, err, r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, res)
}

// BranchesHandler handles GET /v1/branches
func (s *Server) BranchesHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    supplierID, ok := requireSupplier(w, r)
    if !ok { return }
    cursor := r.URL.Query().Get("cursor")
    limit := queryLimit(r)
    items, next, err := s.Store.ListBranches(r.Context(), supplierID, cursor, limit)
    if err != nil {
        writeProblem(w, http.StatusInternalServerError, "List branches failed", err.Error(), r.URL.Path)
        return
    }
    subscribed, used, err := s.Store.QuotaStatus(r.Context(), supplierID)
    if err != nil {
        writeProblem(w, http.StatusInternalServerError, "Quota lookup failed", err.Error(), r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{
        "items": items, "nextCursor": next,
        "quota": map[string]int{"subscribed": subscribed, "used": used},
    })
}

// LocationsHandler handles GET /v1/locations
func (s *Server) LocationsHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    supplierID, ok := requireSupplier(w, r)
    if !ok { return }
    items, next, err := s.Store.ListLocations(r.Context(), supplierID, r.URL.Query().Get("cursor"), queryLimit(r))
    if err != nil {
        writeProblem(w, http.StatusInternalServerError, "List locations failed", err.Error(), r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// EndpointTestsHandler handles POST (run) and GET (last result) on
// /v1/endpoint-tests. A cached result is returned only while the configured
// address is unchanged.
func (s *Server) EndpointTestsHandler(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodPost:
        var req struct {
            SupplierID string   `json:"supplierId"`
            Probes     []string `json:"probes,omitempty"`
        }
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if req.SupplierID == "" {
            writeProblem(w, http.StatusBadRequest, "Missing supplierId", "", r.URL.Path)
            return
        }
        cfg, err := s.Store.GetSupplierConfig(r.Context(), req.SupplierID)
        if err != nil {
            writeProblem(w, http.StatusNotFound, "Unknown supplier", err.Error(), r.URL.Path)
            return
        }
        res := s.Harness.Run(r.Context(), cfg, req.Probes)
        s.Cache.Put(req.SupplierID, res)
        if err := s.Store.SaveEndpointTest(r.Context(), req.SupplierID, res); err != nil {
            writeProblem(w, http.StatusInternalServerError, "Save test failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, res)
    case http.MethodGet:
        supplierID, ok := requireSupplier(w, r)
        if !ok { return }
        cfg, err := s.Store.GetSupplierConfig(r.Context(), supplierID)
        if err != nil {
            writeProblem(w, http.StatusNotFound, "Unknown supplier", err.Error(), r.URL.Path)
            return
        }
        if res, ok := s.Cache.Get(supplierID, cfg.Addr()); ok {
            writeJSON(w, http.StatusOK, map[string]any{"result": res, "stale": false})
            return
        }
        res, err := s.Store.LatestEndpointTest(r.Context(), supplierID)
        if errors.Is(err, store.ErrNotFound) {
            writeProblem(w, http.StatusNotFound, "No endpoint test recorded", "", r.URL.Path)
            return
        }
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "Load test failed", err.Error(), r.URL.Path)
            return
        }
        // stored result may predate an address change
        writeJSON(w, http.StatusOK, map[string]any{"result": res, "stale": res.Addr != cfg.Addr()})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// AvailabilityFetchHandler handles POST /v1/availability/fetch
func (s *Server) AvailabilityFetchHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    var req struct {
        SupplierID string               `json:"supplierId"`
        Criteria   model.SearchCriteria `json:"criteria"`
    }
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if req.SupplierID == "" {
        writeProblem(w, http.StatusBadRequest, "Missing supplierId", "", r.URL.Path)
        return
    }
    if err := validateCriteria(req.Criteria); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid search criteria", err.Error(), r.URL.Path)
        return
    }
    res, err := s.Samples.FetchAndStore(r.Context(), req.SupplierID, req.Criteria)
    if err != nil {
        writeEngineProblem(w, err, r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, res)
}

// SamplesHandler handles GET /v1/availability/samples
func (s *Server) SamplesHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    supplierID, ok := requireSupplier(w, r)
    if !ok { return }
    items, next, err := s.Store.ListSamples(r.Context(), supplierID, r.URL.Query().Get("cursor"), queryLimit(r))
    if err != nil {
        writeProblem(w, http.StatusInternalServerError, "List samples failed", err.Error(), r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// VerificationsHandler handles POST (run) and GET (status + history) on
// /v1/verifications.
func (s *Server) VerificationsHandler(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodPost:
        var req struct {
            SupplierID string `json:"supplierId"`
        }
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if req.SupplierID == "" {
            writeProblem(w, http.StatusBadRequest, "Missing supplierId", "", r.URL.Path)
            return
        }
        res, err := s.Verifier.Run(r.Context(), req.SupplierID)
        if errors.Is(err, verify.ErrRunInProgress) {
            writeProblem(w, http.StatusConflict, "Verification already running", err.Error(), r.URL.Path)
            return
        }
        if errors.Is(err, store.ErrNotFound) {
            writeProblem(w, http.StatusNotFound, "Unknown supplier", err.Error(), r.URL.Path)
            return
        }
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "Verification failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, res)
    case http.MethodGet:
        supplierID, ok := requireSupplier(w, r)
        if !ok { return }
        history, err := s.Store.ListVerifications(r.Context(), supplierID, queryLimit(r))
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "List verifications failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{
            "status":  s.Verifier.Status(r.Context(), supplierID),
            "history": history,
        })
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// VerificationStreamHandler streams run events for a supplier as SSE.
func (s *Server) VerificationStreamHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    supplierID, ok := requireSupplier(w, r)
    if !ok { return }
    flusher, canFlush := w.(http.Flusher)
    if !canFlush {
        writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
        return
    }
    w.Header().Set("Content-Type", "text/event-stream")
    w.Header().Set("Cache-Control", "no-cache")
    w.Header().Set("Connection", "keep-alive")
    w.WriteHeader(http.StatusOK)
    flusher.Flush()

    ch := s.Broker.Subscribe(supplierID)
    defer s.Broker.Unsubscribe(supplierID, ch)
    for {
        select {
        case <-r.Context().Done():
            return
        case evt, okCh := <-ch:
            if !okCh { return }
            data, _ := json.Marshal(evt.Data)
            fmt.Fprintf(w, "event: %s\n", evt.Type)
            fmt.Fprintf(w, "data: %s\n\n", data)
            flusher.Flush()
        }
    }
}

// QuotaPendingHandler handles GET /v1/quota/pending
func (s *Server) QuotaPendingHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    p, ok := s.Importer.Flow.Pending()
    if !ok {
        writeJSON(w, http.StatusOK, map[string]any{"pending": false})
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{
        "pending":    true,
        "operation":  p.Op,
        "supplierId": p.Params.SupplierID,
        "quota":      p.Quota,
    })
}

// QuotaConfirmHandler handles POST /v1/quota/confirm: increase capacity once
// and re-run the captured import once.
func (s *Server) QuotaConfirmHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    res, err := s.Importer.Flow.Confirm(r.Context())
    if errors.Is(err, importer.ErrNoPendingRetry) {
        writeProblem(w, http.StatusConflict, "Nothing to confirm", err.Error(), r.URL.Path)
        return
    }
    if err != nil {
        writeEngineProblem(w, err, r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, res)
}

// QuotaDeclineHandler handles POST /v1/quota/decline
func (s *Server) QuotaDeclineHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    s.Importer.Flow.Decline()
    writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// SupplierConfigHandler handles GET/PUT /v1/suppliers/{id}/config
func (s *Server) SupplierConfigHandler(w http.ResponseWriter, r *http.Request) {
    rest := strings.TrimPrefix(r.URL.Path, "/v1/suppliers/")
    parts := strings.Split(rest, "/")
    if len(parts) != 2 || parts[0] == "" || parts[1] != "config" {
        writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
        return
    }
    supplierID := parts[0]
    switch r.Method {
    case http.MethodGet:
        cfg, err := s.Store.GetSupplierConfig(r.Context(), supplierID)
        if errors.Is(err, store.ErrNotFound) {
            writeProblem(w, http.StatusNotFound, "Unknown supplier", "", r.URL.Path)
            return
        }
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "Load config failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, cfg)
    case http.MethodPut:
        var cfg model.SupplierConfig
        if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        cfg.SupplierID = supplierID
        if err := validateSupplierConfig(cfg); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid supplier config", err.Error(), r.URL.Path)
            return
        }
        if err := s.Store.SaveSupplierConfig(r.Context(), cfg); err != nil {
            writeProblem(w, http.StatusInternalServerError, "Save config failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, cfg)
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
    // store reachability is the readiness signal
    if _, err := s.Store.CountBranches(r.Context(), "readiness-probe"); err != nil {
        writeProblem(w, http.StatusServiceUnavailable, "Store unavailable", err.Error(), r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func requireSupplier(w http.ResponseWriter, r *http.Request) (string, bool) {
    supplierID := r.URL.Query().Get("supplierId")
    if supplierID == "" {
        writeProblem(w, http.StatusBadRequest, "Missing supplierId", "", r.URL.Path)
        return "", false
    }
    return supplierID, true
}

func queryLimit(r *http.Request) int {
    limit := 100
    if v := r.URL.Query().Get("limit"); v != "" { fmt.Sscanf(v, "%d", &limit) }
    return limit
}
