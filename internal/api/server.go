// Package api exposes the import, endpoint-test, availability and
// verification operations over HTTP.
package api

import (
    "context"
    "log/slog"
    "net/http"

    "supplygw/internal/config"
    "supplygw/internal/events"
    "supplygw/internal/importer"
    "supplygw/internal/probe"
    "supplygw/internal/samples"
    "supplygw/internal/store"
    "supplygw/internal/verify"
)

type Server struct {
    Store    store.Store
    Broker   events.Broker
    Importer *importer.Service
    Samples  *samples.Service
    Harness  *probe.Harness
    Cache    *probe.ResultCache
    Verifier *verify.Orchestrator
    Log      *slog.Logger
}

// NewServer wires the engine from configuration: Postgres when a database
// URL is set, SQLite when a path is set, in-memory otherwise, and the Redis
// broker when clustered.
func NewServer(cfg config.Config, log *slog.Logger) (*Server, error) {
    if log == nil { log = slog.Default() }

    var st store.Store
    switch {
    case cfg.DatabaseURL != "":
        sp, err := store.NewPostgres(cfg.DatabaseURL)
        if err != nil { return nil, err }
        st = sp
    case cfg.SQLitePath != "":
        sq, err := store.NewSQLite(cfg.SQLitePath, log)
        if err != nil { return nil, err }
        st = sq
    default:
        st = store.NewMemory()
    }

    var broker events.Broker
    if cfg.RedisURL != "" {
        rb, err := events.NewRedisBroker(cfg.RedisURL)
        if err != nil {
            log.Warn("redis broker unavailable, using in-process broker", "error", err)
            broker = events.NewMemoryBroker()
        } else {
            broker = rb
        }
    } else {
        broker = events.NewMemoryBroker()
    }

    for _, sup := range cfg.Suppliers {
        if err := st.SaveSupplierConfig(context.Background(), sup); err != nil { return nil, err }
    }

    flow := importer.NewFlow(st.IncreaseQuota)
    imp := importer.NewService(st, flow)
    imp.Log = log
    smp := samples.NewService(st, log)
    harness := probe.NewHarness()

    return &Server{
        Store:    st,
        Broker:   broker,
        Importer: imp,
        Samples:  smp,
        Harness:  harness,
        Cache:    probe.NewResultCache(),
        Verifier: verify.New(st, harness, imp, smp, broker, log),
        Log:      log,
    }, nil
}

// Routes builds the HTTP mux for the server.
func (s *Server) Routes() *http.ServeMux {
    mux := http.NewServeMux()

    // Imports
    mux.HandleFunc("/v1/imports/branches", s.ImportBranchesHandler)
    mux.HandleFunc("/v1/imports/locations", s.ImportLocationsHandler)
    mux.HandleFunc("/v1/imports/location-list", s.ImportLocationListHandler)

    // Stored records
    mux.HandleFunc("/v1/branches", s.BranchesHandler)
    mux.HandleFunc("/v1/locations", s.LocationsHandler)

    // Endpoint tests
    mux.HandleFunc("/v1/endpoint-tests", s.EndpointTestsHandler)

    // Availability
    mux.HandleFunc("/v1/availability/fetch", s.AvailabilityFetchHandler)
    mux.HandleFunc("/v1/availability/samples", s.SamplesHandler)

    // Verification
    mux.HandleFunc("/v1/verifications", s.VerificationsHandler)
    mux.HandleFunc("/v1/verifications/stream", s.VerificationStreamHandler)
    mux.HandleFunc("/v1/verifications/ws", s.VerificationWSHandler)

    // Quota retry flow
    mux.HandleFunc("/v1/quota/pending", s.QuotaPendingHandler)
    mux.HandleFunc("/v1/quota/confirm", s.QuotaConfirmHandler)
    mux.HandleFunc("/v1/quota/decline", s.QuotaDeclineHandler)

    // Supplier configuration
    mux.HandleFunc("/v1/suppliers/", s.SupplierConfigHandler)

    // CSV export
    mux.HandleFunc("/v1/export/branches.csv", s.ExportBranchesHandler)
    mux.HandleFunc("/v1/export/locations.csv", s.ExportLocationsHandler)

    // Health
    mux.HandleFunc("/healthz", s.HealthHandler)
    mux.HandleFunc("/readyz", s.ReadyHandler)

    return mux
}
