package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
)

var (
    // Registry is the dedicated Prometheus registry for the gateway
    Registry = prometheus.NewRegistry()
    // Imports counts import operations by entity and terminal status
    Imports = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "supplier_imports_total", Help: "Import operations by entity and status."},
        []string{"entity", "status"},
    )
    // ImportRecords counts per-record outcomes across all import operations
    ImportRecords = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "supplier_import_records_total", Help: "Imported records by entity and outcome."},
        []string{"entity", "outcome"},
    )
    // ProbeLatency tracks endpoint probe latencies in milliseconds
    ProbeLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "endpoint_probe_latency_ms", Help: "Endpoint probe latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000, 10000}},
        []string{"probe", "ok"},
    )
    // Verifications counts verification runs by verdict
    Verifications = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "verification_runs_total", Help: "Verification runs by verdict."},
        []string{"verdict"},
    )
    // SampleWrites counts availability sample store decisions
    SampleWrites = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "availability_sample_writes_total", Help: "Availability sample decisions (new, updated, duplicate)."},
        []string{"decision"},
    )
)

// RegisterDefault registers collectors to the gateway registry.
func RegisterDefault() {
    regOnce.Do(func() {
        Registry.MustRegister(Imports)
        Registry.MustRegister(ImportRecords)
        Registry.MustRegister(ProbeLatency)
        Registry.MustRegister(Verifications)
        Registry.MustRegister(SampleWrites)
        // Go/process collectors on our registry
        Registry.MustRegister(collectors.NewGoCollector())
        Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    })
}

var regOnce sync.Once
