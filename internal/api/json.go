package api

import (
    "encoding/json"
    "errors"
    "net/http"

    "supplygw/internal/engine"
)

// Problem is an RFC7807 problem details response body, extended with the
// engine's structured error payloads.
type Problem struct {
    Type     string `json:"type"`
    Title    string `json:"title"`
    Status   int    `json:"status"`
    Detail   string `json:"detail,omitempty"`
    Instance string `json:"instance,omitempty"`

    ErrorKind string                `json:"errorKind,omitempty"`
    Format    *engine.FormatDetails `json:"formatDetails,omitempty"`
    Quota     *engine.QuotaDetails  `json:"quotaDetails,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    _ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
    writeJSON(w, status, Problem{
        Type:     "about:blank",
        Title:    title,
        Status:   status,
        Detail:   detail,
        Instance: instance,
    })
}

// writeEngineProblem maps a classified engine error onto an HTTP status and
// carries its structured payload through to the client.
func writeEngineProblem(w http.ResponseWriter, err error, instance string) {
    kind := engine.KindOf(err)
    if kind == "" {
        writeProblem(w, http.StatusInternalServerError, "Internal error", err.Error(), instance)
        return
    }
    status := http.StatusBadGateway
    title := "Supplier request failed"
    switch kind {
    case engine.KindInvalidFormat:
        status, title = http.StatusUnprocessableEntity, "Unrecognized response format"
    case engine.KindValidation:
        status, title = http.StatusBadRequest, "Validation failed"
    case engine.KindQuotaExceeded:
        status, title = http.StatusConflict, "Branch capacity exceeded"
    case engine.KindNotApproved:
        status, title = http.StatusForbidden, "Supplier account not approved"
    case engine.KindConnection:
        title = "Supplier endpoint unreachable"
    }
    p := Problem{
        Type:      "about:blank",
        Title:     title,
        Status:    status,
        Detail:    err.Error(),
        Instance:  instance,
        ErrorKind: string(kind),
    }
    var ee *engine.Error
    if errors.As(err, &ee) {
        p.Format = ee.Format
        p.Quota = ee.Quota
    }
    writeJSON(w, status, p)
}
