package api

import (
    "fmt"
    "net/http"

    "github.com/jszwec/csvutil"

    "supplygw/internal/model"
)

// ExportBranchesHandler handles GET /v1/export/branches.csv
func (s *Server) ExportBranchesHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    supplierID, ok := requireSupplier(w, r)
    if !ok { return }
    all := []model.Branch{}
    cursor := ""
    for {
        page, next, err := s.Store.ListBranches(r.Context(), supplierID, cursor, 500)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "Export failed", err.Error(), r.URL.Path)
            return
        }
        all = append(all, page...)
        if next == "" { break }
        cursor = next
    }
    writeCSV(w, supplierID+"-branches.csv", all)
}

// ExportLocationsHandler handles GET /v1/export/locations.csv
func (s *Server) ExportLocationsHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    supplierID, ok := requireSupplier(w, r)
    if !ok { return }
    all := []model.Location{}
    cursor := ""
    for {
        page, next, err := s.Store.ListLocations(r.Context(), supplierID, cursor, 500)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "Export failed", err.Error(), r.URL.Path)
            return
        }
        all = append(all, page...)
        if next == "" { break }
        cursor = next
    }
    writeCSV(w, supplierID+"-locations.csv", all)
}

func writeCSV(w http.ResponseWriter, filename string, v any) {
    b, err := csvutil.Marshal(v)
    if err != nil {
        writeProblem(w, http.StatusInternalServerError, "CSV encode failed", err.Error(), "")
        return
    }
    w.Header().Set("Content-Type", "text/csv")
    w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
    w.WriteHeader(http.StatusOK)
    _, _ = w.Write(b)
}
