// Package importer turns normalized supplier records into stored entities and
// uniform import results.
package importer

import "supplygw/internal/model"

// Outcome classifies one canonical record against currently known keys.
type Outcome int

const (
    OutcomeImported Outcome = iota // new key
    OutcomeUpdated                 // existing key, changed fields
    OutcomeSkipped                 // existing key, identical
)

// Aggregate reduces normalization output into the format-agnostic
// ImportResult. total is the source batch size (valid and failed records);
// classify is called once per canonical record in output order. Records that
// failed validation are already in errs and count as skipped.
func Aggregate(total int, keys []string, errs []model.RecordError, classify func(i int, key string) Outcome) model.ImportResult {
    res := model.ImportResult{Total: total, Errors: errs}
    if res.Errors == nil { res.Errors = []model.RecordError{} }
    res.Skipped = len(res.Errors)
    for i, k := range keys {
        switch classify(i, k) {
        case OutcomeImported:
            res.Imported++
        case OutcomeUpdated:
            res.Updated++
        default:
            res.Skipped++
        }
    }
    return res
}
