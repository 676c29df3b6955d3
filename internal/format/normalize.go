package format

import (
    "fmt"
    "strconv"
    "strings"

    "supplygw/internal/model"
)

// NormalizeLocations extracts canonical Location records from a detection.
// A record missing its mandatory unlocode is reported as an error entry and
// skipped; it never aborts the batch. Duplicate keys within one batch are
// last-write-wins: the later record replaces the earlier one in place.
func NormalizeLocations(det Detection) ([]model.Location, []model.RecordError) {
    if det.Format == LegacyDump {
        return legacyLocations(det.Raw)
    }
    items, errs := itemMaps(det)
    out := []model.Location{}
    pos := map[string]int{}
    for i, m := range items {
        if m == nil { continue }
        loc := model.Location{
            Unlocode:  strings.ToUpper(fieldStr(m, "unlocode", "unLocode")),
            Country:   strings.ToUpper(fieldStr(m, "country", "countryCode")),
            Place:     fieldStr(m, "place", "name", "city"),
            IataCode:  strings.ToUpper(fieldStr(m, "iataCode", "iata")),
            Latitude:  fieldFloat(m, "latitude", "lat"),
            Longitude: fieldFloat(m, "longitude", "lng", "lon"),
        }
        if loc.Unlocode == "" {
            errs = append(errs, model.RecordError{Index: i, Message: "missing unlocode"})
            continue
        }
        if j, ok := pos[loc.Unlocode]; ok {
            out[j] = loc
            continue
        }
        pos[loc.Unlocode] = len(out)
        out = append(out, loc)
    }
    return out, errs
}

// NormalizeBranches extracts canonical Branch records, keyed by branchCode,
// with the same error and dedup policy as NormalizeLocations.
func NormalizeBranches(det Detection) ([]model.Branch, []model.RecordError) {
    if det.Format == LegacyDump {
        return legacyBranches(det.Raw)
    }
    items, errs := itemMaps(det)
    out := []model.Branch{}
    pos := map[string]int{}
    for i, m := range items {
        if m == nil { continue }
        b := model.Branch{
            BranchCode:  fieldStr(m, "branchCode", "code"),
            Name:        fieldStr(m, "name", "branchName"),
            NatoLocode:  strings.ToUpper(fieldStr(m, "natoLocode", "unlocode")),
            Latitude:    fieldFloat(m, "latitude", "lat"),
            Longitude:   fieldFloat(m, "longitude", "lng", "lon"),
            City:        fieldStr(m, "city", "town"),
            Country:     fieldStr(m, "country"),
            CountryCode: strings.ToUpper(fieldStr(m, "countryCode", "countryIso")),
        }
        if b.BranchCode == "" {
            errs = append(errs, model.RecordError{Index: i, Message: "missing branchCode"})
            continue
        }
        if j, ok := pos[b.BranchCode]; ok {
            out[j] = b
            continue
        }
        pos[b.BranchCode] = len(out)
        out = append(out, b)
    }
    return out, errs
}

// itemMaps resolves the per-record maps of a detection. Elements that are not
// objects become error entries indexed by their source position.
func itemMaps(det Detection) ([]map[string]any, []model.RecordError) {
    errs := []model.RecordError{}
    switch det.Format {
    case JSONArray, JSONWrapped:
        out := make([]map[string]any, len(det.Items))
        for i, el := range det.Items {
            m, ok := el.(map[string]any)
            if !ok {
                errs = append(errs, model.RecordError{Index: i, Message: fmt.Sprintf("record is %T, not an object", el)})
                continue
            }
            out[i] = m
        }
        return out, errs
    case XML:
        shape := xmlShapes[det.Entity]
        maps, err := xmlElementMaps(det.Raw, shape.Leaf)
        if err != nil {
            errs = append(errs, model.RecordError{Index: 0, Message: "malformed XML", Details: err.Error()})
            return nil, errs
        }
        return maps, errs
    default:
        errs = append(errs, model.RecordError{Index: 0, Message: fmt.Sprintf("no record extraction for format %s", det.Format)})
        return nil, errs
    }
}

// fieldStr returns the first matching key's value as a string, tolerating
// case variants and numeric values.
func fieldStr(m map[string]any, names ...string) string {
    v, ok := field(m, names...)
    if !ok { return "" }
    switch t := v.(type) {
    case string:
        return strings.TrimSpace(t)
    case float64:
        return strconv.FormatFloat(t, 'f', -1, 64)
    case bool:
        return strconv.FormatBool(t)
    default:
        return ""
    }
}

func fieldFloat(m map[string]any, names ...string) float64 {
    v, ok := field(m, names...)
    if !ok { return 0 }
    switch t := v.(type) {
    case float64:
        return t
    case string:
        f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
        if err != nil { return 0 }
        return f
    default:
        return 0
    }
}

// field looks names up exactly first, then case-insensitively.
func field(m map[string]any, names ...string) (any, bool) {
    for _, n := range names {
        if v, ok := m[n]; ok && v != nil { return v, true }
    }
    for mk, v := range m {
        if v == nil { continue }
        for _, n := range names {
            if strings.EqualFold(mk, n) { return v, true }
        }
    }
    return nil, false
}
