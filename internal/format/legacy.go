package format

import (
    "encoding/json"
    "regexp"
    "strconv"
    "strings"

    "supplygw/internal/model"
)

// The legacy partner integration returns a textual dump of its response
// object, either as JSON or as a PHP print_r rendering. Records sit at a
// fixed path: <root>.VehMatchedLocs[].VehMatchedLoc.LocationDetail, with
// attributes under an "attr" sub-map and the country code under
// Address.CountryName.attr.Code.

var dumpEntryRe = regexp.MustCompile(`^\[([^\]]+)\]\s*=>\s*(.*)$`)

// parseLegacyDump parses the dump into a generic structure. JSON bodies are
// taken as-is; otherwise the print_r form is scanned line by line.
func parseLegacyDump(raw string) (map[string]any, bool) {
    var parsed any
    if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
        if m, ok := parsed.(map[string]any); ok { return m, true }
    }
    lines := strings.Split(raw, "\n")
    i := 0
    for i < len(lines) && strings.TrimSpace(lines[i]) == "" { i++ }
    if i >= len(lines) { return nil, false }
    head := strings.TrimSpace(lines[i])
    name := strings.TrimSuffix(strings.TrimSuffix(head, " Object"), " Array")
    v, _ := parseDumpBlock(lines, i+1)
    m, ok := v.(map[string]any)
    if !ok { return nil, false }
    if name != "" && name != head {
        return map[string]any{name: m}, true
    }
    return m, true
}

// parseDumpBlock consumes one parenthesized block starting at or after idx
// and returns its value plus the index after the closing paren. Blocks whose
// keys are a dense 0..n-1 run become arrays.
func parseDumpBlock(lines []string, idx int) (any, int) {
    for idx < len(lines) && strings.TrimSpace(lines[idx]) != "(" {
        if strings.TrimSpace(lines[idx]) == ")" { return map[string]any{}, idx }
        idx++
    }
    idx++ // past "("
    m := map[string]any{}
    order := []string{}
    for idx < len(lines) {
        line := strings.TrimSpace(lines[idx])
        if line == ")" {
            idx++
            break
        }
        match := dumpEntryRe.FindStringSubmatch(line)
        if match == nil {
            idx++
            continue
        }
        key, rest := match[1], strings.TrimSpace(match[2])
        if rest == "Array" || strings.HasSuffix(rest, "Object") {
            var v any
            v, idx = parseDumpBlock(lines, idx+1)
            m[key] = v
            order = append(order, key)
            continue
        }
        m[key] = rest
        order = append(order, key)
        idx++
    }
    if arr, ok := denseArray(m, order); ok { return arr, idx }
    return m, idx
}

func denseArray(m map[string]any, order []string) ([]any, bool) {
    if len(m) == 0 { return nil, false }
    out := make([]any, len(m))
    for _, k := range order {
        n, err := strconv.Atoi(k)
        if err != nil || n < 0 || n >= len(out) { return nil, false }
        out[n] = m[k]
    }
    return out, true
}

// legacyEntry is one extracted record from the dump: its source index, the
// LocationDetail node and its resolved attribute map.
type legacyEntry struct {
    index  int
    detail map[string]any
    attrs  map[string]any
}

// legacyEntries walks the fixed extraction path and returns the per-record
// detail nodes. Structural failures become error entries, never a bare empty
// result.
func legacyEntries(raw string) ([]legacyEntry, []model.RecordError) {
    errs := []model.RecordError{}
    parsed, ok := parseLegacyDump(raw)
    if !ok {
        return nil, append(errs, model.RecordError{Index: 0, Message: "unparseable legacy dump"})
    }
    root := parsed
    if v, found := field(parsed, legacyRootMarker); found {
        if m, ok := v.(map[string]any); ok { root = m }
    }
    listVal, found := field(root, legacyListMarker)
    if !found {
        return nil, append(errs, model.RecordError{Index: 0, Message: "legacy dump has no matched-locations list"})
    }
    list, ok := listVal.([]any)
    if !ok {
        // single record collapses to a bare object in some dumps
        if m, isMap := listVal.(map[string]any); isMap { list = []any{m} } else {
            return nil, append(errs, model.RecordError{Index: 0, Message: "matched-locations marker is not a list"})
        }
    }
    out := []legacyEntry{}
    for i, el := range list {
        m, ok := el.(map[string]any)
        if !ok {
            errs = append(errs, model.RecordError{Index: i, Message: "matched location is not an object"})
            continue
        }
        detail := legacyDetail(m)
        if detail == nil {
            errs = append(errs, model.RecordError{Index: i, Message: "missing LocationDetail"})
            continue
        }
        out = append(out, legacyEntry{index: i, detail: detail, attrs: attrMap(detail)})
    }
    return out, errs
}

// legacyUnlocode resolves a record's UN/LOCODE: an explicit field wins,
// otherwise it is derived as countryCode + first 3 chars of the supplier code.
func legacyUnlocode(e legacyEntry, country, code string) string {
    if ul := fieldStr(e.attrs, "UnLocode", "unlocode"); ul != "" {
        return strings.ToUpper(ul)
    }
    if ul := fieldStr(e.detail, "UnLocode", "unlocode"); ul != "" {
        return strings.ToUpper(ul)
    }
    if country != "" && code != "" {
        return country + strings.ToUpper(firstN(code, 3))
    }
    return ""
}

func legacyLocations(raw string) ([]model.Location, []model.RecordError) {
    entries, errs := legacyEntries(raw)
    out := []model.Location{}
    pos := map[string]int{}
    for _, e := range entries {
        code := fieldStr(e.attrs, "Code")
        country := legacyCountry(e.detail)
        loc := model.Location{
            Country:   country,
            Place:     fieldStr(e.attrs, "Name"),
            Latitude:  fieldFloat(e.attrs, "Latitude"),
            Longitude: fieldFloat(e.attrs, "Longitude"),
        }
        loc.Unlocode = legacyUnlocode(e, country, code)
        if loc.Unlocode == "" {
            errs = append(errs, model.RecordError{Index: e.index, Identifier: code, Message: "cannot derive unlocode"})
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

// legacyBranches maps the same dump records onto branches: the supplier code
// is the branch key, with the location-style UN/LOCODE resolution feeding
// NatoLocode.
func legacyBranches(raw string) ([]model.Branch, []model.RecordError) {
    entries, errs := legacyEntries(raw)
    out := []model.Branch{}
    pos := map[string]int{}
    for _, e := range entries {
        code := fieldStr(e.attrs, "Code")
        if code == "" {
            errs = append(errs, model.RecordError{Index: e.index, Message: "missing branch code"})
            continue
        }
        country := legacyCountry(e.detail)
        b := model.Branch{
            BranchCode:  code,
            Name:        fieldStr(e.attrs, "Name"),
            NatoLocode:  legacyUnlocode(e, country, code),
            Latitude:    fieldFloat(e.attrs, "Latitude"),
            Longitude:   fieldFloat(e.attrs, "Longitude"),
            City:        legacyCity(e.detail),
            CountryCode: country,
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

func legacyDetail(m map[string]any) map[string]any {
    cur := m
    if v, ok := field(cur, "VehMatchedLoc"); ok {
        if mm, ok := v.(map[string]any); ok { cur = mm }
    }
    if v, ok := field(cur, "LocationDetail"); ok {
        if mm, ok := v.(map[string]any); ok { return mm }
    }
    return nil
}

// attrMap returns the attr/attributes sub-map, or the node itself when the
// dump flattened attributes in place.
func attrMap(m map[string]any) map[string]any {
    if v, ok := field(m, "attr", "attributes"); ok {
        if mm, ok := v.(map[string]any); ok { return mm }
    }
    return m
}

func legacyCountry(detail map[string]any) string {
    addr, ok := field(detail, "Address")
    if !ok { return "" }
    am, ok := addr.(map[string]any)
    if !ok { return "" }
    cn, ok := field(am, "CountryName")
    if !ok { return "" }
    cm, ok := cn.(map[string]any)
    if !ok { return "" }
    return strings.ToUpper(fieldStr(attrMap(cm), "Code"))
}

func legacyCity(detail map[string]any) string {
    addr, ok := field(detail, "Address")
    if !ok { return "" }
    am, ok := addr.(map[string]any)
    if !ok { return "" }
    if v, ok := field(am, "CityName"); ok {
        if cm, isMap := v.(map[string]any); isMap {
            return fieldStr(attrMap(cm), "Name", "Value")
        }
        if s, isStr := v.(string); isStr { return strings.TrimSpace(s) }
    }
    return fieldStr(am, "City")
}

func firstN(s string, n int) string {
    if len(s) <= n { return s }
    return s[:n]
}
