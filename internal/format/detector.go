// Package format classifies raw supplier responses into known wire formats
// and extracts canonical records from them.
package format

import (
    "encoding/json"
    "sort"
    "strings"
)

type Format string

const (
    JSONArray   Format = "JSON_ARRAY"
    JSONWrapped Format = "JSON_WRAPPED"
    XML         Format = "XML"
    LegacyDump  Format = "LEGACY_DUMP"
    Unknown     Format = "UNKNOWN"
)

type Entity string

const (
    EntityLocation Entity = "location"
    EntityBranch   Entity = "branch"
    EntityOffer    Entity = "offer"
)

// previewLimit bounds the diagnostic preview carried by unrecognized payloads.
const previewLimit = 3000

// Sentinels of the legacy PHP object-dump integration. Both must be present.
const (
    legacyRootMarker = "VehLocSearchResponse"
    legacyListMarker = "VehMatchedLocs"
)

// Detection is the outcome of format classification. Items is populated for
// the JSON shapes; XML and legacy extraction re-read Raw at normalize time.
type Detection struct {
    Recognized bool
    Format     Format
    Entity     Entity
    Raw        string
    Items      []any
    TopKeys    []string
    Preview    string
}

var wrapperKeys = map[Entity][]string{
    EntityLocation: {"Locations", "locations", "items", "Items"},
    EntityBranch:   {"Branches", "branches", "items", "Items"},
    EntityOffer:    {"Offers", "offers", "VehAvails", "items", "Items"},
}

type xmlShape struct {
    Containers []string
    Leaf       string
}

var xmlShapes = map[Entity]xmlShape{
    EntityLocation: {Containers: []string{"Locations"}, Leaf: "Location"},
    EntityBranch:   {Containers: []string{"Branches"}, Leaf: "Branch"},
    EntityOffer:    {Containers: []string{"OTA_VehAvailRateRS", "VehAvails"}, Leaf: "VehAvail"},
}

// Detect classifies raw into one of the known wire formats, trying each
// predicate in fixed priority order. It never fails: an unrecognizable body
// yields Recognized=false with a bounded preview and the received top-level
// keys for diagnostics.
func Detect(raw string, entity Entity) Detection {
    det := Detection{Entity: entity, Raw: raw, Preview: preview(raw)}

    var parsed any
    if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
        switch v := parsed.(type) {
        case []any:
            det.Recognized = true
            det.Format = JSONArray
            det.Items = v
            return det
        case map[string]any:
            det.TopKeys = topKeys(v)
            if items, ok := wrappedItems(v, entity); ok {
                det.Recognized = true
                det.Format = JSONWrapped
                det.Items = items
                return det
            }
        }
    }

    // The legacy dump wins over XML: its payload may embed XML-ish fragments.
    if strings.Contains(raw, legacyRootMarker) && strings.Contains(raw, legacyListMarker) {
        det.Recognized = true
        det.Format = LegacyDump
        return det
    }

    if shape, ok := xmlShapes[entity]; ok {
        for _, c := range shape.Containers {
            if containsElement(raw, c) && containsElement(raw, shape.Leaf) {
                det.Recognized = true
                det.Format = XML
                return det
            }
        }
    }

    det.Format = Unknown
    return det
}

// wrappedItems looks for a known wrapper key holding the record array, at the
// top level first, then one envelope level down.
func wrappedItems(m map[string]any, entity Entity) ([]any, bool) {
    keys := wrapperKeys[entity]
    if items, ok := lookupArray(m, keys); ok { return items, true }
    for _, v := range m {
        if nested, ok := v.(map[string]any); ok {
            if items, ok := lookupArray(nested, keys); ok { return items, true }
        }
    }
    return nil, false
}

func lookupArray(m map[string]any, keys []string) ([]any, bool) {
    for _, k := range keys {
        if v, ok := m[k]; ok {
            if arr, ok := v.([]any); ok { return arr, true }
        }
    }
    // case-insensitive fallback for sloppy suppliers
    for mk, v := range m {
        for _, k := range keys {
            if strings.EqualFold(mk, k) {
                if arr, ok := v.([]any); ok { return arr, true }
            }
        }
    }
    return nil, false
}

// containsElement reports whether raw holds an opening tag for exactly this
// element name, so "<LocationsExtra>" does not satisfy "Locations".
func containsElement(raw, name string) bool {
    open := "<" + name
    for idx := 0; ; {
        i := strings.Index(raw[idx:], open)
        if i < 0 { return false }
        j := idx + i + len(open)
        if j < len(raw) {
            switch raw[j] {
            case '>', ' ', '\t', '\r', '\n', '/':
                return true
            }
        }
        idx = idx + i + 1
    }
}

func topKeys(m map[string]any) []string {
    out := make([]string, 0, len(m))
    for k := range m { out = append(out, k) }
    sort.Strings(out)
    return out
}

func preview(raw string) string {
    if len(raw) > previewLimit { return raw[:previewLimit] }
    return raw
}
