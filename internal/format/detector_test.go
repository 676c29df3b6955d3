package format

import (
    "strings"
    "testing"
)

func TestDetectJSONArray(t *testing.T) {
    det := Detect(`[{"unlocode":"GBMAN"}]`, EntityLocation)
    if !det.Recognized || det.Format != JSONArray { t.Fatalf("got %+v", det) }
    if len(det.Items) != 1 { t.Fatalf("items: %d", len(det.Items)) }
}

func TestDetectJSONWrapped(t *testing.T) {
    det := Detect(`{"Locations":[{"unlocode":"GBMAN","country":"GB","place":"Manchester"}]}`, EntityLocation)
    if det.Format != JSONWrapped { t.Fatalf("format: %s", det.Format) }
    if len(det.Items) != 1 { t.Fatalf("items: %d", len(det.Items)) }
}

func TestDetectJSONWrappedEnvelope(t *testing.T) {
    det := Detect(`{"response":{"items":[{"branchCode":"B1"}]}}`, EntityBranch)
    if det.Format != JSONWrapped { t.Fatalf("format: %s", det.Format) }
}

func TestDetectXML(t *testing.T) {
    det := Detect(`<Locations><Location unlocode="GBMAN"/></Locations>`, EntityLocation)
    if det.Format != XML { t.Fatalf("format: %s", det.Format) }
}

func TestDetectXMLExactElementName(t *testing.T) {
    // a tag that merely starts with the container name is not the container
    det := Detect(`<LocationsExtra><LocationExtra code="X"/></LocationsExtra>`, EntityLocation)
    if det.Format != Unknown { t.Fatalf("format: %s", det.Format) }
}

func TestDetectLegacyDump(t *testing.T) {
    raw := "VehLocSearchResponse Object\n(\n    [VehMatchedLocs] => Array\n        (\n        )\n)\n"
    det := Detect(raw, EntityLocation)
    if det.Format != LegacyDump { t.Fatalf("format: %s", det.Format) }
}

func TestDetectLegacyDumpAsJSON(t *testing.T) {
    // legacy body that happens to parse as JSON still classifies as legacy
    raw := `{"VehLocSearchResponse":{"VehMatchedLocs":[]}}`
    det := Detect(raw, EntityLocation)
    if det.Format != LegacyDump { t.Fatalf("format: %s", det.Format) }
}

func TestDetectUnknownCarriesDiagnostics(t *testing.T) {
    det := Detect(`{"weird":1,"other":true}`, EntityLocation)
    if det.Recognized || det.Format != Unknown { t.Fatalf("got %+v", det) }
    if len(det.TopKeys) != 2 || det.TopKeys[0] != "other" { t.Fatalf("keys: %v", det.TopKeys) }
    if det.Preview == "" { t.Fatal("missing preview") }
}

func TestDetectUnknownPreviewBounded(t *testing.T) {
    det := Detect(strings.Repeat("x", 10000), EntityLocation)
    if len(det.Preview) != previewLimit { t.Fatalf("preview len: %d", len(det.Preview)) }
}

func TestDetectNeverPanicsOnGarbage(t *testing.T) {
    for _, raw := range []string{"", "null", "<", "{", "[1,2", "\x00\x01"} {
        det := Detect(raw, EntityBranch)
        if det.Format == "" { t.Fatalf("no format for %q", raw) }
    }
}
