package format

import (
    "testing"
)

func TestNormalizeLocationsWrapped(t *testing.T) {
    det := Detect(`{"Locations":[{"unlocode":"GBMAN","country":"GB","place":"Manchester"}]}`, EntityLocation)
    locs, errs := NormalizeLocations(det)
    if len(errs) != 0 { t.Fatalf("errs: %+v", errs) }
    if len(locs) != 1 || locs[0].Unlocode != "GBMAN" || locs[0].Place != "Manchester" {
        t.Fatalf("locs: %+v", locs)
    }
}

func TestNormalizeLocationsMissingKey(t *testing.T) {
    det := Detect(`[{"unlocode":"GBMAN"},{"place":"Nowhere"},{"unlocode":"FRPAR"}]`, EntityLocation)
    locs, errs := NormalizeLocations(det)
    if len(locs) != 2 { t.Fatalf("locs: %+v", locs) }
    if len(errs) != 1 || errs[0].Index != 1 { t.Fatalf("errs: %+v", errs) }
    // siblings unaffected
    if locs[0].Unlocode != "GBMAN" || locs[1].Unlocode != "FRPAR" { t.Fatalf("locs: %+v", locs) }
}

func TestNormalizeLocationsCaseVariants(t *testing.T) {
    det := Detect(`[{"UNLOCODE":"deber","Lat":"52.52","LNG":"13.40","IATA":"ber"}]`, EntityLocation)
    locs, errs := NormalizeLocations(det)
    if len(errs) != 0 { t.Fatalf("errs: %+v", errs) }
    if locs[0].Unlocode != "DEBER" { t.Fatalf("unlocode: %q", locs[0].Unlocode) }
    if locs[0].Latitude != 52.52 || locs[0].Longitude != 13.40 { t.Fatalf("coords: %+v", locs[0]) }
    if locs[0].IataCode != "BER" { t.Fatalf("iata: %q", locs[0].IataCode) }
}

func TestNormalizeLocationsLastWriteWins(t *testing.T) {
    det := Detect(`[{"unlocode":"GBMAN","place":"Old"},{"unlocode":"FRPAR"},{"unlocode":"GBMAN","place":"New"}]`, EntityLocation)
    locs, errs := NormalizeLocations(det)
    if len(errs) != 0 { t.Fatalf("errs: %+v", errs) }
    if len(locs) != 2 { t.Fatalf("locs: %+v", locs) }
    if locs[0].Place != "New" { t.Fatalf("dup not overwritten: %+v", locs[0]) }
}

func TestNormalizeLocationsXML(t *testing.T) {
    raw := `<Locations><Location unlocode="GBMAN"><country>GB</country><place>Manchester</place><latitude>53.47</latitude></Location><Location><place>NoCode</place></Location></Locations>`
    det := Detect(raw, EntityLocation)
    if det.Format != XML { t.Fatalf("format: %s", det.Format) }
    locs, errs := NormalizeLocations(det)
    if len(locs) != 1 || locs[0].Unlocode != "GBMAN" || locs[0].Latitude != 53.47 {
        t.Fatalf("locs: %+v", locs)
    }
    if len(errs) != 1 || errs[0].Index != 1 { t.Fatalf("errs: %+v", errs) }
}

func TestNormalizeLocationsNonObjectElement(t *testing.T) {
    det := Detect(`[{"unlocode":"GBMAN"},42]`, EntityLocation)
    locs, errs := NormalizeLocations(det)
    if len(locs) != 1 { t.Fatalf("locs: %+v", locs) }
    if len(errs) != 1 || errs[0].Index != 1 { t.Fatalf("errs: %+v", errs) }
}

func TestNormalizeBranches(t *testing.T) {
    det := Detect(`{"Branches":[{"branchCode":"B1","name":"Airport","countryCode":"de"},{"name":"nameless"}]}`, EntityBranch)
    brs, errs := NormalizeBranches(det)
    if len(brs) != 1 || brs[0].BranchCode != "B1" || brs[0].CountryCode != "DE" {
        t.Fatalf("branches: %+v", brs)
    }
    if len(errs) != 1 || errs[0].Index != 1 || errs[0].Message != "missing branchCode" {
        t.Fatalf("errs: %+v", errs)
    }
}

func TestNormalizeBranchesXML(t *testing.T) {
    raw := `<Branches><Branch code="B7"><name>Central</name><city>Hamburg</city></Branch></Branches>`
    brs, errs := NormalizeBranches(Detect(raw, EntityBranch))
    if len(errs) != 0 { t.Fatalf("errs: %+v", errs) }
    if len(brs) != 1 || brs[0].BranchCode != "B7" || brs[0].City != "Hamburg" { t.Fatalf("branches: %+v", brs) }
}

func TestRecognizedFormatZeroRecords(t *testing.T) {
    det := Detect(`{"Locations":[]}`, EntityLocation)
    if !det.Recognized { t.Fatal("empty recognized payload must stay recognized") }
    locs, errs := NormalizeLocations(det)
    if len(locs) != 0 || len(errs) != 0 { t.Fatalf("got %v %v", locs, errs) }
}
