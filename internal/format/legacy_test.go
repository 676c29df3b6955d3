package format

import "testing"

const legacyDumpFixture = `VehLocSearchResponse Object
(
    [Success] =>
    [VehMatchedLocs] => Array
        (
            [0] => Array
                (
                    [VehMatchedLoc] => Array
                        (
                            [LocationDetail] => Array
                                (
                                    [attr] => Array
                                        (
                                            [Code] => DXBA02
                                            [Name] => Dubai Airport T2
                                            [Latitude] => 25.2528
                                            [Longitude] => 55.3644
                                        )
                                    [Address] => Array
                                        (
                                            [CountryName] => Array
                                                (
                                                    [attr] => Array
                                                        (
                                                            [Code] => AE
                                                        )
                                                )
                                        )
                                )
                        )
                )
            [1] => Array
                (
                    [VehMatchedLoc] => Array
                        (
                            [LocationDetail] => Array
                                (
                                    [attr] => Array
                                        (
                                            [Code] => MUCX01
                                            [Name] => Munich Central
                                            [UnLocode] => DEMUC
                                        )
                                    [Address] => Array
                                        (
                                            [CountryName] => Array
                                                (
                                                    [attr] => Array
                                                        (
                                                            [Code] => DE
                                                        )
                                                )
                                        )
                                )
                        )
                )
        )
)
`

func TestLegacyDumpDerivedUnlocode(t *testing.T) {
    det := Detect(legacyDumpFixture, EntityLocation)
    if det.Format != LegacyDump { t.Fatalf("format: %s", det.Format) }
    locs, errs := NormalizeLocations(det)
    if len(errs) != 0 { t.Fatalf("errs: %+v", errs) }
    if len(locs) != 2 { t.Fatalf("locs: %+v", locs) }
    if locs[0].Unlocode != "AEDXB" { t.Fatalf("derived unlocode: %q", locs[0].Unlocode) }
    if locs[0].Country != "AE" || locs[0].Place != "Dubai Airport T2" { t.Fatalf("loc: %+v", locs[0]) }
    if locs[0].Latitude != 25.2528 { t.Fatalf("lat: %v", locs[0].Latitude) }
}

func TestLegacyDumpExplicitUnlocodeWins(t *testing.T) {
    locs, _ := NormalizeLocations(Detect(legacyDumpFixture, EntityLocation))
    // second record carries UnLocode=DEMUC which beats DE+MUC derivation anyway,
    // but the explicit field must be the one used
    if locs[1].Unlocode != "DEMUC" { t.Fatalf("explicit unlocode: %q", locs[1].Unlocode) }
}

func TestLegacyDumpJSONBody(t *testing.T) {
    raw := `{"VehLocSearchResponse":{"VehMatchedLocs":[{"VehMatchedLoc":{"LocationDetail":{"attr":{"Code":"LHRA01","Name":"Heathrow"},"Address":{"CountryName":{"attr":{"Code":"GB"}}}}}}]}}`
    det := Detect(raw, EntityLocation)
    if det.Format != LegacyDump { t.Fatalf("format: %s", det.Format) }
    locs, errs := NormalizeLocations(det)
    if len(errs) != 0 { t.Fatalf("errs: %+v", errs) }
    if len(locs) != 1 || locs[0].Unlocode != "GBLHR" { t.Fatalf("locs: %+v", locs) }
}

func TestLegacyDumpBranches(t *testing.T) {
    det := Detect(legacyDumpFixture, EntityBranch)
    if det.Format != LegacyDump { t.Fatalf("format: %s", det.Format) }
    branches, errs := NormalizeBranches(det)
    if len(errs) != 0 { t.Fatalf("errs: %+v", errs) }
    if len(branches) != 2 { t.Fatalf("branches: %+v", branches) }
    if branches[0].BranchCode != "DXBA02" { t.Fatalf("branchCode: %q", branches[0].BranchCode) }
    if branches[0].Name != "Dubai Airport T2" || branches[0].CountryCode != "AE" { t.Fatalf("branch: %+v", branches[0]) }
    if branches[0].NatoLocode != "AEDXB" { t.Fatalf("derived locode: %q", branches[0].NatoLocode) }
    if branches[1].NatoLocode != "DEMUC" { t.Fatalf("explicit locode: %q", branches[1].NatoLocode) }
}

func TestLegacyDumpBranchMissingCode(t *testing.T) {
    raw := `{"VehLocSearchResponse":{"VehMatchedLocs":[{"VehMatchedLoc":{"LocationDetail":{"attr":{"Name":"No Code Here"}}}}]}}`
    branches, errs := NormalizeBranches(Detect(raw, EntityBranch))
    if len(branches) != 0 { t.Fatalf("branches: %+v", branches) }
    if len(errs) != 1 || errs[0].Index != 0 { t.Fatalf("expected one indexed error, got %+v", errs) }
}

func TestLegacyDumpUnparseable(t *testing.T) {
    raw := "VehLocSearchResponse VehMatchedLocs but no structure"
    det := Detect(raw, EntityLocation)
    if det.Format != LegacyDump { t.Fatalf("format: %s", det.Format) }
    locs, errs := NormalizeLocations(det)
    if len(locs) != 0 || len(errs) == 0 { t.Fatalf("expected an error entry, got %v %v", locs, errs) }
}
