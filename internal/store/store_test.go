package store

import (
    "context"
    "io"
    "log/slog"
    "path/filepath"
    "testing"
    "time"

    "supplygw/internal/model"
)

// each backend must behave identically behind the Store interface
func testStores(t *testing.T) map[string]Store {
    t.Helper()
    sq, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"), slog.New(slog.NewTextHandler(io.Discard, nil)))
    if err != nil {
        t.Fatal(err)
    }
    t.Cleanup(func() { _ = sq.Close() })
    return map[string]Store{"memory": NewMemory(), "sqlite": sq}
}

func TestBranchUpsertLifecycle(t *testing.T) {
    for name, st := range testStores(t) {
        t.Run(name, func(t *testing.T) {
            ctx := context.Background()
            b := model.Branch{BranchCode: "GB01", Name: "Manchester Airport", City: "Manchester", CountryCode: "GB"}

            created, changed, err := st.UpsertBranch(ctx, "sup-1", b)
            if err != nil {
                t.Fatal(err)
            }
            if !created || !changed {
                t.Fatalf("first upsert: created=%v changed=%v", created, changed)
            }

            created, changed, err = st.UpsertBranch(ctx, "sup-1", b)
            if err != nil {
                t.Fatal(err)
            }
            if created || changed {
                t.Fatalf("identical upsert: created=%v changed=%v", created, changed)
            }

            b.Name = "Manchester Airport T2"
            created, changed, err = st.UpsertBranch(ctx, "sup-1", b)
            if err != nil {
                t.Fatal(err)
            }
            if created || !changed {
                t.Fatalf("modified upsert: created=%v changed=%v", created, changed)
            }

            got, err := st.GetBranch(ctx, "sup-1", "GB01")
            if err != nil {
                t.Fatal(err)
            }
            if got.Name != "Manchester Airport T2" {
                t.Fatalf("got %q", got.Name)
            }
            if _, err := st.GetBranch(ctx, "sup-2", "GB01"); err != ErrNotFound {
                t.Fatalf("suppliers must be isolated: %v", err)
            }
            n, err := st.CountBranches(ctx, "sup-1")
            if err != nil || n != 1 {
                t.Fatalf("count=%d err=%v", n, err)
            }
        })
    }
}

func TestListBranchesPagination(t *testing.T) {
    for name, st := range testStores(t) {
        t.Run(name, func(t *testing.T) {
            ctx := context.Background()
            codes := []string{"AA", "BB", "CC", "DD", "EE"}
            for _, c := range codes {
                if _, _, err := st.UpsertBranch(ctx, "sup-1", model.Branch{BranchCode: c}); err != nil {
                    t.Fatal(err)
                }
            }
            page1, next, err := st.ListBranches(ctx, "sup-1", "", 2)
            if err != nil {
                t.Fatal(err)
            }
            if len(page1) != 2 || page1[0].BranchCode != "AA" || next == "" {
                t.Fatalf("page1=%+v next=%q", page1, next)
            }
            page2, next, err := st.ListBranches(ctx, "sup-1", next, 2)
            if err != nil {
                t.Fatal(err)
            }
            if len(page2) != 2 || page2[0].BranchCode != "CC" {
                t.Fatalf("page2=%+v", page2)
            }
            page3, next, err := st.ListBranches(ctx, "sup-1", next, 2)
            if err != nil {
                t.Fatal(err)
            }
            if len(page3) != 1 || page3[0].BranchCode != "EE" || next != "" {
                t.Fatalf("page3=%+v next=%q", page3, next)
            }
        })
    }
}

func TestSampleRoundtrip(t *testing.T) {
    for name, st := range testStores(t) {
        t.Run(name, func(t *testing.T) {
            ctx := context.Background()
            sample := model.AvailabilitySample{
                ID:          "smp-1",
                Criteria:    model.SearchCriteria{PickupLoc: "GBMAN", DropoffLoc: "GBMAN", DriverAge: 30},
                Offers:      []model.VehicleOffer{{SupplierOfferRef: "ECMN", TotalPrice: 199.5, Currency: "GBP"}},
                ContentHash: "abc123",
                FetchedAt:   time.Now().UTC().Truncate(time.Millisecond),
            }
            if err := st.PutSample(ctx, "sup-1", "k1", sample); err != nil {
                t.Fatal(err)
            }
            got, err := st.GetSampleByKey(ctx, "sup-1", "k1")
            if err != nil {
                t.Fatal(err)
            }
            if got.ID != "smp-1" || got.ContentHash != "abc123" || len(got.Offers) != 1 {
                t.Fatalf("got %+v", got)
            }
            if got.Criteria.PickupLoc != "GBMAN" || got.Offers[0].TotalPrice != 199.5 {
                t.Fatalf("payload mangled: %+v", got)
            }
            if !got.FetchedAt.Equal(sample.FetchedAt) {
                t.Fatalf("fetchedAt %v != %v", got.FetchedAt, sample.FetchedAt)
            }
            if _, err := st.GetSampleByKey(ctx, "sup-1", "k2"); err != ErrNotFound {
                t.Fatalf("expected ErrNotFound, got %v", err)
            }

            sample.ContentHash = "def456"
            if err := st.PutSample(ctx, "sup-1", "k1", sample); err != nil {
                t.Fatal(err)
            }
            list, _, err := st.ListSamples(ctx, "sup-1", "", 10)
            if err != nil {
                t.Fatal(err)
            }
            if len(list) != 1 || list[0].ContentHash != "def456" {
                t.Fatalf("overwrite must replace in place: %+v", list)
            }
        })
    }
}

func TestVerificationHistoryCap(t *testing.T) {
    for name, st := range testStores(t) {
        t.Run(name, func(t *testing.T) {
            ctx := context.Background()
            base := time.Now().UTC().Add(-time.Hour)
            for i := 0; i < 7; i++ {
                v := model.VerificationResult{
                    ID:        "run-" + string(rune('a'+i)),
                    Passed:    i%2 == 0,
                    Steps:     []model.VerificationStep{{Name: "health", Passed: true}},
                    CreatedAt: base.Add(time.Duration(i) * time.Minute),
                }
                if err := st.SaveVerification(ctx, "sup-1", v, 5); err != nil {
                    t.Fatal(err)
                }
            }
            hist, err := st.ListVerifications(ctx, "sup-1", 10)
            if err != nil {
                t.Fatal(err)
            }
            if len(hist) != 5 {
                t.Fatalf("expected cap of 5, got %d", len(hist))
            }
            if hist[0].ID != "run-g" {
                t.Fatalf("most recent first, got %s", hist[0].ID)
            }
            latest, err := st.LatestVerification(ctx, "sup-1")
            if err != nil || latest.ID != "run-g" {
                t.Fatalf("latest=%+v err=%v", latest, err)
            }
        })
    }
}

func TestEndpointTestAndConfigRoundtrip(t *testing.T) {
    for name, st := range testStores(t) {
        t.Run(name, func(t *testing.T) {
            ctx := context.Background()
            if _, err := st.LatestEndpointTest(ctx, "sup-1"); err != ErrNotFound {
                t.Fatalf("expected ErrNotFound, got %v", err)
            }
            res := model.EndpointTestResult{
                OK:   true,
                Addr: "http://a|http://b||",
                Probes: map[string]*model.EndpointProbeResult{
                    "health": {OK: true, Ms: 12},
                },
                RunAt: time.Now().UTC(),
            }
            if err := st.SaveEndpointTest(ctx, "sup-1", res); err != nil {
                t.Fatal(err)
            }
            got, err := st.LatestEndpointTest(ctx, "sup-1")
            if err != nil {
                t.Fatal(err)
            }
            if !got.OK || got.Addr != res.Addr || got.Probes["health"].Ms != 12 {
                t.Fatalf("got %+v", got)
            }

            cfg := model.SupplierConfig{SupplierID: "sup-1", LocationsURL: "http://b", Role: "locations-only"}
            if err := st.SaveSupplierConfig(ctx, cfg); err != nil {
                t.Fatal(err)
            }
            gotCfg, err := st.GetSupplierConfig(ctx, "sup-1")
            if err != nil || gotCfg.Role != "locations-only" {
                t.Fatalf("cfg=%+v err=%v", gotCfg, err)
            }
        })
    }
}

func TestQuotaDefaultsAndIncrease(t *testing.T) {
    for name, st := range testStores(t) {
        t.Run(name, func(t *testing.T) {
            ctx := context.Background()
            sub, used, err := st.QuotaStatus(ctx, "sup-1")
            if err != nil {
                t.Fatal(err)
            }
            if sub != defaultQuota || used != 0 {
                t.Fatalf("sub=%d used=%d", sub, used)
            }
            if _, _, err := st.UpsertBranch(ctx, "sup-1", model.Branch{BranchCode: "X1"}); err != nil {
                t.Fatal(err)
            }
            if err := st.IncreaseQuota(ctx, "sup-1", 10); err != nil {
                t.Fatal(err)
            }
            sub, used, err = st.QuotaStatus(ctx, "sup-1")
            if err != nil {
                t.Fatal(err)
            }
            if sub != defaultQuota+10 || used != 1 {
                t.Fatalf("sub=%d used=%d", sub, used)
            }
            if err := st.IncreaseQuota(ctx, "sup-1", 5); err != nil {
                t.Fatal(err)
            }
            sub, _, _ = st.QuotaStatus(ctx, "sup-1")
            if sub != defaultQuota+15 {
                t.Fatalf("sub=%d", sub)
            }
        })
    }
}
