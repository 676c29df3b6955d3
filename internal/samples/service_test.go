package samples

import (
    "context"
    "io"
    "log/slog"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "supplygw/internal/model"
    "supplygw/internal/store"
)

func newTestService() *Service {
    return NewService(store.NewMemory(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func sampleCriteria() model.SearchCriteria {
    return model.SearchCriteria{
        PickupLoc:   "GBMAN",
        DropoffLoc:  "GBMAN",
        PickupISO:   "2026-10-01T10:00:00",
        DropoffISO:  "2026-10-05T10:00:00",
        RequestorID: "op-1",
        DriverAge:   30,
    }
}

func sampleOffers() []model.VehicleOffer {
    return []model.VehicleOffer{
        {SupplierOfferRef: "ECMN", VehicleClass: "ECMN", Currency: "GBP", TotalPrice: 199.50, Status: model.StatusAvailable},
        {SupplierOfferRef: "CDMR", VehicleClass: "CDMR", Currency: "GBP", TotalPrice: 240.00, Status: model.StatusOnRequest},
    }
}

func TestRecordNewSample(t *testing.T) {
    s := newTestService()
    res, err := s.Record(context.Background(), "sup-1", sampleCriteria(), sampleOffers())
    if err != nil {
        t.Fatal(err)
    }
    if !res.Stored || !res.IsNew || res.Duplicate {
        t.Fatalf("expected new stored sample, got %+v", res)
    }
    if res.OffersCount != 2 {
        t.Fatalf("expected 2 offers, got %d", res.OffersCount)
    }
    got, err := s.Store.GetSampleByKey(context.Background(), "sup-1", CriteriaKey(sampleCriteria()))
    if err != nil {
        t.Fatal(err)
    }
    if got.ID == "" || got.ContentHash == "" {
        t.Fatalf("sample missing identity: %+v", got)
    }
}

func TestRecordIdenticalReorderedIsNoop(t *testing.T) {
    s := newTestService()
    ctx := context.Background()
    if _, err := s.Record(ctx, "sup-1", sampleCriteria(), sampleOffers()); err != nil {
        t.Fatal(err)
    }
    first, _ := s.Store.GetSampleByKey(ctx, "sup-1", CriteriaKey(sampleCriteria()))

    reordered := sampleOffers()
    reordered[0], reordered[1] = reordered[1], reordered[0]
    res, err := s.Record(ctx, "sup-1", sampleCriteria(), reordered)
    if err != nil {
        t.Fatal(err)
    }
    if res.Stored || !res.Duplicate {
        t.Fatalf("expected duplicate no-op, got %+v", res)
    }
    if res.Message == "" {
        t.Fatal("duplicate result must explain itself")
    }
    after, _ := s.Store.GetSampleByKey(ctx, "sup-1", CriteriaKey(sampleCriteria()))
    if !after.FetchedAt.Equal(first.FetchedAt) {
        t.Fatal("duplicate must not touch the stored sample")
    }
}

func TestRecordChangedPriceOverwrites(t *testing.T) {
    s := newTestService()
    ctx := context.Background()
    if _, err := s.Record(ctx, "sup-1", sampleCriteria(), sampleOffers()); err != nil {
        t.Fatal(err)
    }
    first, _ := s.Store.GetSampleByKey(ctx, "sup-1", CriteriaKey(sampleCriteria()))

    changed := sampleOffers()
    changed[1].TotalPrice = 245.00
    res, err := s.Record(ctx, "sup-1", sampleCriteria(), changed)
    if err != nil {
        t.Fatal(err)
    }
    if !res.Stored || res.IsNew || res.Duplicate {
        t.Fatalf("expected in-place overwrite, got %+v", res)
    }
    after, _ := s.Store.GetSampleByKey(ctx, "sup-1", CriteriaKey(sampleCriteria()))
    if after.ID != first.ID {
        t.Fatal("overwrite must keep the sample identity")
    }
    if after.ContentHash == first.ContentHash {
        t.Fatal("content hash must change with the offer set")
    }
    if after.Offers[1].TotalPrice != 245.00 {
        t.Fatalf("expected updated price, got %v", after.Offers[1].TotalPrice)
    }
}

func TestCriteriaKeyDistinguishesTuples(t *testing.T) {
    a := sampleCriteria()
    b := sampleCriteria()
    b.DriverAge = 21
    if CriteriaKey(a) == CriteriaKey(b) {
        t.Fatal("different driver ages must address different slots")
    }
    if CriteriaKey(a) != CriteriaKey(sampleCriteria()) {
        t.Fatal("identical tuples must share a slot")
    }
}

func TestContentHashIgnoresOrder(t *testing.T) {
    a := sampleOffers()
    b := sampleOffers()
    b[0], b[1] = b[1], b[0]
    if ContentHash(a) != ContentHash(b) {
        t.Fatal("hash must be order independent")
    }
    b[0].TotalPrice++
    if ContentHash(a) == ContentHash(b) {
        t.Fatal("hash must reflect offer content")
    }
}

const jsonAvailBody = `{"Offers":[
  {"supplierOfferRef":"ECMN","vehicleClass":"ECMN","currency":"GBP","totalPrice":199.5,"availabilityStatus":"available"}
]}`

func TestFetchAndStoreXMLRequest(t *testing.T) {
    var gotBody string
    var gotContentType string
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        b, _ := io.ReadAll(r.Body)
        gotBody = string(b)
        gotContentType = r.Header.Get("Content-Type")
        w.Header().Set("Content-Type", "application/json")
        _, _ = w.Write([]byte(jsonAvailBody))
    }))
    defer srv.Close()

    s := newTestService()
    ctx := context.Background()
    cfg := model.SupplierConfig{SupplierID: "sup-1", AvailabilityURL: srv.URL, RequestorID: "op-1"}
    if err := s.Store.SaveSupplierConfig(ctx, cfg); err != nil {
        t.Fatal(err)
    }

    res, err := s.FetchAndStore(ctx, "sup-1", sampleCriteria())
    if err != nil {
        t.Fatal(err)
    }
    if !res.Stored || !res.IsNew || res.OffersCount != 1 {
        t.Fatalf("unexpected result %+v", res)
    }
    if gotContentType != "application/xml" {
        t.Fatalf("expected XML request, got %s", gotContentType)
    }
    for _, want := range []string{"OTA_VehAvailRateRQ", `LocationCode="GBMAN"`, `ID="op-1"`, `Age="30"`} {
        if !strings.Contains(gotBody, want) {
            t.Fatalf("request body missing %s:\n%s", want, gotBody)
        }
    }
}

func TestFetchAndStoreCountsDroppedOffers(t *testing.T) {
    body := `{"Offers":[{"supplierOfferRef":"OF-1","vehicleClass":"ECMN","totalPrice":120.5,"currency":"EUR"},{"vehicleClass":"CDMR","totalPrice":99}]}`
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.Header().Set("Content-Type", "application/json")
        _, _ = w.Write([]byte(body))
    }))
    defer srv.Close()

    s := newTestService()
    ctx := context.Background()
    cfg := model.SupplierConfig{SupplierID: "sup-1", AvailabilityURL: srv.URL, RequestorID: "op-1"}
    if err := s.Store.SaveSupplierConfig(ctx, cfg); err != nil {
        t.Fatal(err)
    }

    res, err := s.FetchAndStore(ctx, "sup-1", sampleCriteria())
    if err != nil {
        t.Fatal(err)
    }
    if res.OffersCount != 1 {
        t.Fatalf("expected 1 stored offer, got %+v", res)
    }
    // the ref-less offer is excluded from the sample but must be reported
    if res.Dropped != 1 {
        t.Fatalf("expected 1 dropped offer, got %+v", res)
    }
}

func TestFetchAndStoreUnrecognizedResponse(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        _, _ = w.Write([]byte(`{"whatever":1}`))
    }))
    defer srv.Close()

    s := newTestService()
    ctx := context.Background()
    _ = s.Store.SaveSupplierConfig(ctx, model.SupplierConfig{SupplierID: "sup-1", AvailabilityURL: srv.URL})

    _, err := s.FetchAndStore(ctx, "sup-1", sampleCriteria())
    if err == nil {
        t.Fatal("expected invalid format error")
    }
}
