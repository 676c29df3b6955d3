package samples

import (
    "context"
    "errors"
    "fmt"
    "io"
    "log/slog"
    "net/http"
    "strings"
    "time"

    "github.com/google/uuid"

    "supplygw/internal/engine"
    "supplygw/internal/format"
    "supplygw/internal/metrics"
    "supplygw/internal/model"
    "supplygw/internal/store"
)

// Service fetches availability from supplier endpoints and stores the
// normalized offer sets as samples, one live sample per criteria tuple.
type Service struct {
    Store  store.Store
    Client *http.Client
    Log    *slog.Logger
}

func NewService(st store.Store, log *slog.Logger) *Service {
    if log == nil { log = slog.Default() }
    return &Service{Store: st, Client: &http.Client{Timeout: 15 * time.Second}, Log: log}
}

// FetchAndStore issues one availability request for the criteria against the
// supplier's configured endpoint, normalizes the response, and records it.
func (s *Service) FetchAndStore(ctx context.Context, supplierID string, c model.SearchCriteria) (model.FetchStoreResult, error) {
    cfg, err := s.Store.GetSupplierConfig(ctx, supplierID)
    if err != nil { return model.FetchStoreResult{}, err }
    if cfg.AvailabilityURL == "" {
        return model.FetchStoreResult{}, errors.New("no availability endpoint configured")
    }
    if c.RequestorID == "" { c.RequestorID = cfg.RequestorID }

    body, contentType := requestBody(c)
    payload, err := s.fetch(ctx, cfg.AvailabilityURL, body, contentType)
    if err != nil { return model.FetchStoreResult{}, err }

    offers, dropped, err := s.normalize(payload)
    if err != nil { return model.FetchStoreResult{}, err }
    res, err := s.Record(ctx, supplierID, c, offers)
    if err != nil { return model.FetchStoreResult{}, err }
    res.Dropped = dropped
    return res, nil
}

// Record stores the offer set under the criteria slot. An identical offer set
// (order-independent) is a no-op; a changed set overwrites in place.
func (s *Service) Record(ctx context.Context, supplierID string, c model.SearchCriteria, offers []model.VehicleOffer) (model.FetchStoreResult, error) {
    key := CriteriaKey(c)
    hash := ContentHash(offers)

    existing, err := s.Store.GetSampleByKey(ctx, supplierID, key)
    switch {
    case errors.Is(err, store.ErrNotFound):
        sample := model.AvailabilitySample{
            ID:          uuid.NewString(),
            Criteria:    c,
            Offers:      offers,
            ContentHash: hash,
            FetchedAt:   time.Now().UTC(),
        }
        if err := s.Store.PutSample(ctx, supplierID, key, sample); err != nil {
            return model.FetchStoreResult{}, err
        }
        metrics.SampleWrites.WithLabelValues("created").Inc()
        s.Log.Info("availability sample stored", "supplier", supplierID, "offers", len(offers))
        return model.FetchStoreResult{Stored: true, IsNew: true, OffersCount: len(offers)}, nil
    case err != nil:
        return model.FetchStoreResult{}, err
    }

    if existing.ContentHash == hash {
        metrics.SampleWrites.WithLabelValues("duplicate").Inc()
        return model.FetchStoreResult{
            Duplicate:   true,
            OffersCount: len(offers),
            Message:     "identical to stored sample, not written",
        }, nil
    }

    existing.Criteria = c
    existing.Offers = offers
    existing.ContentHash = hash
    existing.FetchedAt = time.Now().UTC()
    if err := s.Store.PutSample(ctx, supplierID, key, existing); err != nil {
        return model.FetchStoreResult{}, err
    }
    metrics.SampleWrites.WithLabelValues("overwritten").Inc()
    s.Log.Info("availability sample overwritten", "supplier", supplierID, "offers", len(offers))
    return model.FetchStoreResult{Stored: true, OffersCount: len(offers)}, nil
}

func (s *Service) normalize(payload string) ([]model.VehicleOffer, int, error) {
    det := format.Detect(payload, format.EntityOffer)
    if !det.Recognized {
        return nil, 0, engine.InvalidFormat("unrecognized availability response", &engine.FormatDetails{
            Preview: det.Preview, ReceivedKeys: det.TopKeys,
            Expected: []string{string(format.JSONArray), string(format.JSONWrapped), string(format.XML)},
        })
    }
    offers, recErrs := format.NormalizeOffers(det)
    for _, re := range recErrs {
        s.Log.Warn("offer dropped", "index", re.Index, "reason", re.Message)
    }
    return offers, len(recErrs), nil
}

func requestBody(c model.SearchCriteria) (body []byte, contentType string) {
    if strings.EqualFold(c.AdapterType, "json") {
        return BuildAvailabilityRequestJSON(c), "application/json"
    }
    return BuildAvailabilityRequestXML(c), "application/xml"
}

func (s *Service) fetch(ctx context.Context, url string, body []byte, contentType string) (string, error) {
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(body)))
    if err != nil { return "", engine.Connection("invalid endpoint address", err) }
    req.Header.Set("Content-Type", contentType)
    resp, err := s.Client.Do(req)
    if err != nil { return "", engine.Connection("supplier endpoint unreachable", err) }
    defer func() { _ = resp.Body.Close() }()
    b, err := io.ReadAll(resp.Body)
    if err != nil { return "", engine.Connection("reading supplier response failed", err) }
    switch {
    case resp.StatusCode == http.StatusForbidden:
        return "", engine.NotApproved("supplier account not approved")
    case resp.StatusCode >= 400:
        msg := strings.TrimSpace(string(b))
        if msg == "" { msg = fmt.Sprintf("supplier returned status %d", resp.StatusCode) }
        return "", engine.Upstream(msg, nil)
    }
    return string(b), nil
}
