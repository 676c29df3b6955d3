package model

import "time"

// Core domain types for supplier integration data

// Location is a coverage point keyed by UN/LOCODE (2-letter country + 3-char place).
type Location struct {
    Unlocode  string  `json:"unlocode" csv:"unlocode"`
    Country   string  `json:"country,omitempty" csv:"country"`
    Place     string  `json:"place,omitempty" csv:"place"`
    IataCode  string  `json:"iataCode,omitempty" csv:"iata_code"`
    Latitude  float64 `json:"latitude,omitempty" csv:"latitude"`
    Longitude float64 `json:"longitude,omitempty" csv:"longitude"`
}

// Branch is a supplier rental station. BranchCode is unique per supplier;
// imports update a matching branch in place and never delete.
type Branch struct {
    BranchCode  string  `json:"branchCode" csv:"branch_code"`
    Name        string  `json:"name,omitempty" csv:"name"`
    NatoLocode  string  `json:"natoLocode,omitempty" csv:"nato_locode"`
    Latitude    float64 `json:"latitude,omitempty" csv:"latitude"`
    Longitude   float64 `json:"longitude,omitempty" csv:"longitude"`
    City        string  `json:"city,omitempty" csv:"city"`
    Country     string  `json:"country,omitempty" csv:"country"`
    CountryCode string  `json:"countryCode,omitempty" csv:"country_code"`
}

// Availability status of a single offer.
const (
    StatusAvailable = "AVAILABLE"
    StatusOnRequest = "ON_REQUEST"
    StatusSoldOut   = "SOLD_OUT"
)

type PricedEquip struct {
    Code     string  `json:"code"`
    Amount   float64 `json:"amount,omitempty"`
    Currency string  `json:"currency,omitempty"`
}

// VehicleOffer is produced transiently per availability fetch and persisted
// only inside an AvailabilitySample.
type VehicleOffer struct {
    SupplierOfferRef string        `json:"supplierOfferRef"`
    VehicleClass     string        `json:"vehicleClass,omitempty"`
    MakeModel        string        `json:"makeModel,omitempty"`
    Currency         string        `json:"currency,omitempty"`
    TotalPrice       float64       `json:"totalPrice,omitempty"`
    Status           string        `json:"availabilityStatus,omitempty"`
    PictureURL       string        `json:"pictureUrl,omitempty"`
    IncludedTerms    []string      `json:"included,omitempty"`
    NotIncludedTerms []string      `json:"notIncluded,omitempty"`
    PricedEquips     []PricedEquip `json:"pricedEquips,omitempty"`
}

// SearchCriteria addresses one stored availability sample. Two fetches with an
// identical tuple refer to the same sample.
type SearchCriteria struct {
    PickupLoc      string `json:"pickupLoc"`
    DropoffLoc     string `json:"dropoffLoc"`
    PickupISO      string `json:"pickupIso"`
    DropoffISO     string `json:"dropoffIso"`
    RequestorID    string `json:"requestorId,omitempty"`
    DriverAge      int    `json:"driverAge,omitempty"`
    CitizenCountry string `json:"citizenCountry,omitempty"`
    AdapterType    string `json:"adapterType,omitempty"`
}

type AvailabilitySample struct {
    ID          string         `json:"id"`
    Criteria    SearchCriteria `json:"criteria"`
    Offers      []VehicleOffer `json:"offers"`
    ContentHash string         `json:"contentHash"`
    FetchedAt   time.Time      `json:"fetchedAt"`
}

// FetchStoreResult reports the outcome of one availability fetch-and-store.
type FetchStoreResult struct {
    Stored      bool   `json:"stored"`
    IsNew       bool   `json:"isNew"`
    Duplicate   bool   `json:"duplicate"`
    OffersCount int    `json:"offersCount"`
    // Dropped counts offers the supplier returned that failed normalization
    // and were excluded from the stored sample.
    Dropped int    `json:"dropped,omitempty"`
    Message string `json:"message,omitempty"`
}

// RecordError describes one failed record within an import batch. Index refers
// to the position in the source sequence, not the filtered output.
type RecordError struct {
    Index      int    `json:"index"`
    Identifier string `json:"identifier,omitempty"`
    Message    string `json:"message"`
    Details    string `json:"details,omitempty"`
}

// ImportResult is the format-agnostic outcome of every import operation.
type ImportResult struct {
    Total    int           `json:"total"`
    Imported int           `json:"imported"`
    Updated  int           `json:"updated"`
    Skipped  int           `json:"skipped"`
    Errors   []RecordError `json:"errors"`
}

type VerificationStep struct {
    Name   string `json:"name"`
    Passed bool   `json:"passed"`
    Detail string `json:"detail,omitempty"`
}

type VerificationResult struct {
    ID        string             `json:"id"`
    Passed    bool               `json:"passed"`
    Steps     []VerificationStep `json:"steps"`
    CreatedAt time.Time          `json:"createdAt"`
}

type EndpointProbeResult struct {
    OK    bool   `json:"ok"`
    Ms    int64  `json:"ms"`
    Error string `json:"error,omitempty"`
}

// EndpointTestResult is valid only for the address it was run against; a
// cached result must be discarded when the configured address changes.
type EndpointTestResult struct {
    OK      bool                            `json:"ok"`
    Addr    string                          `json:"addr"`
    TotalMs int64                           `json:"totalMs"`
    Probes  map[string]*EndpointProbeResult `json:"probes"`
    RunAt   time.Time                       `json:"runAt"`
}

// SupplierConfig is the persisted endpoint configuration consumed by the
// engine. Role selects the verification step subset.
type SupplierConfig struct {
    SupplierID      string `json:"supplierId" yaml:"supplierId"`
    HealthURL       string `json:"healthUrl,omitempty" yaml:"healthUrl"`
    LocationsURL    string `json:"locationsUrl,omitempty" yaml:"locationsUrl"`
    BranchesURL     string `json:"branchesUrl,omitempty" yaml:"branchesUrl"`
    AvailabilityURL string `json:"availabilityUrl,omitempty" yaml:"availabilityUrl"`
    BookingsURL     string `json:"bookingsUrl,omitempty" yaml:"bookingsUrl"`
    LegacyRoot      string `json:"legacyRequestRoot,omitempty" yaml:"legacyRequestRoot"`
    RequestorID     string `json:"requestorId,omitempty" yaml:"requestorId"`
    Role            string `json:"role,omitempty" yaml:"role"` // full, locations-only
}

// Addr is the address identity used for endpoint-test cache invalidation: a
// stored test result is reusable only while Addr is unchanged.
func (c SupplierConfig) Addr() string {
    return c.HealthURL + "|" + c.LocationsURL + "|" + c.AvailabilityURL + "|" + c.BookingsURL
}
