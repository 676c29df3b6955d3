// Package samples fetches availability responses from supplier endpoints and
// stores at most one live sample per search-criteria tuple.
package samples

import (
    "crypto/sha256"
    "encoding/hex"
    "encoding/json"
    "sort"
    "strconv"
    "strings"

    "supplygw/internal/model"
)

// CriteriaKey identifies a sample slot. Two fetches with an identical tuple
// address the same slot regardless of what the supplier returned.
func CriteriaKey(c model.SearchCriteria) string {
    return strings.Join([]string{
        c.PickupLoc,
        c.DropoffLoc,
        c.PickupISO,
        c.DropoffISO,
        c.RequestorID,
        strconv.Itoa(c.DriverAge),
        c.CitizenCountry,
        c.AdapterType,
    }, "|")
}

// ContentHash fingerprints an offer set independent of supplier ordering:
// reordered but otherwise identical responses hash the same.
func ContentHash(offers []model.VehicleOffer) string {
    sorted := make([]model.VehicleOffer, len(offers))
    copy(sorted, offers)
    sort.Slice(sorted, func(i, j int) bool { return sorted[i].SupplierOfferRef < sorted[j].SupplierOfferRef })
    h := sha256.New()
    for _, o := range sorted {
        b, _ := json.Marshal(o)
        h.Write(b)
        h.Write([]byte{'\n'})
    }
    return hex.EncodeToString(h.Sum(nil))
}
