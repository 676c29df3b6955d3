package api

import (
    "fmt"
    "net/url"
    "time"

    "supplygw/internal/model"
)

func validateCriteria(c model.SearchCriteria) error {
    if c.PickupLoc == "" { return fmt.Errorf("pickupLoc is required") }
    if c.DropoffLoc == "" { return fmt.Errorf("dropoffLoc is required") }
    pickup, err := parseCriteriaTime(c.PickupISO)
    if err != nil { return fmt.Errorf("pickupIso: %w", err) }
    dropoff, err := parseCriteriaTime(c.DropoffISO)
    if err != nil { return fmt.Errorf("dropoffIso: %w", err) }
    if !dropoff.After(pickup) { return fmt.Errorf("dropoffIso must be after pickupIso") }
    if c.DriverAge < 0 || c.DriverAge > 120 { return fmt.Errorf("driverAge out of range") }
    return nil
}

func parseCriteriaTime(s string) (time.Time, error) {
    if s == "" { return time.Time{}, fmt.Errorf("required") }
    for _, layout := range []string{"2006-01-02T15:04:05", time.RFC3339} {
        if t, err := time.Parse(layout, s); err == nil { return t, nil }
    }
    return time.Time{}, fmt.Errorf("not a valid timestamp: %s", s)
}

func validateSupplierConfig(cfg model.SupplierConfig) error {
    for name, raw := range map[string]string{
        "healthUrl":       cfg.HealthURL,
        "locationsUrl":    cfg.LocationsURL,
        "branchesUrl":     cfg.BranchesURL,
        "availabilityUrl": cfg.AvailabilityURL,
        "bookingsUrl":     cfg.BookingsURL,
    } {
        if raw == "" { continue }
        u, err := url.Parse(raw)
        if err != nil || u.Scheme == "" || u.Host == "" {
            return fmt.Errorf("%s is not a valid absolute URL", name)
        }
    }
    if cfg.Role != "" && cfg.Role != "full" && cfg.Role != "locations-only" {
        return fmt.Errorf("invalid role: %s", cfg.Role)
    }
    if cfg.LocationsURL == "" && cfg.BranchesURL == "" {
        return fmt.Errorf("at least one of locationsUrl or branchesUrl is required")
    }
    return nil
}
