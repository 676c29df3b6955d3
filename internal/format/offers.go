package format

import (
    "strings"

    "supplygw/internal/model"
)

// NormalizeOffers extracts VehicleOffer records from an availability
// response. JSON bodies use flat dashboard-style keys; XML bodies follow the
// OTA availability shape with nested charge and terms structures. The adapter
// side-channel variant arrives as plain JSON and takes the same path.
func NormalizeOffers(det Detection) ([]model.VehicleOffer, []model.RecordError) {
    items, errs := itemMaps(det)
    out := []model.VehicleOffer{}
    pos := map[string]int{}
    for i, m := range items {
        if m == nil { continue }
        o := offerFromMap(m)
        if o.SupplierOfferRef == "" {
            errs = append(errs, model.RecordError{Index: i, Message: "missing supplierOfferRef"})
            continue
        }
        if j, ok := pos[o.SupplierOfferRef]; ok {
            out[j] = o
            continue
        }
        pos[o.SupplierOfferRef] = len(out)
        out = append(out, o)
    }
    return out, errs
}

func offerFromMap(m map[string]any) model.VehicleOffer {
    o := model.VehicleOffer{
        SupplierOfferRef: fieldStr(m, "supplierOfferRef", "offerRef", "reference", "id"),
        VehicleClass:     strings.ToUpper(fieldStr(m, "vehicleClass", "class", "acrissCode")),
        MakeModel:        fieldStr(m, "makeModel", "model"),
        Currency:         strings.ToUpper(fieldStr(m, "currency", "currencyCode")),
        TotalPrice:       fieldFloat(m, "totalPrice", "total", "amount"),
        Status:           statusValue(fieldStr(m, "availabilityStatus", "status")),
        PictureURL:       fieldStr(m, "pictureUrl", "pictureURL"),
        IncludedTerms:    stringList(m, "included", "includedTerms"),
        NotIncludedTerms: stringList(m, "notIncluded", "notIncludedTerms"),
        PricedEquips:     equipList(m),
    }
    // OTA nesting: <Vehicle Code=.. PictureURL=..><VehMakeModel Name=../></Vehicle>
    if v, ok := field(m, "Vehicle"); ok {
        if vm, ok := v.(map[string]any); ok {
            if o.VehicleClass == "" { o.VehicleClass = strings.ToUpper(fieldStr(vm, "Code")) }
            if o.PictureURL == "" { o.PictureURL = fieldStr(vm, "PictureURL") }
            if mk, ok := field(vm, "VehMakeModel"); ok {
                switch t := mk.(type) {
                case map[string]any:
                    if o.MakeModel == "" { o.MakeModel = fieldStr(t, "Name") }
                case string:
                    if o.MakeModel == "" { o.MakeModel = t }
                }
            }
        }
    }
    // OTA charge: <TotalCharge CurrencyCode=.. RateTotalAmount=../>
    if v, ok := field(m, "TotalCharge"); ok {
        if cm, ok := v.(map[string]any); ok {
            if o.Currency == "" { o.Currency = strings.ToUpper(fieldStr(cm, "CurrencyCode")) }
            if o.TotalPrice == 0 { o.TotalPrice = fieldFloat(cm, "RateTotalAmount", "EstimatedTotalAmount") }
        }
    }
    if v, ok := field(m, "RateQualifier"); ok {
        if rm, ok := v.(map[string]any); ok {
            if o.SupplierOfferRef == "" { o.SupplierOfferRef = fieldStr(rm, "RateQualifier") }
        }
    }
    if v, ok := field(m, "TermsAndConditions"); ok {
        if tm, ok := v.(map[string]any); ok {
            if len(o.IncludedTerms) == 0 { o.IncludedTerms = stringList(tm, "Included") }
            if len(o.NotIncludedTerms) == 0 { o.NotIncludedTerms = stringList(tm, "NotIncluded") }
        }
    }
    if len(o.PricedEquips) == 0 {
        if v, ok := field(m, "PricedEquips"); ok {
            if pm, ok := v.(map[string]any); ok { o.PricedEquips = otaEquips(pm) }
        }
    }
    return o
}

// statusValue maps supplier status spellings onto the closed availability enum.
func statusValue(s string) string {
    switch strings.ToUpper(strings.ReplaceAll(s, "_", "")) {
    case "AVAILABLE", "AVAIL":
        return model.StatusAvailable
    case "ONREQUEST", "REQUEST":
        return model.StatusOnRequest
    case "SOLDOUT", "UNAVAILABLE", "NOTAVAILABLE":
        return model.StatusSoldOut
    case "":
        return ""
    default:
        return model.StatusOnRequest
    }
}

func stringList(m map[string]any, names ...string) []string {
    v, ok := field(m, names...)
    if !ok { return nil }
    switch t := v.(type) {
    case []any:
        out := make([]string, 0, len(t))
        for _, el := range t {
            if s, ok := el.(string); ok && strings.TrimSpace(s) != "" { out = append(out, strings.TrimSpace(s)) }
        }
        return out
    case string:
        if strings.TrimSpace(t) == "" { return nil }
        return []string{strings.TrimSpace(t)}
    default:
        return nil
    }
}

func equipList(m map[string]any) []model.PricedEquip {
    v, ok := field(m, "pricedEquips", "equipment")
    if !ok { return nil }
    arr, ok := v.([]any)
    if !ok { return nil }
    out := []model.PricedEquip{}
    for _, el := range arr {
        em, ok := el.(map[string]any)
        if !ok { continue }
        e := model.PricedEquip{
            Code:     fieldStr(em, "code", "equipType"),
            Amount:   fieldFloat(em, "amount", "charge"),
            Currency: strings.ToUpper(fieldStr(em, "currency", "currencyCode")),
        }
        if e.Code != "" { out = append(out, e) }
    }
    return out
}

// otaEquips unpacks <PricedEquips><PricedEquip><Equipment EquipType=../>
// <Charge Amount=.. CurrencyCode=../></PricedEquip></PricedEquips>.
func otaEquips(m map[string]any) []model.PricedEquip {
    v, ok := field(m, "PricedEquip")
    if !ok { return nil }
    var arr []any
    switch t := v.(type) {
    case []any:
        arr = t
    case map[string]any:
        arr = []any{t}
    default:
        return nil
    }
    out := []model.PricedEquip{}
    for _, el := range arr {
        em, ok := el.(map[string]any)
        if !ok { continue }
        e := model.PricedEquip{}
        if eq, ok := field(em, "Equipment"); ok {
            if eqm, ok := eq.(map[string]any); ok { e.Code = fieldStr(eqm, "EquipType", "Code") }
        }
        if ch, ok := field(em, "Charge"); ok {
            if chm, ok := ch.(map[string]any); ok {
                e.Amount = fieldFloat(chm, "Amount")
                e.Currency = strings.ToUpper(fieldStr(chm, "CurrencyCode"))
            }
        }
        if e.Code != "" { out = append(out, e) }
    }
    return out
}
