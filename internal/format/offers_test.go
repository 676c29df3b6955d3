package format

import "testing"

const otaAvailFixture = `<OTA_VehAvailRateRS>
  <VehAvail Status="Available">
    <Vehicle Code="CDMR" PictureURL="https://img.example/focus.png">
      <VehMakeModel Name="Ford Focus"/>
    </Vehicle>
    <TotalCharge CurrencyCode="EUR" RateTotalAmount="199.50"/>
    <RateQualifier RateQualifier="REF-1"/>
    <TermsAndConditions>
      <Included>Insurance</Included>
      <Included>Tax</Included>
      <NotIncluded>Fuel</NotIncluded>
    </TermsAndConditions>
    <PricedEquips>
      <PricedEquip>
        <Equipment EquipType="GPS"/>
        <Charge Amount="5" CurrencyCode="EUR"/>
      </PricedEquip>
    </PricedEquips>
  </VehAvail>
  <VehAvail Status="SoldOut">
    <Vehicle Code="FVMR">
      <VehMakeModel Name="VW Sharan"/>
    </Vehicle>
    <TotalCharge CurrencyCode="EUR" RateTotalAmount="310"/>
    <RateQualifier RateQualifier="REF-2"/>
  </VehAvail>
</OTA_VehAvailRateRS>`

func TestNormalizeOffersOTA(t *testing.T) {
    det := Detect(otaAvailFixture, EntityOffer)
    if det.Format != XML { t.Fatalf("format: %s", det.Format) }
    offers, errs := NormalizeOffers(det)
    if len(errs) != 0 { t.Fatalf("errs: %+v", errs) }
    if len(offers) != 2 { t.Fatalf("offers: %+v", offers) }
    o := offers[0]
    if o.SupplierOfferRef != "REF-1" || o.VehicleClass != "CDMR" || o.MakeModel != "Ford Focus" {
        t.Fatalf("offer: %+v", o)
    }
    if o.Currency != "EUR" || o.TotalPrice != 199.50 { t.Fatalf("charge: %+v", o) }
    if o.Status != "AVAILABLE" { t.Fatalf("status: %q", o.Status) }
    if len(o.IncludedTerms) != 2 || len(o.NotIncludedTerms) != 1 { t.Fatalf("terms: %+v", o) }
    if len(o.PricedEquips) != 1 || o.PricedEquips[0].Code != "GPS" || o.PricedEquips[0].Amount != 5 {
        t.Fatalf("equips: %+v", o.PricedEquips)
    }
    if offers[1].Status != "SOLD_OUT" { t.Fatalf("status: %q", offers[1].Status) }
}

func TestNormalizeOffersJSON(t *testing.T) {
    raw := `{"offers":[
      {"supplierOfferRef":"J1","vehicleClass":"edmr","makeModel":"Fiat 500e","currency":"eur","totalPrice":88.2,"availabilityStatus":"on_request","included":["Insurance"]},
      {"vehicleClass":"MVMR"}
    ]}`
    offers, errs := NormalizeOffers(Detect(raw, EntityOffer))
    if len(offers) != 1 { t.Fatalf("offers: %+v", offers) }
    o := offers[0]
    if o.SupplierOfferRef != "J1" || o.VehicleClass != "EDMR" || o.Currency != "EUR" {
        t.Fatalf("offer: %+v", o)
    }
    if o.Status != "ON_REQUEST" { t.Fatalf("status: %q", o.Status) }
    if len(errs) != 1 || errs[0].Index != 1 || errs[0].Message != "missing supplierOfferRef" {
        t.Fatalf("errs: %+v", errs)
    }
}

func TestNormalizeOffersDuplicateRefLastWins(t *testing.T) {
    raw := `[{"id":"R1","totalPrice":10},{"id":"R1","totalPrice":12}]`
    offers, _ := NormalizeOffers(Detect(raw, EntityOffer))
    if len(offers) != 1 || offers[0].TotalPrice != 12 { t.Fatalf("offers: %+v", offers) }
}
