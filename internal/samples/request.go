package samples

import (
    "encoding/json"
    "encoding/xml"

    "supplygw/internal/model"
)

// OTA VehAvailRateRQ request shell. Only the elements suppliers actually read
// are emitted.

type otaAvailRQ struct {
    XMLName xml.Name   `xml:"OTA_VehAvailRateRQ"`
    Version string     `xml:"Version,attr"`
    POS     otaPOS     `xml:"POS"`
    Core    otaRQCore  `xml:"VehAvailRQCore"`
    Info    *otaRQInfo `xml:"VehAvailRQInfo,omitempty"`
}

type otaPOS struct {
    RequestorID otaRequestorID `xml:"Source>RequestorID"`
}

type otaRequestorID struct {
    ID string `xml:"ID,attr"`
}

type otaRQCore struct {
    Status   string        `xml:"Status,attr"`
    RentalPd otaRentalPd   `xml:"VehRentalCore"`
    DriverAge *otaDriverAge `xml:"DriverType,omitempty"`
}

type otaRentalPd struct {
    PickUpDateTime string      `xml:"PickUpDateTime,attr"`
    ReturnDateTime string      `xml:"ReturnDateTime,attr"`
    PickUpLocation otaLocation `xml:"PickUpLocation"`
    ReturnLocation otaLocation `xml:"ReturnLocation"`
}

type otaLocation struct {
    LocationCode string `xml:"LocationCode,attr"`
}

type otaDriverAge struct {
    Age int `xml:"Age,attr"`
}

type otaRQInfo struct {
    Customer otaCustomer `xml:"Customer"`
}

type otaCustomer struct {
    CitizenCountryName otaCitizen `xml:"Primary>CitizenCountryName"`
}

type otaCitizen struct {
    Code string `xml:"Code,attr"`
}

// BuildAvailabilityRequestXML renders the criteria tuple as an OTA
// VehAvailRateRQ document.
func BuildAvailabilityRequestXML(c model.SearchCriteria) []byte {
    rq := otaAvailRQ{
        Version: "1.0",
        POS:     otaPOS{RequestorID: otaRequestorID{ID: c.RequestorID}},
        Core: otaRQCore{
            Status: "Available",
            RentalPd: otaRentalPd{
                PickUpDateTime: c.PickupISO,
                ReturnDateTime: c.DropoffISO,
                PickUpLocation: otaLocation{LocationCode: c.PickupLoc},
                ReturnLocation: otaLocation{LocationCode: c.DropoffLoc},
            },
        },
    }
    if c.DriverAge > 0 { rq.Core.DriverAge = &otaDriverAge{Age: c.DriverAge} }
    if c.CitizenCountry != "" {
        rq.Info = &otaRQInfo{Customer: otaCustomer{CitizenCountryName: otaCitizen{Code: c.CitizenCountry}}}
    }
    b, _ := xml.Marshal(rq)
    return append([]byte(xml.Header), b...)
}

// BuildAvailabilityRequestJSON renders the criteria tuple for JSON adapters.
func BuildAvailabilityRequestJSON(c model.SearchCriteria) []byte {
    b, _ := json.Marshal(c)
    return b
}
