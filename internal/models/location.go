package models

import "time"

// Location is the customer's resolved place, persisted in the state
// store and rehydrated on the next session.
type Location struct {
	CustomerID int64     `json:"customer_id"`
	Area       string    `json:"area"`
	City       string    `json:"city"`
	Address    string    `json:"address"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// GeocodeAddress holds the structured components returned by the
// geocoding provider. Field names follow the provider payload.
type GeocodeAddress struct {
	HouseNumber   string `json:"house_number,omitempty"`
	Road          string `json:"road,omitempty"`
	Suburb        string `json:"suburb,omitempty"`
	Neighbourhood string `json:"neighbourhood,omitempty"`
	Village       string `json:"village,omitempty"`
	Town          string `json:"town,omitempty"`
	City          string `json:"city,omitempty"`
	StateDistrict string `json:"state_district,omitempty"`
	County        string `json:"county,omitempty"`
	State         string `json:"state,omitempty"`
	Postcode      string `json:"postcode,omitempty"`
	CountryCode   string `json:"country_code,omitempty"`
}

// GeocodeResult is one candidate from forward or reverse geocoding.
type GeocodeResult struct {
	DisplayName string         `json:"display_name"`
	Latitude    float64        `json:"latitude"`
	Longitude   float64        `json:"longitude"`
	Address     GeocodeAddress `json:"address"`
}

// Area returns the most specific locality component, falling back in
// the order suburb, neighbourhood, village, town.
func (r *GeocodeResult) Area() string {
	for _, v := range []string{r.Address.Suburb, r.Address.Neighbourhood, r.Address.Village, r.Address.Town} {
		if v != "" {
			return v
		}
	}
	return ""
}

// CityName falls back city, state_district, county.
func (r *GeocodeResult) CityName() string {
	for _, v := range []string{r.Address.City, r.Address.StateDistrict, r.Address.County} {
		if v != "" {
			return v
		}
	}
	return ""
}
