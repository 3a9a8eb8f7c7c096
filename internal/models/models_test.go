package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeocodeResult_Area(t *testing.T) {
	t.Run("PrefersSuburb", func(t *testing.T) {
		r := &GeocodeResult{Address: GeocodeAddress{
			Suburb:        "Koramangala",
			Neighbourhood: "5th Block",
			Village:       "Somewhere",
			Town:          "Elsewhere",
		}}
		assert.Equal(t, "Koramangala", r.Area())
	})

	t.Run("FallbackChain", func(t *testing.T) {
		r := &GeocodeResult{Address: GeocodeAddress{Town: "Hosur"}}
		assert.Equal(t, "Hosur", r.Area())

		r = &GeocodeResult{Address: GeocodeAddress{Village: "Anekal", Town: "Hosur"}}
		assert.Equal(t, "Anekal", r.Area())

		r = &GeocodeResult{}
		assert.Equal(t, "", r.Area())
	})
}

func TestGeocodeResult_CityName(t *testing.T) {
	r := &GeocodeResult{Address: GeocodeAddress{City: "Bengaluru", County: "Bangalore Urban"}}
	assert.Equal(t, "Bengaluru", r.CityName())

	r = &GeocodeResult{Address: GeocodeAddress{StateDistrict: "Bangalore Division", County: "Bangalore Urban"}}
	assert.Equal(t, "Bangalore Division", r.CityName())

	r = &GeocodeResult{Address: GeocodeAddress{County: "Bangalore Urban"}}
	assert.Equal(t, "Bangalore Urban", r.CityName())

	r = &GeocodeResult{}
	assert.Equal(t, "", r.CityName())
}
