package models

import "time"

type PropertyType string

const (
	PropertySingleFamily PropertyType = "single-family"
	PropertyCondo        PropertyType = "condo"
	PropertyMultiFamily  PropertyType = "multi-family"
	PropertyLand         PropertyType = "land"
	PropertyCommercial   PropertyType = "commercial"
)

// Valid reports whether t is one of the supported property types.
func (t PropertyType) Valid() bool {
	switch t {
	case PropertySingleFamily, PropertyCondo, PropertyMultiFamily, PropertyLand, PropertyCommercial:
		return true
	}
	return false
}

// Property is created by the valuation flow and never mutated afterwards.
// Optional numeric attributes are nil when the caller did not supply them.
type Property struct {
	ID           string       `json:"id"`
	UserID       string       `json:"userId"`
	Address      string       `json:"address"`
	City         string       `json:"city"`
	State        string       `json:"state"`
	ZipCode      *string      `json:"zipCode"`
	PropertyType PropertyType `json:"propertyType"`
	Bedrooms     *int         `json:"bedrooms"`
	Bathrooms    *float64     `json:"bathrooms"`
	Sqft         *int         `json:"sqft"`
	YearBuilt    *int         `json:"yearBuilt"`
	ListPrice    *float64     `json:"listPrice"`
	CreatedAt    time.Time    `json:"createdAt"`
}
