package models

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// ErrMissingField is returned by Normalize when a required field is blank.
var ErrMissingField = errors.New("missing required field")

// ErrInvalidPropertyType is returned for a property type outside the enum.
var ErrInvalidPropertyType = errors.New("invalid property type")

// Number is a leniently parsed numeric form field. It accepts JSON numbers and
// numeric strings; anything else (null, "", booleans, garbage) leaves it absent.
type Number struct {
	value float64
	valid bool
}

// NewNumber returns a present Number.
func NewNumber(v float64) Number {
	return Number{value: v, valid: true}
}

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{}
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	*n = Number{value: v, valid: true}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.value)
}

// Float returns the parsed value and whether it was present.
func (n Number) Float() (float64, bool) {
	return n.value, n.valid
}

// Int returns the value truncated toward zero. Values outside the int32
// range of the integer columns are treated as absent.
func (n Number) Int() (int, bool) {
	if !n.valid {
		return 0, false
	}
	v := math.Trunc(n.value)
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, false
	}
	return int(v), true
}

func (n Number) FloatPtr() *float64 {
	if !n.valid {
		return nil
	}
	v := n.value
	return &v
}

func (n Number) IntPtr() *int {
	v, ok := n.Int()
	if !ok {
		return nil
	}
	return &v
}

type ValuationInput struct {
	Address      string       `json:"address" binding:"required"`
	City         string       `json:"city" binding:"required"`
	State        string       `json:"state" binding:"required"`
	ZipCode      string       `json:"zipCode"`
	PropertyType PropertyType `json:"propertyType" binding:"required"`
	Bedrooms     Number       `json:"bedrooms"`
	Bathrooms    Number       `json:"bathrooms"`
	Sqft         Number       `json:"sqft"`
	YearBuilt    Number       `json:"yearBuilt"`
	ListPrice    Number       `json:"listPrice"`
}

func (in *ValuationInput) Normalize() error {
	trim(&in.Address, &in.City, &in.State, &in.ZipCode)
	in.PropertyType = PropertyType(strings.TrimSpace(string(in.PropertyType)))
	if err := required(in.Address, in.City, in.State, string(in.PropertyType)); err != nil {
		return err
	}
	if !in.PropertyType.Valid() {
		return ErrInvalidPropertyType
	}
	return nil
}

type MarketInput struct {
	City    string `json:"city" binding:"required"`
	State   string `json:"state" binding:"required"`
	ZipCode string `json:"zipCode"`
}

func (in *MarketInput) Normalize() error {
	trim(&in.City, &in.State, &in.ZipCode)
	return required(in.City, in.State)
}

type InvestmentInput struct {
	PurchasePrice Number `json:"purchasePrice"`
	DownPayment   Number `json:"downPayment"`
	InterestRate  Number `json:"interestRate"`
	LoanTerm      Number `json:"loanTerm"`
	MonthlyRent   Number `json:"monthlyRent"`
	PropertyTaxes Number `json:"propertyTaxes"`
	Insurance     Number `json:"insurance"`
	Maintenance   Number `json:"maintenance"`
	Vacancy       Number `json:"vacancy"`
	City          string `json:"city" binding:"required"`
	State         string `json:"state" binding:"required"`
}

func (in *InvestmentInput) Normalize() error {
	trim(&in.City, &in.State)
	return required(in.City, in.State)
}

type ComparablesInput struct {
	Address      string       `json:"address" binding:"required"`
	City         string       `json:"city" binding:"required"`
	State        string       `json:"state" binding:"required"`
	PropertyType PropertyType `json:"propertyType" binding:"required"`
	Bedrooms     Number       `json:"bedrooms"`
	Bathrooms    Number       `json:"bathrooms"`
	Sqft         Number       `json:"sqft"`
}

func (in *ComparablesInput) Normalize() error {
	trim(&in.Address, &in.City, &in.State)
	in.PropertyType = PropertyType(strings.TrimSpace(string(in.PropertyType)))
	if err := required(in.Address, in.City, in.State, string(in.PropertyType)); err != nil {
		return err
	}
	if !in.PropertyType.Valid() {
		return ErrInvalidPropertyType
	}
	return nil
}

type NeighborhoodInput struct {
	Address string `json:"address"`
	City    string `json:"city" binding:"required"`
	State   string `json:"state" binding:"required"`
	ZipCode string `json:"zipCode"`
}

func (in *NeighborhoodInput) Normalize() error {
	trim(&in.Address, &in.City, &in.State, &in.ZipCode)
	return required(in.City, in.State)
}

type CreateReportInput struct {
	Title      string          `json:"title" binding:"required"`
	Type       AnalysisType    `json:"type" binding:"required"`
	Content    json.RawMessage `json:"content"`
	PropertyID string          `json:"propertyId"`
}

func (in *CreateReportInput) Normalize() error {
	trim(&in.Title, &in.PropertyID)
	in.Type = AnalysisType(strings.TrimSpace(string(in.Type)))
	if err := required(in.Title, string(in.Type)); err != nil {
		return err
	}
	if !in.Type.Valid() {
		return errors.New("invalid report type")
	}
	if len(in.Content) == 0 {
		in.Content = json.RawMessage("null")
	}
	return nil
}

type CheckoutInput struct {
	PriceID string `json:"priceId"`
}

func trim(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}

func required(values ...string) error {
	for _, v := range values {
		if v == "" {
			return ErrMissingField
		}
	}
	return nil
}
