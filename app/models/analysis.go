package models

import (
	"encoding/json"
	"time"
)

type AnalysisType string

const (
	AnalysisValuation    AnalysisType = "valuation"
	AnalysisMarket       AnalysisType = "market"
	AnalysisInvestment   AnalysisType = "investment"
	AnalysisComparables  AnalysisType = "comparables"
	AnalysisNeighborhood AnalysisType = "neighborhood"
)

// AnalysisTypes lists every supported kind in display order.
var AnalysisTypes = []AnalysisType{
	AnalysisValuation,
	AnalysisMarket,
	AnalysisInvestment,
	AnalysisComparables,
	AnalysisNeighborhood,
}

func (t AnalysisType) Valid() bool {
	for _, k := range AnalysisTypes {
		if t == k {
			return true
		}
	}
	return false
}

// Analysis is one persisted model-generated result.
type Analysis struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId"`
	PropertyID *string         `json:"propertyId"`
	Type       AnalysisType    `json:"type"`
	Data       json.RawMessage `json:"data"`
	AIInsights string          `json:"aiInsights"`
	CreatedAt  time.Time       `json:"createdAt"`

	// Property is populated on reads when the analysis is linked to one.
	Property *Property `json:"property,omitempty"`
}

// Report is a user-curated export of one or more analyses.
type Report struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId"`
	PropertyID *string         `json:"propertyId"`
	Title      string          `json:"title"`
	Type       AnalysisType    `json:"type"`
	Content    json.RawMessage `json:"content"`
	CreatedAt  time.Time       `json:"createdAt"`

	Property *Property `json:"property,omitempty"`
}

// AnalysisEvent is published after an analysis has been stored.
type AnalysisEvent struct {
	Event      string       `json:"event"`
	AnalysisID string       `json:"analysisId"`
	UserID     string       `json:"userId"`
	Type       AnalysisType `json:"type"`
	PropertyID *string      `json:"propertyId,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
}

const EventAnalysisCreated = "analysis.created"
