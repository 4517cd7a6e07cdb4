package generation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/propertyscope/propertyscope-api/app/models"
)

const unknown = "Unknown"

// Prompt is one fully rendered chat-completion request.
type Prompt struct {
	Kind        models.AnalysisType
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

const (
	valuationSystem    = "You are an expert real estate appraiser and analyst. Provide detailed property valuations based on market data, comparable sales, and property characteristics. Always provide specific dollar amounts and percentages. Format responses in clear sections."
	marketSystem       = "You are a real estate market analyst. Provide comprehensive market analysis with specific statistics, trends, and actionable insights."
	neighborhoodSystem = "You are a neighborhood expert and real estate consultant. Provide detailed neighborhood insights covering demographics, amenities, schools, safety, and lifestyle factors."
	comparablesSystem  = "You are a real estate comparable sales expert. Generate realistic comparable property analyses based on typical market data patterns."
	investmentSystem   = "You are a real estate investment analyst. Provide detailed investment analysis with specific calculations and actionable recommendations."
)

func ValuationPrompt(in models.ValuationInput) Prompt {
	var b strings.Builder
	b.WriteString("Analyze this property and provide a detailed valuation:\n")
	fmt.Fprintf(&b, "Address: %s, %s, %s\n", in.Address, in.City, in.State)
	fmt.Fprintf(&b, "Property Type: %s\n", in.PropertyType)
	fmt.Fprintf(&b, "Bedrooms: %s\n", orUnknown(in.Bedrooms))
	fmt.Fprintf(&b, "Bathrooms: %s\n", orUnknown(in.Bathrooms))
	fmt.Fprintf(&b, "Square Feet: %s\n", orUnknown(in.Sqft))
	fmt.Fprintf(&b, "Year Built: %s\n", orUnknown(in.YearBuilt))
	b.WriteString(`
Provide:
1. Estimated market value range (low, mid, high)
2. Key value drivers
3. Potential issues affecting value
4. Comparison to local market averages
5. Value trend prediction (6-12 months)`)

	return Prompt{
		Kind:        models.AnalysisValuation,
		System:      valuationSystem,
		User:        b.String(),
		Temperature: 0.7,
		MaxTokens:   1500,
	}
}

func MarketPrompt(in models.MarketInput) Prompt {
	location := in.City + ", " + in.State
	if in.ZipCode != "" {
		location += " (" + in.ZipCode + ")"
	}
	user := "Provide a comprehensive real estate market analysis for " + location + `:

Include:
1. Current market conditions (buyer's/seller's market)
2. Median home prices and trends
3. Average days on market
4. Inventory levels
5. Price per square foot averages
6. Year-over-year price changes
7. Key market drivers
8. Investment potential score (1-10)
9. Future outlook (6-12 months)`

	return Prompt{
		Kind:        models.AnalysisMarket,
		System:      marketSystem,
		User:        user,
		Temperature: 0.7,
		MaxTokens:   1500,
	}
}

func NeighborhoodPrompt(in models.NeighborhoodInput) Prompt {
	location := in.City + ", " + in.State
	if in.Address != "" {
		location = in.Address + ", " + location
	}
	if in.ZipCode != "" {
		location += " " + in.ZipCode
	}
	user := "Provide comprehensive neighborhood insights for " + location + `:

Include:
1. Overall neighborhood score (1-10)
2. Demographics overview
3. School ratings and options
4. Safety and crime statistics
5. Walkability and transit scores
6. Local amenities (restaurants, shopping, parks)
7. Employment centers nearby
8. Community vibe and lifestyle
9. Property value trends in area
10. Best suited for (families, young professionals, retirees, etc.)`

	return Prompt{
		Kind:        models.AnalysisNeighborhood,
		System:      neighborhoodSystem,
		User:        user,
		Temperature: 0.7,
		MaxTokens:   1500,
	}
}

func ComparablesPrompt(in models.ComparablesInput) Prompt {
	var b strings.Builder
	b.WriteString("Find and analyze comparable properties (comps) for:\n")
	fmt.Fprintf(&b, "Address: %s, %s, %s\n", in.Address, in.City, in.State)
	fmt.Fprintf(&b, "Type: %s\n", in.PropertyType)
	fmt.Fprintf(&b, "Bedrooms: %s\n", orUnknown(in.Bedrooms))
	fmt.Fprintf(&b, "Bathrooms: %s\n", orUnknown(in.Bathrooms))
	fmt.Fprintf(&b, "Sq Ft: %s\n", orUnknown(in.Sqft))
	b.WriteString(`
Provide 5 comparable properties with:
1. Address (nearby, realistic format)
2. Sale price and date
3. Bedrooms/bathrooms/sqft
4. Price per square foot
5. Days on market
6. How it compares (better/worse condition, features, etc.)
7. Adjusted value for subject property

Also provide:
- Average comparable price
- Suggested price range for subject property
- Key adjustment factors`)

	return Prompt{
		Kind:        models.AnalysisComparables,
		System:      comparablesSystem,
		User:        b.String(),
		Temperature: 0.8,
		MaxTokens:   2000,
	}
}

func InvestmentPrompt(in models.InvestmentInput) Prompt {
	var b strings.Builder
	b.WriteString("Analyze this real estate investment:\n\nPurchase Details:\n")
	fmt.Fprintf(&b, "- Purchase Price: %s\n", money(in.PurchasePrice))
	fmt.Fprintf(&b, "- Down Payment: %s%s\n", money(in.DownPayment), downPaymentShare(in.DownPayment, in.PurchasePrice))
	fmt.Fprintf(&b, "- Interest Rate: %s\n", percent(in.InterestRate))
	fmt.Fprintf(&b, "- Loan Term: %s\n", years(in.LoanTerm))
	b.WriteString("\nIncome & Expenses:\n")
	fmt.Fprintf(&b, "- Monthly Rent: %s\n", money(in.MonthlyRent))
	fmt.Fprintf(&b, "- Annual Property Taxes: %s\n", money(in.PropertyTaxes))
	fmt.Fprintf(&b, "- Annual Insurance: %s\n", money(in.Insurance))
	fmt.Fprintf(&b, "- Monthly Maintenance: %s\n", money(in.Maintenance))
	fmt.Fprintf(&b, "- Vacancy Rate: %s\n", percent(in.Vacancy))
	fmt.Fprintf(&b, "\nLocation: %s, %s\n", in.City, in.State)
	b.WriteString(`
Calculate and provide:
1. Monthly mortgage payment
2. Total monthly expenses
3. Net monthly cash flow
4. Annual cash flow
5. Cash-on-cash return
6. Cap rate
7. ROI projections (1, 5, 10 years)
8. Break-even occupancy rate
9. Investment grade (A-F)
10. Recommendations for improving returns`)

	return Prompt{
		Kind:        models.AnalysisInvestment,
		System:      investmentSystem,
		User:        b.String(),
		Temperature: 0.7,
		MaxTokens:   2000,
	}
}

// orUnknown treats zero like a missing value, matching how the property
// prompts have always rendered optional attributes.
func orUnknown(n models.Number) string {
	v, ok := n.Float()
	if !ok || v == 0 {
		return unknown
	}
	return plain(v)
}

func money(n models.Number) string {
	v, ok := n.Float()
	if !ok {
		return unknown
	}
	return "$" + grouped(v)
}

func percent(n models.Number) string {
	v, ok := n.Float()
	if !ok {
		return unknown
	}
	return plain(v) + "%"
}

func years(n models.Number) string {
	v, ok := n.Float()
	if !ok {
		return unknown
	}
	return plain(v) + " years"
}

func downPaymentShare(down, price models.Number) string {
	d, ok := down.Float()
	if !ok {
		return ""
	}
	p, ok := price.Float()
	if !ok || p == 0 {
		return ""
	}
	return fmt.Sprintf(" (%.1f%%)", d/p*100)
}

// grouped renders v with thousands separators and at most three fraction digits.
func grouped(v float64) string {
	return humanize.Commaf(math.Round(v*1000) / 1000)
}

func plain(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
