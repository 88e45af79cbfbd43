package pricing

import (
	"math"
	"strings"
)

type Price struct {
	Amount   int64
	Currency string
}

type conversion struct {
	currency string
	rate     float64
}

// USD-pegged display rates, not a live FX feed.
var conversionRates = map[string]conversion{
	"KE": {currency: "KES", rate: 150},
	"NG": {currency: "NGN", rate: 800},
	"GH": {currency: "GHS", rate: 12},
	"ZA": {currency: "ZAR", rate: 18},
	"US": {currency: "USD", rate: 1},
	"UK": {currency: "GBP", rate: 0.8},
	"EU": {currency: "EUR", rate: 0.9},
}

// Resolve localizes a tier's monthly price for a country. Unknown country
// codes fall back to USD at rate 1.
func Resolve(tier Tier, country string) Price {
	conv, ok := conversionRates[strings.ToUpper(strings.TrimSpace(country))]
	if !ok {
		conv = conversionRates["US"]
	}
	return Price{
		Amount:   int64(math.Round(float64(tier.MonthlyUSD) * conv.rate)),
		Currency: conv.currency,
	}
}

// ResolveYearly is ten localized monthly payments (two months free). The
// multiplier is fixed and applies after localization.
func ResolveYearly(tier Tier, country string) Price {
	monthly := Resolve(tier, country)
	return Price{
		Amount:   int64(math.Round(float64(monthly.Amount) * 10)),
		Currency: monthly.Currency,
	}
}
