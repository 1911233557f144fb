package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "USD"

// ServiceCost is the cost attributed to a single AWS service within a period.
type ServiceCost struct {
	Service string
	Amount  decimal.Decimal
}

// UsageAmount is the aggregate cost over a reporting period.
type UsageAmount struct {
	Currency string          // ISO 4217, e.g. USD
	Total    decimal.Decimal // never negative
	Services []ServiceCost   // breakdown, sorted by amount descending
}

func (u UsageAmount) Validate() error {
	if u.Currency == "" {
		return fmt.Errorf("usage amount has no currency")
	}
	if u.Total.IsNegative() {
		return fmt.Errorf("usage amount total is negative: %s", u.Total.String())
	}
	return nil
}
