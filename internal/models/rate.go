package models

import "github.com/shopspring/decimal"

// Rates is a UGX per USDT quote.
type Rates struct {
	Buy  decimal.Decimal `json:"buy"`
	Sell decimal.Decimal `json:"sell"`
}
