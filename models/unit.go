package models

import (
	"math"

	"github.com/dustin/go-humanize"
)

// Unit is the currency suffix shown after a price.
type Unit string

const (
	Won    Unit = "원"
	Dollar Unit = "달러"
)

// UnitFor maps a market to its display unit. Korean markets quote in won,
// everything else (including markets we have never seen) in dollars.
func UnitFor(m Market) Unit {
	switch m.Normalize() {
	case KOSPI, KOSDAQ:
		return Won
	default:
		return Dollar
	}
}

// FormatPrice renders a close price for display, e.g. "71,000원" or "185.5달러".
// At most three fraction digits are kept and trailing zeros are dropped.
func FormatPrice(price float64, m Market) string {
	rounded := math.Round(price*1000) / 1000
	return humanize.Commaf(rounded) + string(UnitFor(m))
}
