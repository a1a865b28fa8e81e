package models

import "strings"

// Market is the listing venue of a security. Values come straight from the
// catalog sources, so the set is open; the constants below are the markets
// the bundled datasets use.
type Market string

const (
	NASDAQ Market = "NASDAQ"
	NYSE   Market = "NYSE"
	AMEX   Market = "AMEX"
	KOSPI  Market = "KOSPI"
	KOSDAQ Market = "KOSDAQ"
)

// Normalize upper-cases and trims a market name read from a data source.
func (m Market) Normalize() Market {
	return Market(strings.ToUpper(strings.TrimSpace(string(m))))
}

// Key identifies a security. The same symbol may be listed on several markets.
type Key struct {
	Symbol string `json:"symbol"`
	Market Market `json:"market"`
}

func (k Key) String() string {
	return k.Symbol + "-" + string(k.Market)
}

type Security struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Market Market `json:"market"`
}

func (s Security) Key() Key {
	return Key{Symbol: s.Symbol, Market: s.Market}
}

// Catalog is the ordered list of every known security. It is built once by
// the loader and only read afterwards.
type Catalog []Security

// Find returns the security with the given identity, if present.
func (c Catalog) Find(key Key) (Security, bool) {
	for _, s := range c {
		if s.Key() == key {
			return s, true
		}
	}
	return Security{}, false
}

// PricePoint is a single dated price on a chart.
type PricePoint struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

// Analysis is the AI endpoint payload: a forecast series and a free-text summary.
type Analysis struct {
	Forecast []PricePoint `json:"forecast"`
	Summary  string       `json:"summary"`
}
