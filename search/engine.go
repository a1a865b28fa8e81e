package search

import (
	"fmt"
	"stock-lookup/models"
	"strings"
)

// MaxResults caps every result set. Matches past the cap are dropped silently.
const MaxResults = 20

type SearchEngine interface {
	Search(query string) []models.Security
	GetStock(symbol string, market models.Market) *models.Security
}

// Search returns up to MaxResults securities whose symbol or name contains
// query, ignoring case, in catalog order. An empty query matches nothing.
func Search(catalog models.Catalog, query string) []models.Security {
	if query == "" {
		return nil
	}
	q := strings.ToLower(query)
	var results []models.Security
	for _, stock := range catalog {
		if matches(stock, q) {
			results = append(results, stock)
			if len(results) == MaxResults {
				break
			}
		}
	}
	return results
}

// matches expects q to be lower-cased already.
func matches(stock models.Security, q string) bool {
	return strings.Contains(strings.ToLower(stock.Symbol), q) ||
		strings.Contains(strings.ToLower(stock.Name), q)
}

type InMemoryEngine struct {
	stocks models.Catalog
}

func NewInMemoryEngine(stocks models.Catalog) *InMemoryEngine {
	return &InMemoryEngine{stocks: stocks}
}

func (e *InMemoryEngine) Search(query string) []models.Security {
	return Search(e.stocks, query)
}

func (e *InMemoryEngine) GetStock(symbol string, market models.Market) *models.Security {
	stock, ok := e.stocks.Find(models.Key{Symbol: symbol, Market: market.Normalize()})
	if !ok {
		return nil
	}
	return &stock
}

// Engine kinds accepted by NewEngine.
const (
	KindScan  = "scan"
	KindBleve = "bleve"
)

// NewEngine builds the engine named by kind over catalog. An empty kind
// means the scan engine.
func NewEngine(kind string, catalog models.Catalog) (SearchEngine, error) {
	switch strings.ToLower(kind) {
	case "", KindScan:
		return NewInMemoryEngine(catalog), nil
	case KindBleve:
		return NewBleveEngine(catalog)
	default:
		return nil, fmt.Errorf("unknown search engine %q", kind)
	}
}
