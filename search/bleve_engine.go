package search

import (
	"fmt"
	"log/slog"
	"sort"
	"stock-lookup/models"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/single"
	"github.com/blevesearch/bleve/v2/mapping"
)

const keywordLower = "keyword_lower"

// BleveEngine answers the same queries as Search from an in-memory bleve
// index. Symbol and name are indexed whole and lower-cased so a *q* wildcard
// is a substring match.
type BleveEngine struct {
	index   bleve.Index
	catalog models.Catalog
}

type stockDoc struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Market string `json:"market"`
}

func NewBleveEngine(catalog models.Catalog) (*BleveEngine, error) {
	indexMapping, err := buildIndexMapping()
	if err != nil {
		return nil, err
	}
	index, err := bleve.NewMemOnly(indexMapping)
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	// Document ids are catalog positions, which keeps symbol+market
	// duplicates apart and gives back catalog order for free.
	batch := index.NewBatch()
	for i, stock := range catalog {
		doc := stockDoc{Symbol: stock.Symbol, Name: stock.Name, Market: string(stock.Market)}
		if err := batch.Index(strconv.Itoa(i), doc); err != nil {
			index.Close()
			return nil, fmt.Errorf("failed to add to batch: %w", err)
		}
	}
	if err := index.Batch(batch); err != nil {
		index.Close()
		return nil, fmt.Errorf("failed to execute batch: %w", err)
	}

	return &BleveEngine{index: index, catalog: catalog}, nil
}

func buildIndexMapping() (mapping.IndexMapping, error) {
	indexMapping := bleve.NewIndexMapping()
	err := indexMapping.AddCustomAnalyzer(keywordLower, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     single.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register analyzer: %w", err)
	}

	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = keywordLower
	textFieldMapping.Store = false
	textFieldMapping.IncludeTermVectors = false

	stockMapping := bleve.NewDocumentMapping()
	stockMapping.Dynamic = false
	stockMapping.AddFieldMappingsAt("symbol", textFieldMapping)
	stockMapping.AddFieldMappingsAt("name", textFieldMapping)

	indexMapping.DefaultMapping = stockMapping
	return indexMapping, nil
}

func (e *BleveEngine) Search(query string) []models.Security {
	if query == "" {
		return nil
	}
	// * and ? are bleve wildcards, not literal characters.
	if strings.ContainsAny(query, "*?") {
		return Search(e.catalog, query)
	}

	q := strings.ToLower(query)
	pattern := "*" + q + "*"

	wildcardSymbol := bleve.NewWildcardQuery(pattern)
	wildcardSymbol.SetField("symbol")
	wildcardName := bleve.NewWildcardQuery(pattern)
	wildcardName.SetField("name")

	searchRequest := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(wildcardSymbol, wildcardName))
	searchRequest.Size = len(e.catalog)

	searchResults, err := e.index.Search(searchRequest)
	if err != nil {
		slog.Warn("bleve search failed, falling back to scan", "query", query, "error", err)
		return Search(e.catalog, query)
	}

	ordinals := make([]int, 0, len(searchResults.Hits))
	for _, hit := range searchResults.Hits {
		i, err := strconv.Atoi(hit.ID)
		if err != nil || i < 0 || i >= len(e.catalog) {
			continue
		}
		ordinals = append(ordinals, i)
	}
	sort.Ints(ordinals)

	var results []models.Security
	for _, i := range ordinals {
		stock := e.catalog[i]
		if !matches(stock, q) {
			continue
		}
		results = append(results, stock)
		if len(results) == MaxResults {
			break
		}
	}
	return results
}

func (e *BleveEngine) GetStock(symbol string, market models.Market) *models.Security {
	stock, ok := e.catalog.Find(models.Key{Symbol: symbol, Market: market.Normalize()})
	if !ok {
		return nil
	}
	return &stock
}

func (e *BleveEngine) Close() error {
	return e.index.Close()
}
