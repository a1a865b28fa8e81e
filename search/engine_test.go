package search

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"stock-lookup/models"
)

func sampleCatalog() models.Catalog {
	return models.Catalog{
		{Symbol: "AAPL", Name: "Apple Inc.", Market: models.NASDAQ},
		{Symbol: "005930", Name: "Samsung Electronics", Market: models.KOSPI},
		{Symbol: "APP", Name: "AppLovin Corporation", Market: models.NASDAQ},
		{Symbol: "IBM", Name: "International Business Machines", Market: models.NYSE},
		{Symbol: "035720", Name: "카카오", Market: models.KOSPI},
		{Symbol: "APP", Name: "Applied Placeholder", Market: models.KOSDAQ},
	}
}

func bigCatalog(n int) models.Catalog {
	catalog := make(models.Catalog, 0, n)
	for i := 0; i < n; i++ {
		catalog = append(catalog, models.Security{
			Symbol: fmt.Sprintf("T%03d", i),
			Name:   fmt.Sprintf("Test Holdings %d", i),
			Market: models.NYSE,
		})
	}
	return catalog
}

func symbols(stocks []models.Security) []string {
	var out []string
	for _, s := range stocks {
		out = append(out, s.Key().String())
	}
	return out
}

func TestSearchExamples(t *testing.T) {
	catalog := sampleCatalog()
	tests := []struct {
		query string
		want  []string
	}{
		{"", nil},
		{"aapl", []string{"AAPL-NASDAQ"}},
		{"app", []string{"AAPL-NASDAQ", "APP-NASDAQ", "APP-KOSDAQ"}},
		{"5930", []string{"005930-KOSPI"}},
		{"SAMSUNG", []string{"005930-KOSPI"}},
		{"카카", []string{"035720-KOSPI"}},
		{"al bus", []string{"IBM-NYSE"}},
		{"nothing-matches", nil},
	}
	for _, tt := range tests {
		got := symbols(Search(catalog, tt.query))
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Search(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestSearchProperties(t *testing.T) {
	catalog := append(sampleCatalog(), bigCatalog(60)...)
	queries := []string{"a", "T0", "holdings", "1", "e", "INC", " ", "5"}

	for _, q := range queries {
		results := Search(catalog, q)
		if len(results) > MaxResults {
			t.Errorf("Search(%q) returned %d results, cap is %d", q, len(results), MaxResults)
		}
		lq := strings.ToLower(q)
		for _, s := range results {
			if !strings.Contains(strings.ToLower(s.Symbol), lq) && !strings.Contains(strings.ToLower(s.Name), lq) {
				t.Errorf("Search(%q) returned non-matching %+v", q, s)
			}
		}
	}
}

func TestSearchCapKeepsCatalogOrder(t *testing.T) {
	catalog := bigCatalog(45)
	results := Search(catalog, "holdings")
	if len(results) != MaxResults {
		t.Fatalf("Expected %d results, got %d", MaxResults, len(results))
	}
	for i, s := range results {
		if s != catalog[i] {
			t.Errorf("result %d = %+v, want %+v", i, s, catalog[i])
		}
	}
}

func TestSearchEmptyQueryAlwaysEmpty(t *testing.T) {
	for _, catalog := range []models.Catalog{nil, sampleCatalog(), bigCatalog(100)} {
		if got := Search(catalog, ""); len(got) != 0 {
			t.Errorf("Expected no results for empty query, got %d", len(got))
		}
	}
}

func TestEnginesAgree(t *testing.T) {
	catalog := append(sampleCatalog(), bigCatalog(40)...)

	bleveEngine, err := NewBleveEngine(catalog)
	if err != nil {
		t.Fatalf("NewBleveEngine failed: %v", err)
	}
	defer bleveEngine.Close()
	scan := NewInMemoryEngine(catalog)

	queries := []string{"", "app", "APP", "5930", "Holdings 3", "t01", "카카오", "inc.", "a*", "zzz", "(", "l\\"}
	for _, q := range queries {
		want := symbols(scan.Search(q))
		got := symbols(bleveEngine.Search(q))
		if !reflect.DeepEqual(got, want) {
			t.Errorf("query %q: bleve %v, scan %v", q, got, want)
		}
	}
}

func TestGetStockUsesMarket(t *testing.T) {
	engine := NewInMemoryEngine(sampleCatalog())

	got := engine.GetStock("APP", models.KOSDAQ)
	if got == nil || got.Name != "Applied Placeholder" {
		t.Errorf("Expected KOSDAQ listing, got %+v", got)
	}
	if got := engine.GetStock("AAPL", models.KOSPI); got != nil {
		t.Errorf("Expected nil for wrong market, got %+v", got)
	}
}

func TestNewEngine(t *testing.T) {
	if _, err := NewEngine("", nil); err != nil {
		t.Errorf("default engine: %v", err)
	}
	e, err := NewEngine(KindBleve, sampleCatalog())
	if err != nil {
		t.Fatalf("bleve engine: %v", err)
	}
	if b, ok := e.(*BleveEngine); ok {
		b.Close()
	} else {
		t.Errorf("Expected *BleveEngine, got %T", e)
	}
	if _, err := NewEngine("trigram", nil); err == nil {
		t.Errorf("Expected error for unknown engine")
	}
}
