package loader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"stock-lookup/models"
)

func writeTemp(t *testing.T, pattern, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp(t.TempDir(), pattern)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpfile.Name()
}

func TestParseCatalog(t *testing.T) {
	content := "symbol,name,market\r\n" +
		"AAPL,Apple Inc.,NASDAQ\r\n" +
		"BROKEN,only two\r\n" +
		"\r\n" +
		"MSFT,Microsoft Corporation,NASDAQ,Technology,extra\r\n" +
		"005930,Samsung Electronics,kospi\r\n" +
		"LONELY\n"

	catalog, err := ParseCatalog(strings.NewReader(content))
	if err != nil {
		t.Fatalf("ParseCatalog failed: %v", err)
	}

	want := models.Catalog{
		{Symbol: "AAPL", Name: "Apple Inc.", Market: models.NASDAQ},
		{Symbol: "MSFT", Name: "Microsoft Corporation", Market: models.NASDAQ},
		{Symbol: "005930", Name: "Samsung Electronics", Market: models.KOSPI},
	}
	if !reflect.DeepEqual(catalog, want) {
		t.Errorf("Expected %+v, got %+v", want, catalog)
	}
	for _, s := range catalog {
		if strings.Contains(s.Name, "\r") || strings.Contains(string(s.Market), "\r") {
			t.Errorf("carriage return leaked into %+v", s)
		}
	}
}

func TestParseCatalogQuotedName(t *testing.T) {
	content := "symbol,name,market\n" +
		`BRK.B,"Berkshire Hathaway, Inc.",NYSE` + "\n"

	catalog, err := ParseCatalog(strings.NewReader(content))
	if err != nil {
		t.Fatal(err)
	}
	if len(catalog) != 1 || catalog[0].Name != "Berkshire Hathaway, Inc." {
		t.Errorf("unexpected catalog %+v", catalog)
	}
}

func TestParseCatalogUnbalancedQuoteCostsOnlyItsRow(t *testing.T) {
	tests := []struct {
		name string
		bad  string
	}{
		{"stray quote", `X,"Weird" Holdings,NASDAQ`},
		{"unterminated quote", `X,"Weird Co,NASDAQ`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := "symbol,name,market\n" +
				tt.bad + "\n" +
				"AAPL,Apple Inc.,NASDAQ\n" +
				"MSFT,Microsoft Corporation,NASDAQ\n"

			rows, dropped, err := parse(strings.NewReader(content))
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			want := models.Catalog{
				{Symbol: "AAPL", Name: "Apple Inc.", Market: models.NASDAQ},
				{Symbol: "MSFT", Name: "Microsoft Corporation", Market: models.NASDAQ},
			}
			if !reflect.DeepEqual(rows, want) {
				t.Errorf("Expected %+v, got %+v", want, rows)
			}
			if dropped != 1 {
				t.Errorf("Expected 1 dropped row, got %d", dropped)
			}
		})
	}
}

func TestParseCatalogQuoteInHeader(t *testing.T) {
	content := "symbol,\"name,market\nAAPL,Apple Inc.,NASDAQ\n"

	catalog, err := ParseCatalog(strings.NewReader(content))
	if err != nil {
		t.Fatal(err)
	}
	if len(catalog) != 1 || catalog[0].Symbol != "AAPL" {
		t.Errorf("unexpected catalog %+v", catalog)
	}
}

func TestParseCatalogHeaderOnly(t *testing.T) {
	catalog, err := ParseCatalog(strings.NewReader("symbol,name,market\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(catalog) != 0 {
		t.Errorf("Expected empty catalog, got %d rows", len(catalog))
	}
}

func TestParseCatalogIdempotent(t *testing.T) {
	content := "h1,h2,h3\nA,Alpha,NYSE\nB,Beta\nC,Gamma,KOSDAQ\n"

	first, err := ParseCatalog(strings.NewReader(content))
	if err != nil {
		t.Fatal(err)
	}
	second, err := ParseCatalog(strings.NewReader(content))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("re-parsing changed the result: %+v vs %+v", first, second)
	}
	if len(first) != 2 {
		t.Errorf("Expected 2 rows, got %d", len(first))
	}
}

func TestLoadPreservesSourceOrder(t *testing.T) {
	us := writeTemp(t, "nasdaq_*.csv", "symbol,name,market\nAAPL,Apple Inc.,NASDAQ\nAMZN,Amazon.com Inc.,NASDAQ\n")
	kr := writeTemp(t, "kospi_*.csv", "symbol,name,market\n005930,Samsung Electronics,KOSPI\n")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "symbol,name,market\r\n035720,Kakao,KOSDAQ\r\n")
	}))
	defer srv.Close()

	catalog, err := Load(context.Background(), []string{us, srv.URL + "/kosdaq.csv", "file://" + kr})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	var got []string
	for _, s := range catalog {
		got = append(got, s.Symbol)
	}
	want := []string{"AAPL", "AMZN", "035720", "005930"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected order %v, got %v", want, got)
	}
}

func TestLoadFailsWhenAnySourceFails(t *testing.T) {
	good := writeTemp(t, "nyse_*.csv", "symbol,name,market\nIBM,IBM,NYSE\n")
	missing := filepath.Join(t.TempDir(), "does-not-exist.csv")

	catalog, err := Load(context.Background(), []string{good, missing})
	if err == nil {
		t.Fatalf("Expected error, got catalog with %d rows", len(catalog))
	}
	if !errors.Is(err, ErrCatalogUnavailable) {
		t.Errorf("Expected ErrCatalogUnavailable, got %v", err)
	}
	if catalog != nil {
		t.Errorf("Expected no partial catalog, got %d rows", len(catalog))
	}
}

func TestLoadHTTPStatusIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Load(context.Background(), []string{srv.URL + "/nasdaq.csv"})
	if !errors.Is(err, ErrCatalogUnavailable) {
		t.Fatalf("Expected ErrCatalogUnavailable, got %v", err)
	}
}

func TestLoadRejectsUnknownScheme(t *testing.T) {
	_, err := Load(context.Background(), []string{"ftp://example.com/list.csv"})
	if err == nil || !strings.Contains(err.Error(), "unsupported source scheme") {
		t.Fatalf("Expected unsupported scheme error, got %v", err)
	}
}

func TestLoadNoSources(t *testing.T) {
	if _, err := Load(context.Background(), nil); !errors.Is(err, ErrCatalogUnavailable) {
		t.Fatalf("Expected ErrCatalogUnavailable, got %v", err)
	}
}
