package api

import (
	"context"
	"errors"
	"fmt"
	"stock-lookup/models"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"
)

// ErrNoQuote is returned when a provider knows nothing about a security.
var ErrNoQuote = errors.New("no quote available")

// QuoteProvider supplies the raw market data behind /api/price and /api/ai.
type QuoteProvider interface {
	Close(ctx context.Context, sec models.Security) (float64, error)
	History(ctx context.Context, sec models.Security, days int) ([]models.PricePoint, error)
}

// YahooProvider reads quotes and daily bars from Yahoo Finance through
// finance-go. finance-go has no context support, so ctx is only checked
// before the call.
type YahooProvider struct{}

func NewYahooProvider() *YahooProvider {
	return &YahooProvider{}
}

// yahooSymbol appends the exchange suffix Yahoo expects for Korean listings.
// US listings use the bare ticker.
func yahooSymbol(sec models.Security) string {
	switch sec.Market.Normalize() {
	case models.KOSPI:
		return sec.Symbol + ".KS"
	case models.KOSDAQ:
		return sec.Symbol + ".KQ"
	default:
		return sec.Symbol
	}
}

func (p *YahooProvider) Close(ctx context.Context, sec models.Security) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	q, err := quote.Get(yahooSymbol(sec))
	if err != nil {
		return 0, fmt.Errorf("yahoo quote %s: %w", yahooSymbol(sec), err)
	}
	if q == nil {
		return 0, fmt.Errorf("%w: %s", ErrNoQuote, sec.Key())
	}
	return q.RegularMarketPrice, nil
}

func (p *YahooProvider) History(ctx context.Context, sec models.Security, days int) ([]models.PricePoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	end := time.Now()
	start := end.AddDate(0, 0, -days)
	params := &chart.Params{
		Symbol:   yahooSymbol(sec),
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}

	var history []models.PricePoint
	iter := chart.Get(params)
	for iter.Next() {
		bar := iter.Bar()
		price, _ := bar.Close.Float64()
		if price == 0 {
			continue
		}
		history = append(history, models.PricePoint{
			Date:  time.Unix(int64(bar.Timestamp), 0).UTC().Format("2006-01-02"),
			Price: price,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", yahooSymbol(sec), err)
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoQuote, sec.Key())
	}
	return history, nil
}

// MockProvider produces a deterministic series per symbol so the backend
// can run offline.
type MockProvider struct {
	Now func() time.Time
}

func NewMockProvider() *MockProvider {
	return &MockProvider{Now: time.Now}
}

func (p *MockProvider) basePrice(sec models.Security) float64 {
	if models.UnitFor(sec.Market) == models.Won {
		return 50000 + float64(len(sec.Symbol))*1000
	}
	return 100 + float64(len(sec.Symbol))*10.5
}

func (p *MockProvider) Close(ctx context.Context, sec models.Security) (float64, error) {
	history, err := p.History(ctx, sec, 1)
	if err != nil {
		return 0, err
	}
	return history[len(history)-1].Price, nil
}

func (p *MockProvider) History(ctx context.Context, sec models.Security, days int) ([]models.PricePoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if days < 1 {
		days = 1
	}
	base := p.basePrice(sec)
	step := base / 1000
	now := p.Now()

	history := make([]models.PricePoint, 0, days+1)
	for i := days; i >= 0; i-- {
		fluctuation := float64(i%5) * step * 2
		if i%2 == 0 {
			fluctuation = -fluctuation
		}
		// Gentle uptrend toward today.
		price := base + fluctuation - float64(i)*step
		history = append(history, models.PricePoint{
			Date:  now.AddDate(0, 0, -i).Format("2006-01-02"),
			Price: price,
		})
	}
	return history, nil
}
