package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"stock-lookup/models"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInsufficientHistory means there were too few closes to fit a trend.
var ErrInsufficientHistory = errors.New("insufficient price history")

// TrendAnalyst produces the /api/ai payload: a least-squares trend over the
// recent closes projected forward over business days, plus a short markdown
// summary.
type TrendAnalyst struct {
	Quotes       QuoteProvider
	LookbackDays int
	Horizon      int
}

func NewTrendAnalyst(quotes QuoteProvider, lookbackDays, horizon int) *TrendAnalyst {
	if lookbackDays < 2 {
		lookbackDays = 60
	}
	if horizon < 1 {
		horizon = 5
	}
	return &TrendAnalyst{Quotes: quotes, LookbackDays: lookbackDays, Horizon: horizon}
}

func (a *TrendAnalyst) Analyze(ctx context.Context, sec models.Security) (models.Analysis, error) {
	history, err := a.Quotes.History(ctx, sec, a.LookbackDays)
	if err != nil {
		return models.Analysis{}, err
	}
	return Forecast(sec, history, a.Horizon)
}

// Forecast fits price = intercept + slope*i over history and projects
// horizon business days past the last point.
func Forecast(sec models.Security, history []models.PricePoint, horizon int) (models.Analysis, error) {
	if len(history) < 2 {
		return models.Analysis{}, fmt.Errorf("%w: %d points", ErrInsufficientHistory, len(history))
	}
	last, err := time.Parse("2006-01-02", history[len(history)-1].Date)
	if err != nil {
		return models.Analysis{}, fmt.Errorf("parse last history date: %w", err)
	}

	slope, intercept := leastSquares(history)
	places := int32(2)
	if models.UnitFor(sec.Market) == models.Won {
		places = 0
	}

	n := len(history)
	forecast := make([]models.PricePoint, 0, horizon)
	day := last
	for k := 1; k <= horizon; k++ {
		day = nextBusinessDay(day)
		projected := intercept + slope*float64(n-1+k)
		price, _ := decimal.NewFromFloat(math.Max(projected, 0)).Round(places).Float64()
		forecast = append(forecast, models.PricePoint{Date: day.Format("2006-01-02"), Price: price})
	}

	return models.Analysis{
		Forecast: forecast,
		Summary:  summarize(sec, history, slope, forecast),
	}, nil
}

func leastSquares(history []models.PricePoint) (slope, intercept float64) {
	n := float64(len(history))
	var sumX, sumY, sumXY, sumXX float64
	for i, p := range history {
		x := float64(i)
		sumX += x
		sumY += p.Price
		sumXY += x * p.Price
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

func nextBusinessDay(t time.Time) time.Time {
	t = t.AddDate(0, 0, 1)
	for t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

func summarize(sec models.Security, history []models.PricePoint, slope float64, forecast []models.PricePoint) string {
	latest := history[len(history)-1].Price
	target := forecast[len(forecast)-1]

	trend := "보합"
	// Moves under 0.05% of the price per day are treated as flat.
	switch threshold := latest * 0.0005; {
	case slope > threshold:
		trend = "상승"
	case slope < -threshold:
		trend = "하락"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s (%s)**\n\n", sec.Name, sec.Symbol)
	fmt.Fprintf(&b, "- 최근 %d거래일 추세: %s\n", len(history), trend)
	fmt.Fprintf(&b, "- 최근 종가: %s\n", models.FormatPrice(latest, sec.Market))
	fmt.Fprintf(&b, "- %s 예상가: %s\n", target.Date, models.FormatPrice(target.Price, sec.Market))
	b.WriteString("\n선형 추세 기반 추정치이며 투자 조언이 아닙니다.")
	return b.String()
}
