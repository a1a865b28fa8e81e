package lookup

import (
	"context"
	"errors"
	"log/slog"
	"stock-lookup/models"

	tea "github.com/charmbracelet/bubbletea"
)

// Pipeline names one of the two fetch pipelines.
type Pipeline int

const (
	PricePipeline Pipeline = iota + 1
	AnalysisPipeline
)

func (p Pipeline) String() string {
	switch p {
	case PricePipeline:
		return "price"
	case AnalysisPipeline:
		return "analysis"
	default:
		return "unknown"
	}
}

// Ticket tags a dispatched request with the selection it was issued for and
// a per-pipeline sequence number. Only a response carrying the pipeline's
// current ticket is ever applied.
type Ticket struct {
	Pipeline Pipeline
	Key      models.Key
	Seq      uint64
}

// FetchState is what the UI sees of a pipeline. Value is nil before any
// fetch and after any failure.
type FetchState[T any] struct {
	Loading bool
	Value   *T
}

// ResultMsg is delivered when a fetch resolves, successfully or not.
type ResultMsg[T any] struct {
	Ticket Ticket
	Value  T
	Err    error
}

type (
	PriceMsg    = ResultMsg[float64]
	AnalysisMsg = ResultMsg[models.Analysis]
)

// ErrNoFetcher is the result of every fetch when no backend was configured.
var ErrNoFetcher = errors.New("no backend configured")

// Fetcher is the backend seen by the orchestrator. api.Client implements it.
type Fetcher interface {
	Price(ctx context.Context, sec models.Security) (float64, error)
	Analysis(ctx context.Context, sec models.Security) (models.Analysis, error)
}

type noFetcher struct{}

func (noFetcher) Price(context.Context, models.Security) (float64, error) {
	return 0, ErrNoFetcher
}

func (noFetcher) Analysis(context.Context, models.Security) (models.Analysis, error) {
	return models.Analysis{}, ErrNoFetcher
}

type pipeline[T any] struct {
	kind    Pipeline
	fetch   func(context.Context, models.Security) (T, error)
	state   FetchState[T]
	current Ticket
	seq     uint64
}

func (p *pipeline[T]) reset() {
	p.state = FetchState[T]{}
	p.current = Ticket{}
}

// start marks the pipeline loading and returns the command that performs
// the request. The request itself is never cancelled; a superseded
// response is dropped in apply.
func (p *pipeline[T]) start(ctx context.Context, sec models.Security) tea.Cmd {
	p.seq++
	ticket := Ticket{Pipeline: p.kind, Key: sec.Key(), Seq: p.seq}
	p.current = ticket
	p.state = FetchState[T]{Loading: true}

	fetch := p.fetch
	return func() tea.Msg {
		value, err := fetch(ctx, sec)
		return ResultMsg[T]{Ticket: ticket, Value: value, Err: err}
	}
}

func (p *pipeline[T]) apply(msg ResultMsg[T], selected *models.Key) bool {
	if p.current.Seq == 0 || msg.Ticket != p.current {
		return false
	}
	if selected == nil || *selected != msg.Ticket.Key {
		return false
	}

	p.current = Ticket{}
	p.state.Loading = false
	if msg.Err != nil {
		p.state.Value = nil
		return true
	}
	value := msg.Value
	p.state.Value = &value
	return true
}

// Orchestrator runs the price and analysis pipelines.
type Orchestrator struct {
	ctx      context.Context
	price    *pipeline[float64]
	analysis *pipeline[models.Analysis]
	logger   *slog.Logger
}

// NewOrchestrator wires both pipelines to f. ctx bounds every request for
// the lifetime of the program; individual requests are not cancelled.
// A nil f makes every fetch fail with ErrNoFetcher.
func NewOrchestrator(ctx context.Context, f Fetcher, logger *slog.Logger) *Orchestrator {
	if f == nil {
		f = noFetcher{}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		ctx:      ctx,
		price:    &pipeline[float64]{kind: PricePipeline, fetch: f.Price},
		analysis: &pipeline[models.Analysis]{kind: AnalysisPipeline, fetch: f.Analysis},
		logger:   logger,
	}
}

// Reset puts both pipelines back to {loading: false, value: nil} and
// forgets any in-flight ticket.
func (o *Orchestrator) Reset() {
	o.price.reset()
	o.analysis.reset()
}

func (o *Orchestrator) FetchPrice(sec models.Security) tea.Cmd {
	o.logger.Debug("fetch dispatched", "pipeline", PricePipeline.String(), "key", sec.Key().String())
	return o.price.start(o.ctx, sec)
}

// FetchAnalysis may be called again while a previous analysis is in
// flight; the new attempt supersedes the old one.
func (o *Orchestrator) FetchAnalysis(sec models.Security) tea.Cmd {
	o.logger.Debug("fetch dispatched", "pipeline", AnalysisPipeline.String(), "key", sec.Key().String())
	return o.analysis.start(o.ctx, sec)
}

func (o *Orchestrator) ApplyPrice(msg PriceMsg, selected *models.Key) bool {
	return o.observe(msg.Ticket, msg.Err, o.price.apply(msg, selected))
}

func (o *Orchestrator) ApplyAnalysis(msg AnalysisMsg, selected *models.Key) bool {
	return o.observe(msg.Ticket, msg.Err, o.analysis.apply(msg, selected))
}

func (o *Orchestrator) observe(t Ticket, err error, applied bool) bool {
	switch {
	case !applied:
		o.logger.Debug("stale response discarded",
			"pipeline", t.Pipeline.String(), "key", t.Key.String(), "seq", t.Seq)
	case err != nil:
		o.logger.Warn("fetch failed",
			"pipeline", t.Pipeline.String(), "key", t.Key.String(), "error", err)
	}
	return applied
}

func (o *Orchestrator) Price() FetchState[float64] {
	return o.price.state
}

func (o *Orchestrator) Analysis() FetchState[models.Analysis] {
	return o.analysis.state
}
