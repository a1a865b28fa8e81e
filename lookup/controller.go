// Package lookup holds the search-and-select state machine and the fetches
// it drives. Everything here runs on the single bubbletea update loop;
// network work happens inside the returned commands and comes back as
// messages.
package lookup

import (
	"context"
	"errors"
	"log/slog"
	"stock-lookup/models"
	"stock-lookup/search"

	tea "github.com/charmbracelet/bubbletea"
)

var (
	ErrNoSelection  = errors.New("no security selected")
	ErrNotInResults = errors.New("security is not in the current results")
)

// State is the controller's position in the search/select cycle.
type State int

const (
	Idle State = iota
	Searching
	Selected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Searching:
		return "searching"
	case Selected:
		return "selected"
	default:
		return "unknown"
	}
}

type CatalogStatus int

const (
	CatalogLoading CatalogStatus = iota
	CatalogReady
	CatalogUnavailable
)

func (s CatalogStatus) String() string {
	switch s {
	case CatalogLoading:
		return "loading"
	case CatalogReady:
		return "ready"
	case CatalogUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// CatalogLoadedMsg carries the outcome of the one-time catalog load.
type CatalogLoadedMsg struct {
	Catalog models.Catalog
	Err     error
}

type Config struct {
	// LoadCatalog is run once by Init.
	LoadCatalog func(context.Context) (models.Catalog, error)
	// NewEngine indexes the loaded catalog. Nil means the scan engine.
	NewEngine func(models.Catalog) (search.SearchEngine, error)
	// Fetcher serves price and analysis. Nil makes every fetch fail.
	Fetcher Fetcher
	Context   context.Context
	Logger    *slog.Logger
}

// Controller owns the query, the derived results and the current selection,
// and re-targets the fetch pipelines whenever the selection changes.
type Controller struct {
	ctx         context.Context
	loadCatalog func(context.Context) (models.Catalog, error)
	newEngine   func(models.Catalog) (search.SearchEngine, error)
	orch        *Orchestrator
	logger      *slog.Logger

	catalogStatus CatalogStatus
	catalogErr    error
	catalogSize   int
	engine        search.SearchEngine

	query     string
	results   []models.Security
	selection *models.Security
}

func NewController(cfg Config) *Controller {
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	newEngine := cfg.NewEngine
	if newEngine == nil {
		newEngine = func(c models.Catalog) (search.SearchEngine, error) {
			return search.NewInMemoryEngine(c), nil
		}
	}
	return &Controller{
		ctx:         ctx,
		loadCatalog: cfg.LoadCatalog,
		newEngine:   newEngine,
		orch:        NewOrchestrator(ctx, cfg.Fetcher, logger),
		logger:      logger,
	}
}

// Init returns the command that loads the catalog.
func (c *Controller) Init() tea.Cmd {
	load, ctx := c.loadCatalog, c.ctx
	return func() tea.Msg {
		catalog, err := load(ctx)
		return CatalogLoadedMsg{Catalog: catalog, Err: err}
	}
}

// Update applies a message produced by one of the controller's commands.
// It reports whether visible state changed; unrelated messages and stale
// fetch results return false.
func (c *Controller) Update(msg tea.Msg) bool {
	switch msg := msg.(type) {
	case CatalogLoadedMsg:
		return c.applyCatalog(msg)
	case PriceMsg:
		return c.orch.ApplyPrice(msg, c.selectedKey())
	case AnalysisMsg:
		return c.orch.ApplyAnalysis(msg, c.selectedKey())
	}
	return false
}

func (c *Controller) applyCatalog(msg CatalogLoadedMsg) bool {
	if c.catalogStatus != CatalogLoading {
		return false
	}
	if msg.Err != nil {
		c.fail(msg.Err)
		return true
	}
	engine, err := c.newEngine(msg.Catalog)
	if err != nil {
		c.fail(err)
		return true
	}

	c.engine = engine
	c.catalogSize = len(msg.Catalog)
	c.catalogStatus = CatalogReady
	c.logger.Info("catalog ready", "securities", c.catalogSize)
	c.recompute()
	return true
}

func (c *Controller) fail(err error) {
	c.catalogStatus = CatalogUnavailable
	c.catalogErr = err
	c.logger.Error("catalog unavailable", "error", err)
}

// SetQuery replaces the query text. Any edit abandons the current
// selection before the results are recomputed.
func (c *Controller) SetQuery(q string) {
	if q == c.query {
		return
	}
	c.query = q
	c.clearSelection()
	c.recompute()
}

// Select makes sec the current selection and starts its price fetch.
// sec must be in the current results. Selecting the security that is
// already selected does nothing and returns a nil command.
func (c *Controller) Select(sec models.Security) (tea.Cmd, error) {
	key := sec.Key()
	picked, ok := c.findResult(key)
	if !ok {
		return nil, ErrNotInResults
	}
	if c.selection != nil && c.selection.Key() == key {
		return nil, nil
	}

	c.selection = &picked
	c.orch.Reset()
	c.logger.Debug("security selected", "key", key.String())
	return c.orch.FetchPrice(picked), nil
}

// Pick selects the i-th entry of the current results.
func (c *Controller) Pick(i int) (tea.Cmd, error) {
	if i < 0 || i >= len(c.results) {
		return nil, ErrNotInResults
	}
	return c.Select(c.results[i])
}

// Deselect clears the selection, keeping the query and results.
func (c *Controller) Deselect() {
	c.clearSelection()
}

// Analyze starts (or restarts) the analysis fetch for the selection.
func (c *Controller) Analyze() (tea.Cmd, error) {
	if c.selection == nil {
		return nil, ErrNoSelection
	}
	return c.orch.FetchAnalysis(*c.selection), nil
}

// CanAnalyze reports whether the analyze trigger should be enabled.
func (c *Controller) CanAnalyze() bool {
	return c.selection != nil && !c.orch.Analysis().Loading
}

func (c *Controller) clearSelection() {
	if c.selection == nil {
		return
	}
	c.selection = nil
	c.orch.Reset()
}

func (c *Controller) recompute() {
	if c.catalogStatus != CatalogReady || c.query == "" {
		c.results = nil
		return
	}
	c.results = c.engine.Search(c.query)
}

func (c *Controller) findResult(key models.Key) (models.Security, bool) {
	for _, s := range c.results {
		if s.Key() == key {
			return s, true
		}
	}
	return models.Security{}, false
}

func (c *Controller) selectedKey() *models.Key {
	if c.selection == nil {
		return nil
	}
	key := c.selection.Key()
	return &key
}

func (c *Controller) State() State {
	switch {
	case c.query == "":
		return Idle
	case c.selection != nil:
		return Selected
	default:
		return Searching
	}
}

func (c *Controller) Query() string { return c.query }

// Results returns the current result set. Callers must not modify it.
func (c *Controller) Results() []models.Security { return c.results }

// Selection returns the selected security, if any.
func (c *Controller) Selection() (models.Security, bool) {
	if c.selection == nil {
		return models.Security{}, false
	}
	return *c.selection, true
}

func (c *Controller) Price() FetchState[float64] { return c.orch.Price() }

func (c *Controller) Analysis() FetchState[models.Analysis] { return c.orch.Analysis() }

func (c *Controller) CatalogStatus() CatalogStatus { return c.catalogStatus }

// CatalogErr is the load failure when the catalog is unavailable.
func (c *Controller) CatalogErr() error { return c.catalogErr }

func (c *Controller) CatalogSize() int { return c.catalogSize }
