// Package tui is the terminal front end for stock lookup.
package tui

import (
	"stock-lookup/lookup"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

// Texts shown to the user.
const (
	LoadingText      = "불러오는 중..."
	PriceUnavailable = "가격 정보를 불러올 수 없습니다"
	AnalyzeLabel     = "AI 분석하기"
)

// BackendErrMsg reports that the co-hosted backend could not start or has
// stopped. Fetches will fail until it is back.
type BackendErrMsg struct {
	Err error
}

// Model adapts a lookup.Controller to bubbletea: it owns the text input
// and result cursor, and forwards everything else to the controller.
type Model struct {
	ctrl   *lookup.Controller
	input  textinput.Model
	cursor int
	width  int
	height int

	backendErr error

	mdRenderer *glamour.TermRenderer
	mdSource   string
	mdRendered string
}

// New creates the model around ctrl.
func New(ctrl *lookup.Controller) *Model {
	ti := textinput.New()
	ti.Placeholder = "종목명 또는 심볼 (예: AAPL, 005930)"
	ti.Prompt = "> "
	ti.CharLimit = 64
	ti.Focus()

	return &Model{
		ctrl:  ctrl,
		input: ti,
		width: 80,
	}
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.ctrl.Init())
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.mdRenderer = nil
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case BackendErrMsg:
		m.backendErr = msg.Err
		return m, nil

	case lookup.CatalogLoadedMsg, lookup.PriceMsg, lookup.AnalysisMsg:
		m.ctrl.Update(msg)
		m.clampCursor()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.ctrl.Deselect()
		return m, nil
	case "up":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down":
		if m.cursor < len(m.ctrl.Results())-1 {
			m.cursor++
		}
		return m, nil
	case "enter":
		cmd, err := m.ctrl.Pick(m.cursor)
		if err != nil {
			return m, nil
		}
		return m, cmd
	case "ctrl+a":
		if !m.ctrl.CanAnalyze() {
			return m, nil
		}
		cmd, err := m.ctrl.Analyze()
		if err != nil {
			return m, nil
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if q := m.input.Value(); q != m.ctrl.Query() {
		m.ctrl.SetQuery(q)
		m.cursor = 0
	}
	return m, cmd
}

func (m *Model) clampCursor() {
	if n := len(m.ctrl.Results()); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

// renderMarkdown renders the analysis summary, caching the last result.
func (m *Model) renderMarkdown(src string) string {
	if src == m.mdSource && m.mdRendered != "" {
		return m.mdRendered
	}
	if m.mdRenderer == nil {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(max(m.width-4, 20)),
		)
		if err != nil {
			return src
		}
		m.mdRenderer = r
	}
	out, err := m.mdRenderer.Render(src)
	if err != nil {
		return src
	}
	m.mdSource, m.mdRendered = src, out
	return out
}
