package tui

import (
	"fmt"
	"strings"

	"stock-lookup/lookup"
	"stock-lookup/models"
)

// View implements tea.Model
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("종목 검색"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if m.backendErr != nil {
		b.WriteString(errorStyle.Render("백엔드 서버 오류: " + m.backendErr.Error()))
		b.WriteString("\n")
	}

	switch m.ctrl.CatalogStatus() {
	case lookup.CatalogLoading:
		b.WriteString(bannerStyle.Render("종목 목록 " + LoadingText))
		b.WriteString("\n")
	case lookup.CatalogUnavailable:
		b.WriteString(errorStyle.Render("종목 목록을 불러올 수 없습니다"))
		b.WriteString("\n")
	default:
		m.writeResults(&b)
	}

	if sec, ok := m.ctrl.Selection(); ok {
		b.WriteString("\n")
		b.WriteString(panelStyle.Render(m.selectedPanel(sec)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ 이동 • enter 선택 • ctrl+a 분석 • esc 선택 해제 • ctrl+c 종료"))
	return b.String()
}

func (m *Model) writeResults(b *strings.Builder) {
	results := m.ctrl.Results()
	if m.ctrl.Query() != "" && len(results) == 0 {
		b.WriteString(helpStyle.Render("검색 결과가 없습니다"))
		b.WriteString("\n")
		return
	}
	selected, hasSel := m.ctrl.Selection()
	for i, sec := range results {
		marker := "  "
		if i == m.cursor {
			marker = cursorStyle.Render("> ")
		}
		line := fmt.Sprintf("%-8s %s %s", sec.Symbol, sec.Name, marketStyle.Render(string(sec.Market)))
		if hasSel && sec.Key() == selected.Key() {
			line = cursorStyle.Render("✓ ") + line
		}
		b.WriteString(marker + line + "\n")
	}
}

func (m *Model) selectedPanel(sec models.Security) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s) · %s\n", sec.Name, sec.Symbol, sec.Market)

	price := m.ctrl.Price()
	switch {
	case price.Loading:
		b.WriteString(LoadingText)
	case price.Value != nil:
		b.WriteString("종가 " + priceStyle.Render(models.FormatPrice(*price.Value, sec.Market)))
	default:
		b.WriteString(PriceUnavailable)
	}
	b.WriteString("\n\n")

	if m.ctrl.CanAnalyze() {
		b.WriteString(buttonStyle.Render(AnalyzeLabel))
	} else {
		b.WriteString(disabledButtonStyle.Render(AnalyzeLabel))
	}
	b.WriteString("\n")

	analysis := m.ctrl.Analysis()
	switch {
	case analysis.Loading:
		b.WriteString("\n" + LoadingText + "\n")
	case analysis.Value != nil:
		b.WriteString("\n")
		for _, p := range analysis.Value.Forecast {
			fmt.Fprintf(&b, "%s  %s\n", p.Date, models.FormatPrice(p.Price, sec.Market))
		}
		if s := analysis.Value.Summary; s != "" {
			b.WriteString(m.renderMarkdown(s))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
