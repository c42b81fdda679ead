package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tuicalc/internal/datefmt"
	"github.com/verte-zerg/tuicalc/internal/expr"
	"github.com/verte-zerg/tuicalc/internal/history"
	"github.com/verte-zerg/tuicalc/internal/model"
)

const (
	displayWidth  = 34
	cardWidth     = 36
	displayPrompt = "Enter expression"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	dateStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7BC96F"))

	displayStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(0, 1).
			Width(displayWidth).
			Align(lipgloss.Right)
	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#B0B0B0")).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A")).
			Width(cardWidth)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	crumbStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
)

// keypadRows mirrors the calculator's button layout.
var keypadRows = [][]string{
	{"7", "8", "9", "/"},
	{"4", "5", "6", "*"},
	{"1", "2", "3", "-"},
	{"Clear", "0", "Suppress", "+"},
	{"(", ")"},
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.view == viewHistory {
		return m.viewHistory()
	}
	return m.viewCalculator()
}

func (m *Model) viewCalculator() string {
	parts := []string{
		titleStyle.Render("Calculator"),
		"",
		m.renderDisplay(),
		renderKeypad(),
		m.renderStatus(),
	}
	main := lipgloss.JoinVertical(lipgloss.Center, parts...)

	card := m.renderLastCard()
	var content string
	if m.width >= displayWidth+cardWidth+12 {
		content = lipgloss.JoinHorizontal(lipgloss.Top, card, "    ", main)
	} else {
		content = lipgloss.JoinVertical(lipgloss.Center, main, "", card)
	}

	help := "type digits/operators  enter: calculate  backspace: suppress  esc: clear  tab: steps  h: history  q: quit"
	footer := footerStyle.Render(truncateLine(help, m.width))
	body := lipgloss.Place(m.width, maxInt(1, m.height-1), lipgloss.Center, lipgloss.Center, content)
	return body + "\n" + lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
}

func (m *Model) renderDisplay() string {
	value := expr.Visible(m.exprState)
	if value == "" {
		return displayStyle.Render(mutedStyle.Render(displayPrompt))
	}
	return displayStyle.Render(truncateLine(value, displayWidth-2))
}

func renderKeypad() string {
	rows := make([]string, 0, len(keypadRows))
	for _, row := range keypadRows {
		keys := make([]string, 0, len(row))
		for _, label := range row {
			keys = append(keys, keyStyle.Render(label))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, keys...))
	}
	return lipgloss.JoinVertical(lipgloss.Center, rows...)
}

func (m *Model) renderStatus() string {
	if m.status == "" {
		return ""
	}
	line := truncateLine(m.status, maxInt(displayWidth, m.width/2))
	if m.statusIsErr {
		return errorStyle.Render(line)
	}
	return okStyle.Render(line)
}

func (m *Model) renderLastCard() string {
	if m.last == nil {
		return cardStyle.Render(mutedStyle.Render("No recent operation"))
	}
	innerWidth := cardWidth - 4
	lines := []string{
		mutedStyle.Render("Last Operation"),
		titleStyle.Render(truncateLine(m.last.Expression, innerWidth)),
		"Result: " + model.FormatNumber(m.last.Result),
	}
	if m.lastSlot.Expanded() {
		lines = append(lines, renderStepLines(m.lastSlot.State(), m.spin.View(), innerWidth)...)
	}
	lines = append(lines, dateStyle.Render(truncateLine(datefmt.Normalize(m.last.Date), innerWidth)))
	return cardStyle.Render(strings.Join(lines, "\n"))
}

// renderStepLines renders the expanded step breakdown of a record.
func renderStepLines(st history.StepState, spinnerView string, width int) []string {
	switch {
	case st.Loading:
		return []string{mutedStyle.Render(spinnerView + " Loading steps...")}
	case !st.Fetched, len(st.Steps) == 0:
		return []string{mutedStyle.Render("No steps found.")}
	}
	lines := make([]string, 0, len(st.Steps))
	for _, step := range st.Steps {
		lines = append(lines, truncateLine("  "+formatStep(step), width))
	}
	return lines
}

func formatStep(step model.CalculationStep) string {
	return fmt.Sprintf("%s %s %s = %s",
		model.FormatNumber(step.A),
		step.Operator,
		model.FormatNumber(step.B),
		model.FormatNumber(step.Result),
	)
}

func (m *Model) viewHistory() string {
	headerHeight, bodyHeight, footerHeight := m.historyLayoutHeights()
	header := fitLines(m.renderHistoryHeader(), m.width, headerHeight)
	var body string
	if m.filterMode {
		body = fitLines(m.renderFilterForm(), m.width, bodyHeight)
	} else {
		body = fitLines(m.histView.View(), m.width, bodyHeight)
	}
	footer := fitLines(m.renderHistoryFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) historyLayoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = 3
	footerHeight = 1
	if !m.filterMode && m.histErr != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) renderHistoryHeader() string {
	crumb := crumbStyle.Render("Calculator") + headerStyle.Render(" / ") + titleStyle.Render("History")
	summary := headerStyle.Render(truncateLine(m.filterSummary(), m.width))
	return crumb + "\n" + summary + "\n"
}

func (m *Model) filterSummary() string {
	f := m.hist.Filter()
	ops := "any"
	if len(f.OperationTypes) > 0 {
		parts := make([]string, len(f.OperationTypes))
		for i, op := range f.OperationTypes {
			parts[i] = string(op)
		}
		ops = strings.Join(parts, ",")
	}
	from := "any"
	if f.StartDate != nil {
		from = f.StartDate.Format("2006-01-02")
	}
	to := "any"
	if f.EndDate != nil {
		to = f.EndDate.Format("2006-01-02")
	}
	return fmt.Sprintf("Filter: ops=%s  from=%s  to=%s  sort=%s %s", ops, from, to, f.SortBy, f.SortOrder)
}

func (m *Model) renderHistoryFooter() string {
	if m.filterMode {
		return footerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	help := footerStyle.Render("up/down: select  enter: steps  /: filter  r: refresh  esc: back  q: quit")
	if m.histErr != "" {
		return help + "\n" + errorStyle.Render(truncateLine(m.histErr, m.width))
	}
	return help
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Filter history (enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

// refreshHistoryContent rebuilds the viewport content and the per-record
// line index used to keep the cursor visible.
func (m *Model) refreshHistoryContent() {
	content, lines := m.historyContent()
	m.histLines = lines
	m.histView.SetContent(content)
}

func (m *Model) historyContent() (string, []int) {
	records := m.hist.Records()
	if len(records) == 0 {
		return mutedStyle.Render("No calculations found."), nil
	}
	width := maxInt(20, m.histView.Width-4)
	var lines []string
	recordLines := make([]int, 0, len(records))
	for i, rec := range records {
		recordLines = append(recordLines, len(lines))
		lines = append(lines, m.renderRecordLines(rec, i == m.histCursor, width)...)
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n"), recordLines
}

func (m *Model) renderRecordLines(rec model.CalculationRecord, selected bool, width int) []string {
	marker := "  "
	exprStyle := mutedStyle
	if selected {
		marker = "> "
		exprStyle = selectedStyle
	}
	lines := []string{
		marker + exprStyle.Render(truncateLine(rec.Expression, width)),
		"  Result: " + model.FormatNumber(rec.Result),
	}
	if m.expanded[rec.CalculationID] {
		for _, step := range renderStepLines(m.hist.StepStateFor(rec.CalculationID), m.spin.View(), width) {
			lines = append(lines, "  "+step)
		}
	}
	lines = append(lines, "  "+dateStyle.Render(truncateLine(datefmt.Normalize(rec.Date), width)))
	return lines
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.historyLayoutHeights()
	m.histView.Width = m.width
	m.histView.Height = bodyHeight
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = maxInt(10, m.width-promptWidth-2)
	}
}

func parseDateInput(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", value, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", value)
	}
	return &parsed, nil
}

func formatDateInput(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func joinComma(parts []string) string {
	return strings.Join(parts, ",")
}
