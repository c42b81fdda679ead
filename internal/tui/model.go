// Package tui provides the Bubble Tea calculator interface.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/verte-zerg/tuicalc/internal/client"
	"github.com/verte-zerg/tuicalc/internal/expr"
	"github.com/verte-zerg/tuicalc/internal/history"
	"github.com/verte-zerg/tuicalc/internal/model"
)

// Service is the slice of the HTTP client the TUI depends on.
type Service interface {
	Evaluate(ctx context.Context, expression string) (client.EvaluateResponse, error)
	FetchHistory(ctx context.Context, filter model.HistoryFilter) ([]model.CalculationRecord, error)
	FetchCalculationDetails(ctx context.Context, id string) (client.DetailsResponse, error)
	FetchLatestCalculation(ctx context.Context) (client.LatestResponse, error)
}

type view int

const (
	viewCalculator view = iota
	viewHistory
)

const statusTTL = 4 * time.Second

// Filter form field indexes.
const (
	filterFieldOps = iota
	filterFieldStart
	filterFieldEnd
	filterFieldSortBy
	filterFieldSortOrder
	filterFieldCount
)

// Model implements the Bubble Tea calculator UI. All state lives here and
// is only mutated by Update; network calls run as commands whose
// completions arrive as messages.
type Model struct {
	service Service
	logger  *zap.Logger

	width  int
	height int

	view view

	exprState  expr.State
	evaluating bool

	last     *model.CalculationRecord
	lastSlot history.Slot

	hist       *history.Controller
	expanded   map[string]bool
	histCursor int
	histView   viewport.Model
	histLines  []int // first content line of each record
	histErr    string

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string

	spin spinner.Model

	status      string
	statusIsErr bool
	statusAt    time.Time
}

// NewModel constructs the calculator TUI model.
func NewModel(service Service, logger *zap.Logger) *Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Model{
		service:  service,
		logger:   logger,
		hist:     history.NewController(),
		expanded: map[string]bool{},
		histView: viewport.New(0, 0),
	}
	m.spin = spinner.New(spinner.WithSpinner(spinner.Dot))
	m.initFilterInputs()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.fetchLatestCmd()
}

func (m *Model) initFilterInputs() {
	prompts := []string{
		"Operations (sum,sub,mul,div): ",
		"Start date (YYYY-MM-DD): ",
		"End date (YYYY-MM-DD): ",
		"Sort by (date/result): ",
		"Sort order (asc/desc): ",
	}
	m.filterInputs = make([]textinput.Model, filterFieldCount)
	for i, prompt := range prompts {
		input := textinput.New()
		input.Prompt = prompt
		input.CharLimit = 0
		input.Cursor.SetMode(cursor.CursorBlink)
		m.filterInputs[i] = input
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.refreshHistoryContent()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.view == viewHistory {
			return m.updateHistoryKeys(msg)
		}
		return m.updateCalculatorKeys(msg)
	case evaluatedMsg:
		return m.handleEvaluated(msg)
	case latestMsg:
		return m.handleLatest(msg)
	case historyMsg:
		return m.handleHistory(msg)
	case detailsMsg:
		return m.handleDetails(msg)
	case spinner.TickMsg:
		if !m.anyStepsLoading() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		m.refreshHistoryContent()
		return m, cmd
	case statusExpiredMsg:
		if msg.at.Equal(m.statusAt) {
			m.status = ""
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) updateCalculatorKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		return m.submit()
	case tea.KeyBackspace, tea.KeyDelete:
		m.exprState = expr.Apply(m.exprState, expr.TokenSuppress)
		return m, nil
	case tea.KeyEsc:
		m.exprState = expr.Apply(m.exprState, expr.TokenClear)
		return m, nil
	case tea.KeyTab:
		return m.toggleLastCard()
	case tea.KeyRunes:
		return m.handleCalculatorRunes(msg.Runes)
	default:
		return m, nil
	}
}

func (m *Model) handleCalculatorRunes(runes []rune) (tea.Model, tea.Cmd) {
	for _, r := range runes {
		switch r {
		case 'q':
			return m, tea.Quit
		case 'h':
			return m.openHistory()
		}
		if token, ok := tokenForRune(r); ok {
			m.exprState = expr.Apply(m.exprState, token)
		}
	}
	return m, nil
}

// tokenForRune maps a typed key onto a keypad token. Anything outside the
// keypad is ignored.
func tokenForRune(r rune) (string, bool) {
	if r >= '0' && r <= '9' || r == '.' {
		return string(r), true
	}
	if expr.IsOperator(string(r)) {
		return string(r), true
	}
	return "", false
}

func (m *Model) submit() (tea.Model, tea.Cmd) {
	text, ok := expr.SubmitText(m.exprState)
	if !ok || m.evaluating {
		return m, nil
	}
	m.evaluating = true
	return m, tea.Batch(m.evaluateCmd(text), m.setStatus("Evaluating...", false))
}

func (m *Model) toggleLastCard() (tea.Model, tea.Cmd) {
	if m.last == nil {
		return m, nil
	}
	if !m.lastSlot.Toggle() {
		return m, nil
	}
	if m.lastSlot.Begin() {
		return m, tea.Batch(m.detailsCmd(m.lastSlot.ID()), m.spin.Tick)
	}
	return m, nil
}

func (m *Model) openHistory() (tea.Model, tea.Cmd) {
	m.view = viewHistory
	m.histErr = ""
	seq := m.hist.NextSeq()
	return m, m.fetchHistoryCmd(seq, m.hist.Filter())
}

func (m *Model) updateHistoryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filterMode {
		return m.updateFilter(msg)
	}
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc", "h":
		m.view = viewCalculator
		return m, nil
	case "/":
		return m.startFilter()
	case "r":
		seq := m.hist.NextSeq()
		return m, m.fetchHistoryCmd(seq, m.hist.Filter())
	case "up", "k":
		m.moveCursor(-1)
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		return m, nil
	case "g", "home":
		m.histCursor = 0
		m.refreshHistoryContent()
		m.histView.GotoTop()
		return m, nil
	case "G", "end":
		if n := len(m.hist.Records()); n > 0 {
			m.histCursor = n - 1
		}
		m.refreshHistoryContent()
		m.histView.GotoBottom()
		return m, nil
	case "enter":
		return m.toggleSelected()
	default:
		var cmd tea.Cmd
		m.histView, cmd = m.histView.Update(msg)
		return m, cmd
	}
}

func (m *Model) moveCursor(delta int) {
	records := m.hist.Records()
	if len(records) == 0 {
		return
	}
	next := m.histCursor + delta
	if next < 0 {
		next = 0
	}
	if next >= len(records) {
		next = len(records) - 1
	}
	m.histCursor = next
	m.refreshHistoryContent()
	m.ensureCursorVisible()
}

func (m *Model) ensureCursorVisible() {
	if m.histCursor >= len(m.histLines) {
		return
	}
	line := m.histLines[m.histCursor]
	if line < m.histView.YOffset {
		m.histView.SetYOffset(line)
		return
	}
	bottom := m.histView.YOffset + m.histView.Height - 1
	if line > bottom {
		m.histView.SetYOffset(line - m.histView.Height + 1)
	}
}

func (m *Model) toggleSelected() (tea.Model, tea.Cmd) {
	records := m.hist.Records()
	if m.histCursor >= len(records) {
		return m, nil
	}
	id := records[m.histCursor].CalculationID
	m.expanded[id] = !m.expanded[id]
	defer m.refreshHistoryContent()
	if m.expanded[id] && m.hist.BeginDetails(id) {
		return m, tea.Batch(m.detailsCmd(id), m.spin.Tick)
	}
	return m, nil
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setFilterInputsFromFilter()
	return m, m.setFilterIndex(0)
}

func (m *Model) setFilterInputsFromFilter() {
	f := m.hist.Filter()
	ops := make([]string, len(f.OperationTypes))
	for i, op := range f.OperationTypes {
		ops[i] = string(op)
	}
	m.filterInputs[filterFieldOps].SetValue(joinComma(ops))
	m.filterInputs[filterFieldStart].SetValue(formatDateInput(f.StartDate))
	m.filterInputs[filterFieldEnd].SetValue(formatDateInput(f.EndDate))
	m.filterInputs[filterFieldSortBy].SetValue(string(f.SortBy))
	m.filterInputs[filterFieldSortOrder].SetValue(string(f.SortOrder))
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		if err := m.applyFilter(); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filterMode = false
		m.filterError = ""
		seq := m.hist.NextSeq()
		return m, m.fetchHistoryCmd(seq, m.hist.Filter())
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	if count == 0 {
		return nil
	}
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	m.filterIndex = idx
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) applyFilter() error {
	ops, err := model.ParseOperations(m.filterInputs[filterFieldOps].Value())
	if err != nil {
		return err
	}
	start, err := parseDateInput(m.filterInputs[filterFieldStart].Value())
	if err != nil {
		return err
	}
	end, err := parseDateInput(m.filterInputs[filterFieldEnd].Value())
	if err != nil {
		return err
	}
	sortBy, err := model.ParseSortBy(m.filterInputs[filterFieldSortBy].Value())
	if err != nil {
		return err
	}
	sortOrder, err := model.ParseSortOrder(m.filterInputs[filterFieldSortOrder].Value())
	if err != nil {
		return err
	}
	m.hist.SetFilter(model.HistoryFilter{
		OperationTypes: ops,
		StartDate:      start,
		EndDate:        end,
		SortBy:         sortBy,
		SortOrder:      sortOrder,
	})
	return nil
}

func (m *Model) handleEvaluated(msg evaluatedMsg) (tea.Model, tea.Cmd) {
	m.evaluating = false
	if msg.err != nil {
		m.logger.Warn("evaluation failed", zap.Error(msg.err))
		return m, m.setStatus("Calculation failed: "+msg.err.Error(), true)
	}
	if msg.record == nil {
		return m, m.setStatus("Calculation successful.", false)
	}
	m.exprState = expr.WithResult(model.FormatNumber(msg.record.Result))
	m.applyLatest(msg.record, msg.steps)
	return m, m.setStatus("Calculation successful. Result: "+model.FormatNumber(msg.record.Result), false)
}

func (m *Model) handleLatest(msg latestMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		// Startup seeding is best-effort; the card just stays empty.
		m.logger.Warn("failed to fetch latest calculation", zap.Error(msg.err))
		return m, nil
	}
	if msg.record != nil {
		m.applyLatest(msg.record, msg.steps)
	}
	return m, nil
}

// applyLatest binds the last-operation card to the canonical persisted
// record. The latest endpoint already returns the record's steps, so the
// card's step cache is seeded instead of fetched lazily.
func (m *Model) applyLatest(rec *model.CalculationRecord, steps []model.CalculationStep) {
	m.last = rec
	m.lastSlot.Bind(rec.CalculationID)
	m.lastSlot.Apply(steps)
}

func (m *Model) handleHistory(msg historyMsg) (tea.Model, tea.Cmd) {
	if !m.hist.IsCurrent(msg.seq) {
		// Superseded fetch; a newer request owns the view now.
		return m, nil
	}
	if msg.err != nil {
		m.logger.Warn("failed to fetch history", zap.Error(msg.err))
		m.histErr = msg.err.Error()
		return m, nil
	}
	m.hist.ApplyHistory(msg.seq, msg.records)
	m.histErr = ""
	m.histCursor = 0
	m.expanded = map[string]bool{}
	m.refreshHistoryContent()
	m.histView.GotoTop()
	return m, nil
}

func (m *Model) handleDetails(msg detailsMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.lastSlot.ID() == msg.id && m.lastSlot.State().Loading {
		if msg.err != nil {
			m.lastSlot.Fail()
			cmd = m.setStatus("Failed to load steps: "+msg.err.Error(), true)
		} else {
			m.lastSlot.Apply(msg.steps)
		}
	}
	if st := m.hist.StepStateFor(msg.id); st.Loading {
		if msg.err != nil {
			m.hist.FailDetails(msg.id)
			m.histErr = "Failed to load steps: " + msg.err.Error()
		} else {
			m.hist.ApplyDetails(msg.id, msg.steps)
		}
		m.refreshHistoryContent()
	}
	if msg.err != nil {
		m.logger.Warn("failed to fetch details", zap.String("calculation_id", msg.id), zap.Error(msg.err))
	}
	return m, cmd
}

func (m *Model) anyStepsLoading() bool {
	if m.lastSlot.State().Loading {
		return true
	}
	for _, rec := range m.hist.Records() {
		if m.hist.StepStateFor(rec.CalculationID).Loading {
			return true
		}
	}
	return false
}

func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.status = text
	m.statusIsErr = isErr
	at := time.Now()
	m.statusAt = at
	return tea.Tick(statusTTL, func(time.Time) tea.Msg {
		return statusExpiredMsg{at: at}
	})
}
