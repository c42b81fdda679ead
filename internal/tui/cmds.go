package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/tuicalc/internal/model"
)

type evaluatedMsg struct {
	record *model.CalculationRecord
	steps  []model.CalculationStep
	err    error
}

type latestMsg struct {
	record *model.CalculationRecord
	steps  []model.CalculationStep
	err    error
}

type historyMsg struct {
	seq     int
	records []model.CalculationRecord
	err     error
}

type detailsMsg struct {
	id    string
	steps []model.CalculationStep
	err   error
}

type statusExpiredMsg struct {
	at time.Time
}

// evaluateCmd submits the expression and then re-fetches the latest
// persisted record, so the display reflects exactly what the server stored
// rather than the evaluate response's echoed fields.
func (m *Model) evaluateCmd(expression string) tea.Cmd {
	service := m.service
	return func() tea.Msg {
		ctx := context.Background()
		if _, err := service.Evaluate(ctx, expression); err != nil {
			return evaluatedMsg{err: err}
		}
		latest, err := service.FetchLatestCalculation(ctx)
		if err != nil {
			return evaluatedMsg{err: err}
		}
		if len(latest.History) == 0 {
			return evaluatedMsg{}
		}
		rec := latest.History[0]
		return evaluatedMsg{record: &rec, steps: latest.Steps}
	}
}

func (m *Model) fetchLatestCmd() tea.Cmd {
	service := m.service
	return func() tea.Msg {
		latest, err := service.FetchLatestCalculation(context.Background())
		if err != nil {
			return latestMsg{err: err}
		}
		if len(latest.History) == 0 {
			return latestMsg{}
		}
		rec := latest.History[0]
		return latestMsg{record: &rec, steps: latest.Steps}
	}
}

// fetchHistoryCmd carries the issuing sequence number so the completion can
// be discarded if a newer fetch supersedes it.
func (m *Model) fetchHistoryCmd(seq int, filter model.HistoryFilter) tea.Cmd {
	service := m.service
	return func() tea.Msg {
		records, err := service.FetchHistory(context.Background(), filter)
		return historyMsg{seq: seq, records: records, err: err}
	}
}

func (m *Model) detailsCmd(id string) tea.Cmd {
	service := m.service
	return func() tea.Msg {
		resp, err := service.FetchCalculationDetails(context.Background(), id)
		return detailsMsg{id: id, steps: resp.Steps, err: err}
	}
}
