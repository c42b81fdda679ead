package tui

import (
	"context"
	"errors"
	"testing"

	"github.com/verte-zerg/tuicalc/internal/client"
	"github.com/verte-zerg/tuicalc/internal/expr"
	"github.com/verte-zerg/tuicalc/internal/model"
)

type fakeService struct {
	evaluateErr   error
	evaluateCalls int
	latest        client.LatestResponse
	latestErr     error
	latestCalls   int
	history       []model.CalculationRecord
	historyErr    error
	details       map[string][]model.CalculationStep
	detailsCalls  int
}

func (f *fakeService) Evaluate(_ context.Context, _ string) (client.EvaluateResponse, error) {
	f.evaluateCalls++
	return client.EvaluateResponse{}, f.evaluateErr
}

func (f *fakeService) FetchHistory(_ context.Context, _ model.HistoryFilter) ([]model.CalculationRecord, error) {
	return f.history, f.historyErr
}

func (f *fakeService) FetchCalculationDetails(_ context.Context, id string) (client.DetailsResponse, error) {
	f.detailsCalls++
	return client.DetailsResponse{CalculationID: id, Steps: f.details[id]}, nil
}

func (f *fakeService) FetchLatestCalculation(_ context.Context) (client.LatestResponse, error) {
	f.latestCalls++
	return f.latest, f.latestErr
}

func TestEvaluateCmdReturnsStoredRecord(t *testing.T) {
	svc := &fakeService{
		latest: client.LatestResponse{
			History: []model.CalculationRecord{{CalculationID: "id1", Expression: "7 + 3", Result: 10}},
			Steps:   []model.CalculationStep{{A: 7, Operator: "+", B: 3, Result: 10}},
		},
	}
	m := NewModel(svc, nil)
	msg := m.evaluateCmd("7 + 3")()
	got, ok := msg.(evaluatedMsg)
	if !ok {
		t.Fatalf("expected evaluatedMsg, got %T", msg)
	}
	if got.err != nil || got.record == nil || got.record.CalculationID != "id1" {
		t.Fatalf("unexpected message: %+v", got)
	}
	if svc.evaluateCalls != 1 || svc.latestCalls != 1 {
		t.Fatalf("expected evaluate then latest, got %d/%d calls", svc.evaluateCalls, svc.latestCalls)
	}
	if len(got.steps) != 1 {
		t.Fatalf("expected seeded steps, got %v", got.steps)
	}
}

func TestEvaluateCmdPropagatesServerError(t *testing.T) {
	svc := &fakeService{evaluateErr: errors.New("Division by zero is not allowed")}
	m := NewModel(svc, nil)
	msg := m.evaluateCmd("1 / 0")()
	got := msg.(evaluatedMsg)
	if got.err == nil || got.err.Error() != "Division by zero is not allowed" {
		t.Fatalf("unexpected error: %v", got.err)
	}
	if svc.latestCalls != 0 {
		t.Fatalf("latest must not be fetched after a failed evaluation")
	}
}

func TestHandleEvaluatedShowsResultAndSeedsCard(t *testing.T) {
	m := NewModel(&fakeService{}, nil)
	rec := &model.CalculationRecord{CalculationID: "id1", Expression: "7 + 3", Result: 10, Date: "2024-01-01T00:00:00Z"}
	steps := []model.CalculationStep{{A: 7, Operator: "+", B: 3, Result: 10}}

	m.evaluating = true
	m.handleEvaluated(evaluatedMsg{record: rec, steps: steps})

	if m.evaluating {
		t.Fatalf("evaluating flag must clear")
	}
	if got := expr.Visible(m.exprState); got != "10" {
		t.Fatalf("display = %q, want result", got)
	}
	if !m.exprState.ShowingResult {
		t.Fatalf("expected result mode")
	}
	if m.last == nil || m.last.CalculationID != "id1" {
		t.Fatalf("last card not bound: %+v", m.last)
	}
	st := m.lastSlot.State()
	if !st.Fetched || len(st.Steps) != 1 {
		t.Fatalf("card steps not seeded: %+v", st)
	}
}

func TestHandleEvaluatedErrorKeepsExpression(t *testing.T) {
	m := NewModel(&fakeService{}, nil)
	m.exprState = expr.Apply(m.exprState, "5")
	m.evaluating = true
	m.handleEvaluated(evaluatedMsg{err: errors.New("boom")})
	if expr.Visible(m.exprState) != "5" {
		t.Fatalf("expression must survive a failed evaluation")
	}
	if !m.statusIsErr || m.status == "" {
		t.Fatalf("expected error status, got %q", m.status)
	}
}

func TestHandleHistoryDiscardsSupersededFetch(t *testing.T) {
	m := NewModel(&fakeService{}, nil)
	m.width, m.height = 80, 24
	m.updateLayout()
	seqA := m.hist.NextSeq()
	seqB := m.hist.NextSeq()

	m.handleHistory(historyMsg{seq: seqB, records: []model.CalculationRecord{{CalculationID: "new"}}})
	m.handleHistory(historyMsg{seq: seqA, records: []model.CalculationRecord{{CalculationID: "old"}}})

	records := m.hist.Records()
	if len(records) != 1 || records[0].CalculationID != "new" {
		t.Fatalf("stale fetch overwrote current records: %+v", records)
	}
}

func TestToggleSelectedFetchesDetailsOnce(t *testing.T) {
	m := NewModel(&fakeService{}, nil)
	m.width, m.height = 80, 24
	m.updateLayout()
	m.hist.ApplyHistory(m.hist.NextSeq(), []model.CalculationRecord{{CalculationID: "id1", Expression: "1 + 1", Result: 2}})

	if _, cmd := m.toggleSelected(); cmd == nil {
		t.Fatalf("first expansion must trigger a fetch")
	}
	m.handleDetails(detailsMsg{id: "id1", steps: []model.CalculationStep{{A: 1, Operator: "+", B: 1, Result: 2}}})

	// Collapse and re-expand: cached steps, no new fetch.
	m.toggleSelected()
	if _, cmd := m.toggleSelected(); cmd != nil {
		t.Fatalf("re-expansion must reuse cached steps")
	}
	st := m.hist.StepStateFor("id1")
	if !st.Fetched || len(st.Steps) != 1 {
		t.Fatalf("details not cached: %+v", st)
	}
}

func TestToggleLastCardFetchesWhenUnseeded(t *testing.T) {
	m := NewModel(&fakeService{}, nil)
	rec := &model.CalculationRecord{CalculationID: "id1", Expression: "2 * 2", Result: 4}
	m.last = rec
	m.lastSlot.Bind(rec.CalculationID)

	if _, cmd := m.toggleLastCard(); cmd == nil {
		t.Fatalf("expanding an unseeded card must fetch steps")
	}
	m.handleDetails(detailsMsg{id: "id1", steps: []model.CalculationStep{{A: 2, Operator: "*", B: 2, Result: 4}}})
	if st := m.lastSlot.State(); !st.Fetched || len(st.Steps) != 1 {
		t.Fatalf("card steps not applied: %+v", st)
	}
}

func TestSubmitRejectsEmptyExpression(t *testing.T) {
	svc := &fakeService{}
	m := NewModel(svc, nil)
	if _, cmd := m.submit(); cmd != nil {
		t.Fatalf("empty expression must not be submitted")
	}
	if svc.evaluateCalls != 0 {
		t.Fatalf("no network call expected")
	}
}
