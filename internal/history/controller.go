// Package history tracks history view state: the active filter, loaded
// records, and the lazily fetched per-record step caches.
package history

import "github.com/verte-zerg/tuicalc/internal/model"

// StepState tracks the lazily fetched step breakdown of one record.
type StepState struct {
	Fetched bool
	Loading bool
	Steps   []model.CalculationStep
}

// Controller owns the history view's query and cache state. It is not safe
// for concurrent use; in the TUI it is only touched by the update loop.
type Controller struct {
	filter  model.HistoryFilter
	records []model.CalculationRecord
	steps   map[string]*StepState

	seq   int  // latest issued history fetch
	dirty bool // filter changed since the last issued fetch
}

// NewController returns a controller with the service's default sort.
func NewController() *Controller {
	return &Controller{
		filter: model.HistoryFilter{SortBy: model.SortByDate, SortOrder: model.SortDesc},
		steps:  map[string]*StepState{},
	}
}

// Filter returns the current filter.
func (c *Controller) Filter() model.HistoryFilter {
	return c.filter
}

// SetFilter replaces the filter and marks the controller dirty so the next
// update issues a fresh fetch. An end date before the start date is clamped
// to the start date at selection time rather than sent to the server.
func (c *Controller) SetFilter(f model.HistoryFilter) {
	if f.SortBy == "" {
		f.SortBy = model.SortByDate
	}
	if f.SortOrder == "" {
		f.SortOrder = model.SortDesc
	}
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		clamped := *f.StartDate
		f.EndDate = &clamped
	}
	c.filter = f
	c.dirty = true
}

// Dirty reports whether a filter change is awaiting a fetch.
func (c *Controller) Dirty() bool {
	return c.dirty
}

// Records returns the loaded records in display order.
func (c *Controller) Records() []model.CalculationRecord {
	return c.records
}

// NextSeq issues a new fetch sequence number. Completions are ordered by
// issuance, not arrival: only the latest number's result is accepted.
func (c *Controller) NextSeq() int {
	c.seq++
	c.dirty = false
	return c.seq
}

// IsCurrent reports whether seq is the latest issued fetch.
func (c *Controller) IsCurrent(seq int) bool {
	return seq == c.seq
}

// ApplyHistory installs a fetch result and reports whether it was current.
// A completion for a superseded sequence number is discarded so a slow
// response can never overwrite a newer one.
func (c *Controller) ApplyHistory(seq int, records []model.CalculationRecord) bool {
	if seq != c.seq {
		return false
	}
	c.records = records
	return true
}

// StepStateFor returns the cached step state for a record id. The zero
// value means the record was never expanded.
func (c *Controller) StepStateFor(id string) StepState {
	if st, ok := c.steps[id]; ok {
		return *st
	}
	return StepState{}
}

// BeginDetails marks a record's steps as loading and reports whether a
// fetch should be issued. It returns false when the steps were already
// fetched or a fetch is in flight, so re-expanding a record never refetches.
func (c *Controller) BeginDetails(id string) bool {
	st := c.stepEntry(id)
	if st.Fetched || st.Loading {
		return false
	}
	st.Loading = true
	return true
}

// ApplyDetails stores fetched steps for a record.
func (c *Controller) ApplyDetails(id string, steps []model.CalculationStep) {
	st := c.stepEntry(id)
	st.Loading = false
	st.Fetched = true
	st.Steps = steps
}

// FailDetails clears the loading flag so a later expansion can retry.
func (c *Controller) FailDetails(id string) {
	if st, ok := c.steps[id]; ok {
		st.Loading = false
	}
}

func (c *Controller) stepEntry(id string) *StepState {
	st, ok := c.steps[id]
	if !ok {
		st = &StepState{}
		c.steps[id] = st
	}
	return st
}

// Slot tracks a single-record display slot, such as the last-operation
// card. Rebinding the slot to a different record identity resets its
// expansion and step state so stale steps can never show.
type Slot struct {
	id       string
	expanded bool
	state    StepState
}

// Bind points the slot at a record id. State is kept when the identity is
// unchanged and reset otherwise.
func (s *Slot) Bind(id string) {
	if s.id == id {
		return
	}
	s.id = id
	s.expanded = false
	s.state = StepState{}
}

// ID returns the bound record id, empty when unbound.
func (s *Slot) ID() string {
	return s.id
}

// Expanded reports whether the slot is showing its step detail.
func (s *Slot) Expanded() bool {
	return s.expanded
}

// Toggle flips the expansion state and returns the new value.
func (s *Slot) Toggle() bool {
	s.expanded = !s.expanded
	return s.expanded
}

// Begin marks the slot's steps as loading; false when already fetched or
// in flight.
func (s *Slot) Begin() bool {
	if s.id == "" || s.state.Fetched || s.state.Loading {
		return false
	}
	s.state.Loading = true
	return true
}

// Apply stores fetched (or pre-seeded) steps for the bound record.
func (s *Slot) Apply(steps []model.CalculationStep) {
	s.state = StepState{Fetched: true, Steps: steps}
}

// Fail clears the loading flag so a later expansion can retry.
func (s *Slot) Fail() {
	s.state.Loading = false
}

// State returns the slot's step state.
func (s *Slot) State() StepState {
	return s.state
}
