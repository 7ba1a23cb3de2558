// Package wizard holds the canonical import wizard state and the transition
// function that derives a new state from an event.
package wizard

import (
	"github.com/kosarica/import-wizard/internal/types"
)

// Step is a wizard step
type Step int

const (
	StepUpload Step = iota + 1
	StepFilter
	StepRules
	StepReview
)

// String returns the string representation of the step.
func (s Step) String() string {
	switch s {
	case StepUpload:
		return "upload"
	case StepFilter:
		return "filter"
	case StepRules:
		return "rules"
	case StepReview:
		return "review"
	default:
		return "unknown"
	}
}

// Status is the lifecycle status of the wizard
type Status string

const (
	StatusIdle       Status = "idle"
	StatusLoading    Status = "loading"
	StatusConfirming Status = "confirming"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

// PublishMode decides whether confirmed deals go live immediately
type PublishMode string

const (
	PublishModePublish PublishMode = "publish"
	PublishModeDraft   PublishMode = "draft"
)

const (
	DefaultWindowDays = 7
)

// DefaultRules are the seed discount tiers of a fresh wizard
func DefaultRules() []types.DiscountRule {
	return []types.DiscountRule{
		{ID: 1, Days: 2, Discount: 50},
		{ID: 2, Days: 5, Discount: 30},
		{ID: 3, Days: 10, Discount: 15},
	}
}

// State is one immutable snapshot of the wizard. Transitions never write into
// a slice or map reachable from a previous snapshot, so holders of an old
// snapshot never observe later changes. Callers must treat the contents as
// read-only; use Clone to obtain a privately mutable copy.
type State struct {
	CurrentStep    Step
	File           *types.FileHandle
	ParsedColumns  []string
	ColumnMapping  types.ColumnMapping
	ParseErrors    []types.RowIssue
	RawRows        []types.RawRow
	WindowDays     int
	IncludeExpired bool
	DiscountRules  []types.DiscountRule
	RoundPrices    bool
	Preview        *types.ImportPreview
	PublishMode    PublishMode
	Status         Status

	// nextRuleID is the id handed to the next added rule. It only grows.
	nextRuleID int
}

// Initial returns the documented default state
func Initial() State {
	rules := DefaultRules()
	return State{
		CurrentStep:   StepUpload,
		ParsedColumns: []string{},
		ColumnMapping: types.ColumnMapping{},
		ParseErrors:   []types.RowIssue{},
		RawRows:       []types.RawRow{},
		WindowDays:    DefaultWindowDays,
		DiscountRules: rules,
		RoundPrices:   true,
		PublishMode:   PublishModePublish,
		Status:        StatusIdle,
		nextRuleID:    len(rules) + 1,
	}
}

// Clone returns a deep copy of the state. The file handle and preview are
// shared since neither is ever modified after creation.
func (s State) Clone() State {
	out := s
	out.ParsedColumns = append([]string{}, s.ParsedColumns...)
	out.ColumnMapping = s.ColumnMapping.Clone()
	out.ParseErrors = append([]types.RowIssue{}, s.ParseErrors...)
	out.RawRows = cloneRows(s.RawRows)
	out.DiscountRules = append([]types.DiscountRule{}, s.DiscountRules...)
	return out
}

// Locked reports whether the wizard is committing or has committed; user
// edits and navigation are ignored in these states.
func (s State) Locked() bool {
	return s.Status == StatusConfirming || s.Status == StatusSuccess || s.Status == StatusError
}

// MissingFields returns required fields without a mapping
func (s State) MissingFields() []types.FieldKey {
	return s.ColumnMapping.Missing()
}

// CanAdvance reports whether NextStep would move forward from the current step
func (s State) CanAdvance() bool {
	if s.Locked() {
		return false
	}
	switch s.CurrentStep {
	case StepUpload:
		return s.File != nil && len(s.MissingFields()) == 0
	case StepFilter, StepRules:
		return true
	default:
		return false
	}
}

// ReadyToConfirm reports whether a commit may start: the user has reached the
// review step with a file and a complete mapping, and nothing is running
func (s State) ReadyToConfirm() bool {
	return s.Status == StatusIdle &&
		s.CurrentStep == StepReview &&
		s.File != nil &&
		len(s.MissingFields()) == 0
}

// HasRows reports whether there is anything to compute a preview against
func (s State) HasRows() bool {
	return len(s.RawRows) > 0
}

// PreviewRequest builds the remote preview parameters from the state. Rules
// are transmitted verbatim in their stored order.
func (s State) PreviewRequest() types.PreviewRequest {
	rules := make([]types.WireDiscountRule, 0, len(s.DiscountRules))
	for _, r := range s.DiscountRules {
		rules = append(rules, types.WireDiscountRule{DaysLTE: r.Days, DiscountPct: r.Discount})
	}
	return types.PreviewRequest{
		ColumnMapping:  s.ColumnMapping.Wire(),
		WindowDays:     s.WindowDays,
		IncludeExpired: s.IncludeExpired,
		DiscountRules:  rules,
		RoundPrices:    s.RoundPrices,
		RawRows:        s.RawRows,
	}
}

// ConfirmRequest builds the remote confirm parameters from the state
func (s State) ConfirmRequest() types.ConfirmRequest {
	return types.ConfirmRequest{
		PreviewRequest: s.PreviewRequest(),
		Publish:        s.PublishMode == PublishModePublish,
	}
}

func cloneRows(rows []types.RawRow) []types.RawRow {
	out := make([]types.RawRow, len(rows))
	for i, row := range rows {
		cp := make(types.RawRow, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out[i] = cp
	}
	return out
}
