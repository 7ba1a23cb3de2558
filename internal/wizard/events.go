package wizard

import (
	"github.com/kosarica/import-wizard/internal/types"
)

// Event is a closed set of wizard inputs. Only types in this package
// implement it, so Apply's type switch covers every event.
type Event interface {
	isEvent()
}

// SetFile replaces the uploaded file. Data derived from the previous file
// (columns, mapping, parse errors, rows, preview) is discarded.
type SetFile struct{ File *types.FileHandle }

type SetParsedColumns struct{ Columns []string }

// SetMapping replaces the whole column mapping
type SetMapping struct{ Mapping types.ColumnMapping }

type SetParseErrors struct{ Errors []types.RowIssue }

type SetRawRows struct{ Rows []types.RawRow }

// SetWindowDays sets the near-expiry window; values below 1 are raised to 1
type SetWindowDays struct{ Days int }

type ToggleIncludeExpired struct{}

// AddRule appends a rule with a fresh id
type AddRule struct {
	Days     int
	Discount float64
}

// RuleField names an editable rule attribute
type RuleField string

const (
	RuleFieldDays     RuleField = "days"
	RuleFieldDiscount RuleField = "discount"
)

// UpdateRule edits one field of the rule with the given id
type UpdateRule struct {
	ID    int
	Field RuleField
	Value float64
}

type DeleteRule struct{ ID int }

type ToggleRoundPrices struct{}

type SetPreview struct{ Preview *types.ImportPreview }

type SetPublishMode struct{ Mode PublishMode }

type SetStatus struct{ Status Status }

type NextStep struct{}

type PrevStep struct{}

type Reset struct{}

func (SetFile) isEvent()              {}
func (SetParsedColumns) isEvent()     {}
func (SetMapping) isEvent()           {}
func (SetParseErrors) isEvent()       {}
func (SetRawRows) isEvent()           {}
func (SetWindowDays) isEvent()        {}
func (ToggleIncludeExpired) isEvent() {}
func (AddRule) isEvent()              {}
func (UpdateRule) isEvent()           {}
func (DeleteRule) isEvent()           {}
func (ToggleRoundPrices) isEvent()    {}
func (SetPreview) isEvent()           {}
func (SetPublishMode) isEvent()       {}
func (SetStatus) isEvent()            {}
func (NextStep) isEvent()             {}
func (PrevStep) isEvent()             {}
func (Reset) isEvent()                {}

// AffectsPreview reports whether the event changes the preview parameters
func AffectsPreview(ev Event) bool {
	switch ev.(type) {
	case SetMapping, SetRawRows, SetWindowDays, ToggleIncludeExpired,
		AddRule, UpdateRule, DeleteRule, ToggleRoundPrices:
		return true
	default:
		return false
	}
}

// InvalidatesPreview reports whether a preview computed before the event no
// longer describes the state after it
func InvalidatesPreview(ev Event) bool {
	switch ev.(type) {
	case SetFile, Reset:
		return true
	default:
		return AffectsPreview(ev)
	}
}

// EventName returns a short name for logging
func EventName(ev Event) string {
	switch ev.(type) {
	case SetFile:
		return "set_file"
	case SetParsedColumns:
		return "set_parsed_columns"
	case SetMapping:
		return "set_mapping"
	case SetParseErrors:
		return "set_parse_errors"
	case SetRawRows:
		return "set_raw_rows"
	case SetWindowDays:
		return "set_window_days"
	case ToggleIncludeExpired:
		return "toggle_include_expired"
	case AddRule:
		return "add_rule"
	case UpdateRule:
		return "update_rule"
	case DeleteRule:
		return "delete_rule"
	case ToggleRoundPrices:
		return "toggle_round_prices"
	case SetPreview:
		return "set_preview"
	case SetPublishMode:
		return "set_publish_mode"
	case SetStatus:
		return "set_status"
	case NextStep:
		return "next_step"
	case PrevStep:
		return "prev_step"
	case Reset:
		return "reset"
	default:
		return "unknown"
	}
}
