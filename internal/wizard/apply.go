package wizard

import (
	"math"

	"github.com/kosarica/import-wizard/internal/types"
)

// statusTransitions lists the legal status changes. Success and error are
// terminal until Reset.
var statusTransitions = map[Status][]Status{
	StatusIdle:       {StatusLoading, StatusConfirming},
	StatusLoading:    {StatusIdle},
	StatusConfirming: {StatusSuccess, StatusError},
}

// Apply returns the state that results from applying ev to s. It never fails:
// events that are invalid in the current state leave it unchanged.
func Apply(s State, ev Event) State {
	if s.Locked() {
		switch ev.(type) {
		case SetStatus, Reset:
		default:
			return s
		}
	}

	switch e := ev.(type) {
	case SetFile:
		s.File = e.File
		s.ParsedColumns = []string{}
		s.ColumnMapping = types.ColumnMapping{}
		s.ParseErrors = []types.RowIssue{}
		s.RawRows = []types.RawRow{}
		s.Preview = nil

	case SetParsedColumns:
		s.ParsedColumns = append([]string{}, e.Columns...)

	case SetMapping:
		m := make(types.ColumnMapping, len(e.Mapping))
		for k, v := range e.Mapping {
			if v != "" {
				m[k] = v
			}
		}
		s.ColumnMapping = m

	case SetParseErrors:
		s.ParseErrors = append([]types.RowIssue{}, e.Errors...)

	case SetRawRows:
		s.RawRows = cloneRows(e.Rows)

	case SetWindowDays:
		s.WindowDays = max(e.Days, 1)

	case ToggleIncludeExpired:
		s.IncludeExpired = !s.IncludeExpired

	case AddRule:
		rule := types.DiscountRule{
			ID:       s.nextRuleID,
			Days:     max(e.Days, 0),
			Discount: clampPercent(e.Discount),
		}
		s.nextRuleID++
		rules := make([]types.DiscountRule, 0, len(s.DiscountRules)+1)
		rules = append(rules, s.DiscountRules...)
		s.DiscountRules = append(rules, rule)

	case UpdateRule:
		idx := ruleIndex(s.DiscountRules, e.ID)
		if idx < 0 {
			return s
		}
		rules := append([]types.DiscountRule{}, s.DiscountRules...)
		switch e.Field {
		case RuleFieldDays:
			rules[idx].Days = max(int(math.Floor(e.Value)), 0)
		case RuleFieldDiscount:
			rules[idx].Discount = clampPercent(e.Value)
		default:
			return s
		}
		s.DiscountRules = rules

	case DeleteRule:
		idx := ruleIndex(s.DiscountRules, e.ID)
		if idx < 0 {
			return s
		}
		rules := make([]types.DiscountRule, 0, len(s.DiscountRules)-1)
		rules = append(rules, s.DiscountRules[:idx]...)
		s.DiscountRules = append(rules, s.DiscountRules[idx+1:]...)

	case ToggleRoundPrices:
		s.RoundPrices = !s.RoundPrices

	case SetPreview:
		s.Preview = e.Preview

	case SetPublishMode:
		if e.Mode == PublishModePublish || e.Mode == PublishModeDraft {
			s.PublishMode = e.Mode
		}

	case SetStatus:
		if e.Status == StatusConfirming && !s.ReadyToConfirm() {
			return s
		}
		for _, next := range statusTransitions[s.Status] {
			if next == e.Status {
				s.Status = e.Status
				break
			}
		}

	case NextStep:
		if s.CanAdvance() {
			s.CurrentStep++
		}

	case PrevStep:
		if s.CurrentStep > StepUpload {
			s.CurrentStep--
		}

	case Reset:
		return Initial()
	}

	return s
}

func ruleIndex(rules []types.DiscountRule, id int) int {
	for i, r := range rules {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func clampPercent(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(math.Max(v, 0), 100)
}
