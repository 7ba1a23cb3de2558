package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kosarica/import-wizard/internal/confirm"
	"github.com/kosarica/import-wizard/internal/mapping"
	"github.com/kosarica/import-wizard/internal/session"
	"github.com/kosarica/import-wizard/internal/types"
	"github.com/kosarica/import-wizard/internal/upload"
	"github.com/kosarica/import-wizard/internal/wizard"
)

var (
	importWindow         int
	importIncludeExpired bool
	importRules          []string
	importRound          bool
	importMode           string
	importMappings       []string
	importYes            bool
	importOutput         string
)

// importCmd runs the whole wizard non-interactively
var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Preview and confirm an import of a stock file",
	Long: `Upload a stock file to the import service, map its columns, apply the
discount rules and show the resulting deal preview. With --yes the import is
confirmed and the deals are published (or saved as a draft with --mode draft).

Columns are mapped automatically from their headers; use --map to override a
field. Rules are given as days:percent, meaning items expiring within that many
days get that discount. Giving --rule replaces the default tiers.`,
	Example: `  import-wizard import ./data/zaliha.csv
  import-wizard import ./data/zaliha.csv --window 14 --rule 3:50 --rule 7:25 --round=false
  import-wizard import ./data/zaliha.xlsx --map price=MPC --mode draft --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().IntVar(&importWindow, "window", wizard.DefaultWindowDays, "Only include items expiring within this many days")
	importCmd.Flags().BoolVar(&importIncludeExpired, "include-expired", false, "Include already expired items")
	importCmd.Flags().StringArrayVar(&importRules, "rule", nil, "Discount rule as days:percent (repeatable)")
	importCmd.Flags().BoolVar(&importRound, "round", wizard.Initial().RoundPrices, "Round discounted prices to .x9 (--round=false keeps exact cents)")
	importCmd.Flags().StringVar(&importMode, "mode", string(wizard.PublishModePublish), "Publish mode: publish or draft")
	importCmd.Flags().StringArrayVar(&importMappings, "map", nil, "Column override as field=column; empty column unmaps (repeatable)")
	importCmd.Flags().BoolVar(&importYes, "yes", false, "Confirm the import after the preview")
	importCmd.Flags().StringVar(&importOutput, "output", "table", "Output format: table or json")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rules, err := parseRules(importRules)
	if err != nil {
		return err
	}
	overrides, err := parseMappingOverrides(importMappings)
	if err != nil {
		return err
	}
	mode := wizard.PublishMode(importMode)
	if mode != wizard.PublishModePublish && mode != wizard.PublishModeDraft {
		return fmt.Errorf("invalid mode: %s (use 'publish' or 'draft')", importMode)
	}
	format := strings.ToLower(importOutput)
	if format != "table" && format != "json" {
		return fmt.Errorf("invalid output format: %s (use 'table' or 'json')", importOutput)
	}

	file, err := upload.Open(args[0])
	if err != nil {
		return err
	}

	gateway, _, err := newGateway()
	if err != nil {
		return err
	}
	if gateway.CurrentToken() == "" {
		return errors.New("not logged in: run 'import-wizard auth login' first")
	}

	var (
		mu         sync.Mutex
		previewErr error
	)
	var s *session.Session
	s = session.New(newAPIClient(gateway), session.Options{
		Debounce:   cfg.Preview.Debounce,
		PhaseDelay: cfg.Confirm.PhaseDelay,
		OnPreviewError: func(err error) {
			mu.Lock()
			previewErr = err
			mu.Unlock()
		},
		OnPhase: func(index int, phase confirm.Phase) {
			if format == "table" {
				fmt.Println(formatPhase(index, s.Phases()))
			}
		},
		Logger: logger,
	})
	defer s.Close()

	if _, err := s.Upload(ctx, file); err != nil {
		return err
	}
	state := s.Snapshot()
	if !state.HasRows() {
		return errors.New("file has no data rows")
	}

	if len(overrides) > 0 {
		s.Dispatch(wizard.SetMapping{Mapping: mapping.Merge(state.ColumnMapping, overrides)})
	}
	s.Dispatch(wizard.SetWindowDays{Days: importWindow})
	if importIncludeExpired != state.IncludeExpired {
		s.Dispatch(wizard.ToggleIncludeExpired{})
	}
	if importRound != state.RoundPrices {
		s.Dispatch(wizard.ToggleRoundPrices{})
	}
	if rules != nil {
		for _, r := range state.DiscountRules {
			s.Dispatch(wizard.DeleteRule{ID: r.ID})
		}
		for _, r := range rules {
			s.Dispatch(wizard.AddRule{Days: r.Days, Discount: r.Discount})
		}
	}
	s.Dispatch(wizard.SetPublishMode{Mode: mode})

	if missing := s.Snapshot().MissingFields(); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, f := range missing {
			names[i] = string(f)
		}
		return fmt.Errorf("required fields are not mapped: %s (use --map field=column)", strings.Join(names, ", "))
	}

	if err := s.WaitPreview(ctx); err != nil {
		return err
	}
	state = s.Snapshot()
	if state.Preview == nil {
		mu.Lock()
		defer mu.Unlock()
		if previewErr != nil {
			return fmt.Errorf("preview failed: %w", previewErr)
		}
		return errors.New("preview unavailable")
	}

	for i := 0; i < 3; i++ {
		s.Dispatch(wizard.NextStep{})
	}
	if step := s.Snapshot().CurrentStep; step != wizard.StepReview {
		return fmt.Errorf("wizard stopped at %s step", step)
	}

	if !importYes {
		if format == "json" {
			return outputJSON(state.Preview)
		}
		outputPreviewTable(state)
		fmt.Println("\nRun again with --yes to confirm this import.")
		return nil
	}

	if format == "table" {
		outputPreviewTable(state)
		fmt.Println()
	}
	result, err := s.Confirm(ctx)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	if format == "json" {
		return outputJSON(result)
	}
	fmt.Printf("\nImport complete: %d deals created", result.Created)
	if result.ImportID != "" {
		fmt.Printf(" (import %s)", result.ImportID)
	}
	fmt.Printf(", mode %s\n", state.PublishMode)
	return nil
}

// formatPhase renders one confirmation progress line
func formatPhase(index int, phases []confirm.Phase) string {
	return fmt.Sprintf("[%d/%d] %s...", index+1, len(phases), phases[index].Label)
}

// parseRules parses days:percent rule flags. nil means keep the defaults.
func parseRules(values []string) ([]types.DiscountRule, error) {
	if len(values) == 0 {
		return nil, nil
	}
	rules := make([]types.DiscountRule, 0, len(values))
	for _, value := range values {
		daysStr, pctStr, ok := strings.Cut(value, ":")
		if !ok {
			return nil, fmt.Errorf("invalid rule %q: expected days:percent", value)
		}
		days, err := strconv.Atoi(strings.TrimSpace(daysStr))
		if err != nil || days < 0 {
			return nil, fmt.Errorf("invalid rule %q: days must be a non-negative integer", value)
		}
		pct, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(pctStr, "%")), 64)
		if err != nil || pct < 0 || pct > 100 {
			return nil, fmt.Errorf("invalid rule %q: percent must be between 0 and 100", value)
		}
		rules = append(rules, types.DiscountRule{Days: days, Discount: pct})
	}
	return rules, nil
}

// parseMappingOverrides parses field=column flags into mapping overrides
func parseMappingOverrides(values []string) (map[types.FieldKey]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	overrides := make(map[types.FieldKey]string, len(values))
	for _, value := range values {
		field, column, ok := strings.Cut(value, "=")
		if !ok {
			return nil, fmt.Errorf("invalid mapping %q: expected field=column", value)
		}
		key := types.FieldKey(strings.TrimSpace(field))
		if !types.IsKnownField(key) {
			return nil, fmt.Errorf("invalid mapping %q: unknown field %s", value, key)
		}
		overrides[key] = strings.TrimSpace(column)
	}
	return overrides, nil
}

func outputPreviewTable(state wizard.State) {
	p := state.Preview

	fmt.Printf("\nImport Preview (window %d days, %d rules)\n", state.WindowDays, len(state.DiscountRules))
	fmt.Println(strings.Repeat("-", 60))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "Metric\tValue\n")
	fmt.Fprintf(w, "------\t-----\n")
	fmt.Fprintf(w, "Total Rows\t%d\n", p.TotalRows)
	fmt.Fprintf(w, "Retained\t%d\n", p.Retained)
	fmt.Fprintf(w, "Expired\t%d\n", p.Expired)
	fmt.Fprintf(w, "Ignored\t%d\n", p.Ignored)
	fmt.Fprintf(w, "Deals\t%d\n", p.DealCount)
	fmt.Fprintf(w, "Total Original\t%.2f\n", p.TotalOriginal)
	fmt.Fprintf(w, "Total Final\t%.2f\n", p.TotalFinal)
	w.Flush()

	if len(p.Items) > 0 {
		fmt.Printf("\nItems (first %d):\n", min(len(p.Items), 10))
		fmt.Println(strings.Repeat("-", 60))
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintf(w, "Product\tExpiry\tDays\tQty\tPrice\tDiscount\tFinal\n")
		for i, item := range p.Items {
			if i >= 10 {
				break
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%g\t%.2f\t%.0f%%\t%.2f\n",
				item.ProductName, item.ExpiryDate, item.DaysLeft, item.Quantity,
				item.OriginalPrice, item.DiscountPct, item.FinalPrice)
		}
		w.Flush()
		if len(p.Items) > 10 {
			fmt.Printf("... and %d more items\n", len(p.Items)-10)
		}
	}

	outputIssues(state.ParseErrors)
}
