package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kosarica/import-wizard/internal/mapping"
	"github.com/kosarica/import-wizard/internal/types"
	"github.com/kosarica/import-wizard/internal/upload"
)

var inspectOutput string

// inspectCmd reads a stock file locally without contacting the service
var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Read a local stock file and suggest a column mapping",
	Long: `Read a local CSV or XLSX stock file and show its columns, row count, parse
issues and the suggested mapping of columns onto import fields. Nothing is sent
to the import service.

CSV files are read as UTF-8 when valid, otherwise as Windows-1250.`,
	Example: `  import-wizard inspect ./data/zaliha.csv
  import-wizard inspect ./data/zaliha.xlsx --output json`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

// InspectReport is the json output of inspect
type InspectReport struct {
	File    *types.FileHandle   `json:"file"`
	Columns []string            `json:"columns"`
	Rows    int                 `json:"rows"`
	Mapping types.ColumnMapping `json:"mapping"`
	Missing []types.FieldKey    `json:"missing"`
	Issues  []types.RowIssue    `json:"issues"`
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVar(&inspectOutput, "output", "table", "Output format: table or json")
}

func runInspect(cmd *cobra.Command, args []string) error {
	file, err := upload.Open(args[0])
	if err != nil {
		return err
	}
	logger.Info().Str("file", file.Name).Str("type", string(file.Type)).Msgf("Read %d bytes", file.Size)

	table, err := upload.ReadTable(file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file.Name, err)
	}
	suggested := mapping.Suggest(table.Columns)
	report := InspectReport{
		File:    file,
		Columns: table.Columns,
		Rows:    len(table.Rows),
		Mapping: suggested,
		Missing: suggested.Missing(),
		Issues:  table.Errors,
	}

	switch strings.ToLower(inspectOutput) {
	case "json":
		return outputJSON(report)
	case "table":
		outputInspectTable(report)
	default:
		return fmt.Errorf("invalid output format: %s (use 'table' or 'json')", inspectOutput)
	}
	return nil
}

func outputInspectTable(report InspectReport) {
	fmt.Printf("\nFile %s (%s, %d bytes)\n", report.File.Name, report.File.Type, report.File.Size)
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("Columns: %s\n", strings.Join(report.Columns, ", "))
	fmt.Printf("Rows:    %d\n", report.Rows)

	outputMappingTable(report.Mapping)

	if len(report.Missing) > 0 {
		names := make([]string, len(report.Missing))
		for i, f := range report.Missing {
			names[i] = string(f)
		}
		fmt.Printf("\nUnmapped required fields: %s\n", strings.Join(names, ", "))
	}
	outputIssues(report.Issues)
}

func outputMappingTable(m types.ColumnMapping) {
	fmt.Printf("\nColumn Mapping:\n")
	fmt.Println(strings.Repeat("-", 60))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "Field\tColumn\n")
	fmt.Fprintf(w, "-----\t------\n")
	for _, field := range types.AllFields() {
		column := m[field]
		if column == "" {
			column = "-"
		}
		fmt.Fprintf(w, "%s\t%s\n", field, column)
	}
	w.Flush()
}

func outputIssues(issues []types.RowIssue) {
	if len(issues) == 0 {
		return
	}
	fmt.Printf("\nFirst %d Issues:\n", min(len(issues), 10))
	fmt.Println(strings.Repeat("-", 60))
	for i, issue := range issues {
		if i >= 10 {
			break
		}
		field := issue.Field
		if field == "" {
			field = "-"
		}
		fmt.Printf("Row %d, Field '%s': %s\n", issue.Row, field, issue.Issue)
	}
	if len(issues) > 10 {
		fmt.Printf("... and %d more issues\n", len(issues)-10)
	}
}
