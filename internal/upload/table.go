package upload

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kosarica/import-wizard/internal/types"
)

// ReadTable reads the header row and data rows of a CSV file or of the first
// sheet of an XLSX workbook. Blank rows are skipped; rows with more cells than
// there are headers are kept but reported as issues. Row numbers in issues
// count records from 1, the header being record 1.
func ReadTable(file *types.FileHandle) (*types.ParseResult, error) {
	if file == nil {
		return nil, errors.New("no file")
	}

	var records [][]string
	var err error
	switch file.Type {
	case types.FileTypeCSV:
		records, err = readCSV(file.Content)
	case types.FileTypeXLSX:
		records, err = readXLSX(file.Content)
	default:
		return nil, fmt.Errorf("%s: %w", file.Name, ErrUnsupportedType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file.Name, err)
	}
	return buildTable(records), nil
}

func readCSV(content []byte) ([][]string, error) {
	decoded, _, err := Decode(content)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(strings.NewReader(decoded))
	r.Comma = DetectDelimiter(decoded)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records [][]string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func readXLSX(content []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

func buildTable(records [][]string) *types.ParseResult {
	result := &types.ParseResult{
		Columns: []string{},
		Rows:    []types.RawRow{},
		Errors:  []types.RowIssue{},
	}

	header := -1
	for i, record := range records {
		if !isBlank(record) {
			header = i
			break
		}
	}
	if header < 0 {
		return result
	}

	for i, name := range records[header] {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		result.Columns = append(result.Columns, name)
	}

	for i := header + 1; i < len(records); i++ {
		record := records[i]
		if isBlank(record) {
			continue
		}
		line := i + 1
		row := make(types.RawRow, len(result.Columns))
		for c, name := range result.Columns {
			value := ""
			if c < len(record) {
				value = strings.TrimSpace(record[c])
			}
			row[name] = value
		}
		if len(record) > len(result.Columns) && !isBlank(record[len(result.Columns):]) {
			result.Errors = append(result.Errors, types.RowIssue{
				Row:   line,
				Issue: fmt.Sprintf("row has %d cells but only %d columns", len(record), len(result.Columns)),
			})
		}
		result.Rows = append(result.Rows, row)
	}
	return result
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
