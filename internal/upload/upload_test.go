package upload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/kosarica/import-wizard/internal/types"
)

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func workbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, v))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestOpen(t *testing.T) {
	path := writeFile(t, "stock.csv", []byte("Naziv,Cijena\nJaja,1.99\n"))

	file, err := Open(path)

	require.NoError(t, err)
	assert.Equal(t, "stock.csv", file.Name)
	assert.Equal(t, types.FileTypeCSV, file.Type)
	assert.EqualValues(t, 23, file.Size)
}

func TestOpenRejects(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content []byte
		err     error
	}{
		{"empty", "empty.csv", []byte(" \n"), ErrEmptyFile},
		{"unknown extension", "notes.pdf", []byte("%PDF-1.4"), ErrUnsupportedType},
		{"xlsx that is not a zip", "fake.xlsx", []byte("a,b\n"), ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(writeFile(t, tt.file, tt.content))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	_, err := Open(t.TempDir())
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestDetectTypeSniffsWorkbook(t *testing.T) {
	fileType, err := DetectType("export", workbook(t, [][]any{{"a"}}))
	require.NoError(t, err)
	assert.Equal(t, types.FileTypeXLSX, fileType)
}

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected rune
	}{
		{"comma", "a,b,c\n1,2,3\n", ','},
		{"semicolon with decimal commas", "Naziv;Cijena\nJaja;1,99\nMlijeko;0,89\n", ';'},
		{"tab", "a\tb\n1\t2\n", '\t'},
		{"single column", "naziv\njaja\n", ','},
		{"empty", "", ','},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectDelimiter(tt.content))
		})
	}
}

func TestReadTableCSV(t *testing.T) {
	content := "\ufeffNaziv;Rok trajanja;Količina;Cijena\n" +
		"Jaja;2026-10-18;12;1,99\n" +
		";;;\n" +
		"\"Mlijeko; 2.8%\";2026-10-20;3;0,89;extra\n"
	file, err := NewHandle("stock.csv", []byte(content))
	require.NoError(t, err)

	table, err := ReadTable(file)

	require.NoError(t, err)
	assert.Equal(t, []string{"Naziv", "Rok trajanja", "Količina", "Cijena"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, types.RawRow{
		"Naziv":        "Jaja",
		"Rok trajanja": "2026-10-18",
		"Količina":     "12",
		"Cijena":       "1,99",
	}, table.Rows[0])
	assert.Equal(t, "Mlijeko; 2.8%", table.Rows[1]["Naziv"])
	require.Len(t, table.Errors, 1)
	assert.Equal(t, 4, table.Errors[0].Row)
}

func TestReadTableWindows1250(t *testing.T) {
	encoded, err := charmap.Windows1250.NewEncoder().String("Naziv;Količina\nČokolada;5\n")
	require.NoError(t, err)
	file, err := NewHandle("stock.csv", []byte(encoded))
	require.NoError(t, err)

	table, err := ReadTable(file)

	require.NoError(t, err)
	assert.Equal(t, []string{"Naziv", "Količina"}, table.Columns)
	assert.Equal(t, "Čokolada", table.Rows[0]["Naziv"])
}

func TestReadTableXLSX(t *testing.T) {
	content := workbook(t, [][]any{
		{"Naziv", "Cijena"},
		{"Jaja", 1.99},
		{},
		{"Kruh", 2.5},
	})
	file, err := NewHandle("stock.xlsx", content)
	require.NoError(t, err)

	table, err := ReadTable(file)

	require.NoError(t, err)
	assert.Equal(t, []string{"Naziv", "Cijena"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Kruh", table.Rows[1]["Naziv"])
	assert.Equal(t, "2.5", table.Rows[1]["Cijena"])
}

func TestReadTableHeaderOnly(t *testing.T) {
	file, err := NewHandle("stock.csv", []byte("a,b\n"))
	require.NoError(t, err)

	table, err := ReadTable(file)

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, table.Columns)
	assert.Empty(t, table.Rows)
}
