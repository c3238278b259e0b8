package readerstudy

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	imageIDColumn = "image_id"
	methodColumn  = "method"

	// textMarker prefixes choice cells of delimited files that would otherwise read back as numbers.
	textMarker = "'"
)

// LabelFormat names a persistence format for label tables.
type LabelFormat string

const (
	FormatCSV     LabelFormat = "csv"
	FormatTSV     LabelFormat = "tsv"
	FormatParquet LabelFormat = "parquet"
	FormatSQLite  LabelFormat = "sqlite"
)

// DetectLabelFormat picks the format from the file extension.
func DetectLabelFormat(path string) (LabelFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".tsv":
		return FormatTSV, nil
	case ".parquet":
		return FormatParquet, nil
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite, nil
	default:
		return "", fmt.Errorf("unsupported label file %s (supported: .csv, .tsv, .parquet, .db, .sqlite)", filepath.Base(path))
	}
}

// ReadLabels loads a label table from path.
func ReadLabels(path string) (*LabelTable, error) {
	format, err := DetectLabelFormat(path)
	if err != nil {
		return nil, err
	}
	var rows []LabelRow
	var order []string
	switch format {
	case FormatCSV:
		rows, order, err = readDelimitedLabels(path, ',')
	case FormatTSV:
		rows, order, err = readDelimitedLabels(path, '\t')
	case FormatParquet:
		rows, order, err = readParquetLabels(path)
	case FormatSQLite:
		rows, order, err = readSQLiteLabels(path)
	}
	if err != nil {
		return nil, err
	}
	t := &LabelTable{categories: order}
	t.appendLocked(rows)
	return t, nil
}

// WriteLabels persists every row except the placeholder row.
func WriteLabels(path string, t *LabelTable) error {
	if t == nil {
		return errors.New("label table is nil")
	}
	format, err := DetectLabelFormat(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create label dir: %w", err)
		}
	}
	rows := exportRows(t.Rows())
	categories := t.Categories()
	switch format {
	case FormatCSV:
		return writeDelimitedLabels(path, ',', rows, categories)
	case FormatTSV:
		return writeDelimitedLabels(path, '\t', rows, categories)
	case FormatParquet:
		return writeParquetLabels(path, rows, categories)
	case FormatSQLite:
		return writeSQLiteLabels(path, rows, categories)
	}
	return nil
}

func exportRows(rows []LabelRow) []LabelRow {
	out := rows[:0]
	for _, r := range rows {
		if r.ImageID == DummyImageID {
			continue
		}
		out = append(out, r)
	}
	return out
}

func readDelimitedLabels(path string, comma rune) ([]LabelRow, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	reader := csv.NewReader(f)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(records) == 0 {
		return nil, nil, errors.New("empty label file")
	}
	header := make([]string, len(records[0]))
	for i, cell := range records[0] {
		header[i] = cleanCell(cell)
	}
	idCol := findColumn(header, imageIDColumn)
	methodCol := findColumn(header, methodColumn)
	if idCol < 0 || methodCol < 0 {
		return nil, nil, fmt.Errorf("%s: header needs %s and %s columns", filepath.Base(path), imageIDColumn, methodColumn)
	}
	var order []string
	for i, name := range header {
		if i == idCol || i == methodCol || name == "" {
			continue
		}
		order = append(order, name)
	}
	rows := make([]LabelRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		if idCol >= len(rec) || methodCol >= len(rec) {
			continue
		}
		row := LabelRow{ImageID: cleanCell(rec[idCol]), Method: cleanCell(rec[methodCol]), Scores: map[string]Score{}}
		for i, name := range header {
			if i == idCol || i == methodCol || name == "" || i >= len(rec) {
				continue
			}
			cell := cleanCell(rec[i])
			if cell == "" {
				continue
			}
			row.Scores[name] = decodeCell(cell)
		}
		rows = append(rows, row)
	}
	return rows, order, nil
}

func writeDelimitedLabels(path string, comma rune, rows []LabelRow, categories []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	w.Comma = comma
	header := append([]string{imageIDColumn, methodColumn}, categories...)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		record := make([]string, 0, len(header))
		record = append(record, r.ImageID, r.Method)
		for _, name := range categories {
			if v, ok := r.Scores[name]; ok {
				record = append(record, encodeCell(v))
			} else {
				record = append(record, "")
			}
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func encodeCell(v Score) string {
	if !v.IsChoice {
		return v.String()
	}
	if _, err := strconv.ParseFloat(strings.TrimSpace(v.Choice), 64); err == nil || strings.HasPrefix(v.Choice, textMarker) {
		return textMarker + v.Choice
	}
	return v.Choice
}

func decodeCell(cell string) Score {
	if rest, ok := strings.CutPrefix(cell, textMarker); ok {
		return ChoiceScore(rest)
	}
	return ParseScore(cell)
}

func cleanCell(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "\ufeff")
	return v
}

func findColumn(header []string, candidates ...string) int {
	for i, col := range header {
		for _, cand := range candidates {
			if strings.EqualFold(col, cand) {
				return i
			}
		}
	}
	return -1
}
