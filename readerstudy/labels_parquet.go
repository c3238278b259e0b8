package readerstudy

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
)

// labelRecord is the long-format parquet row: one record per (image, method, category).
type labelRecord struct {
	ImageID  string  `parquet:"image_id"`
	Method   string  `parquet:"method"`
	Category string  `parquet:"category"`
	Number   float64 `parquet:"number"`
	Choice   string  `parquet:"choice"`
	IsChoice bool    `parquet:"is_choice"`
}

func writeParquetLabels(path string, rows []LabelRow, categories []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	records := make([]labelRecord, 0, len(rows)*len(categories))
	for _, r := range rows {
		for _, name := range categories {
			v, ok := r.Scores[name]
			if !ok {
				continue
			}
			records = append(records, labelRecord{
				ImageID:  r.ImageID,
				Method:   r.Method,
				Category: name,
				Number:   v.Number,
				Choice:   v.Choice,
				IsChoice: v.IsChoice,
			})
		}
	}

	w := parquet.NewGenericWriter[labelRecord](f)
	if _, err := w.Write(records); err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return f.Close()
}

func readParquetLabels(path string) ([]LabelRow, []string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("stat parquet file: %w", err)
	}
	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, nil, fmt.Errorf("open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[labelRecord](pf)
	defer reader.Close()

	var (
		rows  []LabelRow
		order []string
		index = make(map[[2]string]int)
		batch = make([]labelRecord, 128)
	)
	for {
		n, err := reader.Read(batch)
		for _, rec := range batch[:n] {
			key := [2]string{rec.ImageID, rec.Method}
			i, ok := index[key]
			if !ok {
				i = len(rows)
				index[key] = i
				rows = append(rows, LabelRow{ImageID: rec.ImageID, Method: rec.Method, Scores: map[string]Score{}})
			}
			v := NumberScore(rec.Number)
			if rec.IsChoice {
				v = ChoiceScore(rec.Choice)
			}
			rows[i].Scores[rec.Category] = v
			if !containsString(order, rec.Category) {
				order = append(order, rec.Category)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("read parquet rows: %w", err)
		}
	}
	return rows, order, nil
}
