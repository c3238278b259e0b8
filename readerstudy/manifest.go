package readerstudy

import (
	"encoding/csv"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
)

// ManifestOptions selects the identity column of a manifest.
type ManifestOptions struct {
	IDColumn string
}

// ReadManifest builds an image table from a CSV/TSV file whose first row is a header.
// The id column holds the primary key, every other column holds image file paths,
// relative paths being resolved against the manifest directory. Images decode lazily.
func ReadManifest(path string, opts ManifestOptions) (*MemoryTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	reader := csv.NewReader(f)
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		reader.Comma = '\t'
	}
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(records) < 2 {
		return nil, errors.New("manifest needs a header and at least one row")
	}
	header := make([]string, len(records[0]))
	for i, cell := range records[0] {
		header[i] = NormalizeName(cleanCell(cell))
	}
	idName := opts.IDColumn
	if idName == "" {
		idName = "id"
	}
	idCol := findColumn(header, idName)
	if idCol < 0 {
		return nil, fmt.Errorf("manifest %s has no %q column", filepath.Base(path), idName)
	}
	var columns []string
	for i, name := range header {
		if i == idCol || name == "" {
			continue
		}
		columns = append(columns, name)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("manifest %s has no image columns", filepath.Base(path))
	}

	base := filepath.Dir(path)
	table := NewMemoryTable(columns...)
	seen := make(map[string]struct{}, len(records)-1)
	for n, rec := range records[1:] {
		if idCol >= len(rec) {
			continue
		}
		key := cleanCell(rec[idCol])
		if key == "" {
			return nil, fmt.Errorf("manifest row %d: empty %s", n+2, idName)
		}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("manifest row %d: duplicate %s %q", n+2, idName, key)
		}
		seen[key] = struct{}{}
		cells := make(map[string]ImageFunc, len(columns))
		for i, name := range header {
			if i == idCol || name == "" || i >= len(rec) {
				continue
			}
			file := cleanCell(rec[i])
			if file == "" {
				continue
			}
			if !filepath.IsAbs(file) {
				file = filepath.Join(base, file)
			}
			cells[name] = imageFileLoader(file)
		}
		table.AddRow(key, cells)
	}
	return table, nil
}

func imageFileLoader(path string) ImageFunc {
	return func() (image.Image, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open image: %w", err)
		}
		defer f.Close()
		img, _, err := image.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
		}
		return img, nil
	}
}
