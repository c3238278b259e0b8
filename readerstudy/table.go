package readerstudy

import (
	"errors"
	"fmt"
	"image"
)

var (
	// ErrUnknownColumn is returned when a display column is not part of the image table.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrEmptyTable is returned when a study is started on a table without rows.
	ErrEmptyTable = errors.New("image table is empty")
)

// ImageTable is the input of a reader study: rows identified by a primary key whose
// display columns render to images. Image is only called when a row is displayed.
type ImageTable interface {
	Len() int
	PrimaryKey(row int) string
	HasColumn(name string) bool
	Image(row int, column string) (image.Image, error)
}

// ImageFunc materialises one cell on demand.
type ImageFunc func() (image.Image, error)

// MemoryTable is an ImageTable assembled in memory. Cells are evaluated on every access.
type MemoryTable struct {
	keys    []string
	columns []string
	cells   map[string][]ImageFunc
}

// NewMemoryTable creates an empty table with the given display columns.
func NewMemoryTable(columns ...string) *MemoryTable {
	t := &MemoryTable{columns: append([]string(nil), columns...), cells: make(map[string][]ImageFunc, len(columns))}
	for _, c := range columns {
		t.cells[c] = nil
	}
	return t
}

// AddRow appends a row. cells maps column name to a loader; missing columns render as errors.
func (t *MemoryTable) AddRow(key string, cells map[string]ImageFunc) {
	t.keys = append(t.keys, key)
	for _, c := range t.columns {
		t.cells[c] = append(t.cells[c], cells[c])
	}
}

// Columns returns the display columns in declaration order.
func (t *MemoryTable) Columns() []string {
	return append([]string(nil), t.columns...)
}

func (t *MemoryTable) Len() int { return len(t.keys) }

func (t *MemoryTable) PrimaryKey(row int) string { return t.keys[row] }

func (t *MemoryTable) HasColumn(name string) bool {
	_, ok := t.cells[name]
	return ok
}

func (t *MemoryTable) Image(row int, column string) (image.Image, error) {
	col, ok := t.cells[column]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}
	if row < 0 || row >= len(col) {
		return nil, fmt.Errorf("row %d out of range [0, %d)", row, len(col))
	}
	fn := col[row]
	if fn == nil {
		return nil, fmt.Errorf("no %s image for %s", column, t.keys[row])
	}
	return fn()
}
