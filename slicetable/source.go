// Package slicetable enumerates the slices stored in multi-coil MRI files and exposes them
// as a lazily materialised table: rows are counted eagerly, pixel data is read on access.
package slicetable

import (
	"errors"
	"fmt"
)

// Dataset names inside a slice file.
const (
	FieldKSpace = "kspace"
	FieldMaps   = "maps"
	FieldTarget = "target"
)

var (
	// ErrMissingField is returned when a required dataset is absent from a file.
	ErrMissingField = errors.New("missing field")
	// ErrSliceRange is returned for slice indices outside the leading dimension.
	ErrSliceRange = errors.New("slice index out of range")
)

// Source is an opened slice file.
type Source interface {
	// Dims returns the shape of field.
	Dims(field string) ([]int, error)
	// Has reports whether field exists.
	Has(field string) bool
	// ReadSlice reads field[index] along the leading dimension.
	ReadSlice(field string, index int) (*Tensor, error)
	Close() error
}

// Opener opens the file at a local path.
type Opener func(path string) (Source, error)

func missingField(path, field string) error {
	return fmt.Errorf("%s: %w %q", path, ErrMissingField, field)
}
