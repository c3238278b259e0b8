package slicetable

import (
	"context"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/schollz/progressbar/v2"
)

// Record identifies one slice: a file and an index along its leading dimension.
type Record struct {
	Path  string `json:"path"`
	Slice int    `json:"sl"`
}

// Key is the primary key of the record, "<path>#<slice>".
func (r Record) Key() string {
	return fmt.Sprintf("%s#%d", r.Path, r.Slice)
}

// Sample is the materialised data of a record. Target is nil when the file has none.
type Sample struct {
	KSpace *Tensor
	Maps   *Tensor
	Target *Tensor
}

// Options configures Build.
type Options struct {
	// Progress shows a progress bar while files are counted.
	Progress       bool
	ProgressWriter io.Writer
	Resolver       *Resolver
	// Opener defaults to OpenHDF5.
	Opener Opener
	// CacheTTL keeps materialised samples for the given duration. Zero re-reads on every access.
	CacheTTL time.Duration
	Logger   *log.Logger
}

// Table is an ordered list of slice records whose data is read on demand.
type Table struct {
	records []Record
	opener  Opener
	cache   *cache.Cache
	logger  *log.Logger
}

// Build counts the slices of every file in paths and returns the table of their records.
func Build(ctx context.Context, paths []string, opts Options) (*Table, error) {
	opener := opts.Opener
	if opener == nil {
		opener = OpenHDF5
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = NewResolver("")
	}
	var bar *progressbar.ProgressBar
	if opts.Progress {
		w := opts.ProgressWriter
		if w == nil {
			w = os.Stderr
		}
		bar = progressbar.NewOptions(len(paths),
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription("counting slices"),
		)
	}

	t := &Table{opener: opener, logger: opts.Logger}
	if opts.CacheTTL > 0 {
		t.cache = cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	for _, location := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		local, err := resolver.Resolve(ctx, location)
		if err != nil {
			return nil, err
		}
		n, err := countSlices(opener, local)
		if err != nil {
			return nil, err
		}
		for sl := 0; sl < n; sl++ {
			t.records = append(t.records, Record{Path: local, Slice: sl})
		}
		t.logf("%s: %d slices", local, n)
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}
	return t, nil
}

func countSlices(opener Opener, path string) (int, error) {
	src, err := opener(path)
	if err != nil {
		return 0, err
	}
	defer src.Close()
	if !src.Has(FieldKSpace) {
		return 0, missingField(path, FieldKSpace)
	}
	dims, err := src.Dims(FieldKSpace)
	if err != nil {
		return 0, err
	}
	if len(dims) == 0 {
		return 0, fmt.Errorf("%s: %s is a scalar", path, FieldKSpace)
	}
	return dims[0], nil
}

// Len returns the number of slices.
func (t *Table) Len() int { return len(t.records) }

// Record returns the i-th record.
func (t *Table) Record(i int) Record { return t.records[i] }

// Records returns a copy of all records.
func (t *Table) Records() []Record { return append([]Record(nil), t.records...) }

// Load reads the k-space, sensitivity maps and optional target of the i-th record.
func (t *Table) Load(i int) (Sample, error) {
	if i < 0 || i >= len(t.records) {
		return Sample{}, fmt.Errorf("row %d: %w", i, ErrSliceRange)
	}
	rec := t.records[i]
	if t.cache != nil {
		if v, ok := t.cache.Get(rec.Key()); ok {
			return v.(Sample), nil
		}
	}
	src, err := t.opener(rec.Path)
	if err != nil {
		return Sample{}, err
	}
	defer src.Close()

	var s Sample
	if s.KSpace, err = src.ReadSlice(FieldKSpace, rec.Slice); err != nil {
		return Sample{}, err
	}
	if s.Maps, err = src.ReadSlice(FieldMaps, rec.Slice); err != nil {
		return Sample{}, err
	}
	if src.Has(FieldTarget) {
		if s.Target, err = src.ReadSlice(FieldTarget, rec.Slice); err != nil {
			return Sample{}, err
		}
	}
	if t.cache != nil {
		t.cache.Set(rec.Key(), s, cache.DefaultExpiration)
	}
	return s, nil
}

// PrimaryKey implements readerstudy.ImageTable.
func (t *Table) PrimaryKey(row int) string { return t.records[row].Key() }

// HasColumn implements readerstudy.ImageTable.
func (t *Table) HasColumn(name string) bool {
	switch name {
	case FieldKSpace, FieldMaps, FieldTarget:
		return true
	}
	return false
}

// LoadField reads a single dataset of the i-th record. An absent target is ErrMissingField.
func (t *Table) LoadField(i int, field string) (*Tensor, error) {
	if i < 0 || i >= len(t.records) {
		return nil, fmt.Errorf("row %d: %w", i, ErrSliceRange)
	}
	rec := t.records[i]
	key := rec.Key() + "/" + field
	if t.cache != nil {
		if v, ok := t.cache.Get(key); ok {
			return v.(*Tensor), nil
		}
	}
	src, err := t.opener(rec.Path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	if !src.Has(field) {
		return nil, missingField(rec.Path, field)
	}
	tensor, err := src.ReadSlice(field, rec.Slice)
	if err != nil {
		return nil, err
	}
	if t.cache != nil {
		t.cache.Set(key, tensor, cache.DefaultExpiration)
	}
	return tensor, nil
}

// Image implements readerstudy.ImageTable. k-space renders log-scaled.
func (t *Table) Image(row int, column string) (image.Image, error) {
	if !t.HasColumn(column) {
		return nil, fmt.Errorf("unknown column %q", column)
	}
	tensor, err := t.LoadField(row, column)
	if err != nil {
		return nil, err
	}
	return tensor.Image(column == FieldKSpace)
}

func (t *Table) logf(format string, args ...any) {
	if t.logger != nil {
		t.logger.Printf(format, args...)
	}
}
