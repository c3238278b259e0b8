package slicetable

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

type fakeFile struct {
	fields map[string][]int
}

type fakeSource struct {
	file  fakeFile
	reads *int
}

func (s *fakeSource) Dims(field string) ([]int, error) {
	dims, ok := s.file.fields[field]
	if !ok {
		return nil, missingField("fake", field)
	}
	return dims, nil
}

func (s *fakeSource) Has(field string) bool {
	_, ok := s.file.fields[field]
	return ok
}

func (s *fakeSource) ReadSlice(field string, index int) (*Tensor, error) {
	dims, err := s.Dims(field)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= dims[0] {
		return nil, ErrSliceRange
	}
	*s.reads++
	shape := dims[1:]
	n := 1
	for _, d := range shape {
		n *= d
	}
	data := make([]complex64, n)
	for i := range data {
		data[i] = complex(float32(index+1), float32(i))
	}
	return NewTensor(shape, data)
}

func (s *fakeSource) Close() error { return nil }

func fakeOpener(files map[string]fakeFile, reads *int) Opener {
	return func(path string) (Source, error) {
		f, ok := files[path]
		if !ok {
			return nil, fmt.Errorf("open %s: no such file", path)
		}
		return &fakeSource{file: f, reads: reads}, nil
	}
}

func mriFile(slices int, withTarget bool) fakeFile {
	f := fakeFile{fields: map[string][]int{
		FieldKSpace: {slices, 4, 4, 2},
		FieldMaps:   {slices, 4, 4, 2, 1},
	}}
	if withTarget {
		f.fields[FieldTarget] = []int{slices, 4, 4, 1}
	}
	return f
}

func TestBuildEnumeratesSlicesInOrder(t *testing.T) {
	dir := t.TempDir()
	file1 := filepath.Join(dir, "file1.h5")
	file2 := filepath.Join(dir, "file2.h5")
	var reads int
	opener := fakeOpener(map[string]fakeFile{file1: mriFile(6, true), file2: mriFile(4, false)}, &reads)

	var progress bytes.Buffer
	table, err := Build(context.Background(), []string{file1, file2}, Options{Opener: opener, Progress: true, ProgressWriter: &progress})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if table.Len() != 10 {
		t.Fatalf("expected 10 records, got %d", table.Len())
	}
	var want []Record
	for i := 0; i < 6; i++ {
		want = append(want, Record{Path: file1, Slice: i})
	}
	for i := 0; i < 4; i++ {
		want = append(want, Record{Path: file2, Slice: i})
	}
	for i, rec := range table.Records() {
		if rec != want[i] {
			t.Errorf("record %d: expected %+v, got %+v", i, want[i], rec)
		}
	}
	if reads != 0 {
		t.Errorf("building must not read slice data, got %d reads", reads)
	}
}

func TestBuildFailures(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.h5")
	noKSpace := filepath.Join(dir, "maps-only.h5")
	var reads int
	opener := fakeOpener(map[string]fakeFile{
		good:     mriFile(2, false),
		noKSpace: {fields: map[string][]int{FieldMaps: {2, 4, 4, 2, 1}}},
	}, &reads)

	if _, err := Build(context.Background(), []string{good, noKSpace}, Options{Opener: opener}); !errors.Is(err, ErrMissingField) {
		t.Errorf("expected ErrMissingField, got %v", err)
	}
	if _, err := Build(context.Background(), []string{filepath.Join(dir, "absent.h5")}, Options{Opener: opener}); err == nil {
		t.Errorf("expected open error")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Build(ctx, []string{good}, Options{Opener: opener}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestLoadReadsOnEveryAccessWithoutCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.h5")
	var reads int
	opener := fakeOpener(map[string]fakeFile{path: mriFile(3, false)}, &reads)
	table, err := Build(context.Background(), []string{path}, Options{Opener: opener})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	s, err := table.Load(2)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Target != nil {
		t.Errorf("expected nil target for file without target")
	}
	if len(s.KSpace.Shape) != 3 || s.KSpace.Shape[0] != 4 || real(s.KSpace.Data[0]) != 3 {
		t.Errorf("unexpected k-space slice %v / %v", s.KSpace.Shape, s.KSpace.Data[0])
	}
	if _, err := table.Load(2); err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if reads != 4 {
		t.Errorf("expected 4 reads (kspace+maps twice), got %d", reads)
	}
	if _, err := table.Load(3); !errors.Is(err, ErrSliceRange) {
		t.Errorf("expected ErrSliceRange, got %v", err)
	}
}

func TestLoadUsesCacheWhenEnabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.h5")
	var reads int
	opener := fakeOpener(map[string]fakeFile{path: mriFile(2, true)}, &reads)
	table, err := Build(context.Background(), []string{path}, Options{Opener: opener, CacheTTL: time.Minute})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := table.Load(1); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
	}
	if reads != 3 {
		t.Errorf("expected a single materialisation (3 reads), got %d", reads)
	}
}

func TestTableImplementsImageTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.h5")
	var reads int
	opener := fakeOpener(map[string]fakeFile{path: mriFile(2, false)}, &reads)
	table, err := Build(context.Background(), []string{path}, Options{Opener: opener})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got := table.PrimaryKey(1); got != path+"#1" {
		t.Errorf("unexpected key %q", got)
	}
	if !table.HasColumn(FieldMaps) || table.HasColumn("recon") {
		t.Errorf("unexpected column set")
	}
	img, err := table.Image(0, FieldKSpace)
	if err != nil {
		t.Fatalf("Image failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 4 {
		t.Errorf("unexpected bounds %v", b)
	}
	if _, err := table.Image(0, FieldTarget); !errors.Is(err, ErrMissingField) {
		t.Errorf("expected ErrMissingField for absent target, got %v", err)
	}
	if _, err := table.Image(0, "recon"); err == nil {
		t.Errorf("expected error for unknown column")
	}
}

func TestImageReadsOnlyTheRequestedField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.h5")
	var reads int
	opener := fakeOpener(map[string]fakeFile{path: mriFile(2, true)}, &reads)
	table, err := Build(context.Background(), []string{path}, Options{Opener: opener})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for _, column := range []string{FieldKSpace, FieldMaps, FieldTarget} {
		before := reads
		if _, err := table.Image(1, column); err != nil {
			t.Fatalf("Image(%s) failed: %v", column, err)
		}
		if got := reads - before; got != 1 {
			t.Errorf("Image(%s) read %d slices, want 1", column, got)
		}
	}

	cached, err := Build(context.Background(), []string{path}, Options{Opener: opener, CacheTTL: time.Minute})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	before := reads
	for i := 0; i < 3; i++ {
		if _, err := cached.Image(0, FieldMaps); err != nil {
			t.Fatalf("Image failed: %v", err)
		}
	}
	if got := reads - before; got != 1 {
		t.Errorf("cached Image read %d slices, want 1", got)
	}
}
