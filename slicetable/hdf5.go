package slicetable

import (
	"fmt"
	"sync"

	"gonum.org/v1/hdf5"
)

// hdf5Mu serialises every call into the HDF5 library, which is not reentrant in
// default builds. Gallery loads run concurrently.
var hdf5Mu sync.Mutex

// complexMember matches the h5py layout of complex64 datasets.
type complexMember struct {
	R float32 `hdf5:"r"`
	I float32 `hdf5:"i"`
}

// hdf5Source reads datasets of an HDF5 file. Complex datasets are h5py compounds of two
// float32 members named r and i.
type hdf5Source struct {
	path string
	f    *hdf5.File
}

// OpenHDF5 opens path read-only.
func OpenHDF5(path string) (Source, error) {
	hdf5Mu.Lock()
	defer hdf5Mu.Unlock()
	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &hdf5Source{path: path, f: f}, nil
}

func (s *hdf5Source) Close() error {
	hdf5Mu.Lock()
	defer hdf5Mu.Unlock()
	return s.f.Close()
}

func (s *hdf5Source) Has(field string) bool {
	hdf5Mu.Lock()
	defer hdf5Mu.Unlock()
	return s.f.LinkExists(field)
}

func (s *hdf5Source) Dims(field string) ([]int, error) {
	hdf5Mu.Lock()
	defer hdf5Mu.Unlock()
	if !s.f.LinkExists(field) {
		return nil, missingField(s.path, field)
	}
	ds, err := s.f.OpenDataset(field)
	if err != nil {
		return nil, fmt.Errorf("%s: open dataset %s: %w", s.path, field, err)
	}
	defer ds.Close()
	space := ds.Space()
	defer space.Close()
	dims, _, err := space.SimpleExtentDims()
	if err != nil {
		return nil, fmt.Errorf("%s: dims of %s: %w", s.path, field, err)
	}
	out := make([]int, len(dims))
	for i, d := range dims {
		out[i] = int(d)
	}
	return out, nil
}

func (s *hdf5Source) ReadSlice(field string, index int) (*Tensor, error) {
	hdf5Mu.Lock()
	defer hdf5Mu.Unlock()
	if !s.f.LinkExists(field) {
		return nil, missingField(s.path, field)
	}
	ds, err := s.f.OpenDataset(field)
	if err != nil {
		return nil, fmt.Errorf("%s: open dataset %s: %w", s.path, field, err)
	}
	defer ds.Close()

	filespace := ds.Space()
	defer filespace.Close()
	dims, _, err := filespace.SimpleExtentDims()
	if err != nil {
		return nil, fmt.Errorf("%s: dims of %s: %w", s.path, field, err)
	}
	if len(dims) == 0 || index < 0 || uint(index) >= dims[0] {
		return nil, fmt.Errorf("%s: %s[%d]: %w", s.path, field, index, ErrSliceRange)
	}

	offset := make([]uint, len(dims))
	offset[0] = uint(index)
	count := append([]uint{1}, dims[1:]...)
	if err := filespace.SelectHyperslab(offset, nil, count, nil); err != nil {
		return nil, fmt.Errorf("%s: select %s[%d]: %w", s.path, field, index, err)
	}
	memspace, err := hdf5.CreateSimpleDataspace(count, nil)
	if err != nil {
		return nil, fmt.Errorf("memory space for %s: %w", field, err)
	}
	defer memspace.Close()

	shape := make([]int, len(dims)-1)
	n := 1
	for i, d := range dims[1:] {
		shape[i] = int(d)
		n *= int(d)
	}

	dtype, err := ds.Datatype()
	if err != nil {
		return nil, fmt.Errorf("%s: datatype of %s: %w", s.path, field, err)
	}
	defer dtype.Close()

	data := make([]complex64, n)
	switch {
	case dtype.Class() == hdf5.T_COMPOUND && dtype.Size() == 8:
		buf := make([]complexMember, n)
		if err := ds.ReadSubset(&buf, memspace, filespace); err != nil {
			return nil, fmt.Errorf("%s: read %s[%d]: %w", s.path, field, index, err)
		}
		for i, v := range buf {
			data[i] = complex(v.R, v.I)
		}
	case dtype.Class() == hdf5.T_FLOAT && dtype.Size() == 4:
		buf := make([]float32, n)
		if err := ds.ReadSubset(&buf, memspace, filespace); err != nil {
			return nil, fmt.Errorf("%s: read %s[%d]: %w", s.path, field, index, err)
		}
		for i, v := range buf {
			data[i] = complex(v, 0)
		}
	case dtype.Class() == hdf5.T_FLOAT && dtype.Size() == 8:
		buf := make([]float64, n)
		if err := ds.ReadSubset(&buf, memspace, filespace); err != nil {
			return nil, fmt.Errorf("%s: read %s[%d]: %w", s.path, field, index, err)
		}
		for i, v := range buf {
			data[i] = complex(float32(v), 0)
		}
	default:
		return nil, fmt.Errorf("%s: %s: unsupported datatype class %v size %d", s.path, field, dtype.Class(), dtype.Size())
	}
	return NewTensor(shape, data)
}
