package slicetable

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// Tensor is a dense complex array in row-major order.
type Tensor struct {
	Shape []int
	Data  []complex64
}

// NewTensor checks that data fits shape.
func NewTensor(shape []int, data []complex64) (*Tensor, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("negative dimension in shape %v", shape)
		}
		n *= d
	}
	if n != len(data) {
		return nil, fmt.Errorf("shape %v needs %d values, got %d", shape, n, len(data))
	}
	return &Tensor{Shape: append([]int(nil), shape...), Data: data}, nil
}

// Magnitude collapses every axis after the first two with a root-sum-of-squares,
// giving one real value per pixel.
func (t *Tensor) Magnitude() (*mat.Dense, error) {
	if len(t.Shape) < 2 {
		return nil, fmt.Errorf("tensor of shape %v is not an image", t.Shape)
	}
	rows, cols := t.Shape[0], t.Shape[1]
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("tensor of shape %v is empty", t.Shape)
	}
	inner := 1
	for _, d := range t.Shape[2:] {
		inner *= d
	}
	out := mat.NewDense(rows, cols, nil)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			base := (y*cols + x) * inner
			var sum float64
			for k := 0; k < inner; k++ {
				a := cmplx.Abs(complex128(t.Data[base+k]))
				sum += a * a
			}
			out.Set(y, x, math.Sqrt(sum))
		}
	}
	return out, nil
}

// Image renders the magnitude as 16-bit grayscale scaled to the full range. logScale
// compresses the dynamic range, which k-space needs to be readable.
func (t *Tensor) Image(logScale bool) (*image.Gray16, error) {
	m, err := t.Magnitude()
	if err != nil {
		return nil, err
	}
	if logScale {
		m.Apply(func(_, _ int, v float64) float64 { return math.Log1p(v) }, m)
	}
	if peak := mat.Max(m); peak > 0 {
		m.Scale(math.MaxUint16/peak, m)
	}
	rows, cols := m.Dims()
	img := image.NewGray16(image.Rect(0, 0, cols, rows))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			img.SetGray16(x, y, color.Gray16{Y: uint16(math.Round(m.At(y, x)))})
		}
	}
	return img, nil
}
