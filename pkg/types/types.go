package types

import "github.com/pkg/errors"

// Tensor is a dense float32 tensor in row-major order.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// NewTensor allocates a zeroed tensor for the given shape
func NewTensor(shape ...int64) *Tensor {
	return &Tensor{
		Shape: append([]int64(nil), shape...),
		Data:  make([]float32, ShapeSize(shape)),
	}
}

// ShapeSize returns the number of elements described by shape
func ShapeSize(shape []int64) int {
	if len(shape) == 0 {
		return 0
	}
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	return int(n)
}

// Validate checks that Data matches Shape
func (t *Tensor) Validate() error {
	if want := ShapeSize(t.Shape); want != len(t.Data) {
		return errors.Errorf("tensor shape %v needs %d values, got %d", t.Shape, want, len(t.Data))
	}
	return nil
}

// Prediction is the success payload written to stdout
type Prediction struct {
	Disease    string  `json:"disease"`
	Confidence float64 `json:"confidence"`

	// Optional treatment guidance, only filled when requested
	Description string   `json:"description,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// ErrorResponse is the failure payload written to stdout
type ErrorResponse struct {
	Error string `json:"error"`
}

// ImageInfo contains basic image metadata
type ImageInfo struct {
	Width       int
	Height      int
	AspectRatio float64
	Format      string
}
