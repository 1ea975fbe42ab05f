// Package deps verifies the runtime libraries the predictor needs before
// any work starts.
package deps

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

// Dependency is a named runtime requirement
type Dependency struct {
	Name  string
	Check func() error
	// Release undoes a successful Check, may be nil
	Release func() error
}

// CheckError reports the dependency that failed
type CheckError struct {
	Name string
	Err  error
}

func (e *CheckError) Error() string {
	return e.Name + ": " + e.Err.Error()
}

// Cause returns the underlying error
func (e *CheckError) Cause() error {
	return e.Err
}

// Set is the ordered result of a successful Check
type Set struct {
	checked []Dependency
}

// Check runs every dependency in order and stops at the first failure.
// Dependencies that passed before the failure are released again.
func Check(ctx context.Context, log logrus.FieldLogger, list []Dependency) (*Set, error) {
	set := &Set{}
	for _, dep := range list {
		if err := ctx.Err(); err != nil {
			set.Release()
			return nil, err
		}
		if err := dep.Check(); err != nil {
			set.Release()
			return nil, &CheckError{Name: dep.Name, Err: err}
		}
		set.checked = append(set.checked, dep)
		log.Debugf("%s imported successfully", dep.Name)
	}
	return set, nil
}

// Release releases checked dependencies in reverse order and returns the
// first error.
func (s *Set) Release() error {
	var first error
	for i := len(s.checked) - 1; i >= 0; i-- {
		if rel := s.checked[i].Release; rel != nil {
			if err := rel(); err != nil && first == nil {
				first = err
			}
		}
	}
	s.checked = nil
	return first
}

// ONNXRuntime loads the ONNX Runtime shared library and initialises its
// environment. An empty libraryPath keeps the platform default name.
func ONNXRuntime(libraryPath string) Dependency {
	return Dependency{
		Name: "onnxruntime",
		Check: func() error {
			if libraryPath != "" {
				ort.SetSharedLibraryPath(libraryPath)
			}
			return errors.Wrap(ort.InitializeEnvironment(), "failed to initialize ONNX environment")
		},
		Release: ort.DestroyEnvironment,
	}
}

// ImageDecoders round-trips a 1x1 PNG through imaging to prove the decoder
// registry is usable.
func ImageDecoders() Dependency {
	return Dependency{
		Name: "imaging",
		Check: func() error {
			var buf bytes.Buffer
			if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 1, 1))); err != nil {
				return err
			}
			return decodeProbe(&buf)
		},
	}
}

func decodeProbe(r io.Reader) error {
	img, err := imaging.Decode(r)
	if err != nil {
		return errors.Wrap(err, "decoder registry unusable")
	}
	if img.Bounds().Dx() != 1 {
		return errors.New("decoder returned unexpected bounds")
	}
	return nil
}
