package processing

import (
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// Resizer scales an image to exact dimensions, ignoring aspect ratio
type Resizer interface {
	Resize(img image.Image, width, height int) (image.Image, error)
}

type imagingResizer struct {
	filter imaging.ResampleFilter
}

func (r imagingResizer) Resize(img image.Image, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid target size %dx%d", width, height)
	}
	return imaging.Resize(img, width, height, r.filter), nil
}

type nfntResizer struct {
	interp resize.InterpolationFunction
}

func (r nfntResizer) Resize(img image.Image, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid target size %dx%d", width, height)
	}
	return resize.Resize(uint(width), uint(height), img, r.interp), nil
}

// NewResizer builds a resizer for engine ("imaging" or "nfnt") and filter
// ("nearest", "bilinear", "bicubic" or "lanczos"). Bicubic matches Pillow's
// default resample filter.
func NewResizer(engine, filter string) (Resizer, error) {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if filter == "" {
		filter = "bicubic"
	}

	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", "imaging":
		f, ok := map[string]imaging.ResampleFilter{
			"nearest":  imaging.NearestNeighbor,
			"bilinear": imaging.Linear,
			"bicubic":  imaging.CatmullRom,
			"lanczos":  imaging.Lanczos,
		}[filter]
		if !ok {
			return nil, errors.Errorf("unknown resize filter %q", filter)
		}
		return imagingResizer{filter: f}, nil
	case "nfnt":
		f, ok := map[string]resize.InterpolationFunction{
			"nearest":  resize.NearestNeighbor,
			"bilinear": resize.Bilinear,
			"bicubic":  resize.Bicubic,
			"lanczos":  resize.Lanczos3,
		}[filter]
		if !ok {
			return nil, errors.Errorf("unknown resize filter %q", filter)
		}
		return nfntResizer{interp: f}, nil
	default:
		return nil, errors.Errorf("unknown resize engine %q", engine)
	}
}
