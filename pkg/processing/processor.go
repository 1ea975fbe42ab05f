package processing

import (
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/plant-predict/internal/utils"
	"github.com/menta2k/plant-predict/pkg/types"
)

// Default model input size
const (
	DefaultWidth  = 128
	DefaultHeight = 128
	Channels      = 3
)

// ErrUnsupportedFormat is returned when no registered decoder accepts the file
var ErrUnsupportedFormat = errors.New("unknown image format")

// Processor turns image files into model input tensors
type Processor struct {
	width   int
	height  int
	resizer Resizer
	log     logrus.FieldLogger
}

// Option configures a Processor
type Option func(*Processor)

// WithSize sets the target width and height
func WithSize(width, height int) Option {
	return func(p *Processor) {
		p.width = width
		p.height = height
	}
}

// WithResizer replaces the default imaging/bicubic resizer
func WithResizer(r Resizer) Option {
	return func(p *Processor) {
		p.resizer = r
	}
}

// WithLogger sets the logger used for debug traces
func WithLogger(log logrus.FieldLogger) Option {
	return func(p *Processor) {
		p.log = log
	}
}

// NewProcessor creates a new image processor
func NewProcessor(opts ...Option) *Processor {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	p := &Processor{
		width:   DefaultWidth,
		height:  DefaultHeight,
		resizer: imagingResizer{filter: imaging.CatmullRom},
		log:     quiet,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Size returns the target width and height
func (p *Processor) Size() (int, int) {
	return p.width, p.height
}

// Preprocess decodes the image at path and returns a (1, H, W, 3) tensor
// with channel values scaled to [0,1].
func (p *Processor) Preprocess(ctx context.Context, path string) (*types.Tensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.log.WithField("path", path).Debug("Opening image")
	img, err := p.LoadImage(path)
	if err != nil {
		return nil, err
	}

	info := GetImageInfo(img)
	p.log.WithFields(logrus.Fields{
		"width":  info.Width,
		"height": info.Height,
	}).Debug("Image decoded")

	rgb := ToRGB(img)
	resized, err := p.resizer.Resize(rgb, p.width, p.height)
	if err != nil {
		return nil, errors.Wrap(err, "resize failed")
	}

	tensor, err := ToTensor(resized)
	if err != nil {
		return nil, err
	}
	p.log.WithField("shape", tensor.Shape).Debug("Image preprocessed successfully")
	return tensor, nil
}

// LoadImage loads an image from a file path with WebP support
func (p *Processor) LoadImage(path string) (image.Image, error) {
	// Try imaging.Open (registered decoders)
	img, openErr := imaging.Open(path)
	if openErr == nil {
		return img, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open image")
	}
	defer f.Close()

	// Fallback: explicit WebP decode for variants x/image does not handle
	if utils.GetFileExtension(path) == "webp" {
		if img, err := webp.Decode(f); err == nil {
			return img, nil
		}
	}

	if !utils.IsImageFile(path) {
		p.log.WithField("path", path).Debug("File extension is not a known image type")
	}
	p.log.WithError(openErr).Debug("Decoders rejected file")
	return nil, errors.Wrapf(ErrUnsupportedFormat, "cannot identify image file %q", path)
}

// GetImageInfo returns basic information about an image
func GetImageInfo(img image.Image) types.ImageInfo {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	info := types.ImageInfo{
		Width:  width,
		Height: height,
	}
	if height > 0 {
		info.AspectRatio = float64(width) / float64(height)
	}
	return info
}

// ToRGB converts any decoded image into an opaque NRGBA image. Alpha is
// dropped, not composited, and grayscale is expanded to three equal channels.
func ToRGB(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

// ToTensor scales an image's 8-bit RGB channels to [0,1] and lays them out
// as a (1, H, W, 3) batch.
func ToTensor(img image.Image) (*types.Tensor, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, errors.Errorf("empty image %dx%d", w, h)
	}

	t := types.NewTensor(1, int64(h), int64(w), Channels)
	nrgba, ok := img.(*image.NRGBA)
	if !ok {
		nrgba = imaging.Clone(img)
	}

	i := 0
	for y := 0; y < h; y++ {
		row := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+w*4]
		for x := 0; x < w; x++ {
			px := row[x*4 : x*4+4]
			t.Data[i] = float32(px[0]) / 255.0
			t.Data[i+1] = float32(px[1]) / 255.0
			t.Data[i+2] = float32(px[2]) / 255.0
			i += Channels
		}
	}
	return t, nil
}
