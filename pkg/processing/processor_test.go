package processing

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/chai2010/webp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestImage creates a simple gradient test image
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8((x * 255) / width)
			g := uint8((y * 255) / height)
			img.Set(x, y, color.RGBA{r, g, 128, 255})
		}
	}

	return img
}

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leaf.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestNewProcessor(t *testing.T) {
	p := NewProcessor()
	w, h := p.Size()
	assert.Equal(t, 128, w)
	assert.Equal(t, 128, h)

	p = NewProcessor(WithSize(64, 32))
	w, h = p.Size()
	assert.Equal(t, 64, w)
	assert.Equal(t, 32, h)
}

func TestPreprocessShapeAndRange(t *testing.T) {
	path := writePNG(t, createTestImage(300, 200))

	tensor, err := NewProcessor().Preprocess(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 128, 128, 3}, tensor.Shape)
	assert.Len(t, tensor.Data, 128*128*3)
	assert.NoError(t, tensor.Validate())

	for i, v := range tensor.Data {
		if v < 0 || v > 1 {
			t.Fatalf("value %d out of range: %f", i, v)
		}
	}
}

func TestPreprocessIsDeterministic(t *testing.T) {
	path := writePNG(t, createTestImage(97, 143))
	p := NewProcessor()

	a, err := p.Preprocess(context.Background(), path)
	require.NoError(t, err)
	b, err := p.Preprocess(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, a.Data, b.Data)
}

func TestPreprocessDoesNotPreserveAspect(t *testing.T) {
	// A wide solid image must fill the whole target, no letterboxing
	img := image.NewRGBA(image.Rect(0, 0, 400, 50))
	for y := 0; y < 50; y++ {
		for x := 0; x < 400; x++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}
	path := writePNG(t, img)

	tensor, err := NewProcessor().Preprocess(context.Background(), path)
	require.NoError(t, err)

	for i := 0; i < len(tensor.Data); i += 3 {
		assert.InDelta(t, 1.0, tensor.Data[i], 1e-6)
		assert.InDelta(t, 0.0, tensor.Data[i+1], 1e-6)
		assert.InDelta(t, 0.0, tensor.Data[i+2], 1e-6)
	}
}

func TestPreprocessRejectsNonImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("definitely not pixels"), 0o644))

	_, err := NewProcessor().Preprocess(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, ErrUnsupportedFormat, errors.Cause(err))
	assert.Contains(t, err.Error(), "cannot identify image file")
}

func TestPreprocessMissingFile(t *testing.T) {
	_, err := NewProcessor().Preprocess(context.Background(), filepath.Join(t.TempDir(), "gone.png"))
	assert.Error(t, err)
}

func TestPreprocessHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewProcessor().Preprocess(ctx, "unused.png")
	assert.Equal(t, context.Canceled, err)
}

func TestLoadImageWebP(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leaf.webp")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, webp.Encode(f, createTestImage(40, 30), &webp.Options{Lossless: true}))
	require.NoError(t, f.Close())

	img, err := NewProcessor().LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 30, img.Bounds().Dy())
}

func TestToRGBDropsAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{200, 100, 50, 0})
	img.SetNRGBA(1, 0, color.NRGBA{10, 20, 30, 128})

	rgb := ToRGB(img)

	assert.Equal(t, color.NRGBA{200, 100, 50, 255}, rgb.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{10, 20, 30, 255}, rgb.NRGBAAt(1, 0))
}

func TestToRGBExpandsGray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 1, 1))
	img.SetGray(0, 0, color.Gray{Y: 77})

	rgb := ToRGB(img)
	assert.Equal(t, color.NRGBA{77, 77, 77, 255}, rgb.NRGBAAt(0, 0))
}

func TestToTensorLayout(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{255, 0, 0, 255})
	img.SetNRGBA(1, 0, color.NRGBA{0, 255, 0, 255})
	img.SetNRGBA(0, 1, color.NRGBA{0, 0, 255, 255})
	img.SetNRGBA(1, 1, color.NRGBA{51, 102, 204, 255})

	tensor, err := ToTensor(img)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2, 2, 3}, tensor.Shape)
	assert.Equal(t, []float32{
		1, 0, 0, 0, 1, 0,
		0, 0, 1, 0.2, 0.4, 0.8,
	}, tensor.Data)
}

func TestToTensorEmptyImage(t *testing.T) {
	_, err := ToTensor(image.NewNRGBA(image.Rect(0, 0, 0, 0)))
	assert.Error(t, err)
}

func TestGetImageInfo(t *testing.T) {
	info := GetImageInfo(createTestImage(400, 300))

	assert.Equal(t, 400, info.Width)
	assert.Equal(t, 300, info.Height)
	assert.InDelta(t, 400.0/300.0, info.AspectRatio, 1e-9)
}

func TestNewResizer(t *testing.T) {
	src := createTestImage(50, 70)

	for _, engine := range []string{"imaging", "nfnt"} {
		for _, filter := range []string{"nearest", "bilinear", "bicubic", "lanczos"} {
			r, err := NewResizer(engine, filter)
			require.NoError(t, err, "%s/%s", engine, filter)

			out, err := r.Resize(src, 128, 128)
			require.NoError(t, err)
			assert.Equal(t, 128, out.Bounds().Dx())
			assert.Equal(t, 128, out.Bounds().Dy())
		}
	}

	_, err := NewResizer("opencv", "bicubic")
	assert.Error(t, err)

	_, err = NewResizer("imaging", "sinc")
	assert.Error(t, err)

	r, err := NewResizer("imaging", "")
	require.NoError(t, err)
	assert.IsType(t, imagingResizer{}, r)

	_, err = r.Resize(src, 0, 10)
	assert.Error(t, err)
}

func TestPreprocessWithNfnt(t *testing.T) {
	path := writePNG(t, createTestImage(64, 64))
	r, err := NewResizer("nfnt", "bicubic")
	require.NoError(t, err)

	tensor, err := NewProcessor(WithResizer(r)).Preprocess(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 128, 128, 3}, tensor.Shape)
}
