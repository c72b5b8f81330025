// Package preprocess prepares captured screen regions for OCR.
//
// The steps always run in the same order: upscale, grayscale, invert,
// binarize. The output is a two-level image at several times the original
// resolution with the input's polarity reversed: dark-on-light screen text
// comes out as white glyphs on black, light-on-dark text as black on white.
package preprocess

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

const (
	DefaultScale     = 3
	DefaultThreshold = 140
)

// ErrInvalidImage is returned for nil or zero-area input.
var ErrInvalidImage = errors.New("invalid image: nil or zero area")

// Options controls the preprocessing steps. Zero fields take the defaults.
type Options struct {
	Scale     int
	Threshold uint8
}

// DefaultOptions returns scale 3 and threshold 140.
func DefaultOptions() Options {
	return Options{Scale: DefaultScale, Threshold: DefaultThreshold}
}

// Preprocess runs Upscale, Grayscale, Invert and Binarize on img. img is not modified.
func Preprocess(img image.Image, opts Options) (*image.Gray, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrInvalidImage
	}
	if opts.Scale <= 0 {
		opts.Scale = DefaultScale
	}
	if opts.Threshold == 0 {
		// Binarize at 0 would turn every pixel white.
		opts.Threshold = DefaultThreshold
	}

	up, err := Upscale(img, opts.Scale)
	if err != nil {
		return nil, fmt.Errorf("upscale: %w", err)
	}
	gray := Grayscale(up)
	Invert(gray)
	Binarize(gray, opts.Threshold)
	return gray, nil
}

// Upscale resizes img by an integer factor with Lanczos resampling.
func Upscale(img image.Image, factor int) (*image.NRGBA, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrInvalidImage
	}
	if factor < 1 {
		return nil, fmt.Errorf("scale factor must be >= 1, got %d", factor)
	}
	b := img.Bounds()
	if factor == 1 {
		return imaging.Clone(img), nil
	}
	return imaging.Resize(img, b.Dx()*factor, b.Dy()*factor, imaging.Lanczos), nil
}

// Grayscale converts img to a single-channel image using ITU-R 601 luma.
// The result's bounds start at (0,0).
func Grayscale(img image.Image) *image.Gray {
	g := imaging.Grayscale(img)
	out := image.NewGray(g.Bounds())
	for y := 0; y < g.Rect.Dy(); y++ {
		src := g.Pix[y*g.Stride : y*g.Stride+g.Rect.Dx()*4]
		dst := out.Pix[y*out.Stride : y*out.Stride+out.Rect.Dx()]
		for x := range dst {
			// imaging.Grayscale writes the same luma value to R, G and B.
			dst[x] = src[x*4]
		}
	}
	return out
}

// Invert replaces every value v with 255-v in place.
func Invert(g *image.Gray) {
	for i, v := range g.Pix {
		g.Pix[i] = 255 - v
	}
}

// Binarize maps values below threshold to 0 and the rest to 255, in place.
func Binarize(g *image.Gray, threshold uint8) {
	for i, v := range g.Pix {
		if v < threshold {
			g.Pix[i] = 0
		} else {
			g.Pix[i] = 255
		}
	}
}
