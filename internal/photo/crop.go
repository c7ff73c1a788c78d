// Package photo implements the contact photo crop transform: a pure
// geometric cut with no durable state of its own.
package photo

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ErrBadImage wraps failures caused by the input image or crop rectangle
// rather than by the system, so callers can report them as client errors.
var ErrBadImage = errors.New("bad image")

// Rect is a crop rectangle in source-image pixel coordinates.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Validate checks that the rectangle has positive extent and a
// non-negative origin.
func (r Rect) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.X, validation.Min(0)),
		validation.Field(&r.Y, validation.Min(0)),
		validation.Field(&r.W, validation.Required, validation.Min(1)),
		validation.Field(&r.H, validation.Required, validation.Min(1)),
	)
}

// bounds returns the rectangle as an image.Rectangle.
func (r Rect) bounds() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

// subImager is satisfied by the stdlib raster types (RGBA, NRGBA, YCbCr, ...).
type subImager interface {
	SubImage(image.Rectangle) image.Image
}

// Crop returns the portion of img covered by r, clamped to the image
// bounds. The crop shares pixels with the source where the decoder's
// raster type allows it.
func Crop(img image.Image, r Rect) (image.Image, error) {
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("photo: %w: invalid crop rect: %v", ErrBadImage, err)
	}
	clamped := r.bounds().Intersect(img.Bounds())
	if clamped.Empty() {
		return nil, fmt.Errorf("photo: %w: crop rect %v outside image bounds %v", ErrBadImage, r.bounds(), img.Bounds())
	}
	si, ok := img.(subImager)
	if !ok {
		return nil, fmt.Errorf("photo: image type %T does not support cropping", img)
	}
	return si.SubImage(clamped), nil
}

// Decode parses JPEG or PNG bytes. The returned format is "jpeg" or "png".
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("photo: %w: decode: %v", ErrBadImage, err)
	}
	switch format {
	case "jpeg", "png":
		return img, format, nil
	default:
		return nil, "", fmt.Errorf("photo: %w: unsupported format %q", ErrBadImage, format)
	}
}

// Encode renders img back to bytes in the given format.
func Encode(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case "jpeg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
			return nil, fmt.Errorf("photo: encode jpeg: %w", err)
		}
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("photo: encode png: %w", err)
		}
	default:
		return nil, fmt.Errorf("photo: unsupported format %q", format)
	}
	return buf.Bytes(), nil
}

// Ext returns the file extension for a decode format.
func Ext(format string) string {
	if format == "png" {
		return ".png"
	}
	return ".jpg"
}
