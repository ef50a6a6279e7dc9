// Package codec reads and writes image files for the monitors. Formats are
// chosen by destination extension: PNG by default, JPEG for .jpg/.jpeg with a
// fixed quality setting.
package codec

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
)

// jpegQuality is applied whenever the destination extension selects JPEG.
const jpegQuality = 90

// File is a disk-backed codec. The zero value is ready to use.
type File struct{}

// Decode loads the image at path into an RGBA buffer.
func (File) Decode(path string) (*image.RGBA, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba, nil
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out, nil
}

// Encode writes img to path, format per extension.
func (File) Encode(img image.Image, path string) error {
	if err := imaging.Save(img, path, imaging.JPEGQuality(jpegQuality)); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}
