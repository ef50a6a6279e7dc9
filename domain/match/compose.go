package match

import (
	"errors"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// VConcat stacks the given rows vertically, first row on top. All rows must
// share the same width; they come from fixed-width crops so a mismatch means
// the caller's regions are misconfigured.
func VConcat(rows []*image.RGBA) (image.Image, error) {
	if len(rows) == 0 {
		return nil, errors.New("vconcat: no rows")
	}
	w := rows[0].Bounds().Dx()
	total := 0
	for _, r := range rows {
		if r.Bounds().Dx() != w {
			return nil, errors.New("vconcat: row width mismatch")
		}
		total += r.Bounds().Dy()
	}
	out := imaging.New(w, total, color.NRGBA{})
	y := 0
	for _, r := range rows {
		out = imaging.Paste(out, r, image.Pt(0, y))
		y += r.Bounds().Dy()
	}
	return out, nil
}
