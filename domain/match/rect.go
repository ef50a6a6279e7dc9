package match

import (
	"image"
	"image/draw"
)

// Rect is an axis-aligned crop region in scene pixel coordinates,
// half-open on the right and bottom edges.
type Rect struct {
	X1 int `yaml:"x1"`
	Y1 int `yaml:"y1"`
	X2 int `yaml:"x2"`
	Y2 int `yaml:"y2"`
}

// NewRect returns the rect (x1,y1)-(x2,y2).
func NewRect(x1, y1, x2, y2 int) Rect { return Rect{X1: x1, Y1: y1, X2: x2, Y2: y2} }

func (r Rect) Dx() int { return r.X2 - r.X1 }
func (r Rect) Dy() int { return r.Y2 - r.Y1 }

// Canon swaps coordinates so that X2>=X1 and Y2>=Y1.
func (r Rect) Canon() Rect {
	if r.X2 < r.X1 {
		r.X1, r.X2 = r.X2, r.X1
	}
	if r.Y2 < r.Y1 {
		r.Y1, r.Y2 = r.Y2, r.Y1
	}
	return r
}

// Clamp restricts the rect to a w x h source. A rect that degenerates to zero
// area after clamping yields a 1x1 region rather than an empty one, so crops
// never fail outright.
func (r Rect) Clamp(w, h int) Rect {
	r = r.Canon()
	if r.X1 < 0 {
		r.X1 = 0
	}
	if r.Y1 < 0 {
		r.Y1 = 0
	}
	if r.X1 >= w {
		r.X1 = max(w-1, 0)
	}
	if r.Y1 >= h {
		r.Y1 = max(h-1, 0)
	}
	if r.X2 > w {
		r.X2 = w
	}
	if r.Y2 > h {
		r.Y2 = h
	}
	if r.X2 <= r.X1 {
		r.X2 = r.X1 + 1
	}
	if r.Y2 <= r.Y1 {
		r.Y2 = r.Y1 + 1
	}
	return r
}

// CropRGBA copies the region r out of src into a fresh RGBA image with
// bounds anchored at the origin. The rect is clamped to src first.
func CropRGBA(src *image.RGBA, r Rect) *image.RGBA {
	b := src.Bounds()
	r = r.Clamp(b.Dx(), b.Dy())
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), src, image.Pt(b.Min.X+r.X1, b.Min.Y+r.Y1), draw.Src)
	return out
}
