package match

import "image"

// Gray is a single-channel luma projection of an RGBA frame. Samples are
// float64 in [0,1], row-major. Gray buffers are transient working data:
// monitors rebuild them from fresh frames every cycle.
type Gray struct {
	W, H int
	Pix  []float64
}

// NewGray converts an RGBA frame to luma using BT.601 weights.
func NewGray(img *image.RGBA) *Gray {
	if img == nil {
		return &Gray{}
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	g := &Gray{W: w, H: h, Pix: make([]float64, w*h)}
	idx := 0
	for y := 0; y < h; y++ {
		row := img.Pix[(y+b.Min.Y-img.Rect.Min.Y)*img.Stride:]
		for x := 0; x < w; x++ {
			i := (x + b.Min.X - img.Rect.Min.X) * 4
			r, gg, bb := row[i], row[i+1], row[i+2]
			g.Pix[idx] = (0.299*float64(r) + 0.587*float64(gg) + 0.114*float64(bb)) / 255.0
			idx++
		}
	}
	return g
}

// SubGray copies the region r (already in gray coordinates) into a new buffer.
// The region is normalized and clamped to the buffer bounds first.
func (g *Gray) SubGray(r Rect) *Gray {
	r = r.Canon().Clamp(g.W, g.H)
	w, h := r.Dx(), r.Dy()
	out := &Gray{W: w, H: h, Pix: make([]float64, w*h)}
	for y := 0; y < h; y++ {
		copy(out.Pix[y*w:(y+1)*w], g.Pix[(r.Y1+y)*g.W+r.X1:(r.Y1+y)*g.W+r.X1+w])
	}
	return out
}
