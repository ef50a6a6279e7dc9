package match

import (
	"image"
	"math"
	"testing"
)

// grayFrom builds a Gray buffer from row-major sample values.
func grayFrom(w, h int, px []float64) *Gray {
	return &Gray{W: w, H: h, Pix: px}
}

func gradient(w, h int) *Gray {
	g := &Gray{W: w, H: h, Pix: make([]float64, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g.Pix[y*w+x] = float64(x+y*w) / float64(w*h)
		}
	}
	return g
}

func TestMaxNCC_IdenticalBuffersScoreOne(t *testing.T) {
	g := gradient(8, 6)
	got := MaxNCC(g, g)
	if math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("self correlation = %v, want 1.0", got)
	}
}

func TestMaxNCC_TemplateLargerReturnsSentinel(t *testing.T) {
	scene := gradient(4, 4)
	wide := gradient(5, 4)
	tall := gradient(4, 5)
	if got := MaxNCC(scene, wide); got != NoMatch {
		t.Fatalf("wide template: got %v, want %v", got, NoMatch)
	}
	if got := MaxNCC(scene, tall); got != NoMatch {
		t.Fatalf("tall template: got %v, want %v", got, NoMatch)
	}
}

func TestMaxNCC_BrightnessOffsetInvariant(t *testing.T) {
	scene := gradient(10, 8)
	tpl := scene.SubGray(NewRect(2, 1, 7, 6))
	base := MaxNCC(scene, tpl)

	shifted := &Gray{W: scene.W, H: scene.H, Pix: make([]float64, len(scene.Pix))}
	for i, v := range scene.Pix {
		shifted.Pix[i] = v + 0.17
	}
	offset := MaxNCC(shifted, tpl)
	if math.Abs(base-offset) > 1e-9 {
		t.Fatalf("constant offset changed score: %v vs %v", base, offset)
	}
}

func TestMaxNCC_NonUniformGradientNotInvariant(t *testing.T) {
	scene := gradient(10, 8)
	tpl := scene.SubGray(NewRect(2, 1, 7, 6))
	base := MaxNCC(scene, tpl)

	warped := &Gray{W: scene.W, H: scene.H, Pix: make([]float64, len(scene.Pix))}
	for y := 0; y < scene.H; y++ {
		for x := 0; x < scene.W; x++ {
			// Multiplicative lighting ramp across x.
			warped.Pix[y*scene.W+x] = scene.Pix[y*scene.W+x] * (0.2 + 1.5*float64(x)/float64(scene.W))
		}
	}
	got := MaxNCC(warped, tpl)
	if math.Abs(base-got) < 1e-9 {
		t.Fatalf("gradient lighting should change the score (both %v)", got)
	}
}

func TestMaxNCC_FlatBuffersDoNotDivideByZero(t *testing.T) {
	scene := grayFrom(4, 4, make([]float64, 16))
	tpl := grayFrom(2, 2, make([]float64, 4))
	got := MaxNCC(scene, tpl)
	if math.IsNaN(got) || math.IsInf(got, 0) {
		t.Fatalf("flat match produced %v", got)
	}
}

func TestMaxNCC_FindsEmbeddedTemplate(t *testing.T) {
	scene := gradient(12, 12)
	tpl := scene.SubGray(NewRect(5, 3, 10, 9))
	got := MaxNCC(scene, tpl)
	if got < 0.999 {
		t.Fatalf("embedded template score = %v, want ~1", got)
	}
}

func TestMaxNCCRegion_ClampsAndMatches(t *testing.T) {
	scene := gradient(12, 12)
	tpl := scene.SubGray(NewRect(6, 6, 10, 10))

	// Region containing the template location.
	if got := MaxNCCRegion(scene, NewRect(4, 4, 12, 12), tpl); got < 0.999 {
		t.Fatalf("region score = %v, want ~1", got)
	}
	// Region extending past the scene clamps instead of failing.
	if got := MaxNCCRegion(scene, NewRect(4, 4, 50, 50), tpl); got < 0.999 {
		t.Fatalf("oversized region score = %v, want ~1", got)
	}
	// Region smaller than the template yields the sentinel.
	if got := MaxNCCRegion(scene, NewRect(0, 0, 2, 2), tpl); got != NoMatch {
		t.Fatalf("tiny region: got %v, want %v", got, NoMatch)
	}
}

func TestNewGray_DimensionsAndRange(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	g := NewGray(img)
	if g.W != 3 || g.H != 2 || len(g.Pix) != 6 {
		t.Fatalf("unexpected gray shape %dx%d len %d", g.W, g.H, len(g.Pix))
	}
	for _, v := range g.Pix {
		if math.Abs(v-1.0) > 1e-6 {
			t.Fatalf("white pixel luma = %v, want 1", v)
		}
	}
}
