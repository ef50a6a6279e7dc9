package monitor

import (
	"image"
	"image/color"
	"image/draw"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// lcgImage fills a w x h gray image from a small deterministic generator.
// Distinct seeds produce fixtures that correlate only with themselves, so
// match scores in tests are either ~1.0 or well below any threshold.
func lcgImage(seed, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	x := uint32(seed)
	for y := 0; y < h; y++ {
		for px := 0; px < w; px++ {
			x = (x*1103515245 + 12345) & 0x7fffffff
			v := uint8(x >> 16)
			img.SetRGBA(px, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

// firstLCGByte returns the value of lcgImage(seed, ...) at (0,0).
func firstLCGByte(seed int) uint8 {
	x := uint32(seed)
	x = (x*1103515245 + 12345) & 0x7fffffff
	return uint8(x >> 16)
}

// stackImages concatenates equally wide images top to bottom.
func stackImages(imgs ...*image.RGBA) *image.RGBA {
	w := imgs[0].Bounds().Dx()
	total := 0
	for _, im := range imgs {
		total += im.Bounds().Dy()
	}
	out := image.NewRGBA(image.Rect(0, 0, w, total))
	y := 0
	for _, im := range imgs {
		h := im.Bounds().Dy()
		draw.Draw(out, image.Rect(0, y, w, y+h), im, image.Pt(0, 0), draw.Src)
		y += h
	}
	return out
}

// invertImage flips every gray value, which drives the correlation of an
// image against its inverse to exactly -1.
func invertImage(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := src.RGBAAt(x, y)
			out.SetRGBA(x, y, color.RGBA{255 - c.R, 255 - c.G, 255 - c.B, 255})
		}
	}
	return out
}

type fakeShots struct {
	mu     sync.Mutex
	calls  int
	onShot func(n int)
}

func (f *fakeShots) TakeScreenshot(source, outPath string) error {
	f.mu.Lock()
	f.calls++
	n := f.calls
	hook := f.onShot
	f.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return nil
}

func (f *fakeShots) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeCodec serves decodes from an in-memory map and records encodes.
type fakeCodec struct {
	mu       sync.Mutex
	images   map[string]*image.RGBA
	failures map[string]error
	written  map[string]image.Image
	onEncode func(path string)
}

func newFakeCodec() *fakeCodec {
	return &fakeCodec{
		images:   map[string]*image.RGBA{},
		failures: map[string]error{},
		written:  map[string]image.Image{},
	}
}

func (c *fakeCodec) Decode(path string) (*image.RGBA, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err, ok := c.failures[path]; ok {
		return nil, err
	}
	img, ok := c.images[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return img, nil
}

func (c *fakeCodec) Encode(img image.Image, path string) error {
	c.mu.Lock()
	c.written[path] = img
	hook := c.onEncode
	c.mu.Unlock()
	if hook != nil {
		hook(path)
	}
	return nil
}

func (c *fakeCodec) wrote(path string) (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	img, ok := c.written[path]
	return img, ok
}

func (c *fakeCodec) writtenPaths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	paths := make([]string, 0, len(c.written))
	for p := range c.written {
		paths = append(paths, p)
	}
	return paths
}

// fakeRecorder answers status queries from a scripted sequence; once the
// script runs out the last status repeats. An empty script answers unknown.
type fakeRecorder struct {
	mu         sync.Mutex
	statuses   []RecStatus
	idx        int
	startCalls int
	stopCalls  int
	startErr   error
	stopErr    error
}

func (f *fakeRecorder) StartRecording() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	return f.startErr
}

func (f *fakeRecorder) StopRecording() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	return f.stopErr
}

func (f *fakeRecorder) Status() RecStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.idx < len(f.statuses) {
		st := f.statuses[f.idx]
		f.idx++
		return st
	}
	if n := len(f.statuses); n > 0 {
		return f.statuses[n-1]
	}
	return StatusUnknown
}

func (f *fakeRecorder) counts() (starts, stops int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startCalls, f.stopCalls
}

// fakeText records text source updates; the optional hook runs inline.
type fakeText struct {
	mu      sync.Mutex
	sources []string
	texts   []string
	hook    func(text string)
}

func (f *fakeText) UpdateText(source, text string) error {
	f.mu.Lock()
	f.sources = append(f.sources, source)
	f.texts = append(f.texts, text)
	hook := f.hook
	f.mu.Unlock()
	if hook != nil {
		hook(text)
	}
	return nil
}

func (f *fakeText) updates() (sources, texts []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sources = append(sources, f.sources...)
	texts = append(texts, f.texts...)
	return sources, texts
}

// eventLog collects emitted events; the optional hook runs inline on Emit.
type eventLog struct {
	mu    sync.Mutex
	kinds []EventKind
	hook  func(kind EventKind)
}

func (e *eventLog) Emit(kind EventKind, ts time.Time) {
	e.mu.Lock()
	e.kinds = append(e.kinds, kind)
	hook := e.hook
	e.mu.Unlock()
	if hook != nil {
		hook(kind)
	}
}

func (e *eventLog) emitted() []EventKind {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]EventKind, len(e.kinds))
	copy(out, e.kinds)
	return out
}
