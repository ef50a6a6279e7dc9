package capture

import (
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/mkondo/battlewatch/domain/monitor"
)

// Display is a ScreenshotTaker that grabs the local screen instead of asking
// OBS for a source snapshot. A source name of the form "display:x1,y1,x2,y2"
// restricts the grab to that screen rectangle; otherwise the optional Region
// applies, and with neither the whole active screen is captured.
type Display struct {
	Region *image.Rectangle
	Codec  monitor.Codec
}

// TakeScreenshot grabs the display and encodes the frame to outPath.
func (d *Display) TakeScreenshot(source, outPath string) error {
	if d.Codec == nil {
		return fmt.Errorf("display capture: no codec")
	}
	region := d.Region
	if r, ok := parseDisplayRegion(source); ok {
		region = &r
	}
	var (
		img *image.RGBA
		err error
	)
	if region != nil && !region.Empty() {
		img, err = GrabSelection(*region)
	} else {
		img, err = Grab()
	}
	if err != nil {
		return fmt.Errorf("display capture: %w", err)
	}
	return d.Codec.Encode(img, outPath)
}

// parseDisplayRegion recognizes source names of the form
// "display:x1,y1,x2,y2". Malformed or empty rectangles report false so the
// caller falls back to its configured region.
func parseDisplayRegion(source string) (image.Rectangle, bool) {
	coords, ok := strings.CutPrefix(source, "display:")
	if !ok {
		return image.Rectangle{}, false
	}
	parts := strings.Split(coords, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, false
	}
	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, false
		}
		vals[i] = v
	}
	r := image.Rect(vals[0], vals[1], vals[2], vals[3])
	if r.Empty() {
		return image.Rectangle{}, false
	}
	return r, true
}

var _ monitor.ScreenshotTaker = (*Display)(nil)
