package capture

import (
	"image"
	"testing"
)

func TestParseDisplayRegion(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   image.Rectangle
		ok     bool
	}{
		{"plain", "display:10,20,110,220", image.Rect(10, 20, 110, 220), true},
		{"spaces", "display: 10, 20, 110, 220", image.Rect(10, 20, 110, 220), true},
		{"swapped corners", "display:110,220,10,20", image.Rect(10, 20, 110, 220), true},
		{"no prefix", "Capture1", image.Rectangle{}, false},
		{"bare display", "display:", image.Rectangle{}, false},
		{"too few parts", "display:1,2,3", image.Rectangle{}, false},
		{"non numeric", "display:a,b,c,d", image.Rectangle{}, false},
		{"empty rect", "display:5,5,5,5", image.Rectangle{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseDisplayRegion(tt.source)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("parseDisplayRegion(%q) = %v, %v; want %v, %v", tt.source, got, ok, tt.want, tt.ok)
			}
		})
	}
}
