package autopilot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToPageCoordinates(t *testing.T) {
	tests := []struct {
		name   string
		offset Point
		rect   Rect
		want   Point
	}{
		{"origin frame", Point{}, Rect{X: 10, Y: 20, Width: 40, Height: 10}, Point{X: 30, Y: 25}},
		{"offset frame", Point{X: 100, Y: 50}, Rect{X: 10, Y: 20, Width: 40, Height: 10}, Point{X: 130, Y: 75}},
		{"scrolled content", Point{X: 8, Y: 8}, Rect{X: -20, Y: -40, Width: 10, Height: 10}, Point{X: -7, Y: -27}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ToPageCoordinates(tc.offset, tc.rect))
		})
	}
}
