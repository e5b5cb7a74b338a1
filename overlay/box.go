package overlay

import "strconv"

// Box is an axis-aligned rectangle: minimum corner plus non-negative extents.
// Treated as immutable value data.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Path renders the box perimeter as SVG path data, a closed trace starting
// at the minimum corner: "M <x> <y> h <w> v <h> h -<w> z". The output is a
// pure function of the box, so re-setting the same box yields identical data.
func (b Box) Path() string {
	return "M " + fnum(b.X) + " " + fnum(b.Y) +
		" h " + fnum(b.Width) +
		" v " + fnum(b.Height) +
		" h " + fnum(-b.Width) + " z"
}

// Corners returns the four corner points in reading order: top-left,
// top-right, bottom-left, bottom-right.
func (b Box) Corners() [4][2]float64 {
	return [4][2]float64{
		{b.X, b.Y},
		{b.X + b.Width, b.Y},
		{b.X, b.Y + b.Height},
		{b.X + b.Width, b.Y + b.Height},
	}
}

// fnum formats a coordinate with the shortest representation that
// round-trips, matching how hand-authored SVG writes integers bare.
func fnum(f float64) string {
	if f == 0 {
		return "0" // avoid "-0" for negated zero extents
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
