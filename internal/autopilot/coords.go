package autopilot

// Center is the midpoint of r.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// ToPageCoordinates translates the center of a rect measured inside a nested
// frame into top-level page coordinates, given the frame's own offset on the
// page.
func ToPageCoordinates(frameOffset Point, r Rect) Point {
	c := r.Center()
	return Point{X: frameOffset.X + c.X, Y: frameOffset.Y + c.Y}
}
