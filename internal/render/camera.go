package render

import "github.com/casualgame/engine/internal/geom"

// Camera keeps Focus (the player position) at the centre of a Screen sized
// window.
type Camera struct {
	Focus  geom.Vector
	Screen geom.Vector
}

// Visible reports whether an object of size at world pos overlaps the
// window, allowing one object size of slack on each side.
func (c Camera) Visible(pos, size geom.Vector) bool {
	d := pos.Sub(c.Focus)
	halfW, halfH := c.Screen.X/2, c.Screen.Y/2
	return d.X+size.X > -halfW && d.X < halfW+size.X &&
		d.Y+size.Y > -halfH && d.Y < halfH+size.Y
}

// ScreenPos converts a world position to the top-left drawing position of
// an object of size.
func (c Camera) ScreenPos(pos, size geom.Vector) geom.Vector {
	d := pos.Sub(c.Focus)
	return geom.Vec(d.X+c.Screen.X/2-size.X/2, d.Y+c.Screen.Y/2-size.Y/2)
}
