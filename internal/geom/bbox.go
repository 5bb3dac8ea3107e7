package geom

// Rect is one bounding box item, relative to the owner's anchor position.
type Rect struct {
	Pos  Vector
	Size Vector
}

func (r Rect) abs(anchor Vector) (minX, minY, maxX, maxY int) {
	minX = anchor.X + r.Pos.X
	minY = anchor.Y + r.Pos.Y
	return minX, minY, minX + r.Size.X, minY + r.Size.Y
}

// BoundingBox is an ordered set of rectangles. The zero value is an empty box
// that never collides and never contains a point.
type BoundingBox struct {
	items []Rect
}

func NewBoundingBox(items ...Rect) BoundingBox {
	b := BoundingBox{}
	for _, it := range items {
		b.Add(it.Pos, it.Size)
	}
	return b
}

func (b *BoundingBox) Add(pos, size Vector) {
	b.items = append(b.items, Rect{Pos: pos, Size: size})
}

func (b *BoundingBox) Clear()         { b.items = b.items[:0] }
func (b BoundingBox) IsEmpty() bool   { return len(b.items) == 0 }
func (b BoundingBox) Count() int      { return len(b.items) }
func (b BoundingBox) Item(i int) Rect { return b.items[i] }

// Clone returns a deep copy that shares no storage with b.
func (b BoundingBox) Clone() BoundingBox {
	if len(b.items) == 0 {
		return BoundingBox{}
	}
	items := make([]Rect, len(b.items))
	copy(items, b.items)
	return BoundingBox{items: items}
}

// Collides reports whether any rectangle of b anchored at myPos overlaps any
// rectangle of other anchored at otherPos. Edges are inclusive, so boxes that
// touch collide. The test is symmetric.
func (b BoundingBox) Collides(myPos, otherPos Vector, other BoundingBox) bool {
	if b.IsEmpty() || other.IsEmpty() {
		return false
	}
	for _, mine := range b.items {
		ax0, ay0, ax1, ay1 := mine.abs(myPos)
		for _, theirs := range other.items {
			bx0, by0, bx1, by1 := theirs.abs(otherPos)
			if ax0 <= bx1 && bx0 <= ax1 && ay0 <= by1 && by0 <= ay1 {
				return true
			}
		}
	}
	return false
}

// Contains reports whether p lies inside any rectangle of b anchored at myPos,
// bounds inclusive.
func (b BoundingBox) Contains(myPos, p Vector) bool {
	for _, r := range b.items {
		x0, y0, x1, y1 := r.abs(myPos)
		if p.X >= x0 && p.X <= x1 && p.Y >= y0 && p.Y <= y1 {
			return true
		}
	}
	return false
}
