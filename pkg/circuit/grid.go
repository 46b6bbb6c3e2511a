package circuit

import (
	"hash/fnv"
	"image"
)

// Grid is the authoritative 2D array of circuit elements. The stored
// rectangle is always the minimal bounding box of the non-empty cells:
// every mutating operation re-normalizes, and callers receive the viewport
// translation implied by any grow or shrink. Reads outside the rectangle
// yield Empty without allocating.
//
// Grid has value semantics via Clone; the zero Grid is empty and ready to
// use.
type Grid struct {
	w, h  int
	cells []Element
}

// NewGrid returns a grid of the given size with all cells Empty.
// Callers that fill it sparsely should Normalize afterwards.
func NewGrid(w, h int) Grid {
	if w < 0 || h < 0 {
		panic("circuit: negative grid dimensions")
	}
	if w == 0 || h == 0 {
		return Grid{}
	}
	return Grid{w: w, h: h, cells: make([]Element, w*h)}
}

// Width returns the width of the minimal bounding rectangle.
func (g *Grid) Width() int { return g.w }

// Height returns the height of the minimal bounding rectangle.
func (g *Grid) Height() int { return g.h }

// Empty reports whether the grid contains no elements.
func (g *Grid) Empty() bool { return g.w == 0 || g.h == 0 }

// Bounds returns the grid rectangle anchored at the origin.
func (g *Grid) Bounds() image.Rectangle { return image.Rect(0, 0, g.w, g.h) }

// Contains reports whether the point lies inside the stored rectangle.
func (g *Grid) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.w && y < g.h
}

// Get returns the element at (x, y). Out-of-range coordinates read as Empty.
func (g *Grid) Get(x, y int) Element {
	if !g.Contains(x, y) {
		return Element{}
	}
	return g.cells[y*g.w+x]
}

// at returns a pointer to an in-bounds cell.
func (g *Grid) at(x, y int) *Element {
	return &g.cells[y*g.w+x]
}

// Clone returns a deep copy sharing no storage with g.
func (g *Grid) Clone() Grid {
	c := Grid{w: g.w, h: g.h}
	if len(g.cells) > 0 {
		c.cells = make([]Element, len(g.cells))
		copy(c.cells, g.cells)
	}
	return c
}

// Equal reports whether both grids hold identical cell contents. The
// bounding boxes are compared first so unequal grids usually short-circuit.
func (g *Grid) Equal(o *Grid) bool {
	if g.w != o.w || g.h != o.h {
		return false
	}
	for i := range g.cells {
		if !g.cells[i].SameState(o.cells[i]) {
			return false
		}
	}
	return true
}

// Hash returns a content hash usable as a cheap change-detection key.
func (g *Grid) Hash() uint64 {
	h := fnv.New64a()
	var dims [8]byte
	putInt32(dims[0:], int32(g.w))
	putInt32(dims[4:], int32(g.h))
	h.Write(dims[:])
	for _, e := range g.cells {
		h.Write([]byte{e.encode()})
	}
	return h.Sum64()
}

// Set writes an element at (x, y), growing or shrinking the stored
// rectangle to keep it minimal. It reports whether the grid changed and the
// translation applied to existing cells (the viewport should move by the
// same amount to stay visually fixed).
func (g *Grid) Set(x, y int, e Element) (changed bool, delta image.Point) {
	if e.IsEmpty() {
		if !g.Contains(x, y) || g.at(x, y).IsEmpty() {
			return false, image.Point{}
		}
		*g.at(x, y) = Element{}
		return true, g.Normalize()
	}

	delta = g.growFor(x, y)
	x += delta.X
	y += delta.Y
	if g.at(x, y).SameState(e) && g.at(x, y).Comm == e.Comm {
		return false, delta
	}
	*g.at(x, y) = e
	return true, delta
}

// growFor expands the rectangle so that (x, y) becomes addressable and
// returns the translation applied to existing cells.
func (g *Grid) growFor(x, y int) image.Point {
	if g.Empty() {
		g.w, g.h = 1, 1
		g.cells = make([]Element, 1)
		return image.Pt(-x, -y)
	}
	if g.Contains(x, y) {
		return image.Point{}
	}
	minX, minY := min(x, 0), min(y, 0)
	maxX, maxY := max(x+1, g.w), max(y+1, g.h)
	ng := NewGrid(maxX-minX, maxY-minY)
	blit(g, &ng, image.Pt(-minX, -minY))
	*g = ng
	return image.Pt(-minX, -minY)
}

// Normalize shrinks the rectangle to the minimal bounding box of the
// non-empty cells and returns the translation applied. An all-empty grid
// collapses to zero size.
func (g *Grid) Normalize() image.Point {
	minX, minY := g.w, g.h
	maxX, maxY := -1, -1
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			if !g.cells[y*g.w+x].IsEmpty() {
				minX, minY = min(minX, x), min(minY, y)
				maxX, maxY = max(maxX, x), max(maxY, y)
			}
		}
	}
	if maxX < 0 {
		*g = Grid{}
		return image.Point{}
	}
	if minX == 0 && minY == 0 && maxX+1 == g.w && maxY+1 == g.h {
		return image.Point{}
	}
	ng := NewGrid(maxX+1-minX, maxY+1-minY)
	for y := minY; y <= maxY; y++ {
		copy(ng.cells[(y-minY)*ng.w:], g.cells[y*g.w+minX:y*g.w+maxX+1])
	}
	*g = ng
	return image.Pt(-minX, -minY)
}

// Extend grows the rectangle to cover both corners without shrinking,
// returning the translation applied. Used to stage selections before a
// merge; the result is not normalized.
func (g *Grid) Extend(topLeft, bottomRight image.Point) image.Point {
	var minPt, maxPt image.Point
	if g.Empty() {
		minPt, maxPt = topLeft, bottomRight
	} else {
		minPt = image.Pt(min(topLeft.X, 0), min(topLeft.Y, 0))
		maxPt = image.Pt(max(bottomRight.X, g.w), max(bottomRight.Y, g.h))
	}
	if minPt == image.Pt(0, 0) && maxPt == image.Pt(g.w, g.h) {
		return image.Point{}
	}
	ng := NewGrid(maxPt.X-minPt.X, maxPt.Y-minPt.Y)
	if !g.Empty() {
		blit(g, &ng, image.Pt(-minPt.X, -minPt.Y))
	}
	*g = ng
	return image.Pt(-minPt.X, -minPt.Y)
}

// Splice moves a sub-rectangle out of g, leaving Empty cells behind. The
// returned grid has exactly the rectangle's size and is not normalized; g
// itself is, and the second result is the translation that applied.
// r must lie within g's bounds.
func (g *Grid) Splice(r image.Rectangle) (Grid, image.Point) {
	if !r.In(g.Bounds()) {
		panic("circuit: splice rectangle out of bounds")
	}
	out := NewGrid(r.Dx(), r.Dy())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := g.cells[y*g.w+r.Min.X : y*g.w+r.Max.X]
		copy(out.cells[(y-r.Min.Y)*out.w:], row)
		for i := range row {
			row[i] = Element{}
		}
	}
	return out, g.Normalize()
}

// Merge overlays src onto dst with src's origin at the given offset
// (which may be negative). Non-empty src cells win. It returns the merged
// grid and the translation that dst's cells underwent.
func Merge(dst Grid, src Grid, at image.Point) (Grid, image.Point) {
	if src.Empty() {
		return dst, image.Point{}
	}
	if dst.Empty() {
		return src.Clone(), image.Point{}
	}
	minPt := image.Pt(min(at.X, 0), min(at.Y, 0))
	maxPt := image.Pt(max(at.X+src.w, dst.w), max(at.Y+src.h, dst.h))
	out := NewGrid(maxPt.X-minPt.X, maxPt.Y-minPt.Y)
	blit(&dst, &out, image.Pt(-minPt.X, -minPt.Y))
	for y := 0; y < src.h; y++ {
		for x := 0; x < src.w; x++ {
			if e := src.cells[y*src.w+x]; !e.IsEmpty() {
				*out.at(x+at.X-minPt.X, y+at.Y-minPt.Y) = e
			}
		}
	}
	return out, image.Pt(-minPt.X, -minPt.Y)
}

// blit copies src into dst at the given offset; dst must be large enough.
func blit(src, dst *Grid, at image.Point) {
	for y := 0; y < src.h; y++ {
		copy(dst.cells[(y+at.Y)*dst.w+at.X:], src.cells[y*src.w:(y+1)*src.w])
	}
}

// FlipHorizontal mirrors the grid about its vertical axis.
func (g *Grid) FlipHorizontal() {
	for y := 0; y < g.h; y++ {
		row := g.cells[y*g.w : (y+1)*g.w]
		for i, j := 0, len(row)-1; i < j; i, j = i+1, j-1 {
			row[i], row[j] = row[j], row[i]
		}
	}
}

// FlipVertical mirrors the grid about its horizontal axis.
func (g *Grid) FlipVertical() {
	for y1, y2 := 0, g.h-1; y1 < y2; y1, y2 = y1+1, y2-1 {
		r1 := g.cells[y1*g.w : (y1+1)*g.w]
		r2 := g.cells[y2*g.w : (y2+1)*g.w]
		for i := range r1 {
			r1[i], r2[i] = r2[i], r1[i]
		}
	}
}

// RotateClockwise rotates the grid a quarter turn clockwise.
func (g *Grid) RotateClockwise() {
	ng := NewGrid(g.h, g.w)
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			*ng.at(g.h-y-1, x) = g.cells[y*g.w+x]
		}
	}
	*g = ng
}

// RotateCounterClockwise rotates the grid a quarter turn counterclockwise.
func (g *Grid) RotateCounterClockwise() {
	ng := NewGrid(g.h, g.w)
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			*ng.at(y, g.w-x-1) = g.cells[y*g.w+x]
		}
	}
	*g = ng
}

var dirs4 = [4]image.Point{{0, -1}, {0, 1}, {-1, 0}, {1, 0}}

// ConnectedComponent moves the logically connected group of elements under
// origin into a new grid and returns it together with its offset within g.
// Wires group with wires, signals with the devices they feed, and
// communicators with same-kind neighbours. Returns an empty grid when
// origin is empty or out of range.
func (g *Grid) ConnectedComponent(origin image.Point) (Grid, image.Point) {
	if !g.Contains(origin.X, origin.Y) || g.at(origin.X, origin.Y).IsEmpty() {
		return Grid{}, image.Point{}
	}
	visited := make([]bool, len(g.cells))
	stack := []image.Point{origin}
	visited[origin.Y*g.w+origin.X] = true
	minPt, maxPt := origin, origin
	var member []image.Point
	for len(stack) > 0 {
		pt := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		member = append(member, pt)
		minPt = image.Pt(min(minPt.X, pt.X), min(minPt.Y, pt.Y))
		maxPt = image.Pt(max(maxPt.X, pt.X), max(maxPt.Y, pt.Y))
		from := g.at(pt.X, pt.Y).Kind
		for _, d := range dirs4 {
			nx, ny := pt.X+d.X, pt.Y+d.Y
			if !g.Contains(nx, ny) || visited[ny*g.w+nx] {
				continue
			}
			if !groupsWith(from, g.at(nx, ny).Kind) {
				continue
			}
			visited[ny*g.w+nx] = true
			stack = append(stack, image.Pt(nx, ny))
		}
	}
	out := NewGrid(maxPt.X-minPt.X+1, maxPt.Y-minPt.Y+1)
	for _, pt := range member {
		*out.at(pt.X-minPt.X, pt.Y-minPt.Y) = *g.at(pt.X, pt.Y)
		*g.at(pt.X, pt.Y) = Element{}
	}
	// The caller decides when to Normalize, so the returned offset stays
	// valid against g's current coordinates.
	return out, minPt
}

// groupsWith defines selection connectivity between adjacent cells.
func groupsWith(a, b Kind) bool {
	switch {
	case a.IsWire() && b.IsWire():
		return true
	case a == Signal && (b.IsGate() || b.IsRelay()):
		return true
	case b == Signal && (a.IsGate() || a.IsRelay()):
		return true
	case a.IsCommunicator() && a == b:
		return true
	}
	return false
}
