package circuit

import (
	"bytes"
	"image"
	"testing"
)

func TestSetGrowsAndTranslates(t *testing.T) {
	var g Grid
	changed, delta := g.Set(0, 0, New(ConductiveWire))
	if !changed {
		t.Fatal("first Set reported no change")
	}
	if delta != image.Pt(0, 0) {
		t.Fatalf("delta = %v, want (0,0)", delta)
	}
	if g.Width() != 1 || g.Height() != 1 {
		t.Fatalf("size = %dx%d, want 1x1", g.Width(), g.Height())
	}

	// Placing above and to the left must shift existing content.
	_, delta = g.Set(-2, -1, New(Signal))
	if delta != image.Pt(2, 1) {
		t.Fatalf("delta = %v, want (2,1)", delta)
	}
	if g.Width() != 3 || g.Height() != 2 {
		t.Fatalf("size = %dx%d, want 3x2", g.Width(), g.Height())
	}
	if got := g.Get(2, 1).Kind; got != ConductiveWire {
		t.Fatalf("translated cell = %v, want ConductiveWire", got)
	}
	if got := g.Get(0, 0).Kind; got != Signal {
		t.Fatalf("new cell = %v, want Signal", got)
	}
}

func TestSetEmptyShrinks(t *testing.T) {
	var g Grid
	g.Set(0, 0, New(ConductiveWire))
	g.Set(4, 0, New(ConductiveWire))
	if g.Width() != 5 {
		t.Fatalf("width = %d, want 5", g.Width())
	}

	changed, delta := g.Set(4, 0, Element{})
	if !changed {
		t.Fatal("erase reported no change")
	}
	if g.Width() != 1 || g.Height() != 1 {
		t.Fatalf("size = %dx%d, want 1x1", g.Width(), g.Height())
	}
	if delta != image.Pt(0, 0) {
		t.Fatalf("delta = %v, want (0,0)", delta)
	}

	// Erasing the last element collapses the grid entirely.
	g.Set(0, 0, Element{})
	if !g.Empty() {
		t.Fatal("grid not empty after erasing everything")
	}

	// Erasing empty space is a no-op.
	if changed, _ := g.Set(3, 7, Element{}); changed {
		t.Fatal("erasing empty space reported a change")
	}
}

func TestShrinkTranslation(t *testing.T) {
	var g Grid
	g.Set(0, 0, New(ConductiveWire))
	g.Set(3, 2, New(Source))
	_, delta := g.Set(0, 0, Element{})
	// The surviving cell was at (3,2); it must now sit at the origin.
	if delta != image.Pt(-3, -2) {
		t.Fatalf("delta = %v, want (-3,-2)", delta)
	}
	if got := g.Get(0, 0).Kind; got != Source {
		t.Fatalf("cell at origin = %v, want Source", got)
	}
}

func TestGetOutOfRange(t *testing.T) {
	var g Grid
	g.Set(0, 0, New(ConductiveWire))
	for _, pt := range []image.Point{{-1, 0}, {0, -1}, {1, 0}, {0, 1}, {100, 100}} {
		if e := g.Get(pt.X, pt.Y); !e.IsEmpty() {
			t.Fatalf("Get(%v) = %v, want Empty", pt, e.Kind)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	var g Grid
	g.Set(0, 0, New(AndGate))
	c := g.Clone()
	g.Set(0, 0, New(OrGate))
	if got := c.Get(0, 0).Kind; got != AndGate {
		t.Fatalf("clone cell = %v, want AndGate", got)
	}
}

func TestEqualAndHash(t *testing.T) {
	var a, b Grid
	a.Set(0, 0, New(NandGate))
	a.Set(1, 0, New(Signal))
	b.Set(0, 0, New(NandGate))
	b.Set(1, 0, New(Signal))
	if !a.Equal(&b) {
		t.Fatal("identical grids not Equal")
	}
	if a.Hash() != b.Hash() {
		t.Fatal("identical grids hash differently")
	}
	b.Set(1, 0, New(Source))
	if a.Equal(&b) {
		t.Fatal("different grids reported Equal")
	}

	// Levels are part of the state.
	var c, d Grid
	c.Set(0, 0, Element{Kind: ConductiveWire, Level: true})
	d.Set(0, 0, Element{Kind: ConductiveWire})
	if c.Equal(&d) {
		t.Fatal("grids differing only in level reported Equal")
	}
}

func TestSpliceAndMerge(t *testing.T) {
	var g Grid
	for x := 0; x < 4; x++ {
		g.Set(x, 0, New(ConductiveWire))
	}
	cut, spliceDelta := g.Splice(image.Rect(1, 0, 3, 1))
	if spliceDelta != image.Pt(0, 0) {
		t.Fatalf("splice delta = %v, want (0,0)", spliceDelta)
	}
	if cut.Width() != 2 || cut.Height() != 1 {
		t.Fatalf("cut size = %dx%d, want 2x1", cut.Width(), cut.Height())
	}
	// The remainder keeps its bounding box: cells at x=0 and x=3 survive.
	if g.Width() != 4 {
		t.Fatalf("remainder width = %d, want 4", g.Width())
	}
	if !g.Get(1, 0).IsEmpty() || !g.Get(2, 0).IsEmpty() {
		t.Fatal("spliced cells not cleared")
	}

	merged, delta := Merge(g, cut, image.Pt(1, 0))
	if delta != image.Pt(0, 0) {
		t.Fatalf("merge delta = %v, want (0,0)", delta)
	}
	for x := 0; x < 4; x++ {
		if got := merged.Get(x, 0).Kind; got != ConductiveWire {
			t.Fatalf("merged cell %d = %v, want ConductiveWire", x, got)
		}
	}
}

func TestMergeNegativeOffset(t *testing.T) {
	var dst, src Grid
	dst.Set(0, 0, New(ConductiveWire))
	src.Set(0, 0, New(Source))
	merged, delta := Merge(dst, src, image.Pt(-2, -2))
	if delta != image.Pt(2, 2) {
		t.Fatalf("delta = %v, want (2,2)", delta)
	}
	if got := merged.Get(0, 0).Kind; got != Source {
		t.Fatalf("cell (0,0) = %v, want Source", got)
	}
	if got := merged.Get(2, 2).Kind; got != ConductiveWire {
		t.Fatalf("cell (2,2) = %v, want ConductiveWire", got)
	}
}

func TestRotateAndFlip(t *testing.T) {
	var g Grid
	g.Set(0, 0, New(AndGate))
	g.Set(1, 0, New(OrGate))
	g.Set(0, 1, New(Signal))

	cw := g.Clone()
	cw.RotateClockwise()
	if cw.Width() != 2 || cw.Height() != 2 {
		t.Fatalf("rotated size = %dx%d, want 2x2", cw.Width(), cw.Height())
	}
	if got := cw.Get(1, 0).Kind; got != AndGate {
		t.Fatalf("cw (1,0) = %v, want AndGate", got)
	}
	if got := cw.Get(1, 1).Kind; got != OrGate {
		t.Fatalf("cw (1,1) = %v, want OrGate", got)
	}
	if got := cw.Get(0, 0).Kind; got != Signal {
		t.Fatalf("cw (0,0) = %v, want Signal", got)
	}

	// A clockwise then counterclockwise turn round-trips.
	ccw := cw.Clone()
	ccw.RotateCounterClockwise()
	if !ccw.Equal(&g) {
		t.Fatal("rotate round-trip lost cells")
	}

	fh := g.Clone()
	fh.FlipHorizontal()
	if got := fh.Get(0, 0).Kind; got != OrGate {
		t.Fatalf("flipped (0,0) = %v, want OrGate", got)
	}
	fh.FlipHorizontal()
	if !fh.Equal(&g) {
		t.Fatal("horizontal flip is not an involution")
	}

	fv := g.Clone()
	fv.FlipVertical()
	if got := fv.Get(0, 1).Kind; got != AndGate {
		t.Fatalf("flipped (0,1) = %v, want AndGate", got)
	}
	fv.FlipVertical()
	if !fv.Equal(&g) {
		t.Fatal("vertical flip is not an involution")
	}
}

func TestConnectedComponent(t *testing.T) {
	var g Grid
	// Two disjoint wire runs with a gap between them.
	for x := 0; x < 3; x++ {
		g.Set(x, 0, New(ConductiveWire))
	}
	for x := 5; x < 7; x++ {
		g.Set(x, 0, New(ConductiveWire))
	}
	comp, off := g.ConnectedComponent(image.Pt(1, 0))
	if comp.Width() != 3 || comp.Height() != 1 {
		t.Fatalf("component size = %dx%d, want 3x1", comp.Width(), comp.Height())
	}
	if off != image.Pt(0, 0) {
		t.Fatalf("offset = %v, want (0,0)", off)
	}
	// The other run stays behind; normalization is the caller's call.
	g.Normalize()
	if g.Width() != 2 {
		t.Fatalf("remainder width = %d, want 2", g.Width())
	}

	// Picking an empty cell yields nothing.
	if comp, _ := g.ConnectedComponent(image.Pt(50, 50)); !comp.Empty() {
		t.Fatal("component from empty cell not empty")
	}
}

func TestConnectedComponentSignalGroupsWithGate(t *testing.T) {
	var g Grid
	g.Set(0, 0, New(Signal))
	g.Set(1, 0, New(AndGate))
	g.Set(2, 0, New(ConductiveWire)) // wires do not group with gates
	comp, _ := g.ConnectedComponent(image.Pt(0, 0))
	if comp.Width() != 2 {
		t.Fatalf("component width = %d, want 2", comp.Width())
	}
	if g.Empty() {
		t.Fatal("wire should have been left behind")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var g Grid
	g.Set(0, 0, New(Source))
	g.Set(1, 0, Element{Kind: ConductiveWire, Level: true})
	g.Set(2, 0, New(NandGate))
	g.Set(2, 1, New(ScreenComm))

	var buf bytes.Buffer
	if err := g.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !got.Equal(&g) {
		t.Fatal("round-tripped grid differs")
	}
}

func TestEncodeByteLayout(t *testing.T) {
	var g Grid
	g.Set(0, 0, New(Source))
	var buf bytes.Buffer
	if err := g.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	b := buf.Bytes()
	if string(b[:4]) != "CCPG" {
		t.Fatalf("magic = %q, want CCPG", b[:4])
	}
	want := []byte{
		0, 0, 0, 0, // version
		1, 0, 0, 0, // width
		1, 0, 0, 0, // height
		byte(Source)<<2 | 0b11, // level and default both high
	}
	if !bytes.Equal(b[4:], want) {
		t.Fatalf("body = %v, want %v", b[4:], want)
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode(bytes.NewReader([]byte("XXXX\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00"))); err != ErrBadMagic {
		t.Fatalf("bad magic: err = %v, want ErrBadMagic", err)
	}
	if _, err := Decode(bytes.NewReader([]byte("CC"))); err == nil {
		t.Fatal("truncated header: err = nil")
	}
}

func TestDecodeNormalizes(t *testing.T) {
	// A 3x1 save with only the middle cell occupied decodes to 1x1.
	body := []byte("CCPG")
	body = append(body, 0, 0, 0, 0, 3, 0, 0, 0, 1, 0, 0, 0)
	body = append(body, 0, byte(ConductiveWire)<<2, 0)
	g, err := Decode(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if g.Width() != 1 || g.Height() != 1 {
		t.Fatalf("size = %dx%d, want 1x1", g.Width(), g.Height())
	}
}

func TestFillPixels(t *testing.T) {
	var g Grid
	g.Set(0, 0, Element{Kind: ConductiveWire, Level: true})
	buf := make([]uint32, 4)
	g.FillPixels(buf, 2, image.Rect(0, 0, 2, 2), false)
	c := Element{Kind: ConductiveWire, Level: true}.DisplayColor(false)
	want := uint32(c.R) | uint32(c.G)<<8 | uint32(c.B)<<16
	if buf[0] != want {
		t.Fatalf("pixel(0,0) = %#x, want %#x", buf[0], want)
	}
	for i, px := range buf[1:] {
		if px != 0 {
			t.Fatalf("pixel %d = %#x, want 0", i+1, px)
		}
	}
}
