package ui

import (
	"image"
	"image/color"

	"gioui.org/f32"
	"gioui.org/io/event"
	"gioui.org/io/key"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget/material"

	"github.com/btzy/circuit-playground/pkg/circuit"
	"github.com/btzy/circuit-playground/pkg/sim"
	"github.com/btzy/circuit-playground/pkg/state"
)

const (
	baseCellDp = unit.Dp(12)
	minZoom    = 0.25
	maxZoom    = 16
)

func (a *App) cellSize(gtx layout.Context) float32 {
	return float32(gtx.Dp(baseCellDp)) * a.zoom
}

// viewCenterCell picks a placement cell so that g lands roughly in the
// middle of the window. The viewport size is not known here, so the camera
// origin plus a fixed offset serves well enough.
func (a *App) viewCenterCell(g circuit.Grid) image.Point {
	cx := int(-a.pan.X/(16*a.zoom)) + 10 - g.Width()/2
	cy := int(-a.pan.Y/(16*a.zoom)) + 10 - g.Height()/2
	return image.Pt(cx, cy)
}

// layoutViewport renders the circuit and routes editing input. The grid is
// drawn one pixel per cell and scaled up with nearest-neighbour filtering,
// the same trick the clipboard previews use.
func (a *App) layoutViewport(gtx layout.Context, snap *StateSnapshot) layout.Dimensions {
	maxSize := gtx.Constraints.Max
	cell := a.cellSize(gtx)

	// Edits can shift the grid origin (drawing above or left of it grows
	// the bounding rectangle). Re-anchor the camera and any in-flight
	// selection so nothing jumps on screen.
	if d := a.State.TakeViewDelta(); d != (image.Point{}) {
		a.pan.X -= float32(d.X) * cell
		a.pan.Y -= float32(d.Y) * cell
		a.floatPos = a.floatPos.Add(d)
		a.selStart = a.selStart.Add(d)
		a.selEnd = a.selEnd.Add(d)
	}

	a.handleKeys(gtx)
	a.handlePointer(gtx, cell)

	return layout.Stack{}.Layout(gtx,
		layout.Stacked(func(gtx layout.Context) layout.Dimensions {
			clipArea := clip.Rect{Max: maxSize}.Push(gtx.Ops)
			defer clipArea.Pop()

			trans := op.Affine(f32.Affine2D{}.
				Scale(f32.Point{}, f32.Pt(cell, cell)).
				Offset(a.pan)).Push(gtx.Ops)

			if img := a.State.Frame(); img != nil {
				imgOp := paint.NewImageOp(img)
				imgOp.Filter = paint.FilterNearest
				imgOp.Add(gtx.Ops)
				paint.PaintOp{}.Add(gtx.Ops)
			}
			if !a.floatSel.Empty() {
				a.drawFloatSelection(gtx)
			}
			if a.selecting {
				r := marqueeRect(a.selStart, a.selEnd)
				paint.FillShape(gtx.Ops, color.NRGBA{R: 120, G: 150, B: 255, A: 60},
					clip.Rect{Min: r.Min, Max: r.Max}.Op())
			}
			trans.Pop()
			return layout.Dimensions{}
		}),
		layout.Stacked(func(gtx layout.Context) layout.Dimensions {
			area := clip.Rect{Max: maxSize}.Push(gtx.Ops)
			event.Op(gtx.Ops, a)
			area.Pop()
			return layout.Dimensions{Size: maxSize}
		}),
		layout.Stacked(func(gtx layout.Context) layout.Dimensions {
			return layout.Inset{Top: 8, Left: 8}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
				hint := snap.Kind.String()
				switch snap.Tool {
				case ToolInteract:
					hint = "Interact"
				case ToolSelect:
					hint = "Select"
				case ToolEraser:
					hint = "Eraser"
				}
				label := material.Caption(a.gvTheme.Theme, hint+" | Space runs, T steps, R resets")
				label.Color = a.gvTheme.Palette.Fg
				label.Color.A = 128
				return label.Layout(gtx)
			})
		}),
	)
}

// drawFloatSelection paints the uncommitted cutout over the grid with a
// thin accent border. Drawn inside the viewport transform, so coordinates
// are in cells.
func (a *App) drawFloatSelection(gtx layout.Context) {
	img := a.floatSel.Image(true)
	off := op.Affine(f32.Affine2D{}.Offset(f32.Pt(float32(a.floatPos.X), float32(a.floatPos.Y)))).Push(gtx.Ops)
	imgOp := paint.NewImageOp(img)
	imgOp.Filter = paint.FilterNearest
	imgOp.Add(gtx.Ops)
	paint.PaintOp{}.Add(gtx.Ops)

	border := image.Rect(0, 0, a.floatSel.Width(), a.floatSel.Height())
	paint.FillShape(gtx.Ops, color.NRGBA{R: 120, G: 150, B: 255, A: 90},
		clip.Rect{Min: border.Min, Max: border.Max}.Op())
	off.Pop()
}

func (a *App) handleKeys(gtx layout.Context) {
	for {
		ev, ok := gtx.Event(key.Filter{})
		if !ok {
			break
		}
		ke, ok := ev.(key.Event)
		if !ok {
			continue
		}

		// Digit keys poke screen communicators by compiled index for as
		// long as they are held.
		if len(ke.Name) == 1 && ke.Name[0] >= '0' && ke.Name[0] <= '9' {
			idx := int32(ke.Name[0] - '0')
			a.State.Edit(func(m *state.Manager) {
				m.Simulator().SendCommunicatorEvent(idx, ke.State == key.Press)
			})
			continue
		}
		if ke.State != key.Press {
			continue
		}

		// With a selection floating, R and F transform it in place.
		if !a.floatSel.Empty() {
			switch ke.Name {
			case "R":
				if ke.Modifiers.Contain(key.ModShift) {
					a.floatSel.RotateCounterClockwise()
				} else {
					a.floatSel.RotateClockwise()
				}
				a.invalidate()
				continue
			case "F":
				if ke.Modifiers.Contain(key.ModShift) {
					a.floatSel.FlipVertical()
				} else {
					a.floatSel.FlipHorizontal()
				}
				a.invalidate()
				continue
			}
		}
		switch ke.Name {
		case key.NameSpace:
			a.toggleRun()
		case "T":
			a.step()
		case "R":
			a.reset()
		case "Z":
			a.undo()
		case "Y":
			a.redo()
		case key.NameEscape:
			a.State.Edit(func(m *state.Manager) {
				a.commitFloat(m)
				m.SaveToHistory()
			})
			a.invalidate()
		case key.NameDeleteBackward, key.NameDeleteForward:
			if !a.floatSel.Empty() {
				a.floatSel = circuit.Grid{}
				a.State.Edit(func(m *state.Manager) { m.SaveToHistory() })
				a.State.SetStatus("Deleted selection")
				a.invalidate()
			}
		}
	}
}

func (a *App) handlePointer(gtx layout.Context, cell float32) {
	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target:  a,
			Kinds:   pointer.Press | pointer.Drag | pointer.Release | pointer.Scroll,
			ScrollY: pointer.ScrollRange{Min: -120, Max: 120},
		})
		if !ok {
			break
		}
		pe, ok := ev.(pointer.Event)
		if !ok {
			continue
		}

		switch pe.Kind {
		case pointer.Scroll:
			if pe.Scroll.Y != 0 {
				a.zoomAt(pe.Position, cell, pe.Scroll.Y)
				cell = a.cellSize(gtx)
				gtx.Execute(op.InvalidateCmd{})
			}
		case pointer.Press:
			if pe.Buttons == pointer.ButtonSecondary {
				a.panning = true
				a.panLast = pe.Position
			} else if pe.Buttons == pointer.ButtonPrimary {
				a.primaryPress(a.cellAt(pe.Position, cell))
			}
			gtx.Execute(op.InvalidateCmd{})
		case pointer.Drag:
			if a.panning {
				a.pan.X += pe.Position.X - a.panLast.X
				a.pan.Y += pe.Position.Y - a.panLast.Y
				a.panLast = pe.Position
			} else {
				a.primaryDrag(a.cellAt(pe.Position, cell))
			}
			gtx.Execute(op.InvalidateCmd{})
		case pointer.Release, pointer.Cancel:
			a.primaryRelease()
			a.panning = false
			gtx.Execute(op.InvalidateCmd{})
		}
	}
}

// zoomAt scales around the cursor so the cell under it stays put.
func (a *App) zoomAt(pos f32.Point, cell float32, scrollY float32) {
	factor := float32(1.25)
	if scrollY > 0 {
		factor = 1 / factor
	}
	newZoom := a.zoom * factor
	if newZoom < minZoom {
		newZoom = minZoom
	}
	if newZoom > maxZoom {
		newZoom = maxZoom
	}
	if newZoom == a.zoom {
		return
	}
	worldX := (pos.X - a.pan.X) / cell
	worldY := (pos.Y - a.pan.Y) / cell
	newCell := cell / a.zoom * newZoom
	a.zoom = newZoom
	a.pan.X = pos.X - worldX*newCell
	a.pan.Y = pos.Y - worldY*newCell
}

// cellAt back-transforms a window position into grid cell coordinates.
func (a *App) cellAt(pos f32.Point, cell float32) image.Point {
	x := int(floorDiv(pos.X-a.pan.X, cell))
	y := int(floorDiv(pos.Y-a.pan.Y, cell))
	return image.Pt(x, y)
}

func floorDiv(v, d float32) float32 {
	q := v / d
	f := float32(int(q))
	if q < 0 && q != f {
		f--
	}
	return f
}

func (a *App) primaryPress(c image.Point) {
	snap := a.State.Snapshot()
	a.lastCell = c
	switch snap.Tool {
	case ToolPencil:
		a.painting = true
		a.State.Edit(func(m *state.Manager) {
			a.commitFloat(m)
			m.PlaceElement(c.X, c.Y, snap.Kind)
		})
	case ToolEraser:
		a.painting = true
		a.State.Edit(func(m *state.Manager) {
			a.commitFloat(m)
			m.EraseElement(c.X, c.Y)
		})
	case ToolSelect:
		if !a.floatSel.Empty() && c.In(image.Rectangle{
			Min: a.floatPos,
			Max: a.floatPos.Add(image.Pt(a.floatSel.Width(), a.floatSel.Height())),
		}) {
			a.movingSel = true
			a.grabOff = c.Sub(a.floatPos)
			return
		}
		a.State.Edit(func(m *state.Manager) {
			a.commitFloat(m)
		})
		a.selecting = true
		a.selStart = c
		a.selEnd = c
	case ToolInteract:
		var bindKind circuit.Kind
		var bindHandle int32
		var reg *sim.Registry
		a.State.Edit(func(m *state.Manager) {
			switch e := m.Grid().Get(c.X, c.Y); e.Kind {
			case circuit.FileInputComm, circuit.FileOutputComm:
				bindKind, bindHandle = e.Kind, e.Comm
				reg = m.Registry()
			default:
				if idx := m.Simulator().CommunicatorAt(c); idx >= 0 {
					a.pressedComm = idx
					m.Simulator().SendCommunicatorEvent(idx, true)
				}
			}
		})
		if bindKind != circuit.Empty {
			a.bindCommFile(reg, bindHandle)
		}
	}
}

func (a *App) primaryDrag(c image.Point) {
	if a.movingSel {
		a.floatPos = c.Sub(a.grabOff)
		return
	}
	if a.selecting {
		a.selEnd = c
		return
	}
	if !a.painting || c == a.lastCell {
		return
	}
	a.lastCell = c
	snap := a.State.Snapshot()
	a.State.Edit(func(m *state.Manager) {
		switch snap.Tool {
		case ToolPencil:
			m.PlaceElement(c.X, c.Y, snap.Kind)
		case ToolEraser:
			m.EraseElement(c.X, c.Y)
		}
	})
}

func (a *App) primaryRelease() {
	if a.pressedComm >= 0 {
		idx := a.pressedComm
		a.pressedComm = -1
		a.State.Edit(func(m *state.Manager) {
			m.Simulator().SendCommunicatorEvent(idx, false)
		})
	}
	if a.movingSel {
		a.movingSel = false
		return
	}
	if a.selecting {
		a.selecting = false
		a.liftSelection()
		return
	}
	if a.painting {
		a.painting = false
		a.State.Edit(func(m *state.Manager) {
			m.SaveToHistory()
		})
	}
}

// liftSelection cuts the marquee rectangle out of the grid into the
// floating selection. A plain click grabs the connected component under
// the cursor instead.
func (a *App) liftSelection() {
	r := marqueeRect(a.selStart, a.selEnd)
	click := a.selStart == a.selEnd
	lifted := false
	a.State.Edit(func(m *state.Manager) {
		if click {
			comp, off := m.GrabComponent(a.selStart)
			if comp.Empty() {
				return
			}
			a.floatSel = comp
			a.floatPos = off
			lifted = true
			return
		}
		r = r.Intersect(m.Grid().Bounds())
		if r.Empty() {
			return
		}
		cut := m.SpliceSelection(r)
		if cut.Empty() {
			return
		}
		a.floatSel = cut
		a.floatPos = r.Min
		lifted = true
	})
	if lifted {
		a.State.SetStatus("Selection lifted, drag to move; R rotates, F flips")
	}
}

func marqueeRect(a, b image.Point) image.Rectangle {
	return image.Rectangle{Min: a, Max: b.Add(image.Pt(1, 1))}.Canon()
}
