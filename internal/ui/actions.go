package ui

import (
	"fmt"
	"image"
	"time"

	"gioui.org/layout"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
	"github.com/oligo/gioview/menu"
	"github.com/oligo/gioview/theme"

	"github.com/btzy/circuit-playground/pkg/circuit"
	"github.com/btzy/circuit-playground/pkg/clipboard"
	"github.com/btzy/circuit-playground/pkg/state"
)

const (
	minTickPeriod = 100 * time.Microsecond
	maxTickPeriod = time.Second
)

func (a *App) toggleRun() {
	status := ""
	a.State.Edit(func(m *state.Manager) {
		a.commitFloat(m)
		if m.Simulator().Running() {
			m.StopSimulator()
			status = "Paused"
		} else if !m.Grid().Empty() {
			m.StartSimulator()
			status = "Running"
		}
	})
	if status != "" {
		a.State.SetStatus(status)
	}
	a.invalidate()
}

func (a *App) step() {
	stepped := false
	a.State.Edit(func(m *state.Manager) {
		a.commitFloat(m)
		if !m.Grid().Empty() {
			m.StepSimulator()
			stepped = true
		}
	})
	if stepped {
		a.State.SetStatus("Stepped")
	}
	a.invalidate()
}

func (a *App) reset() {
	a.State.Edit(func(m *state.Manager) {
		a.commitFloat(m)
		m.ResetSimulator()
	})
	a.State.SetStatus("Reset to default levels")
	a.invalidate()
}

func (a *App) scalePeriod(factor float64) {
	a.State.Edit(func(m *state.Manager) {
		sim := m.Simulator()
		d := time.Duration(float64(sim.Period()) * factor)
		if d < minTickPeriod {
			d = minTickPeriod
		}
		if d > maxTickPeriod {
			d = maxTickPeriod
		}
		sim.SetPeriod(d)
	})
	a.invalidate()
}

func (a *App) undo() {
	did := false
	a.State.Edit(func(m *state.Manager) {
		a.discardFloatInto(m)
		did = m.Undo()
	})
	if did {
		a.State.SetStatus("Undid edit")
	}
	a.invalidate()
}

func (a *App) redo() {
	did := false
	a.State.Edit(func(m *state.Manager) {
		a.discardFloatInto(m)
		did = m.Redo()
	})
	if did {
		a.State.SetStatus("Redid edit")
	}
	a.invalidate()
}

// commitFloat welds the floating selection back into the circuit at its
// current position. No-op when nothing is floating.
func (a *App) commitFloat(m *state.Manager) {
	if a.floatSel.Empty() {
		return
	}
	m.MergeSelection(&a.floatSel, a.floatPos)
	a.floatSel = circuit.Grid{}
	a.selecting = false
	a.movingSel = false
}

// discardFloatInto commits the floating selection so history operations see
// a settled grid. Undo after a move therefore reverts the move as one step.
func (a *App) discardFloatInto(m *state.Manager) {
	a.commitFloat(m)
	m.SaveToHistory()
}

func (a *App) copyToSlot(index int) {
	copied := false
	a.State.Clipboard(func(m *state.Manager, c *clipboard.Manager) {
		src := a.floatSel
		if src.Empty() {
			src = m.Grid().Clone()
		}
		if src.Empty() {
			return
		}
		c.Write(&src, index)
		copied = true
	})
	if !copied {
		a.State.SetStatus("Nothing to copy")
		return
	}
	a.State.SetStatus(fmt.Sprintf("Copied to slot %d", index))
	a.Logf("[CLIP] Copied selection to slot %d", index)
	a.invalidate()
}

func (a *App) pasteFromSlot(index int) {
	pasted := false
	a.State.Clipboard(func(m *state.Manager, c *clipboard.Manager) {
		g := c.Read(index)
		if g.Empty() {
			return
		}
		a.commitFloat(m)
		a.floatSel = g
		a.floatPos = a.viewCenterCell(g)
		pasted = true
	})
	if pasted {
		a.State.SetStatus(fmt.Sprintf("Pasted slot %d, click to place", index))
	} else {
		a.State.SetStatus(fmt.Sprintf("Slot %d is empty", index))
	}
	a.invalidate()
}

func (a *App) copyToSystem() {
	var err error
	copied := false
	a.State.Clipboard(func(m *state.Manager, c *clipboard.Manager) {
		src := a.floatSel
		if src.Empty() {
			src = m.Grid().Clone()
		}
		if src.Empty() {
			return
		}
		err = clipboard.CopyToSystem(&src)
		copied = err == nil
	})
	if err != nil {
		a.Logf("[ERROR] System clipboard copy failed: %v", err)
		return
	}
	if !copied {
		a.State.SetStatus("Nothing to copy")
		return
	}
	a.State.SetStatus("Copied to system clipboard")
	a.invalidate()
}

func (a *App) pasteFromSystem() {
	g, err := clipboard.PasteFromSystem()
	if err != nil {
		a.Logf("[ERROR] System clipboard paste failed: %v", err)
		return
	}
	if g.Empty() {
		a.State.SetStatus("System clipboard has no circuit")
		return
	}
	a.State.Edit(func(m *state.Manager) {
		a.commitFloat(m)
		a.floatSel = g
		a.floatPos = a.viewCenterCell(g)
	})
	a.State.SetStatus("Pasted from system clipboard, click to place")
	a.invalidate()
}

// buildSlotMenu assembles a dropdown listing the ten clipboard slots plus a
// system clipboard entry. onSlot receives the chosen slot index.
func (a *App) buildSlotMenu(verb string, onSlot func(int), onSystem func()) *menu.DropdownMenu {
	order := a.State.ClipboardOrder()
	opts := make([]menu.MenuOption, 0, len(order))
	for _, i := range order {
		idx := i
		opts = append(opts, menu.MenuOption{
			OnClicked: func() error {
				onSlot(idx)
				return nil
			},
			Layout: func(gtx menu.C, th *theme.Theme) menu.D {
				return layout.Flex{Axis: layout.Horizontal, Alignment: layout.Middle}.Layout(gtx,
					layout.Rigid(func(gtx layout.Context) layout.Dimensions {
						size := gtx.Dp(unit.Dp(24))
						gtx.Constraints.Min = image.Pt(size, size)
						gtx.Constraints.Max = gtx.Constraints.Min
						prev := a.State.ClipboardPreview(idx)
						if prev == nil {
							return layout.Dimensions{Size: gtx.Constraints.Min}
						}
						img := widget.Image{Src: paint.NewImageOp(prev), Fit: widget.Contain}
						return img.Layout(gtx)
					}),
					layout.Rigid(layout.Spacer{Width: unit.Dp(8)}.Layout),
					layout.Rigid(func(gtx layout.Context) layout.Dimensions {
						lbl := material.Body2(th.Theme, fmt.Sprintf("%s slot %d", verb, idx))
						return lbl.Layout(gtx)
					}),
				)
			},
		})
	}
	system := []menu.MenuOption{{
		OnClicked: func() error {
			onSystem()
			return nil
		},
		Layout: func(gtx menu.C, th *theme.Theme) menu.D {
			lbl := material.Body2(th.Theme, verb+" system clipboard")
			return layout.Inset{Left: unit.Dp(4), Right: unit.Dp(4)}.Layout(gtx, lbl.Layout)
		},
	}}
	drop := menu.NewDropdownMenu([][]menu.MenuOption{opts, system})
	drop.MaxWidth = unit.Dp(240)
	return drop
}
