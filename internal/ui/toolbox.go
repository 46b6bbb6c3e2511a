package ui

import (
	"image"

	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"

	"github.com/btzy/circuit-playground/pkg/circuit"
)

var utilityTools = []struct {
	Tool Tool
	Name string
}{
	{ToolInteract, "Interact"},
	{ToolSelect, "Select"},
	{ToolEraser, "Eraser"},
}

// layoutToolbox renders the tool and element palette down the left edge.
func (a *App) layoutToolbox(gtx layout.Context, snap *StateSnapshot) layout.Dimensions {
	count := len(utilityTools) + 1 + len(placeableKinds)
	return material.List(a.gvTheme.Theme, &a.toolList).Layout(gtx, count, func(gtx layout.Context, i int) layout.Dimensions {
		switch {
		case i < len(utilityTools):
			entry := utilityTools[i]
			click := &a.toolClicks[i]
			for click.Clicked(gtx) {
				a.State.SetTool(entry.Tool)
				a.invalidate()
			}
			selected := snap.Tool == entry.Tool
			return a.layoutToolEntry(gtx, click, entry.Name, circuit.Empty, selected)
		case i == len(utilityTools):
			return layout.Inset{Top: unit.Dp(6), Bottom: unit.Dp(6)}.Layout(gtx,
				material.Caption(a.gvTheme.Theme, "Elements").Layout)
		default:
			kind := placeableKinds[i-len(utilityTools)-1]
			click := &a.kindClicks[i-len(utilityTools)-1]
			for click.Clicked(gtx) {
				a.State.SetKind(kind)
				a.invalidate()
			}
			selected := snap.Tool == ToolPencil && snap.Kind == kind
			return a.layoutToolEntry(gtx, click, kind.String(), kind, selected)
		}
	})
}

func (a *App) layoutToolEntry(gtx layout.Context, click *widget.Clickable, name string, kind circuit.Kind, selected bool) layout.Dimensions {
	height := gtx.Dp(unit.Dp(32))
	width := gtx.Constraints.Max.X
	if width <= 0 {
		width = gtx.Dp(unit.Dp(160))
	}
	size := image.Pt(width, height)

	return layout.Inset{Bottom: unit.Dp(4)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return click.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
			gtx.Constraints.Min = size
			gtx.Constraints.Max = size
			bg := a.gvTheme.Bg2
			fg := a.gvTheme.Palette.Fg
			if click.Hovered() {
				bg = a.gvTheme.Palette.Bg
			}
			if selected {
				bg = a.gvTheme.Palette.ContrastBg
				fg = a.gvTheme.Palette.ContrastFg
			}
			card := clip.RRect{
				Rect: image.Rectangle{Max: size},
				NW:   gtx.Dp(unit.Dp(4)),
				NE:   gtx.Dp(unit.Dp(4)),
				SW:   gtx.Dp(unit.Dp(4)),
				SE:   gtx.Dp(unit.Dp(4)),
			}
			paint.FillShape(gtx.Ops, bg, card.Op(gtx.Ops))
			return layout.Inset{Left: unit.Dp(8), Right: unit.Dp(8)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
				return layout.Flex{Axis: layout.Horizontal, Alignment: layout.Middle}.Layout(gtx,
					layout.Rigid(func(gtx layout.Context) layout.Dimensions {
						swatch := gtx.Dp(unit.Dp(14))
						sz := image.Pt(swatch, swatch)
						if kind != circuit.Empty {
							paint.FillShape(gtx.Ops, kind.BaseColor(), clip.Rect{Max: sz}.Op())
						}
						return layout.Dimensions{Size: sz}
					}),
					layout.Rigid(layout.Spacer{Width: unit.Dp(8)}.Layout),
					layout.Rigid(func(gtx layout.Context) layout.Dimensions {
						lbl := material.Body2(a.gvTheme.Theme, name)
						lbl.Color = fg
						return lbl.Layout(gtx)
					}),
				)
			})
		})
	})
}
