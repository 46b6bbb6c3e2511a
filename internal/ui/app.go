package ui

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"time"

	"gioui.org/app"
	"gioui.org/f32"
	"gioui.org/gesture"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/text"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
	"gioui.org/x/explorer"
	"github.com/oligo/gioview/menu"
	"github.com/oligo/gioview/theme"
	"golang.org/x/exp/shiny/materialdesign/icons"

	"github.com/btzy/circuit-playground/pkg/circuit"
	"github.com/btzy/circuit-playground/pkg/state"
)

// placeableKinds lists the element kinds offered in the toolbox, in the
// order they appear.
var placeableKinds = []circuit.Kind{
	circuit.ConductiveWire,
	circuit.InsulatedWire,
	circuit.Signal,
	circuit.Source,
	circuit.PositiveRelay,
	circuit.NegativeRelay,
	circuit.AndGate,
	circuit.OrGate,
	circuit.NandGate,
	circuit.NorGate,
	circuit.ScreenComm,
	circuit.FileInputComm,
	circuit.FileOutputComm,
}

// App drives the Gio circuit editor window.
type App struct {
	window *app.Window
	ops    op.Ops

	State   *AppState
	gvTheme *theme.Theme

	fileExplorer *explorer.Explorer

	openBtn   widget.Clickable
	saveBtn   widget.Clickable
	saveAsBtn widget.Clickable
	undoBtn   widget.Clickable
	redoBtn   widget.Clickable
	playBtn   widget.Clickable
	stepBtn   widget.Clickable
	resetBtn  widget.Clickable
	slowerBtn widget.Clickable
	fasterBtn widget.Clickable

	copyMenu     *menu.DropdownMenu
	copyMenuBtn  widget.Clickable
	pasteMenu    *menu.DropdownMenu
	pasteMenuBtn widget.Clickable

	openIcon  *widget.Icon
	saveIcon  *widget.Icon
	undoIcon  *widget.Icon
	redoIcon  *widget.Icon
	playIcon  *widget.Icon
	stopIcon  *widget.Icon
	stepIcon  *widget.Icon
	resetIcon *widget.Icon

	toolClicks [3]widget.Clickable
	kindClicks []widget.Clickable
	toolList   widget.List

	// Play area camera and input state.
	zoom     float32
	pan      f32.Point
	panning  bool
	panLast  f32.Point
	painting bool
	lastCell image.Point

	// Marquee selection and the floating cutout it produces.
	selecting bool
	selStart  image.Point
	selEnd    image.Point
	floatSel  circuit.Grid
	floatPos  image.Point
	movingSel bool
	grabOff   image.Point

	pressedComm int32

	logText       string
	logSelectable widget.Selectable
	logList       widget.List
	logPaneHeight float32
	logSplitter   gesture.Drag
	logSplitDrag  bool
	logSplitLastY float32
}

// New creates the editor app attached to an existing window.
func New(w *app.Window, st *AppState) *App {
	if w == nil {
		w = new(app.Window)
	}
	if st == nil {
		st = NewState()
	}

	gv := theme.NewTheme("", nil, true)
	a := &App{
		window:      w,
		State:       st,
		gvTheme:     gv,
		zoom:        1.0,
		pressedComm: -1,
		kindClicks:  make([]widget.Clickable, len(placeableKinds)),
	}
	a.applyPalette()

	a.fileExplorer = explorer.NewExplorer(w)

	if icon, err := widget.NewIcon(icons.FileFolderOpen); err == nil {
		a.openIcon = icon
	}
	if icon, err := widget.NewIcon(icons.ContentSave); err == nil {
		a.saveIcon = icon
	}
	if icon, err := widget.NewIcon(icons.ContentUndo); err == nil {
		a.undoIcon = icon
	}
	if icon, err := widget.NewIcon(icons.ContentRedo); err == nil {
		a.redoIcon = icon
	}
	if icon, err := widget.NewIcon(icons.AVPlayArrow); err == nil {
		a.playIcon = icon
	}
	if icon, err := widget.NewIcon(icons.AVStop); err == nil {
		a.stopIcon = icon
	}
	if icon, err := widget.NewIcon(icons.AVSkipNext); err == nil {
		a.stepIcon = icon
	}
	if icon, err := widget.NewIcon(icons.AVReplay); err == nil {
		a.resetIcon = icon
	}

	a.copyMenu = a.buildSlotMenu("Copy", a.copyToSlot, a.copyToSystem)
	a.pasteMenu = a.buildSlotMenu("Paste", a.pasteFromSlot, a.pasteFromSystem)

	a.toolList.Axis = layout.Vertical
	a.logSelectable.WrapPolicy = text.WrapGraphemes
	a.logList.Axis = layout.Vertical
	a.logList.ScrollToEnd = true

	a.Logf("[BOOT] Circuit editor initialized")
	a.Logf("[INFO] Left-drag draws, right-drag pans, scroll zooms")
	return a
}

// Run blocks processing window events until the window closes.
func (a *App) Run() error {
	for {
		e := a.window.Event()
		switch ev := e.(type) {
		case app.DestroyEvent:
			a.State.Edit(func(m *state.Manager) {
				if m.Simulator().Running() {
					m.StopSimulator()
				}
			})
			return ev.Err
		case app.FrameEvent:
			gtx := app.NewContext(&a.ops, ev)
			a.layout(gtx)
			ev.Frame(gtx.Ops)
		}
	}
}

func (a *App) layout(gtx layout.Context) layout.Dimensions {
	paint.FillShape(gtx.Ops, a.gvTheme.Palette.Bg, clip.Rect{Max: gtx.Constraints.Max}.Op())

	snap := a.State.Snapshot()
	if snap.Running {
		// Keep frames coming while the simulation animates.
		gtx.Execute(op.InvalidateCmd{})
	}

	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return a.layoutToolbar(gtx, &snap)
		}),
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			return layout.Flex{Axis: layout.Horizontal}.Layout(gtx,
				layout.Rigid(func(gtx layout.Context) layout.Dimensions {
					width := gtx.Dp(unit.Dp(190))
					gtx.Constraints.Min.X = width
					gtx.Constraints.Max.X = width
					paint.FillShape(gtx.Ops, a.gvTheme.Bg2, clip.Rect{Max: gtx.Constraints.Max}.Op())
					return layout.UniformInset(unit.Dp(8)).Layout(gtx, func(gtx layout.Context) layout.Dimensions {
						return a.layoutToolbox(gtx, &snap)
					})
				}),
				layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
					return a.layoutViewport(gtx, &snap)
				}),
			)
		}),
		layout.Rigid(a.layoutLogSplitter),
		layout.Rigid(a.layoutLogPane),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return a.layoutStatusBar(gtx, &snap)
		}),
	)
}

func (a *App) layoutToolbar(gtx layout.Context, snap *StateSnapshot) layout.Dimensions {
	if a.openBtn.Clicked(gtx) {
		a.openFilePicker()
	}
	if a.saveBtn.Clicked(gtx) {
		a.saveCircuit(false)
	}
	if a.saveAsBtn.Clicked(gtx) {
		a.saveCircuit(true)
	}
	if a.undoBtn.Clicked(gtx) {
		a.undo()
	}
	if a.redoBtn.Clicked(gtx) {
		a.redo()
	}
	if a.playBtn.Clicked(gtx) {
		a.toggleRun()
	}
	if a.stepBtn.Clicked(gtx) {
		a.step()
	}
	if a.resetBtn.Clicked(gtx) {
		a.reset()
	}
	if a.slowerBtn.Clicked(gtx) {
		a.scalePeriod(2)
	}
	if a.fasterBtn.Clicked(gtx) {
		a.scalePeriod(0.5)
	}

	playIcon := a.playIcon
	playDesc := "Run"
	if snap.Running {
		playIcon = a.stopIcon
		playDesc = "Pause"
	}

	return layout.Inset{Top: unit.Dp(8), Bottom: unit.Dp(8), Left: unit.Dp(12), Right: unit.Dp(12)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Axis: layout.Horizontal, Alignment: layout.Middle}.Layout(gtx,
			layout.Rigid(a.iconButton(&a.openBtn, a.openIcon, "Open")),
			layout.Rigid(layout.Spacer{Width: unit.Dp(4)}.Layout),
			layout.Rigid(a.iconButton(&a.saveBtn, a.saveIcon, "Save")),
			layout.Rigid(layout.Spacer{Width: unit.Dp(4)}.Layout),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				btn := material.Button(a.gvTheme.Theme, &a.saveAsBtn, "Save As")
				btn.Inset = layout.UniformInset(unit.Dp(6))
				return btn.Layout(gtx)
			}),
			layout.Rigid(layout.Spacer{Width: unit.Dp(16)}.Layout),
			layout.Rigid(a.iconButton(&a.undoBtn, a.undoIcon, "Undo")),
			layout.Rigid(layout.Spacer{Width: unit.Dp(4)}.Layout),
			layout.Rigid(a.iconButton(&a.redoBtn, a.redoIcon, "Redo")),
			layout.Rigid(layout.Spacer{Width: unit.Dp(16)}.Layout),
			layout.Rigid(a.iconButton(&a.playBtn, playIcon, playDesc)),
			layout.Rigid(layout.Spacer{Width: unit.Dp(4)}.Layout),
			layout.Rigid(a.iconButton(&a.stepBtn, a.stepIcon, "Step")),
			layout.Rigid(layout.Spacer{Width: unit.Dp(4)}.Layout),
			layout.Rigid(a.iconButton(&a.resetBtn, a.resetIcon, "Reset")),
			layout.Rigid(layout.Spacer{Width: unit.Dp(16)}.Layout),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				btn := material.Button(a.gvTheme.Theme, &a.slowerBtn, "-")
				btn.Inset = layout.UniformInset(unit.Dp(6))
				return btn.Layout(gtx)
			}),
			layout.Rigid(layout.Spacer{Width: unit.Dp(6)}.Layout),
			layout.Rigid(material.Body2(a.gvTheme.Theme, formatPeriod(snap.Period)).Layout),
			layout.Rigid(layout.Spacer{Width: unit.Dp(6)}.Layout),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				btn := material.Button(a.gvTheme.Theme, &a.fasterBtn, "+")
				btn.Inset = layout.UniformInset(unit.Dp(6))
				return btn.Layout(gtx)
			}),
			layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
				return layout.Dimensions{}
			}),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				if a.copyMenuBtn.Clicked(gtx) {
					a.copyMenu.ToggleVisibility(gtx)
				}
				dims := material.Button(a.gvTheme.Theme, &a.copyMenuBtn, "Copy...").Layout(gtx)
				a.copyMenu.Layout(gtx, a.gvTheme)
				return dims
			}),
			layout.Rigid(layout.Spacer{Width: unit.Dp(8)}.Layout),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				if a.pasteMenuBtn.Clicked(gtx) {
					a.pasteMenu.ToggleVisibility(gtx)
				}
				dims := material.Button(a.gvTheme.Theme, &a.pasteMenuBtn, "Paste...").Layout(gtx)
				a.pasteMenu.Layout(gtx, a.gvTheme)
				return dims
			}),
		)
	})
}

func (a *App) iconButton(clk *widget.Clickable, icon *widget.Icon, desc string) layout.Widget {
	return func(gtx layout.Context) layout.Dimensions {
		if icon == nil {
			btn := material.Button(a.gvTheme.Theme, clk, desc)
			btn.Inset = layout.UniformInset(unit.Dp(6))
			return btn.Layout(gtx)
		}
		btn := material.IconButton(a.gvTheme.Theme, clk, icon, desc)
		btn.Size = unit.Dp(20)
		btn.Inset = layout.UniformInset(unit.Dp(6))
		return btn.Layout(gtx)
	}
}

func (a *App) layoutStatusBar(gtx layout.Context, snap *StateSnapshot) layout.Dimensions {
	inset := layout.Inset{Left: unit.Dp(16), Right: unit.Dp(16), Top: unit.Dp(6), Bottom: unit.Dp(6)}
	return inset.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Axis: layout.Horizontal, Alignment: layout.Middle}.Layout(gtx,
			layout.Rigid(material.Body2(a.gvTheme.Theme, snap.Status).Layout),
			layout.Flexed(1, func(gtx layout.Context) layout.Dimensions { return layout.Dimensions{} }),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				right := fmt.Sprintf("%dx%d", snap.GridSize.X, snap.GridSize.Y)
				if snap.Running {
					right += fmt.Sprintf(" | tick %d", snap.Tick)
				}
				name := snap.FilePath
				if name == "" {
					name = "untitled"
				}
				if snap.Unsaved {
					name += " *"
				}
				return material.Body2(a.gvTheme.Theme, right+" | "+name).Layout(gtx)
			}),
		)
	})
}

func (a *App) layoutLogSplitter(gtx layout.Context) layout.Dimensions {
	height := gtx.Dp(unit.Dp(8))
	if height < 4 {
		height = 4
	}
	size := image.Pt(gtx.Constraints.Max.X, height)
	paint.FillShape(gtx.Ops, color.NRGBA{R: 210, G: 214, B: 228, A: 255}, clip.Rect{Max: size}.Op())

	stack := clip.Rect{Max: size}.Push(gtx.Ops)
	a.logSplitter.Add(gtx.Ops)
	stack.Pop()

	if ev, ok := a.logSplitter.Update(gtx.Metric, gtx.Source, gesture.Vertical); ok {
		switch ev.Kind {
		case pointer.Press:
			a.logSplitDrag = true
			a.logSplitLastY = ev.Position.Y
		case pointer.Drag:
			if a.logSplitDrag {
				dy := ev.Position.Y - a.logSplitLastY
				a.logSplitLastY = ev.Position.Y
				a.logPaneHeight -= dy
				a.clampLogPaneHeight(gtx)
				a.invalidate()
			}
		case pointer.Release, pointer.Cancel:
			a.logSplitDrag = false
		}
	}
	return layout.Dimensions{Size: size}
}

func (a *App) layoutLogPane(gtx layout.Context) layout.Dimensions {
	a.ensureLogPaneHeight(gtx)
	h := int(a.logPaneHeight)
	gtx.Constraints.Min.Y = h
	gtx.Constraints.Max.Y = h

	size := image.Pt(gtx.Constraints.Max.X, gtx.Constraints.Max.Y)
	if size.X <= 0 {
		size.X = 1
	}
	if size.Y <= 0 {
		size.Y = 1
	}
	logClip := clip.Rect{Max: size}.Push(gtx.Ops)
	paint.FillShape(gtx.Ops, a.gvTheme.Bg2, clip.Rect{Max: size}.Op())
	logClip.Pop()

	return layout.Inset{Left: unit.Dp(16), Right: unit.Dp(16), Top: unit.Dp(6), Bottom: unit.Dp(6)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		gtx.Constraints.Min = gtx.Constraints.Max
		return a.logList.Layout(gtx, 1, func(gtx layout.Context, _ int) layout.Dimensions {
			label := material.Body2(a.gvTheme.Theme, a.logText)
			label.State = &a.logSelectable
			label.WrapPolicy = text.WrapGraphemes
			label.Alignment = text.Start
			label.Color = a.opaqueFg()
			return label.Layout(gtx)
		})
	})
}

func (a *App) applyPalette() {
	a.gvTheme.WithPalette(theme.Palette{
		Bg:         color.NRGBA{R: 24, G: 26, B: 33, A: 255},
		Fg:         color.NRGBA{R: 233, G: 236, B: 245, A: 255},
		ContrastBg: color.NRGBA{R: 120, G: 150, B: 255, A: 255},
		ContrastFg: color.NRGBA{R: 12, G: 16, B: 24, A: 255},
		Bg2:        color.NRGBA{R: 38, G: 42, B: 53, A: 255},
	})
}

func (a *App) ensureLogPaneHeight(gtx layout.Context) {
	if a.logPaneHeight > 0 {
		return
	}
	a.logPaneHeight = float32(gtx.Dp(unit.Dp(110)))
	a.clampLogPaneHeight(gtx)
}

func (a *App) clampLogPaneHeight(gtx layout.Context) {
	min := float32(gtx.Dp(unit.Dp(60)))
	max := float32(gtx.Dp(unit.Dp(320)))
	if a.logPaneHeight < min {
		a.logPaneHeight = min
	}
	if a.logPaneHeight > max {
		a.logPaneHeight = max
	}
}

func (a *App) invalidate() {
	if a.window != nil {
		a.window.Invalidate()
	}
}

// Logf records a timestamped entry in the log pane and mirrors it to the
// shared state so headless callers can read it too.
func (a *App) Logf(format string, args ...any) {
	prefix := time.Now().Format(time.Stamp)
	entry := fmt.Sprintf("[%s] %s", prefix, fmt.Sprintf(format, args...))
	a.State.AppendLog(entry)
	if a.logText != "" {
		a.logText += "\n"
	}
	a.logText += entry
	a.logSelectable.SetText(a.logText)
	a.invalidate()
}

func (a *App) opaqueFg() color.NRGBA {
	fg := a.gvTheme.Palette.Fg
	fg.A = 0xFF
	return fg
}

func formatPeriod(d time.Duration) string {
	s := d.String()
	return strings.Replace(s, "µ", "u", 1) + "/tick"
}
