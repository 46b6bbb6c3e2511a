// Package state ties the editor together: it owns the canonical grid,
// the undo history, the simulator and the file bindings, and keeps them
// consistent across edits, simulation runs and saves.
package state

import (
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/btzy/circuit-playground/pkg/circuit"
	"github.com/btzy/circuit-playground/pkg/ckt"
	"github.com/btzy/circuit-playground/pkg/history"
	"github.com/btzy/circuit-playground/pkg/sim"
)

// Manager is the single owner of the editable circuit. All methods must
// be called from the editor goroutine; rendering reads are safe because
// the simulator publishes its state atomically.
type Manager struct {
	grid circuit.Grid
	hist *history.Manager
	sim  *sim.Simulator
	reg  *sim.Registry

	// changed accumulates edits since the last history commit; delta
	// accumulates the viewport translation those edits caused.
	changed bool
	delta   image.Point

	path string
}

// New returns a manager holding an empty circuit.
func New() *Manager {
	return &Manager{
		hist: history.New(circuit.Grid{}),
		sim:  sim.New(),
		reg:  sim.NewRegistry(),
	}
}

// Grid exposes the canonical grid for reading.
func (m *Manager) Grid() *circuit.Grid { return &m.grid }

// Simulator exposes the simulator for state reads and period control.
func (m *Manager) Simulator() *sim.Simulator { return m.sim }

// Registry exposes the communicator registry, for file bindings.
func (m *Manager) Registry() *sim.Registry { return m.reg }

// PlaceElement puts a new element of the given kind at (x, y),
// overwriting whatever is there. Communicator elements get a fresh
// handle. It returns the viewport translation caused by the edit.
func (m *Manager) PlaceElement(x, y int, kind circuit.Kind) image.Point {
	if m.grid.Get(x, y).Kind == kind {
		return image.Point{}
	}
	e := circuit.New(kind)
	if kind.IsCommunicator() {
		e.Comm = m.reg.Allocate(kind)
	}
	return m.mutate(func() (bool, image.Point) {
		return m.grid.Set(x, y, e)
	})
}

// EraseElement removes the element at (x, y), returning the viewport
// translation caused by the shrink.
func (m *Manager) EraseElement(x, y int) image.Point {
	return m.mutate(func() (bool, image.Point) {
		return m.grid.Set(x, y, circuit.Element{})
	})
}

// SpliceSelection cuts the rectangle out of the grid and returns it.
func (m *Manager) SpliceSelection(r image.Rectangle) circuit.Grid {
	var out circuit.Grid
	m.mutate(func() (bool, image.Point) {
		var d image.Point
		out, d = m.grid.Splice(r)
		return true, d
	})
	return out
}

// MergeSelection overlays sel onto the grid at the given offset.
func (m *Manager) MergeSelection(sel *circuit.Grid, at image.Point) image.Point {
	if sel.Empty() {
		return image.Point{}
	}
	return m.mutate(func() (bool, image.Point) {
		merged, d := circuit.Merge(m.grid, *sel, at)
		m.grid = merged
		return true, d
	})
}

// GrabComponent lifts the connected component under pt out of the grid,
// returning it and its offset in pre-edit grid coordinates.
func (m *Manager) GrabComponent(pt image.Point) (circuit.Grid, image.Point) {
	var out circuit.Grid
	var off image.Point
	m.mutate(func() (bool, image.Point) {
		out, off = m.grid.ConnectedComponent(pt)
		if out.Empty() {
			return false, image.Point{}
		}
		return true, m.grid.Normalize()
	})
	return out, off
}

// mutate applies an edit, keeping the simulator in sync. Editing a
// running circuit captures the live levels first so the edit continues
// from what the user sees, then resumes.
func (m *Manager) mutate(edit func() (bool, image.Point)) image.Point {
	wasRunning := m.sim.Running()
	if wasRunning {
		m.sim.Stop()
		m.sim.TakeSnapshot(&m.grid)
	}
	changed, delta := edit()
	if changed {
		m.changed = true
		m.delta = m.delta.Add(delta)
		m.recompile()
	}
	if wasRunning {
		m.sim.Start()
	}
	if !changed {
		return image.Point{}
	}
	return delta
}

// TakeDelta returns and clears the viewport translation accumulated by
// edits since the last call.
func (m *Manager) TakeDelta() image.Point {
	d := m.delta
	m.delta = image.Point{}
	return d
}

// SaveToHistory commits pending edits as one undoable step. Call it when
// a drag or paste finishes. Reports whether anything was committed.
func (m *Manager) SaveToHistory() bool {
	if !m.changed {
		return false
	}
	m.changed = false
	return m.hist.Commit(&m.grid)
}

// CanUndo reports whether Undo will do anything.
func (m *Manager) CanUndo() bool { return m.changed || m.hist.CanUndo() }

// CanRedo reports whether Redo will do anything.
func (m *Manager) CanRedo() bool { return m.hist.CanRedo() }

// Undo rolls the circuit back one history entry. Pending uncommitted
// edits are committed first so nothing is silently lost.
func (m *Manager) Undo() bool {
	m.SaveToHistory()
	g, ok := m.hist.Undo()
	if !ok {
		return false
	}
	m.restore(g)
	return true
}

// Redo reapplies an undone history entry.
func (m *Manager) Redo() bool {
	m.SaveToHistory()
	g, ok := m.hist.Redo()
	if !ok {
		return false
	}
	m.restore(g)
	return true
}

func (m *Manager) restore(g *circuit.Grid) {
	wasRunning := m.sim.Running()
	if wasRunning {
		m.sim.Stop()
	}
	m.grid = g.Clone()
	m.recompile()
	if wasRunning {
		m.sim.Start()
	}
}

// recompile rebuilds the simulation from the grid; an empty grid clears
// it.
func (m *Manager) recompile() {
	if m.grid.Empty() {
		m.sim.Clear()
		return
	}
	// Compile cannot fail on a non-empty grid.
	_ = m.sim.Compile(&m.grid, m.reg)
}

// StartSimulator begins ticking; it compiles first if needed.
func (m *Manager) StartSimulator() {
	if m.sim.Running() {
		return
	}
	if !m.sim.HoldsSimulation() {
		m.recompile()
	}
	m.sim.Start()
}

// StopSimulator halts the simulation and pulls the final levels into the
// grid so the editor shows the state at the moment of stopping.
func (m *Manager) StopSimulator() {
	if !m.sim.Running() {
		return
	}
	m.sim.Stop()
	m.sim.TakeSnapshot(&m.grid)
}

// StepSimulator advances a stopped simulation one tick.
func (m *Manager) StepSimulator() {
	if m.sim.Running() {
		return
	}
	if !m.sim.HoldsSimulation() {
		m.recompile()
		if !m.sim.HoldsSimulation() {
			return
		}
	}
	m.sim.Step()
	m.sim.TakeSnapshot(&m.grid)
}

// ResetSimulator returns every element to its default level and rebuilds
// the simulation, resuming if it was running.
func (m *Manager) ResetSimulator() {
	wasRunning := m.sim.Running()
	if wasRunning {
		m.sim.Stop()
	}
	for y := 0; y < m.grid.Height(); y++ {
		for x := 0; x < m.grid.Width(); x++ {
			if e := m.grid.Get(x, y); !e.IsEmpty() && e.Level != e.Default {
				e.Level = e.Default
				m.grid.Set(x, y, e)
			}
		}
	}
	m.recompile()
	if m.sim.HoldsSimulation() {
		m.sim.Reset()
		m.sim.TakeSnapshot(&m.grid)
	}
	if wasRunning {
		m.sim.Start()
	}
}

// FillPixels renders the circuit into buf, one packed pixel per cell.
// While the simulation runs, the latest published levels are pulled in
// first so the view is live.
func (m *Manager) FillPixels(buf []uint32, stride int, region image.Rectangle, useDefault bool) {
	if m.sim.Running() {
		m.sim.TakeSnapshot(&m.grid)
	}
	m.grid.FillPixels(buf, stride, region, useDefault)
}

// FilePath returns the path of the loaded or last-saved file.
func (m *Manager) FilePath() string { return m.path }

// ChangedSinceSave reports whether the circuit differs from the file on
// disk.
func (m *Manager) ChangedSinceSave() bool {
	return m.changed || m.hist.ChangedSinceSave()
}

// Save writes the circuit to path. A ".ckt" extension selects the textual
// description, anything else the binary format. The saved marker moves
// only when the write fully succeeds.
func (m *Manager) Save(path string) error {
	m.SaveToHistory()
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	if strings.EqualFold(filepath.Ext(path), ".ckt") {
		_, err = io.WriteString(f, ckt.Format(&m.grid))
	} else {
		err = m.grid.Encode(f)
	}
	if err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "closing %s", path)
	}
	m.path = path
	m.hist.SetSaved()
	return nil
}

// Load replaces the circuit with the file's contents, picking the format
// the same way Save does. On failure the current circuit and history are
// left untouched.
func (m *Manager) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	var g circuit.Grid
	if strings.EqualFold(filepath.Ext(path), ".ckt") {
		g, err = ckt.Parse(f)
	} else {
		g, err = circuit.Decode(f)
	}
	if err != nil {
		return errors.Wrapf(err, "reading %s", path)
	}
	if m.sim.Running() {
		m.sim.Stop()
	}
	m.grid = g
	m.changed = false
	m.delta = image.Point{}
	// Compile first: it stamps communicator handles onto the loaded
	// elements, and the history baseline must carry them so undoing all
	// the way back keeps the same communicators.
	m.recompile()
	m.hist.Imbue(m.grid)
	m.path = path
	return nil
}
