// Package history provides snapshot-based undo and redo for circuit
// grids, with a marker tracking the last state written to disk.
package history

import "github.com/btzy/circuit-playground/pkg/circuit"

// MaxDepth bounds the undo stack; the oldest snapshot is discarded when
// it overflows.
const MaxDepth = 256

// Manager keeps the committed grid plus undo and redo stacks of full
// snapshots. The zero value is not usable; call New.
//
// The saved marker records how many undos away the on-disk state is. It
// goes untracked when that state is discarded (stack overflow, or a new
// edit after undoing past it), after which only saving again can mark the
// grid clean.
type Manager struct {
	current circuit.Grid
	undo    []circuit.Grid
	redo    []circuit.Grid

	saveDistance int
	saveTracked  bool
}

// New returns a manager whose committed state is the given grid, treated
// as saved.
func New(g circuit.Grid) *Manager {
	return &Manager{current: g.Clone(), saveTracked: true}
}

// Current returns the committed grid. Callers must not mutate it.
func (m *Manager) Current() *circuit.Grid { return &m.current }

// Commit records g as a new history entry if it differs from the
// committed state, clearing the redo stack. It reports whether a new
// entry was made.
func (m *Manager) Commit(g *circuit.Grid) bool {
	if g.Equal(&m.current) {
		return false
	}
	m.undo = append(m.undo, m.current)
	m.current = g.Clone()

	if len(m.redo) > 0 {
		m.redo = m.redo[:0]
		// A saved state in the redo direction is now unreachable.
		if m.saveTracked && m.saveDistance < 0 {
			m.saveTracked = false
		}
	}
	if m.saveTracked {
		m.saveDistance++
	}
	if len(m.undo) > MaxDepth {
		m.undo = m.undo[1:]
		if m.saveTracked && m.saveDistance > len(m.undo) {
			m.saveTracked = false
		}
	}
	return true
}

// CanUndo reports whether an older snapshot exists.
func (m *Manager) CanUndo() bool { return len(m.undo) > 0 }

// CanRedo reports whether an undone snapshot can be reapplied.
func (m *Manager) CanRedo() bool { return len(m.redo) > 0 }

// Undo steps the committed state back one snapshot and returns it. The
// second result is false when there is nothing to undo.
func (m *Manager) Undo() (*circuit.Grid, bool) {
	if len(m.undo) == 0 {
		return nil, false
	}
	m.redo = append(m.redo, m.current)
	m.current = m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]
	if m.saveTracked {
		m.saveDistance--
	}
	return &m.current, true
}

// Redo reapplies the most recently undone snapshot.
func (m *Manager) Redo() (*circuit.Grid, bool) {
	if len(m.redo) == 0 {
		return nil, false
	}
	m.undo = append(m.undo, m.current)
	m.current = m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]
	if m.saveTracked {
		m.saveDistance++
	}
	return &m.current, true
}

// SetSaved marks the committed state as the one on disk.
func (m *Manager) SetSaved() {
	m.saveDistance = 0
	m.saveTracked = true
}

// ChangedSinceSave reports whether the committed state differs from the
// last saved one. Untracked counts as changed.
func (m *Manager) ChangedSinceSave() bool {
	return !m.saveTracked || m.saveDistance != 0
}

// Imbue replaces all history with g as the sole, saved state. Used after
// loading a file.
func (m *Manager) Imbue(g circuit.Grid) {
	m.current = g.Clone()
	m.undo = nil
	m.redo = nil
	m.SetSaved()
}
