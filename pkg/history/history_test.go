package history

import (
	"testing"

	"github.com/btzy/circuit-playground/pkg/circuit"
)

// wires returns a grid holding a wire run of length n+1, so each n yields
// a distinct state.
func wires(n int) circuit.Grid {
	var g circuit.Grid
	for i := 0; i <= n; i++ {
		g.Set(i, 0, circuit.New(circuit.ConductiveWire))
	}
	return g
}

func TestCommitAndUndoRedo(t *testing.T) {
	m := New(circuit.Grid{})
	a := wires(0)
	b := wires(1)

	if !m.Commit(&a) {
		t.Fatal("commit of new state reported no change")
	}
	if !m.Commit(&b) {
		t.Fatal("second commit reported no change")
	}
	if m.Commit(&b) {
		t.Fatal("commit of identical state made an entry")
	}

	g, ok := m.Undo()
	if !ok || !g.Equal(&a) {
		t.Fatal("undo did not restore previous state")
	}
	g, ok = m.Undo()
	if !ok || !g.Empty() {
		t.Fatal("second undo did not restore initial state")
	}
	if _, ok := m.Undo(); ok {
		t.Fatal("undo past the beginning succeeded")
	}

	g, ok = m.Redo()
	if !ok || !g.Equal(&a) {
		t.Fatal("redo did not reapply state")
	}
	if !m.CanRedo() {
		t.Fatal("CanRedo = false with entries remaining")
	}
}

func TestCommitClearsRedo(t *testing.T) {
	m := New(circuit.Grid{})
	a := wires(0)
	b := wires(1)
	m.Commit(&a)
	m.Undo()
	m.Commit(&b)
	if m.CanRedo() {
		t.Fatal("redo possible after a fresh commit")
	}
}

func TestSavedMarker(t *testing.T) {
	m := New(circuit.Grid{})
	if m.ChangedSinceSave() {
		t.Fatal("fresh manager reports unsaved changes")
	}
	a := wires(0)
	m.Commit(&a)
	if !m.ChangedSinceSave() {
		t.Fatal("no unsaved changes after commit")
	}
	m.SetSaved()
	if m.ChangedSinceSave() {
		t.Fatal("unsaved changes right after save")
	}
	// Undoing away from the saved state and back again.
	m.Undo()
	if !m.ChangedSinceSave() {
		t.Fatal("no unsaved changes after undo below saved state")
	}
	m.Redo()
	if m.ChangedSinceSave() {
		t.Fatal("unsaved changes after redoing back to saved state")
	}
}

func TestSavedStateLostOnDivergence(t *testing.T) {
	m := New(circuit.Grid{})
	a := wires(0)
	b := wires(1)
	m.Commit(&a)
	m.SetSaved()
	m.Undo()
	// Committing here discards the redo stack holding the saved state.
	m.Commit(&b)
	if !m.ChangedSinceSave() {
		t.Fatal("manager claims saved after discarding the saved state")
	}
	// Even returning to an equal grid cannot mark it clean.
	m.Undo()
	if !m.ChangedSinceSave() {
		t.Fatal("untracked marker became clean after undo")
	}
}

func TestDepthLimit(t *testing.T) {
	m := New(circuit.Grid{})
	m.SetSaved()
	for i := 0; i < MaxDepth+10; i++ {
		g := wires(i)
		m.Commit(&g)
	}
	undos := 0
	for m.CanUndo() {
		m.Undo()
		undos++
	}
	if undos != MaxDepth {
		t.Fatalf("undo depth = %d, want %d", undos, MaxDepth)
	}
	// The saved state fell off the bottom of the stack.
	if !m.ChangedSinceSave() {
		t.Fatal("saved marker survived stack overflow")
	}
}

func TestImbue(t *testing.T) {
	m := New(circuit.Grid{})
	for i := 0; i < 5; i++ {
		g := wires(i)
		m.Commit(&g)
	}
	loaded := wires(9)
	m.Imbue(loaded)
	if m.CanUndo() || m.CanRedo() {
		t.Fatal("history survived Imbue")
	}
	if m.ChangedSinceSave() {
		t.Fatal("imbued state not marked saved")
	}
	if !m.Current().Equal(&loaded) {
		t.Fatal("imbued state not current")
	}
}
