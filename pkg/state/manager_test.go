package state

import (
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/btzy/circuit-playground/pkg/circuit"
	"github.com/btzy/circuit-playground/pkg/sim"
)

func TestPlaceAndErase(t *testing.T) {
	m := New()
	if d := m.PlaceElement(0, 0, circuit.ConductiveWire); d != image.Pt(0, 0) {
		t.Fatalf("delta = %v, want (0,0)", d)
	}
	if got := m.Grid().Get(0, 0).Kind; got != circuit.ConductiveWire {
		t.Fatalf("cell = %v, want ConductiveWire", got)
	}
	// Placing the same kind again is a no-op.
	if m.PlaceElement(0, 0, circuit.ConductiveWire); !m.CanUndo() {
		t.Fatal("pending change lost")
	}

	// Growing left shifts the grid; the delta reports it.
	if d := m.PlaceElement(-1, 0, circuit.Source); d != image.Pt(1, 0) {
		t.Fatalf("delta = %v, want (1,0)", d)
	}
	if d := m.TakeDelta(); d != image.Pt(1, 0) {
		t.Fatalf("accumulated delta = %v, want (1,0)", d)
	}
	if d := m.TakeDelta(); d != image.Pt(0, 0) {
		t.Fatalf("delta not cleared, got %v", d)
	}

	m.EraseElement(0, 0) // the source, after translation
	if got := m.Grid().Get(0, 0).Kind; got != circuit.ConductiveWire {
		t.Fatalf("cell after erase = %v, want ConductiveWire", got)
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	m := New()
	m.PlaceElement(0, 0, circuit.ConductiveWire)
	if !m.SaveToHistory() {
		t.Fatal("first commit did nothing")
	}
	m.PlaceElement(1, 0, circuit.Source)
	m.SaveToHistory()

	if !m.Undo() {
		t.Fatal("undo failed")
	}
	if !m.Grid().Get(1, 0).IsEmpty() {
		t.Fatal("undo did not remove the source")
	}
	if !m.Redo() {
		t.Fatal("redo failed")
	}
	if got := m.Grid().Get(1, 0).Kind; got != circuit.Source {
		t.Fatalf("cell after redo = %v, want Source", got)
	}
}

func TestUndoCommitsPendingEdits(t *testing.T) {
	m := New()
	m.PlaceElement(0, 0, circuit.ConductiveWire)
	m.SaveToHistory()
	m.PlaceElement(1, 0, circuit.Source)
	// No explicit commit: Undo must fold the pending edit in first, so a
	// single undo returns to the wire-only state.
	if !m.Undo() {
		t.Fatal("undo failed")
	}
	if !m.Grid().Get(1, 0).IsEmpty() {
		t.Fatal("pending edit survived undo")
	}
	if !m.Redo() {
		t.Fatal("redo of pending edit failed")
	}
	if got := m.Grid().Get(1, 0).Kind; got != circuit.Source {
		t.Fatalf("cell after redo = %v, want Source", got)
	}
}

func TestSimulationThroughManager(t *testing.T) {
	m := New()
	m.PlaceElement(0, 0, circuit.Source)
	m.PlaceElement(1, 0, circuit.ConductiveWire)
	m.PlaceElement(2, 0, circuit.Signal)
	m.PlaceElement(3, 0, circuit.AndGate)
	m.SaveToHistory()

	m.StepSimulator()
	if !m.Grid().Get(3, 0).Level {
		t.Fatal("gate low after step")
	}
	m.ResetSimulator()
	if m.Grid().Get(3, 0).Level {
		t.Fatal("gate still high after reset")
	}
	// The source itself stays high: that is its default.
	if !m.Grid().Get(0, 0).Level {
		t.Fatal("source low after reset")
	}
}

func TestEditWhileRunning(t *testing.T) {
	m := New()
	m.PlaceElement(0, 0, circuit.Source)
	m.PlaceElement(1, 0, circuit.ConductiveWire)
	m.SaveToHistory()

	m.StartSimulator()
	if !m.Simulator().Running() {
		t.Fatal("simulator not running")
	}
	m.PlaceElement(2, 0, circuit.ConductiveWire)
	if !m.Simulator().Running() {
		t.Fatal("edit stopped the simulator for good")
	}
	m.StopSimulator()
	if !m.Grid().Get(2, 0).Level {
		t.Fatal("extended wire not live after resume and stop")
	}
}

func TestSpliceAndMergeSelection(t *testing.T) {
	m := New()
	for x := 0; x < 4; x++ {
		m.PlaceElement(x, 0, circuit.ConductiveWire)
	}
	m.SaveToHistory()

	sel := m.SpliceSelection(image.Rect(2, 0, 4, 1))
	if sel.Width() != 2 {
		t.Fatalf("selection width = %d, want 2", sel.Width())
	}
	if m.Grid().Width() != 2 {
		t.Fatalf("remainder width = %d, want 2", m.Grid().Width())
	}

	m.MergeSelection(&sel, image.Pt(2, 0))
	m.SaveToHistory()
	if m.Grid().Width() != 4 {
		t.Fatalf("merged width = %d, want 4", m.Grid().Width())
	}
}

func TestGrabComponent(t *testing.T) {
	m := New()
	m.PlaceElement(0, 0, circuit.ConductiveWire)
	m.PlaceElement(1, 0, circuit.ConductiveWire)
	m.PlaceElement(5, 0, circuit.Source)
	m.SaveToHistory()

	comp, off := m.GrabComponent(image.Pt(1, 0))
	if comp.Width() != 2 || off != image.Pt(0, 0) {
		t.Fatalf("component = %dx%d at %v, want 2x1 at (0,0)", comp.Width(), comp.Height(), off)
	}
	if got := m.Grid().Get(0, 0).Kind; got != circuit.Source {
		t.Fatalf("remainder origin = %v, want Source", got)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "circuit.sav")
	m := New()
	m.PlaceElement(0, 0, circuit.Source)
	m.PlaceElement(1, 0, circuit.ConductiveWire)
	if !m.ChangedSinceSave() {
		t.Fatal("no unsaved changes reported before save")
	}
	if err := m.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if m.ChangedSinceSave() {
		t.Fatal("unsaved changes reported after save")
	}
	if m.FilePath() != path {
		t.Fatalf("FilePath = %q, want %q", m.FilePath(), path)
	}

	other := New()
	if err := other.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !other.Grid().Equal(m.Grid()) {
		t.Fatal("loaded grid differs from saved")
	}
	if other.ChangedSinceSave() {
		t.Fatal("fresh load reports unsaved changes")
	}
	if other.CanUndo() {
		t.Fatal("history survived load")
	}
}

func TestSaveFailureKeepsUnsavedMarker(t *testing.T) {
	m := New()
	m.PlaceElement(0, 0, circuit.Source)
	if err := m.Save(filepath.Join(t.TempDir(), "no", "such", "dir", "x.sav")); err == nil {
		t.Fatal("save into missing directory succeeded")
	}
	if !m.ChangedSinceSave() {
		t.Fatal("failed save cleared the unsaved marker")
	}
}

func TestLoadFailureKeepsState(t *testing.T) {
	m := New()
	m.PlaceElement(0, 0, circuit.Source)
	m.SaveToHistory()
	if err := m.Load(filepath.Join(t.TempDir(), "missing.sav")); err == nil {
		t.Fatal("load of missing file succeeded")
	}
	if got := m.Grid().Get(0, 0).Kind; got != circuit.Source {
		t.Fatal("failed load clobbered the grid")
	}
}

func TestSaveLoadTextFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "circuit.ckt")
	m := New()
	m.PlaceElement(0, 0, circuit.Source)
	m.PlaceElement(1, 0, circuit.ConductiveWire)
	m.PlaceElement(2, 0, circuit.Signal)
	if err := m.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "source 0 0") {
		t.Fatalf("text save missing source line:\n%s", data)
	}

	other := New()
	if err := other.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !other.Grid().Equal(m.Grid()) {
		t.Fatal("loaded grid differs from saved")
	}
}

func TestCommunicatorPersistsAcrossEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comm.ckt")
	if err := os.WriteFile(path, []byte("screen 0 0\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	m := New()
	if err := m.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	first := m.Simulator().Communicator(0)
	if first == nil {
		t.Fatal("no communicator after load")
	}
	// Every committed edit recompiles; the screen must keep its identity
	// so queued events and bindings survive.
	m.PlaceElement(1, 0, circuit.ConductiveWire)
	m.SaveToHistory()
	if m.Simulator().Communicator(0) != first {
		t.Fatal("communicator replaced by an edit")
	}
	// Undoing back to the loaded state must also keep it.
	if !m.Undo() {
		t.Fatal("Undo failed")
	}
	if m.Simulator().Communicator(0) != first {
		t.Fatal("communicator replaced by undo")
	}
}

func TestFileCommunicatorBindsByHandle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reader.ckt")
	if err := os.WriteFile(path, []byte("filein 0 0\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	m := New()
	if err := m.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	// The editor binds a path by resolving the element's handle, the way
	// the file-select action does.
	h := m.Grid().Get(0, 0).Comm
	if h == 0 {
		t.Fatal("loaded communicator has no handle")
	}
	c, ok := m.Registry().Lookup(h).(*sim.FileInputCommunicator)
	if !ok {
		t.Fatalf("Lookup(%d) = %T, want *sim.FileInputCommunicator", h, m.Registry().Lookup(h))
	}
	defer c.Close()
	data := filepath.Join(dir, "data.bin")
	if err := os.WriteFile(data, []byte{0x41}, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	c.SetFilePath(data)
	if c.FilePath() != data {
		t.Fatalf("FilePath = %q, want %q", c.FilePath(), data)
	}
	// The binding survives a recompile triggered by an edit.
	m.PlaceElement(1, 0, circuit.ConductiveWire)
	m.SaveToHistory()
	if got, _ := m.Registry().Lookup(h).(*sim.FileInputCommunicator); got != c {
		t.Fatal("binding lost across recompile")
	}
}
