package ui

import (
	"image"
	"sync"
	"time"

	"github.com/btzy/circuit-playground/pkg/circuit"
	"github.com/btzy/circuit-playground/pkg/clipboard"
	"github.com/btzy/circuit-playground/pkg/state"
)

// Tool selects what a primary click in the play area does.
type Tool int

const (
	ToolInteract Tool = iota
	ToolSelect
	ToolEraser
	ToolPencil
)

// StateSnapshot captures a copy of the state data for rendering without
// requiring the UI to hold locks while laying out widgets.
type StateSnapshot struct {
	Running bool
	Tick    uint64
	Period  time.Duration

	CanUndo bool
	CanRedo bool

	FilePath string
	Unsaved  bool

	Tool Tool
	Kind circuit.Kind

	Status string
	Logs   []string

	GridSize image.Point

	LastUpdated time.Time
}

// AppState tracks the mutable state shared between the Gio event loop and
// background goroutines performing file and simulation work.
type AppState struct {
	mu sync.RWMutex

	man  *state.Manager
	clip *clipboard.Manager

	tool Tool
	kind circuit.Kind

	status string

	logs     []string
	logLimit int

	lastUpdated time.Time
}

// NewState returns a baseline AppState with an empty circuit.
func NewState() *AppState {
	return &AppState{
		man:         state.New(),
		clip:        clipboard.New(),
		tool:        ToolPencil,
		kind:        circuit.ConductiveWire,
		status:      "Ready",
		logLimit:    200,
		lastUpdated: time.Now(),
	}
}

// Snapshot returns a copy of the mutable state for rendering.
func (s *AppState) Snapshot() StateSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logCopy := make([]string, len(s.logs))
	copy(logCopy, s.logs)

	g := s.man.Grid()
	sim := s.man.Simulator()
	var tick uint64
	if st := sim.Latest(); st != nil {
		tick = st.Tick
	}

	return StateSnapshot{
		Running:     sim.Running(),
		Tick:        tick,
		Period:      sim.Period(),
		CanUndo:     s.man.CanUndo(),
		CanRedo:     s.man.CanRedo(),
		FilePath:    s.man.FilePath(),
		Unsaved:     s.man.ChangedSinceSave(),
		Tool:        s.tool,
		Kind:        s.kind,
		Status:      s.status,
		Logs:        logCopy,
		GridSize:    image.Pt(g.Width(), g.Height()),
		LastUpdated: s.lastUpdated,
	}
}

// Edit runs fn with exclusive access to the circuit manager. All grid and
// simulator mutations go through here so that file dialogs running on their
// own goroutines cannot race the event loop.
func (s *AppState) Edit(fn func(m *state.Manager)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.man)
	s.lastUpdated = time.Now()
}

// Clipboard runs fn with exclusive access to both the circuit manager and
// the clipboard slots.
func (s *AppState) Clipboard(fn func(m *state.Manager, c *clipboard.Manager)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.man, s.clip)
	s.lastUpdated = time.Now()
}

// ClipboardOrder returns the clipboard slot indices in display order.
func (s *AppState) ClipboardOrder() [clipboard.NumClipboards]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clip.Order()
}

// ClipboardPreview returns the preview image for a slot, or nil when the
// slot is empty.
func (s *AppState) ClipboardPreview(index int) image.Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clip.Preview(index)
}

// Frame renders the current circuit to a one-pixel-per-cell image. While
// the simulator runs, the live logic levels are captured into the grid
// first so the frame shows what the circuit is doing right now. Returns
// nil for an empty circuit.
func (s *AppState) Frame() *image.NRGBA {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.man.Grid()
	if g.Empty() {
		return nil
	}
	sim := s.man.Simulator()
	if sim.Running() {
		sim.TakeSnapshot(g)
	}
	return g.Image(!sim.HoldsSimulation())
}

// TakeViewDelta reports and clears the grid-origin translation accumulated
// by edits since the last call. The viewport uses it to keep the camera
// anchored when the grid grows leftwards or upwards.
func (s *AppState) TakeViewDelta() image.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.man.TakeDelta()
}

// SetTool switches the active tool. Switching to ToolPencil keeps the
// previously selected element kind.
func (s *AppState) SetTool(tool Tool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tool = tool
	s.lastUpdated = time.Now()
}

// SetKind selects the element kind drawn by the pencil and switches to it.
func (s *AppState) SetKind(kind circuit.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tool = ToolPencil
	s.kind = kind
	s.lastUpdated = time.Now()
}

// SetStatus updates the user-facing status message.
func (s *AppState) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.lastUpdated = time.Now()
}

// AppendLog appends a log message, trimming the oldest entries past the limit.
func (s *AppState) AppendLog(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs = append(s.logs, msg)
	if s.logLimit > 0 && len(s.logs) > s.logLimit {
		offset := len(s.logs) - s.logLimit
		s.logs = append([]string(nil), s.logs[offset:]...)
	}
	s.lastUpdated = time.Now()
}
