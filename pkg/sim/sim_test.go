package sim

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/btzy/circuit-playground/pkg/circuit"
)

func put(g *circuit.Grid, x, y int, k circuit.Kind) {
	g.Set(x, y, circuit.New(k))
}

func compile(t *testing.T, g *circuit.Grid) *Simulator {
	t.Helper()
	s := New()
	if err := s.Compile(g, NewRegistry()); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return s
}

func TestCompileEmptyGrid(t *testing.T) {
	s := New()
	var g circuit.Grid
	if err := s.Compile(&g, NewRegistry()); err == nil {
		t.Fatal("Compile of empty grid succeeded")
	}
	if s.HoldsSimulation() {
		t.Fatal("HoldsSimulation after failed compile")
	}
}

func TestSourcePropagatesOnCompile(t *testing.T) {
	// source - wire: the whole node is high before any step.
	var g circuit.Grid
	put(&g, 0, 0, circuit.Source)
	put(&g, 1, 0, circuit.ConductiveWire)
	compile(t, &g)
	if !g.Get(1, 0).Level {
		t.Fatal("wire not high after compile")
	}
}

func TestAndGateStep(t *testing.T) {
	// source - wire - signal - and
	var g circuit.Grid
	put(&g, 0, 0, circuit.Source)
	put(&g, 1, 0, circuit.ConductiveWire)
	put(&g, 2, 0, circuit.Signal)
	put(&g, 3, 0, circuit.AndGate)
	s := compile(t, &g)

	// Gate output is low until it has seen its input for one tick.
	if g.Get(3, 0).Level {
		t.Fatal("gate high before first step")
	}
	s.Step()
	s.TakeSnapshot(&g)
	if !g.Get(3, 0).Level {
		t.Fatal("gate low after first step")
	}
}

func TestNandOscillator(t *testing.T) {
	// A NAND fed its own output through a wire loop flips every tick.
	//   n w
	//   s w
	var g circuit.Grid
	put(&g, 0, 0, circuit.NandGate)
	put(&g, 1, 0, circuit.ConductiveWire)
	put(&g, 1, 1, circuit.ConductiveWire)
	put(&g, 0, 1, circuit.Signal)
	s := compile(t, &g)

	want := false
	for i := 0; i < 6; i++ {
		s.Step()
		want = !want
		if got := s.Latest().Levels[0]; got != want {
			t.Fatalf("tick %d: level = %v, want %v", i+1, got, want)
		}
	}
}

func TestPositiveRelayMergesNodes(t *testing.T) {
	// source - wire - signal (control)
	//          wire - relay - wire
	var g circuit.Grid
	put(&g, 0, 0, circuit.Source)
	put(&g, 1, 0, circuit.ConductiveWire)
	put(&g, 2, 0, circuit.Signal)
	put(&g, 1, 1, circuit.ConductiveWire)
	put(&g, 2, 1, circuit.PositiveRelay)
	put(&g, 3, 1, circuit.ConductiveWire)
	s := compile(t, &g)

	if g.Get(3, 1).Level {
		t.Fatal("far terminal high before relay closes")
	}
	s.Step()
	s.TakeSnapshot(&g)
	if !g.Get(3, 1).Level {
		t.Fatal("far terminal low after relay closed")
	}
	if !g.Get(2, 1).Level {
		t.Fatal("relay not lit while carrying current")
	}
}

func TestNegativeRelayOpensOnHighControl(t *testing.T) {
	var g circuit.Grid
	put(&g, 0, 0, circuit.Source)
	put(&g, 1, 0, circuit.ConductiveWire)
	put(&g, 2, 0, circuit.Signal)
	put(&g, 1, 1, circuit.ConductiveWire)
	put(&g, 2, 1, circuit.NegativeRelay)
	put(&g, 3, 1, circuit.ConductiveWire)
	s := compile(t, &g)

	for i := 0; i < 3; i++ {
		s.Step()
	}
	s.TakeSnapshot(&g)
	if g.Get(3, 1).Level {
		t.Fatal("negative relay closed despite high control")
	}
}

func TestRelayWithoutControlNeverCloses(t *testing.T) {
	var g circuit.Grid
	put(&g, 0, 0, circuit.Source)
	put(&g, 1, 0, circuit.NegativeRelay)
	put(&g, 2, 0, circuit.ConductiveWire)
	s := compile(t, &g)
	for i := 0; i < 3; i++ {
		s.Step()
	}
	s.TakeSnapshot(&g)
	if g.Get(2, 0).Level {
		t.Fatal("uncontrolled relay conducted")
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	//   n w     plus an isolated defaulted-high wire
	//   s w
	var g circuit.Grid
	put(&g, 0, 0, circuit.NandGate)
	put(&g, 1, 0, circuit.ConductiveWire)
	put(&g, 1, 1, circuit.ConductiveWire)
	put(&g, 0, 1, circuit.Signal)
	g.Set(3, 0, circuit.Element{Kind: circuit.ConductiveWire, Default: true})
	s := compile(t, &g)

	s.Step()
	s.Step()
	s.Step()
	s.Reset()
	st := s.Latest()
	if st.Tick != 0 {
		t.Fatalf("tick after reset = %d, want 0", st.Tick)
	}
	s.TakeSnapshot(&g)
	if g.Get(0, 0).Level {
		t.Fatal("oscillator node survived reset")
	}
	if !g.Get(3, 0).Level {
		t.Fatal("defaulted-high wire low after reset")
	}
}

func TestStartStop(t *testing.T) {
	var g circuit.Grid
	put(&g, 0, 0, circuit.NandGate)
	put(&g, 1, 0, circuit.ConductiveWire)
	put(&g, 1, 1, circuit.ConductiveWire)
	put(&g, 0, 1, circuit.Signal)
	s := compile(t, &g)
	s.SetPeriod(0)

	before := s.Latest().Tick
	s.Start()
	if !s.Running() {
		t.Fatal("not running after Start")
	}
	deadline := time.Now().Add(5 * time.Second)
	for s.Latest().Tick == before {
		if time.Now().After(deadline) {
			t.Fatal("simulation made no progress")
		}
		time.Sleep(time.Millisecond)
	}
	s.Stop()
	if s.Running() {
		t.Fatal("running after Stop")
	}
	// Nothing advances once stopped.
	after := s.Latest().Tick
	time.Sleep(10 * time.Millisecond)
	if s.Latest().Tick != after {
		t.Fatal("state advanced while stopped")
	}
}

func TestScreenCommunicatorInput(t *testing.T) {
	var g circuit.Grid
	put(&g, 0, 0, circuit.ScreenComm)
	s := compile(t, &g)

	s.SendCommunicatorEvent(0, true)
	s.Step()
	if !s.Latest().Levels[0] {
		t.Fatal("screen node low after on event")
	}
	// The live level persists until the next event.
	s.Step()
	if !s.Latest().Levels[0] {
		t.Fatal("screen node did not hold its level")
	}
	s.SendCommunicatorEvent(0, false)
	s.Step()
	if s.Latest().Levels[0] {
		t.Fatal("screen node high after off event")
	}
}

func TestScreenCommunicatorTransmit(t *testing.T) {
	// screen <- signal - wire - source
	var g circuit.Grid
	put(&g, 0, 0, circuit.ScreenComm)
	put(&g, 1, 0, circuit.Signal)
	put(&g, 2, 0, circuit.ConductiveWire)
	put(&g, 3, 0, circuit.Source)
	reg := NewRegistry()
	s := New()
	if err := s.Compile(&g, reg); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	s.Step()
	screen, ok := s.comms[0].(*ScreenCommunicator)
	if !ok {
		t.Fatalf("communicator is %T, want *ScreenCommunicator", s.comms[0])
	}
	if !screen.TransmitState() {
		t.Fatal("screen not transmitting high input")
	}
}

func TestScreenEventQueueBitfield(t *testing.T) {
	var c ScreenCommunicator
	// Queue on, off, on behind the initial low level.
	c.insertEvent(true)
	c.insertEvent(false)
	c.insertEvent(true)
	want := []bool{true, false, true, true}
	for i, w := range want {
		if got := c.Receive(); got != w {
			t.Fatalf("receive %d = %v, want %v", i, got, w)
		}
	}
}

func TestEventQueueDropsOldest(t *testing.T) {
	q := newEventQueue(2)
	q.push(commEvent{index: 1})
	q.push(commEvent{index: 2})
	q.push(commEvent{index: 3})
	ev, ok := q.pop()
	if !ok || ev.index != 2 {
		t.Fatalf("first pop = %v,%v, want index 2", ev, ok)
	}
	ev, ok = q.pop()
	if !ok || ev.index != 3 {
		t.Fatalf("second pop = %v,%v, want index 3", ev, ok)
	}
	if _, ok := q.pop(); ok {
		t.Fatal("pop from drained queue succeeded")
	}
}

func TestFileInputProtocol(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.bin")
	if err := os.WriteFile(path, []byte{0xA5}, 0o644); err != nil {
		t.Fatal(err)
	}
	c := NewFileInputCommunicator()
	c.SetFilePath(path)
	c.Reset()
	defer c.Close()

	// Request one byte: command 0b001, LSB first.
	for _, bit := range []bool{true, false, false} {
		c.Transmit(bit)
	}

	// The reader goroutine delivers asynchronously; poll for the frame's
	// start bit.
	deadline := time.Now().Add(5 * time.Second)
	for !c.Receive() {
		if time.Now().After(deadline) {
			t.Fatal("no frame from file input communicator")
		}
		time.Sleep(time.Millisecond)
	}
	// Remaining 10 bits: 00 then the byte, LSB first.
	var frame uint16 = 1
	for i := 1; i < 11; i++ {
		if c.Receive() {
			frame |= 1 << i
		}
	}
	if frame != uint16(0xA5)<<3|0b001 {
		t.Fatalf("frame = %#b, want %#b", frame, uint16(0xA5)<<3|0b001)
	}

	// A check with no bytes left reports end of file: 0b0101.
	for _, bit := range []bool{true, false, true} {
		c.Transmit(bit)
	}
	var check uint8
	for time.Now().Before(deadline) {
		check = 0
		for i := 0; i < 4; i++ {
			if c.Receive() {
				check |= 1 << i
			}
		}
		if check != 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if check != 0b0101 {
		t.Fatalf("check reply = %#b, want 0b0101", check)
	}
}

func TestFileOutputProtocol(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")
	c := NewFileOutputCommunicator()
	c.SetFile(path)

	// Send one byte: 11-bit frame (byte<<3)|0b001, LSB first.
	frame := uint16(0x5A)<<3 | 0b001
	for i := 0; i < 11; i++ {
		c.Transmit(frame&(1<<i) != 0)
	}

	// The writer acknowledges with 0b001 once the byte hits the file.
	deadline := time.Now().Add(5 * time.Second)
	for !c.Receive() {
		if time.Now().After(deadline) {
			t.Fatal("no acknowledgement from file output communicator")
		}
		time.Sleep(time.Millisecond)
	}
	if c.Receive() || c.Receive() {
		t.Fatal("acknowledgement longer than 3 bits")
	}

	c.Close()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 1 || data[0] != 0x5A {
		t.Fatalf("file contents = %v, want [0x5A]", data)
	}
}

func TestCompileKeepsCommunicators(t *testing.T) {
	// Loaded and pasted grids carry no handles; the first compile must
	// stamp them so a recompile binds the same communicator instead of
	// minting a fresh one.
	var g circuit.Grid
	put(&g, 0, 0, circuit.ScreenComm)
	reg := NewRegistry()
	s := New()
	if err := s.Compile(&g, reg); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	h := g.Get(0, 0).Comm
	if h == 0 {
		t.Fatal("compile left the element without a handle")
	}
	first := s.Communicator(0)
	if first == nil {
		t.Fatal("no communicator bound")
	}
	if reg.Lookup(h) != first {
		t.Fatal("registry does not resolve the stamped handle")
	}
	if err := s.Compile(&g, reg); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if got := g.Get(0, 0).Comm; got != h {
		t.Fatalf("handle changed across compiles: %d then %d", h, got)
	}
	if s.Communicator(0) != first {
		t.Fatal("communicator replaced on recompile")
	}
}
