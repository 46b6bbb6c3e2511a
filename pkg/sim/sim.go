// Package sim steps compiled circuits. The simulation runs on its own
// goroutine at a configurable period; every completed tick is published
// atomically so the UI can render the latest state without locking. Logic
// is synchronous: each tick reads only the previous tick's levels.
package sim

import (
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/btzy/circuit-playground/pkg/circuit"
	"github.com/btzy/circuit-playground/pkg/netlist"
)

// State is one completed simulation tick. It is immutable once published.
type State struct {
	// Levels holds the logic level of every node.
	Levels []bool
	// RelayLevels holds whether current flows through each relay, for
	// display purposes.
	RelayLevels []bool
	// RelayConducting holds whether each relay closed this tick.
	RelayConducting []bool
	// Tick counts completed steps since the last compile or reset.
	Tick uint64
}

// Simulator owns the compiled circuit and the simulation goroutine.
// Compile, Start, Stop, Step and Reset must be called from one goroutine
// (the editor thread); the published state may be read from any.
type Simulator struct {
	mu      sync.Mutex
	net     *netlist.Netlist
	comms   []Communicator
	running bool
	stop    chan struct{}
	done    chan struct{}

	latest atomic.Pointer[State]
	period atomic.Int64

	events *eventQueue
}

// DefaultPeriod is the simulation period for a fresh simulator.
const DefaultPeriod = 2 * time.Millisecond

// New returns a simulator with nothing compiled.
func New() *Simulator {
	s := &Simulator{events: newEventQueue(eventQueueCap)}
	s.period.Store(int64(DefaultPeriod))
	return s
}

// Compile builds the netlist for the grid, binds communicators from reg,
// seeds the simulation state from the stored levels, and writes the
// propagated levels back into the grid. Communicator elements without a
// handle get one stamped onto them so a later compile binds the same
// communicator. The simulator must be stopped.
func (s *Simulator) Compile(g *circuit.Grid, reg *Registry) error {
	if s.Running() {
		return errors.New("sim: compile while running")
	}
	net, err := netlist.Compile(g)
	if err != nil {
		return errors.Wrap(err, "compiling circuit")
	}

	comms := make([]Communicator, len(net.Comms))
	for i, c := range net.Comms {
		comm, h := reg.acquire(c.Kind, c.Handle)
		comms[i] = comm
		if h != c.Handle {
			e := g.Get(c.Pos.X, c.Pos.Y)
			e.Comm = h
			g.Set(c.Pos.X, c.Pos.Y, e)
		}
	}

	st := newState(net)
	// Stored levels seed the initial state: driven nodes from sources and
	// live gate outputs, conduction from live relays.
	for _, src := range net.Sources {
		if src.Level {
			st.Levels[src.Node] = true
		}
	}
	for _, gate := range net.Gates {
		if g.Get(gate.Pos.X, gate.Pos.Y).Level {
			st.Levels[gate.Output] = true
		}
	}
	for i, r := range net.Relays {
		if g.Get(r.Pos.X, r.Pos.Y).Level {
			st.RelayConducting[i] = true
		}
	}
	floodFill(net, st)

	s.mu.Lock()
	s.net = net
	s.comms = comms
	s.mu.Unlock()
	s.latest.Store(st)
	s.TakeSnapshot(g)
	return nil
}

// HoldsSimulation reports whether a compiled circuit is loaded.
func (s *Simulator) HoldsSimulation() bool { return s.latest.Load() != nil }

// Communicator returns the compiled communicator at the given index, or
// nil when the index is out of range.
func (s *Simulator) Communicator(index int32) Communicator {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || int(index) >= len(s.comms) {
		return nil
	}
	return s.comms[index]
}

// CommunicatorAt returns the compiled communicator index for the cell at
// pt, or -1 when the cell holds no communicator.
func (s *Simulator) CommunicatorAt(pt image.Point) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.net == nil {
		return -1
	}
	for i := range s.net.Comms {
		if s.net.Comms[i].Pos == pt {
			return int32(i)
		}
	}
	return -1
}

// Clear drops the compiled circuit.
func (s *Simulator) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		panic("sim: clear while running")
	}
	s.net = nil
	s.comms = nil
	s.latest.Store(nil)
}

// Running reports whether the simulation goroutine is live.
func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start launches the simulation goroutine.
func (s *Simulator) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.net == nil {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.stop, s.done)
}

// Stop halts the simulation goroutine and waits for it to exit. A tick in
// flight when Stop is called is discarded, so the published state never
// advances past the moment the user pressed stop.
func (s *Simulator) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stop)
	done := s.done
	s.mu.Unlock()
	<-done
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// Step runs exactly one tick on the calling goroutine. The simulator must
// be stopped.
func (s *Simulator) Step() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.net == nil {
		return
	}
	s.latest.Store(s.calculate(s.net, s.latest.Load()))
}

// Reset returns every node to its stored default level and resets all
// communicators. The simulator must be stopped.
func (s *Simulator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.net == nil {
		return
	}
	st := newState(s.net)
	copy(st.Levels, s.net.DefaultLevels)
	for _, c := range s.comms {
		c.Reset()
	}
	floodFill(s.net, st)
	s.latest.Store(st)
}

// Period returns the minimum time between ticks; zero means unthrottled.
func (s *Simulator) Period() time.Duration {
	return time.Duration(s.period.Load())
}

// SetPeriod changes the tick period. Takes effect from the next tick;
// callable while running.
func (s *Simulator) SetPeriod(d time.Duration) {
	s.period.Store(int64(d))
}

// Latest returns the most recently published state, or nil before the
// first compile. Safe from any goroutine.
func (s *Simulator) Latest() *State { return s.latest.Load() }

// SendCommunicatorEvent queues a key event for the indexed screen
// communicator. Safe from any goroutine; when the queue is full the oldest
// unprocessed event is dropped.
func (s *Simulator) SendCommunicatorEvent(index int32, turnOn bool) {
	s.events.push(commEvent{index: index, turnOn: turnOn})
}

// TakeSnapshot writes the published levels into the grid's elements. The
// grid must have the same geometry as the one compiled.
func (s *Simulator) TakeSnapshot(g *circuit.Grid) {
	st := s.latest.Load()
	s.mu.Lock()
	net := s.net
	s.mu.Unlock()
	if st == nil || net == nil {
		return
	}
	for y := 0; y < net.Height; y++ {
		for x := 0; x < net.Width; x++ {
			e := g.Get(x, y)
			if e.IsEmpty() {
				continue
			}
			level := false
			if node := net.NodeAt(x, y); node >= 0 {
				level = st.Levels[node]
			} else if relay := net.RelayAt(x, y); relay >= 0 {
				level = st.RelayLevels[relay]
			}
			if level != e.Level {
				e.Level = level
				g.Set(x, y, e)
			}
		}
	}
}

// run is the simulation goroutine. Ticks are paced by the period; time
// spent calculating counts against it.
func (s *Simulator) run(stop, done chan struct{}) {
	defer close(done)
	next := time.Now()
	for {
		st := s.calculate(s.net, s.latest.Load())

		// A stop request arriving mid-tick discards the result.
		select {
		case <-stop:
			return
		default:
		}
		s.latest.Store(st)

		if period := time.Duration(s.period.Load()); period != 0 {
			next = next.Add(period)
			if wait := time.Until(next); wait > 0 {
				select {
				case <-stop:
					return
				case <-time.After(wait):
				}
			} else {
				// Overdue: the period is faster than we can step.
				next = time.Now()
			}
		} else {
			select {
			case <-stop:
				return
			default:
			}
		}
	}
}

func newState(net *netlist.Netlist) *State {
	return &State{
		Levels:          make([]bool, net.NodeCount),
		RelayLevels:     make([]bool, len(net.Relays)),
		RelayConducting: make([]bool, len(net.Relays)),
	}
}
