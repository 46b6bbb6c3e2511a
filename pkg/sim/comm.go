package sim

import (
	"sync"
	"sync/atomic"

	"github.com/btzy/circuit-playground/pkg/circuit"
)

// Communicator is the boundary between the circuit and the outside world.
// Transmit and Receive are each called exactly once per tick on the
// simulation goroutine; Reset is called between runs.
type Communicator interface {
	// Transmit delivers the circuit's outbound bit for this tick.
	Transmit(bool)
	// Receive returns the bit driven onto the communicator's node this
	// tick.
	Receive() bool
	// Reset returns the communicator to its initial state.
	Reset()
}

// Registry keeps communicators alive across recompiles so that a grid
// edit does not lose file bindings or pending input. Elements reference
// their communicator by handle.
type Registry struct {
	mu     sync.Mutex
	next   int32
	comms  map[int32]Communicator
	newFns map[circuit.Kind]func() Communicator
}

// NewRegistry returns a registry with the built-in communicator kinds.
func NewRegistry() *Registry {
	return &Registry{
		next:  1,
		comms: make(map[int32]Communicator),
		newFns: map[circuit.Kind]func() Communicator{
			circuit.ScreenComm:     func() Communicator { return &ScreenCommunicator{} },
			circuit.FileInputComm:  func() Communicator { return NewFileInputCommunicator() },
			circuit.FileOutputComm: func() Communicator { return NewFileOutputCommunicator() },
		},
	}
}

// Allocate creates a communicator of the given kind and returns its
// handle, for the editor to stamp onto a newly placed element.
func (r *Registry) Allocate(kind circuit.Kind) int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	newFn, ok := r.newFns[kind]
	if !ok {
		return 0
	}
	h := r.next
	r.next++
	r.comms[h] = newFn()
	return h
}

// Lookup returns the communicator for a handle, or nil.
func (r *Registry) Lookup(handle int32) Communicator {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.comms[handle]
}

// acquire resolves a handle during compilation. An element that carries
// none (a freshly loaded or pasted grid, since the save formats do not
// persist handles) gets a new communicator under a new handle; the
// caller writes the handle back onto the element so later compiles find
// the same communicator instead of minting another.
func (r *Registry) acquire(kind circuit.Kind, handle int32) (Communicator, int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.comms[handle]; ok && handle != 0 {
		return c, handle
	}
	c := r.newFns[kind]()
	h := r.next
	r.next++
	r.comms[h] = c
	return c, h
}

// ScreenCommunicator connects a circuit to the on-screen indicator and
// keyboard. Key events queue up to five levels deep; the head of the
// queue is the live input level. The transmit side is the level the
// circuit drives, exposed for rendering.
type ScreenCommunicator struct {
	transmit atomic.Bool

	// Event queue, touched only on the simulation goroutine. state holds
	// the queued levels as a bitfield with the live level in bit 0; count
	// is the number of queued levels beyond the live one.
	state uint8
	count uint8
}

func (c *ScreenCommunicator) Transmit(value bool) { c.transmit.Store(value) }

func (c *ScreenCommunicator) Receive() bool {
	if c.count > 0 {
		c.state >>= 1
		c.count--
	}
	return c.state&1 != 0
}

func (c *ScreenCommunicator) Reset() {
	c.state = 0
	c.count = 0
}

// TransmitState returns the level the circuit last drove, for display.
// Safe from any goroutine.
func (c *ScreenCommunicator) TransmitState() bool { return c.transmit.Load() }

// insertEvent appends a level to the input queue. At most four levels
// queue behind the live one; beyond that the newest queued level absorbs
// the event.
func (c *ScreenCommunicator) insertEvent(value bool) {
	var bit uint8
	if value {
		bit = 1
	}
	if c.count < 4 {
		c.count++
		c.state |= bit << c.count
	} else {
		c.state |= bit << 4
	}
}
