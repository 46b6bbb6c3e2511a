// Package clipboard stores cut and copied circuit selections across ten
// numbered slots. Slot 0 is the default used by plain copy and paste; the
// numbered slots mirror into it so the most recently touched selection is
// always a plain paste away.
package clipboard

import (
	"image"

	"github.com/btzy/circuit-playground/pkg/circuit"
)

// NumClipboards is the number of selectable slots.
const NumClipboards = 10

type slot struct {
	state   circuit.Grid
	preview image.Image
}

// Manager holds the clipboard slots. Not safe for concurrent use; it
// lives on the editor goroutine.
type Manager struct {
	slots [NumClipboards]slot
}

// New returns an empty clipboard manager.
func New() *Manager { return &Manager{} }

// Read returns a copy of the slot's contents. Reading a non-empty
// numbered slot promotes it to slot 0; reading an empty one leaves slot 0
// alone.
func (m *Manager) Read(index int) circuit.Grid {
	state := m.slots[index].state.Clone()
	if index != 0 && !state.Empty() {
		m.store(0, &state)
	}
	return state
}

// Write stores the grid in the slot. Writing to a numbered slot also
// writes slot 0.
func (m *Manager) Write(g *circuit.Grid, index int) {
	m.store(index, g)
	if index != 0 {
		m.store(0, g)
	}
}

func (m *Manager) store(index int, g *circuit.Grid) {
	m.slots[index].state = g.Clone()
	m.slots[index].preview = renderPreview(g, index)
}

// Empty reports whether the slot holds nothing.
func (m *Manager) Empty(index int) bool { return m.slots[index].state.Empty() }

// Preview returns the slot's thumbnail, or nil for an empty slot.
func (m *Manager) Preview(index int) image.Image { return m.slots[index].preview }

// Order returns the slot indices in display order.
func (m *Manager) Order() [NumClipboards]int {
	var order [NumClipboards]int
	for i := range order {
		order[i] = i
	}
	return order
}
