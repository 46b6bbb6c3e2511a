package sim

import (
	"github.com/btzy/circuit-playground/pkg/circuit"
	"github.com/btzy/circuit-playground/pkg/netlist"
)

// calculate computes one tick. Devices read only the previous state, so
// update order within a tick does not matter; a node driven high by any
// device stays high.
func (s *Simulator) calculate(net *netlist.Netlist, old *State) *State {
	s.drainEvents()

	st := newState(net)
	st.Tick = old.Tick + 1

	for _, src := range net.Sources {
		if src.Level {
			st.Levels[src.Node] = true
		}
	}

	for _, gate := range net.Gates {
		if st.Levels[gate.Output] {
			continue
		}
		st.Levels[gate.Output] = evalGate(gate.Kind, gate.Inputs, old.Levels)
	}

	for i, relay := range net.Relays {
		st.RelayConducting[i] = relayCloses(relay.Kind, relay.Inputs, old.Levels)
	}

	for i, comm := range net.Comms {
		c := s.comms[i]
		if c.Receive() {
			st.Levels[comm.Node] = true
		}
		out := false
		for _, in := range comm.Inputs {
			if old.Levels[in] {
				out = true
				break
			}
		}
		c.Transmit(out)
	}

	floodFill(net, st)
	return st
}

// evalGate evaluates a gate over the previous tick's input levels. A gate
// with no inputs takes its operation's identity: AND and NOR are vacuously
// true, OR and NAND vacuously false.
func evalGate(kind circuit.Kind, inputs []int32, levels []bool) bool {
	switch kind {
	case circuit.AndGate:
		for _, in := range inputs {
			if !levels[in] {
				return false
			}
		}
		return true
	case circuit.OrGate:
		for _, in := range inputs {
			if levels[in] {
				return true
			}
		}
		return false
	case circuit.NandGate:
		for _, in := range inputs {
			if !levels[in] {
				return true
			}
		}
		return false
	case circuit.NorGate:
		for _, in := range inputs {
			if levels[in] {
				return false
			}
		}
		return true
	}
	return false
}

// relayCloses reports whether the relay conducts this tick. A positive
// relay closes when any control is high, a negative relay when any control
// is low; a relay without controls never closes.
func relayCloses(kind circuit.Kind, inputs []int32, levels []bool) bool {
	for _, in := range inputs {
		if levels[in] == (kind == circuit.PositiveRelay) {
			return true
		}
	}
	return false
}

// floodFill spreads high levels across closed relays. Driven nodes seed
// the fill; a relay carries current (lights up) when the fill crosses it.
func floodFill(net *netlist.Netlist, st *State) {
	type item struct {
		relay bool
		index int32
	}
	var stack []item
	for i, high := range st.Levels {
		if high {
			// Re-derived during the fill.
			st.Levels[i] = false
			stack = append(stack, item{index: int32(i)})
		}
	}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !it.relay {
			if st.Levels[it.index] {
				continue
			}
			st.Levels[it.index] = true
			for _, relay := range net.NodeRelays[it.index] {
				if st.RelayConducting[relay] && !st.RelayLevels[relay] {
					stack = append(stack, item{relay: true, index: relay})
				}
			}
		} else {
			if st.RelayLevels[it.index] {
				continue
			}
			st.RelayLevels[it.index] = true
			for _, node := range net.Relays[it.index].Terminals {
				if !st.Levels[node] {
					stack = append(stack, item{index: node})
				}
			}
		}
	}
}

// drainEvents delivers queued key events to their screen communicators.
// Runs at the start of each tick on the simulation goroutine.
func (s *Simulator) drainEvents() {
	for {
		ev, ok := s.events.pop()
		if !ok {
			return
		}
		if int(ev.index) < len(s.comms) {
			if screen, ok := s.comms[ev.index].(*ScreenCommunicator); ok {
				screen.insertEvent(ev.turnOn)
			}
		}
	}
}
