// Package netlist compiles a circuit grid into its electrical connectivity:
// nodes of directly joined conducting cells, plus the devices (sources,
// gates, relays, communicators) attached to them. The compiled form is what
// the simulator steps; it never refers back to grid coordinates at runtime.
package netlist

import (
	"image"

	"github.com/pkg/errors"

	"github.com/btzy/circuit-playground/pkg/circuit"
)

// ErrEmpty is returned when compiling a grid with no elements.
var ErrEmpty = errors.New("netlist: empty circuit")

// Source drives its node to a fixed level.
type Source struct {
	Node  int32       `json:"node"`
	Level bool        `json:"level"`
	Pos   image.Point `json:"pos"`
}

// Gate computes its output node from the signal nodes feeding it.
// A gate with no inputs evaluates its operation over zero operands:
// AND and NOR of nothing are vacuously true, OR and NAND vacuously false.
type Gate struct {
	Kind   circuit.Kind `json:"kind"`
	Output int32        `json:"output"`
	Inputs []int32      `json:"inputs"`
	Pos    image.Point  `json:"pos"`
}

// Relay joins its terminal nodes while conducting. A positive relay
// conducts when any control input is high, a negative relay when any
// control input is low; a relay with no controls never conducts.
type Relay struct {
	Kind      circuit.Kind `json:"kind"`
	Inputs    []int32      `json:"inputs"`
	Terminals []int32      `json:"terminals"`
	Pos       image.Point  `json:"pos"`
}

// Comm is a communicator attachment point: its cell forms part of a node
// that the external channel drives, and adjacent signal cells feed the
// outbound side.
type Comm struct {
	Kind   circuit.Kind `json:"kind"`
	Node   int32        `json:"node"`
	Inputs []int32      `json:"inputs"`
	Handle int32        `json:"handle"`
	Pos    image.Point  `json:"pos"`
}

// Netlist is the compiled connectivity of one grid. Node indices are
// assigned in row-major order of first appearance, so compiling equal
// grids always yields identical numbering.
type Netlist struct {
	Width, Height int
	NodeCount     int

	Sources []Source
	Gates   []Gate
	Relays  []Relay
	Comms   []Comm

	// NodeRelays lists, per node, the relays touching it. The simulator
	// flood-fills through this to merge nodes across conducting relays.
	NodeRelays [][]int32

	// DefaultLevels holds each node's level at the start of simulation,
	// taken from the stored default of any cell in the node.
	DefaultLevels []bool

	nodeAt  []int32
	relayAt []int32
}

// NodeAt returns the node index occupying (x, y), or -1 when the cell is
// not part of any node.
func (n *Netlist) NodeAt(x, y int) int32 {
	if x < 0 || y < 0 || x >= n.Width || y >= n.Height {
		return -1
	}
	return n.nodeAt[y*n.Width+x]
}

// RelayAt returns the relay index at (x, y), or -1.
func (n *Netlist) RelayAt(x, y int) int32 {
	if x < 0 || y < 0 || x >= n.Width || y >= n.Height {
		return -1
	}
	return n.relayAt[y*n.Width+x]
}

var dirs4 = [4]image.Point{{0, -1}, {0, 1}, {-1, 0}, {1, 0}}

// joins reports whether two adjacent conducting cells belong to the same
// node. A signal next to a signal-receiving device is that device's input
// pin, not an electrical join.
func joins(a, b circuit.Kind) bool {
	if !a.Conducts() || !b.Conducts() {
		return false
	}
	if a == circuit.Signal && b.ReceivesSignal() {
		return false
	}
	if b == circuit.Signal && a.ReceivesSignal() {
		return false
	}
	return true
}

// Compile partitions the grid into nodes and collects the attached
// devices. It does not mutate the grid.
func Compile(g *circuit.Grid) (*Netlist, error) {
	if g.Empty() {
		return nil, ErrEmpty
	}
	w, h := g.Width(), g.Height()
	n := &Netlist{
		Width:   w,
		Height:  h,
		nodeAt:  make([]int32, w*h),
		relayAt: make([]int32, w*h),
	}

	// Union-find over cell indices; each conducting cell starts alone.
	parent := make([]int32, w*h)
	rank := make([]uint8, w*h)
	for i := range parent {
		parent[i] = int32(i)
		n.nodeAt[i] = -1
		n.relayAt[i] = -1
	}
	var find func(i int32) int32
	find = func(i int32) int32 {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int32) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		if rank[ra] < rank[rb] {
			ra, rb = rb, ra
		}
		parent[rb] = ra
		if rank[ra] == rank[rb] {
			rank[ra]++
		}
	}

	// First pass: join adjacent conducting cells. Scanning right and down
	// covers every adjacent pair once.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			k := g.Get(x, y).Kind
			if !k.Conducts() {
				continue
			}
			if r := g.Get(x+1, y).Kind; joins(k, r) {
				union(int32(y*w+x), int32(y*w+x+1))
			}
			if d := g.Get(x, y+1).Kind; joins(k, d) {
				union(int32(y*w+x), int32((y+1)*w+x))
			}
		}
	}

	// Second pass: number the roots in row-major order of first
	// appearance so equal grids compile identically.
	nodeOf := make([]int32, w*h)
	for i := range nodeOf {
		nodeOf[i] = -1
	}
	next := int32(0)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !g.Get(x, y).Kind.Conducts() {
				continue
			}
			root := find(int32(y*w + x))
			if nodeOf[root] < 0 {
				nodeOf[root] = next
				n.DefaultLevels = append(n.DefaultLevels, false)
				next++
			}
			// A node defaults high when any of its cells does.
			if g.Get(x, y).Default {
				n.DefaultLevels[nodeOf[root]] = true
			}
			n.nodeAt[y*w+x] = nodeOf[root]
		}
	}

	// Third pass: devices. Relays between the same pair of adjacent relay
	// cells share one synthetic node, allocated on first sight.
	relayPairNode := make(map[[2]int32]int32)
	syntheticNode := func(a, b image.Point) int32 {
		key := [2]int32{int32(a.Y)*int32(w) + int32(a.X), int32(b.Y)*int32(w) + int32(b.X)}
		if key[0] > key[1] {
			key[0], key[1] = key[1], key[0]
		}
		if node, ok := relayPairNode[key]; ok {
			return node
		}
		node := next
		next++
		n.DefaultLevels = append(n.DefaultLevels, false)
		relayPairNode[key] = node
		return node
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			e := g.Get(x, y)
			pos := image.Pt(x, y)
			switch {
			case e.Kind == circuit.Source:
				n.Sources = append(n.Sources, Source{
					Node:  n.nodeAt[y*w+x],
					Level: e.Default,
					Pos:   pos,
				})

			case e.Kind.IsGate():
				gate := Gate{Kind: e.Kind, Output: n.nodeAt[y*w+x], Pos: pos}
				for _, d := range dirs4 {
					if g.Get(x+d.X, y+d.Y).Kind == circuit.Signal {
						gate.Inputs = append(gate.Inputs, n.nodeAt[(y+d.Y)*w+x+d.X])
					}
				}
				n.Gates = append(n.Gates, gate)

			case e.Kind.IsRelay():
				idx := int32(len(n.Relays))
				n.relayAt[y*w+x] = idx
				relay := Relay{Kind: e.Kind, Pos: pos}
				for _, d := range dirs4 {
					nb := g.Get(x+d.X, y+d.Y)
					switch {
					case nb.Kind == circuit.Signal:
						relay.Inputs = append(relay.Inputs, n.nodeAt[(y+d.Y)*w+x+d.X])
					case nb.Kind.IsRelay():
						relay.Terminals = append(relay.Terminals,
							syntheticNode(pos, image.Pt(x+d.X, y+d.Y)))
					case nb.Kind.Conducts():
						relay.Terminals = append(relay.Terminals, n.nodeAt[(y+d.Y)*w+x+d.X])
					}
				}
				n.Relays = append(n.Relays, relay)

			case e.Kind.IsCommunicator():
				comm := Comm{Kind: e.Kind, Node: n.nodeAt[y*w+x], Handle: e.Comm, Pos: pos}
				for _, d := range dirs4 {
					if g.Get(x+d.X, y+d.Y).Kind == circuit.Signal {
						comm.Inputs = append(comm.Inputs, n.nodeAt[(y+d.Y)*w+x+d.X])
					}
				}
				n.Comms = append(n.Comms, comm)
			}
		}
	}
	n.NodeCount = int(next)

	// Invert relay terminals for the simulator's flood fill.
	n.NodeRelays = make([][]int32, n.NodeCount)
	for i, r := range n.Relays {
		for _, t := range r.Terminals {
			n.NodeRelays[t] = append(n.NodeRelays[t], int32(i))
		}
	}
	return n, nil
}
