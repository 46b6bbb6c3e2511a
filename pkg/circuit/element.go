package circuit

import "image/color"

// Kind identifies what occupies a grid cell. The numeric values are part of
// the save format (one byte per cell, kind in the upper six bits), so new
// kinds must be appended, never reordered.
type Kind uint8

const (
	Empty Kind = iota
	ConductiveWire
	InsulatedWire
	Signal
	Source
	PositiveRelay
	NegativeRelay
	AndGate
	OrGate
	NandGate
	NorGate
	ScreenComm
	FileInputComm
	FileOutputComm

	numKinds
)

var kindNames = [...]string{
	Empty:          "Empty",
	ConductiveWire: "Conductive Wire",
	InsulatedWire:  "Insulated Wire",
	Signal:         "Signal",
	Source:         "Source",
	PositiveRelay:  "Positive Relay",
	NegativeRelay:  "Negative Relay",
	AndGate:        "AND Gate",
	OrGate:         "OR Gate",
	NandGate:       "NAND Gate",
	NorGate:        "NOR Gate",
	ScreenComm:     "Screen I/O",
	FileInputComm:  "File Input",
	FileOutputComm: "File Output",
}

var kindMnemonics = [...]string{
	Empty:          "empty",
	ConductiveWire: "wire",
	InsulatedWire:  "iwire",
	Signal:         "signal",
	Source:         "source",
	PositiveRelay:  "prelay",
	NegativeRelay:  "nrelay",
	AndGate:        "and",
	OrGate:         "or",
	NandGate:       "nand",
	NorGate:        "nor",
	ScreenComm:     "screen",
	FileInputComm:  "filein",
	FileOutputComm: "fileout",
}

// Mnemonic returns the short lower-case identifier used in textual
// circuit descriptions.
func (k Kind) Mnemonic() string {
	if int(k) < len(kindMnemonics) {
		return kindMnemonics[k]
	}
	return "invalid"
}

// KindFromMnemonic resolves a short identifier back to its Kind.
func KindFromMnemonic(s string) (Kind, bool) {
	for k, m := range kindMnemonics {
		if m == s {
			return Kind(k), true
		}
	}
	return Empty, false
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Valid reports whether k is one of the defined cell kinds.
func (k Kind) Valid() bool { return k < numKinds }

// IsWire reports whether k is one of the two wire kinds. Wires carry no
// persistent logic state of their own; their displayed level is derived from
// the node they belong to.
func (k Kind) IsWire() bool { return k == ConductiveWire || k == InsulatedWire }

// IsGate reports whether k is one of the four combinational gates.
func (k Kind) IsGate() bool { return k >= AndGate && k <= NorGate }

// IsRelay reports whether k is a relay.
func (k Kind) IsRelay() bool { return k == PositiveRelay || k == NegativeRelay }

// IsCommunicator reports whether k bridges to an external resource.
func (k Kind) IsCommunicator() bool {
	return k == ScreenComm || k == FileInputComm || k == FileOutputComm
}

// Conducts reports whether a cell of kind k joins the electrical node of its
// conducting neighbours. Insulated wire is occupancy only and relays switch
// between nodes rather than belonging to one.
func (k Kind) Conducts() bool {
	switch k {
	case ConductiveWire, Signal, Source, AndGate, OrGate, NandGate, NorGate,
		ScreenComm, FileInputComm, FileOutputComm:
		return true
	}
	return false
}

// ReceivesSignal reports whether a cell of kind k treats an adjacent Signal
// as a device input pin instead of a net join.
func (k Kind) ReceivesSignal() bool {
	return k == Source || k.IsGate() || k.IsRelay() || k.IsCommunicator()
}

// Element is the value stored in one grid cell.
//
// Level is the live logic level and Default the level restored on reset.
// Comm is a non-owning handle into the session's communicator registry
// (zero when unbound); it is wiring detail, not cell content, and is
// excluded from equality and hashing.
type Element struct {
	Kind    Kind
	Level   bool
	Default bool
	Comm    int32
}

// New returns the element placed by the pencil tool for the given kind.
// Sources come up driven high, everything else low.
func New(kind Kind) Element {
	if kind == Source {
		return Element{Kind: kind, Level: true, Default: true}
	}
	return Element{Kind: kind}
}

// SameState reports whether two cells hold identical contents, ignoring the
// communicator handle.
func (e Element) SameState(o Element) bool {
	return e.Kind == o.Kind && e.Level == o.Level && e.Default == o.Default
}

// IsEmpty reports whether the cell is unoccupied.
func (e Element) IsEmpty() bool { return e.Kind == Empty }

var kindColors = [...]color.NRGBA{
	Empty:          {},
	ConductiveWire: {R: 0x99, G: 0x99, B: 0x99, A: 0xFF},
	InsulatedWire:  {R: 0x00, G: 0x66, B: 0x44, A: 0xFF},
	Signal:         {R: 0xFF, G: 0xFF, B: 0x00, A: 0xFF},
	Source:         {R: 0x00, G: 0xFF, B: 0x00, A: 0xFF},
	PositiveRelay:  {R: 0xFF, G: 0x99, B: 0x00, A: 0xFF},
	NegativeRelay:  {R: 0xFF, G: 0x33, B: 0x00, A: 0xFF},
	AndGate:        {R: 0xFF, G: 0x00, B: 0xFF, A: 0xFF},
	OrGate:         {R: 0x99, G: 0x00, B: 0xFF, A: 0xFF},
	NandGate:       {R: 0x66, G: 0x88, B: 0xFF, A: 0xFF},
	NorGate:        {R: 0x00, G: 0x88, B: 0xFF, A: 0xFF},
	ScreenComm:     {R: 0xFF, G: 0x00, B: 0x00, A: 0xFF},
	FileInputComm:  {R: 0x00, G: 0xFF, B: 0xFF, A: 0xFF},
	FileOutputComm: {R: 0xFF, G: 0x66, B: 0xCC, A: 0xFF},
}

// BaseColor returns the full-brightness display color for a kind.
func (k Kind) BaseColor() color.NRGBA {
	if int(k) < len(kindColors) {
		return kindColors[k]
	}
	return color.NRGBA{}
}

// DisplayColor returns the color a cell renders with. High cells are drawn
// brightened toward the base color, low cells dimmed to a third of it.
func (e Element) DisplayColor(useDefault bool) color.NRGBA {
	base := e.Kind.BaseColor()
	level := e.Level
	if useDefault {
		level = e.Default
	}
	if level {
		return color.NRGBA{
			R: uint8(0xFF - (0xFF-int(base.R))*2/3),
			G: uint8(0xFF - (0xFF-int(base.G))*2/3),
			B: uint8(0xFF - (0xFF-int(base.B))*2/3),
			A: base.A,
		}
	}
	return color.NRGBA{
		R: uint8(int(base.R) * 2 / 3),
		G: uint8(int(base.G) * 2 / 3),
		B: uint8(int(base.B) * 2 / 3),
		A: base.A,
	}
}
