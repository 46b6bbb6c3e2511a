package netlist

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExportJSON renders the netlist as indented JSON for inspection tooling.
func (n *Netlist) ExportJSON() ([]byte, error) {
	output := struct {
		Width    int      `json:"width"`
		Height   int      `json:"height"`
		Nodes    int      `json:"node_count"`
		Sources  []Source `json:"sources"`
		Gates    []Gate   `json:"gates"`
		Relays   []Relay  `json:"relays"`
		Comms    []Comm   `json:"communicators"`
		Defaults []bool   `json:"default_levels"`
	}{
		Width:    n.Width,
		Height:   n.Height,
		Nodes:    n.NodeCount,
		Sources:  n.Sources,
		Gates:    n.Gates,
		Relays:   n.Relays,
		Comms:    n.Comms,
		Defaults: n.DefaultLevels,
	}
	return json.MarshalIndent(output, "", "  ")
}

// ExportSexp renders the netlist as an s-expression, one device per form.
func (n *Netlist) ExportSexp() string {
	var b strings.Builder
	fmt.Fprintf(&b, "(netlist\n  (nodes %d)\n", n.NodeCount)
	for _, s := range n.Sources {
		fmt.Fprintf(&b, "  (source (node %d) (level %s))\n", s.Node, level(s.Level))
	}
	for _, g := range n.Gates {
		fmt.Fprintf(&b, "  (gate (kind %s) (output %d) (inputs%s))\n",
			g.Kind.Mnemonic(), g.Output, nodes(g.Inputs))
	}
	for _, r := range n.Relays {
		fmt.Fprintf(&b, "  (relay (kind %s) (inputs%s) (terminals%s))\n",
			r.Kind.Mnemonic(), nodes(r.Inputs), nodes(r.Terminals))
	}
	for _, c := range n.Comms {
		fmt.Fprintf(&b, "  (comm (kind %s) (node %d) (inputs%s))\n",
			c.Kind.Mnemonic(), c.Node, nodes(c.Inputs))
	}
	b.WriteString(")\n")
	return b.String()
}

func nodes(ids []int32) string {
	var b strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&b, " %d", id)
	}
	return b.String()
}

func level(high bool) string {
	if high {
		return "high"
	}
	return "low"
}
