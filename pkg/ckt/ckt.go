// Package ckt reads and writes the textual circuit description format.
// Each line places one element, or a straight run of them:
//
//	# half of an SR latch
//	source 0 0
//	wire 1 0 .. 4 0
//	signal 5 0
//	nand 6 0 high
//
// The trailing level sets the element's default. The format is meant for
// hand-written fixtures and for diffing circuits in version control; the
// binary save format remains the canonical one.
package ckt

import (
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/pkg/errors"

	"github.com/btzy/circuit-playground/pkg/circuit"
)

type document struct {
	Items []*item `parser:"@@*"`
}

type item struct {
	Pos   lexer.Position
	Kind  string  `parser:"@Ident"`
	From  coord   `parser:"@@"`
	To    *coord  `parser:"( Range @@ )?"`
	Level *string `parser:"@Level?"`
}

type coord struct {
	X int `parser:"@Int"`
	Y int `parser:"@Int"`
}

var cktLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Level", Pattern: `\b(?:high|low)\b`},
	{Name: "Ident", Pattern: `[a-z]+`},
	{Name: "Int", Pattern: `\d+`},
	{Name: "Range", Pattern: `\.\.`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
})

var cktParser = participle.MustBuild[document](
	participle.Lexer(cktLexer),
	participle.Elide("Comment", "Whitespace"),
)

// Parse reads a circuit description into a grid.
func Parse(r io.Reader) (circuit.Grid, error) {
	doc, err := cktParser.Parse("", r)
	if err != nil {
		return circuit.Grid{}, errors.Wrap(err, "parsing circuit description")
	}
	return build(doc)
}

// ParseString is Parse over a string.
func ParseString(s string) (circuit.Grid, error) {
	return Parse(strings.NewReader(s))
}

func build(doc *document) (circuit.Grid, error) {
	var g circuit.Grid
	var off image.Point
	for _, it := range doc.Items {
		kind, ok := circuit.KindFromMnemonic(it.Kind)
		if !ok || kind == circuit.Empty {
			return circuit.Grid{}, errors.Errorf("%s: unknown element %q", it.Pos, it.Kind)
		}
		e := circuit.New(kind)
		if it.Level != nil {
			e.Level = *it.Level == "high"
			e.Default = e.Level
		}
		to := it.From
		if it.To != nil {
			to = *it.To
		}
		if it.From.X != to.X && it.From.Y != to.Y {
			return circuit.Grid{}, errors.Errorf("%s: run from (%d,%d) to (%d,%d) is not straight",
				it.Pos, it.From.X, it.From.Y, to.X, to.Y)
		}
		for _, pt := range runPoints(it.From, to) {
			// Set re-anchors the grid when a cell lands above or left of
			// the current box; fold the translation back so the file's
			// coordinates stay absolute.
			_, d := g.Set(pt.X+off.X, pt.Y+off.Y, e)
			off = off.Add(d)
		}
	}
	g.Normalize()
	return g, nil
}

func runPoints(from, to coord) []coord {
	step := coord{X: sign(to.X - from.X), Y: sign(to.Y - from.Y)}
	pts := []coord{from}
	for pt := from; pt != to; {
		pt.X += step.X
		pt.Y += step.Y
		pts = append(pts, pt)
	}
	return pts
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}

// Format renders the grid as a circuit description. Horizontal runs of
// identical wire elements collapse into range lines; everything else gets
// one line per cell, in row-major order.
func Format(g *circuit.Grid) string {
	var b strings.Builder
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			e := g.Get(x, y)
			if e.IsEmpty() {
				continue
			}
			end := x
			if e.Kind.IsWire() {
				for g.Get(end+1, y).SameState(e) {
					end++
				}
			}
			if end > x {
				fmt.Fprintf(&b, "%s %d %d .. %d %d", e.Kind.Mnemonic(), x, y, end, y)
			} else {
				fmt.Fprintf(&b, "%s %d %d", e.Kind.Mnemonic(), x, y)
			}
			if level := formatLevel(e); level != "" {
				b.WriteByte(' ')
				b.WriteString(level)
			}
			b.WriteByte('\n')
			x = end
		}
	}
	return b.String()
}

// formatLevel emits the default level only when it differs from what a
// freshly placed element would have, keeping output minimal.
func formatLevel(e circuit.Element) string {
	if e.Default == circuit.New(e.Kind).Default {
		return ""
	}
	if e.Default {
		return "high"
	}
	return "low"
}
