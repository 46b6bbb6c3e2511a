package cmd

import (
	"fmt"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"github.com/btzy/circuit-playground/pkg/circuit"
	"github.com/btzy/circuit-playground/pkg/netlist"
)

var (
	renderOut    string
	renderScale  int
	renderLabels bool
)

var renderCmd = &cobra.Command{
	Use:   "render <file>",
	Short: "Render a circuit to a PNG image",
	Long: `Rasterize a circuit file into a PNG, one square per cell. Elements are
drawn in their resting colors. With --labels, communicators are annotated
with their compiled index, which is the key used to drive them from the
keyboard or from the run command.

Examples:
  cpg render adder.ckt -o adder.png
  cpg render rot13.ccpg -o rot13.png --scale 16 --labels`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVarP(&renderOut, "output", "o", "circuit.png", "output PNG path")
	renderCmd.Flags().IntVar(&renderScale, "scale", 8, "pixels per cell")
	renderCmd.Flags().BoolVar(&renderLabels, "labels", false, "annotate communicators with their index")
}

func runRender(cmd *cobra.Command, args []string) error {
	g, err := readGrid(args[0])
	if err != nil {
		return err
	}
	if g.Empty() {
		return errors.Errorf("%s holds an empty circuit", args[0])
	}
	if renderScale < 1 {
		return errors.Errorf("invalid scale %d", renderScale)
	}

	b := g.Bounds()
	dc := gg.NewContext(b.Dx()*renderScale, b.Dy()*renderScale)
	dc.SetColor(color.Black)
	dc.Clear()

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			e := g.Get(x, y)
			if e.IsEmpty() {
				continue
			}
			dc.SetColor(e.DisplayColor(true))
			dc.DrawRectangle(float64(x*renderScale), float64(y*renderScale),
				float64(renderScale), float64(renderScale))
			dc.Fill()
		}
	}

	if renderLabels {
		if err := drawCommLabels(dc, &g); err != nil {
			return err
		}
	}

	if err := dc.SavePNG(renderOut); err != nil {
		return errors.Wrapf(err, "writing %s", renderOut)
	}
	fmt.Printf("Rendered %dx%d cells to %s\n", b.Dx(), b.Dy(), renderOut)
	return nil
}

func drawCommLabels(dc *gg.Context, g *circuit.Grid) error {
	net, err := netlist.Compile(g)
	if err != nil {
		return errors.Wrap(err, "compiling circuit")
	}
	ttf, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return errors.Wrap(err, "parsing label font")
	}
	size := float64(renderScale) * 0.9
	dc.SetFontFace(truetype.NewFace(ttf, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	}))
	dc.SetColor(color.White)
	for i, c := range net.Comms {
		cx := (float64(c.Pos.X) + 0.5) * float64(renderScale)
		cy := (float64(c.Pos.Y) + 0.5) * float64(renderScale)
		dc.DrawStringAnchored(fmt.Sprintf("%d", i), cx, cy, 0.5, 0.5)
	}
	return nil
}
