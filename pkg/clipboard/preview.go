package clipboard

import (
	"image"
	"strconv"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"github.com/btzy/circuit-playground/pkg/circuit"
)

// PreviewSize is the edge length of slot thumbnails in pixels.
const PreviewSize = 96

var previewFace font.Face

func init() {
	f, err := truetype.Parse(gomono.TTF)
	if err != nil {
		panic(err)
	}
	previewFace = truetype.NewFace(f, &truetype.Options{
		Size:    12,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// renderPreview rasterizes the grid into a fixed-size thumbnail with the
// slot number in the corner. Cells are scaled with nearest-neighbour so
// small circuits stay crisp.
func renderPreview(g *circuit.Grid, index int) image.Image {
	if g.Empty() {
		return nil
	}
	dc := gg.NewContext(PreviewSize, PreviewSize)
	dc.SetRGB(0.08, 0.08, 0.08)
	dc.Clear()

	src := g.Image(false)
	sw, sh := src.Bounds().Dx(), src.Bounds().Dy()
	scale := (PreviewSize - 8) / sw
	if s := (PreviewSize - 8) / sh; s < scale {
		scale = s
	}
	if scale < 1 {
		scale = 1
	}
	tw, th := sw*scale, sh*scale
	if tw > PreviewSize {
		tw = PreviewSize
	}
	if th > PreviewSize {
		th = PreviewSize
	}
	target := image.Rect(0, 0, tw, th).Add(image.Pt((PreviewSize-tw)/2, (PreviewSize-th)/2))
	draw.NearestNeighbor.Scale(dc.Image().(*image.RGBA), target, src, src.Bounds(), draw.Over, nil)

	if index != 0 {
		dc.SetFontFace(previewFace)
		dc.SetRGB(1, 1, 1)
		dc.DrawStringAnchored(strconv.Itoa(index), 4, 2, 0, 1)
	}
	return dc.Image()
}
