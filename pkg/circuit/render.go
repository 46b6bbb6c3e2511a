package circuit

import (
	"image"
	"image/color"
)

// FillPixels rasterizes the region of the grid into buf at one pixel per
// cell, packed as 0x00BBGGRR. stride is the buffer width in pixels; buf
// must hold at least region.Dy()*stride entries. Cells outside the grid
// render as black. useDefault selects the powered-down colors.
func (g *Grid) FillPixels(buf []uint32, stride int, region image.Rectangle, useDefault bool) {
	for y := region.Min.Y; y < region.Max.Y; y++ {
		row := buf[(y-region.Min.Y)*stride:]
		for x := region.Min.X; x < region.Max.X; x++ {
			var px uint32
			if e := g.Get(x, y); !e.IsEmpty() {
				c := e.DisplayColor(useDefault)
				px = uint32(c.R) | uint32(c.G)<<8 | uint32(c.B)<<16
			}
			row[x-region.Min.X] = px
		}
	}
}

// Image renders the whole grid into a new NRGBA image at one pixel per
// cell. Empty cells are opaque black.
func (g *Grid) Image(useDefault bool) *image.NRGBA {
	img := image.NewNRGBA(g.Bounds())
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			c := color.NRGBA{A: 0xFF}
			if e := g.cells[y*g.w+x]; !e.IsEmpty() {
				c = e.DisplayColor(useDefault)
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}
