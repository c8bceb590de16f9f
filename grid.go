package textsteg

import (
	"fmt"
)

// Pixel is a single RGB pixel.
type Pixel [channelsPerPixel]uint8

// Grid is a W x H raster of RGB pixels, stored row-major.
type Grid struct {
	W, H int
	Pix  []Pixel
}

// NewGrid returns a zeroed grid of the given dimensions.
func NewGrid(w, h int) *Grid {
	if w < 0 || h < 0 {
		panic(fmt.Sprintf("textsteg: negative grid dimensions %dx%d", w, h))
	}
	return &Grid{W: w, H: h, Pix: make([]Pixel, w*h)}
}

// Len returns the number of pixels in the grid.
func (g *Grid) Len() int {
	return len(g.Pix)
}

// At returns the pixel at (x, y).
func (g *Grid) At(x, y int) Pixel {
	return g.Pix[y*g.W+x]
}

// Set replaces the pixel at (x, y).
func (g *Grid) Set(x, y int, p Pixel) {
	g.Pix[y*g.W+x] = p
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	c := &Grid{W: g.W, H: g.H, Pix: make([]Pixel, len(g.Pix))}
	copy(c.Pix, g.Pix)
	return c
}

func (g *Grid) String() string {
	return fmt.Sprintf("{%dx%d %d px}", g.W, g.H, len(g.Pix))
}
