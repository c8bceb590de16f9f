// Package raster hands out pixel coordinates of a W x H image in row-major order.
package raster

import (
	"fmt"
)

// Error types

// ExhaustedError is returned when a walker is asked for a position but has none left to hand out.
type ExhaustedError struct {
	Count int64
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("The pool of pixel positions is empty (%d handed out).", e.Count)
}

// InvalidDimensionsError is returned for negative image dimensions.
type InvalidDimensionsError struct {
	W, H int
}

func (e *InvalidDimensionsError) Error() string {
	return fmt.Sprintf("The dimensions %dx%d are not valid.", e.W, e.H)
}

// Walker

// Walker works sequentially through the pixels of an image, left to right and top to bottom,
// wrapping to the next row at the image width.
type Walker struct {
	w      int
	pos    int64
	posMax int64
}

// NewWalker returns a Walker over a w x h image, starting at (0, 0).
func NewWalker(w, h int) (*Walker, error) {
	if w < 0 || h < 0 {
		return nil, &InvalidDimensionsError{w, h}
	}
	return &Walker{w: w, posMax: int64(w) * int64(h)}, nil
}

// Next returns the coordinates of the next pixel.
func (wk *Walker) Next() (x, y int, err error) {
	if wk.pos >= wk.posMax {
		return -1, -1, &ExhaustedError{Count: wk.posMax}
	}
	x, y = PosToXY(wk.pos, wk.w)
	wk.pos++
	return x, y, nil
}

// Remaining returns the number of positions not yet handed out.
func (wk *Walker) Remaining() int64 {
	return wk.posMax - wk.pos
}

// Pos returns the index of the next position to be handed out.
func (wk *Walker) Pos() int64 {
	return wk.pos
}

// PosToXY converts a row-major pixel index into coordinates for an image of width w.
func PosToXY(pos int64, w int) (x, y int) {
	x = int(pos % int64(w))
	y = int(pos / int64(w))
	return
}
