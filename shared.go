// Package textsteg hides text inside the colour channels of lossless RGB images, and digs it back out.
//
// Each payload byte is written to a block of 3 pixels (9 channels) in raster order. The parity of the first 8
// channels carries the bits of the byte, most-significant bit first, and the parity of the 9th channel tells the
// reader whether another block follows (even) or the payload ends here (odd).
package textsteg

import (
	"fmt"
)

const (
	bitsPerByte      uint8 = 8
	channelsPerPixel       = 3
	pixelsPerBlock         = 3
	channelsPerBlock       = channelsPerPixel * pixelsPerBlock
	terminatorIndex        = channelsPerBlock - 1
	VersionMax       uint8 = 1
	VersionMid       uint8 = 0
	VersionMin       uint8 = 0
)

// Error types

// InvalidFormatError is returned when the arguments to an operation are malformed.
type InvalidFormatError struct {
	ErrorDesc string
}

func (e *InvalidFormatError) Error() string {
	if len(e.ErrorDesc) > 0 {
		return e.ErrorDesc
	}
	return "The provided data is of an invalid format."
}

// InvalidImageFormatError is returned when an image could not be decoded into a pixel grid, or is stored in a
// container that does not preserve channel values exactly.
type InvalidImageFormatError struct {
	Format     string
	InnerError error
}

func (e *InvalidImageFormatError) Error() string {
	ret := "The provided image is not a supported lossless image."
	if len(e.Format) > 0 && e.InnerError != nil {
		return fmt.Sprintf("%v Format: %v Inner error: %v", ret, e.Format, e.InnerError.Error())
	} else if len(e.Format) > 0 {
		return fmt.Sprintf("%v Format: %v", ret, e.Format)
	} else if e.InnerError != nil {
		return fmt.Sprintf("%v Inner error: %v", ret, e.InnerError.Error())
	}
	return ret
}

func (e *InvalidImageFormatError) Unwrap() error {
	return e.InnerError
}

// InsufficientCapacityError is returned when a payload needs more pixels than the grid provides.
// Needed and Available are pixel counts.
type InsufficientCapacityError struct {
	Needed    int
	Available int
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("There is not enough space available to store the payload within the image. "+
		"Needed %d px, available %d px.", e.Needed, e.Available)
}

// MissingTerminatorError is returned by the decoders when the grid ran out before a terminating block was read.
// The bytes recovered up to that point are still returned alongside it.
type MissingTerminatorError struct {
	Recovered int
}

func (e *MissingTerminatorError) Error() string {
	return fmt.Sprintf("The image ran out of pixels before the end of the payload was found. Recovered %d B.",
		e.Recovered)
}

// Library methods

// Version returns the library version as a zero-padded string.
func Version() string {
	return fmt.Sprintf("%02d.%02d.%02d", VersionMax, VersionMid, VersionMin)
}

// Capacity returns the number of payload bytes the grid can hold.
func Capacity(grid *Grid) int {
	if grid == nil {
		return 0
	}
	return grid.Len() / pixelsPerBlock
}

// Shared methods

func pixelsNeeded(payloadLen int) int {
	return payloadLen * pixelsPerBlock
}
