package textsteg

import (
	"github.com/zedseven/textsteg/internal/raster"
)

type point struct {
	x, y int
}

// pixelStream presents a Grid as a sequence of Blocks, in raster order.
// Blocks handed out by next can be written back to the pixels they were read from with put.
type pixelStream struct {
	grid   *Grid
	walker *raster.Walker
	at     [pixelsPerBlock]point
}

func newPixelStream(grid *Grid) (*pixelStream, error) {
	walker, err := raster.NewWalker(grid.W, grid.H)
	if err != nil {
		return nil, &InvalidFormatError{err.Error()}
	}
	return &pixelStream{grid: grid, walker: walker}, nil
}

func (s *pixelStream) availablePixels() int {
	return int(s.walker.Remaining())
}

// next reads the next 3 pixels into blk. It returns false, leaving the stream untouched, when fewer than 3
// pixels remain.
func (s *pixelStream) next(blk *Block) bool {
	if s.walker.Remaining() < pixelsPerBlock {
		return false
	}
	for i := 0; i < pixelsPerBlock; i++ {
		x, y, err := s.walker.Next()
		if err != nil {
			// Remaining guarantees enough positions
			panic(err)
		}
		s.at[i] = point{x, y}
		p := s.grid.At(x, y)
		copy(blk[i*channelsPerPixel:(i+1)*channelsPerPixel], p[:])
	}
	return true
}

// put writes blk back to the pixels of the block most recently returned by next.
func (s *pixelStream) put(blk *Block) {
	for i, pt := range s.at {
		var p Pixel
		copy(p[:], blk[i*channelsPerPixel:(i+1)*channelsPerPixel])
		s.grid.Set(pt.x, pt.y, p)
	}
}

// channelStream presents a flat sequence of channel values as a sequence of Blocks.
type channelStream struct {
	channels []uint8
	pos      int
}

func (s *channelStream) availablePixels() int {
	return (len(s.channels) - s.pos) / channelsPerPixel
}

func (s *channelStream) next(blk *Block) bool {
	if len(s.channels)-s.pos < channelsPerBlock {
		return false
	}
	copy(blk[:], s.channels[s.pos:s.pos+channelsPerBlock])
	s.pos += channelsPerBlock
	return true
}

func (s *channelStream) put(blk *Block) {
	copy(s.channels[s.pos-channelsPerBlock:s.pos], blk[:])
}
