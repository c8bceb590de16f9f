package textsteg

import (
	"fmt"

	"github.com/zedseven/binmani"
)

// Block is a Bit-Block: the 9 channel values of 3 consecutive pixels, in raster order.
// Channels 0-7 carry one payload byte, most-significant bit first, and channel 8 carries the termination flag.
type Block [channelsPerBlock]uint8

// IsLast reports whether the block's termination flag marks the end of the payload.
func (blk *Block) IsLast() bool {
	return blk[terminatorIndex]%2 != 0
}

// Bit rule

func forceEven(v uint8) uint8 {
	if v%2 != 0 {
		return v - 1
	}
	return v
}

func forceOdd(v uint8) uint8 {
	if v%2 != 0 {
		return v
	}
	// 0 cannot be decremented, so step up instead
	if v == 0 {
		return v + 1
	}
	return v - 1
}

// writeBit forces the parity of v to match bit (0 = even, 1 = odd), moving it by at most 1.
func writeBit(v, bit uint8) uint8 {
	if bit == 0 {
		return forceEven(v)
	}
	return forceOdd(v)
}

func readBit(v uint8) uint8 {
	return v % 2
}

// Block encoding

// EncodeBlock writes b into the data channels of blk and sets the termination flag according to last.
func EncodeBlock(blk *Block, b byte, last bool) {
	bits := *binmani.BytesToBits(&[]byte{b})
	for j := uint8(0); j < bitsPerByte; j++ {
		blk[j] = writeBit(blk[j], bits[j])
	}
	if last {
		blk[terminatorIndex] = forceOdd(blk[terminatorIndex])
	} else {
		blk[terminatorIndex] = forceEven(blk[terminatorIndex])
	}
}

// DecodeBlock reads the byte held in blk, and whether blk is the last block of the payload.
func DecodeBlock(blk Block) (b byte, last bool) {
	var acc uint16
	for j := uint8(0); j < bitsPerByte; j++ {
		acc = binmani.WriteTo(acc, bitsPerByte-j-1, 1, uint16(readBit(blk[j])))
	}
	return byte(acc), blk.IsLast()
}

// Block sequences

// blockStream hands out consecutive Blocks and writes modified ones back where they came from.
type blockStream interface {
	// availablePixels returns the number of pixels not yet handed out.
	availablePixels() int
	// next reads the next block into blk, or returns false when less than a whole block remains.
	next(blk *Block) bool
	// put writes blk back over the block most recently returned by next.
	put(blk *Block)
}

// EncodeChannels encodes payload into a flat sequence of channel values, 9 channels per payload byte.
// Nothing is written unless the whole payload fits.
func EncodeChannels(channels []uint8, payload []byte) error {
	return encodeBlocks(&channelStream{channels: channels}, payload, OutputNone)
}

// DecodeChannels reads a payload back out of a flat sequence of channel values.
// If the sequence ends before a terminating block, the bytes read so far are returned with a
// *MissingTerminatorError.
func DecodeChannels(channels []uint8) ([]byte, error) {
	return decodeBlocks(&channelStream{channels: channels}, OutputNone)
}

func encodeBlocks(s blockStream, payload []byte, outputLevel OutputLevel) error {
	if len(payload) <= 0 {
		return &InvalidFormatError{"The payload is empty."}
	}
	if needed, available := pixelsNeeded(len(payload)), s.availablePixels(); available < needed {
		return &InsufficientCapacityError{Needed: needed, Available: available}
	}

	var blk Block
	for i, b := range payload {
		if !s.next(&blk) {
			// Capacity was checked above
			panic("textsteg: block stream ran out during encoding")
		}
		printlnLvl(outputLevel, OutputDebug, fmt.Sprintf("block: %d, byte: %#08b", i, b))
		printlnLvl(outputLevel, OutputDebug, "\tChannels before:", blk)

		EncodeBlock(&blk, b, i == len(payload)-1)

		printlnLvl(outputLevel, OutputDebug, "\tChannels after: ", blk)
		s.put(&blk)
	}
	return nil
}

func decodeBlocks(s blockStream, outputLevel OutputLevel) ([]byte, error) {
	payload := make([]byte, 0, min(s.availablePixels()/pixelsPerBlock, 1024))
	var blk Block
	for s.next(&blk) {
		b, last := DecodeBlock(blk)
		payload = append(payload, b)

		printlnLvl(outputLevel, OutputDebug,
			fmt.Sprintf("block: %d, channels: %v, read: %#08b, last: %v", len(payload)-1, blk, b, last))

		if last {
			return payload, nil
		}
	}
	return payload, &MissingTerminatorError{Recovered: len(payload)}
}
