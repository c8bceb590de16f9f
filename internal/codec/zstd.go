package codec

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var zstdEncPool = sync.Pool{
	New: func() any {
		enc, err := zstd.NewWriter(
			nil,
			zstd.WithEncoderConcurrency(1),
			zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
			zstd.WithLowerEncoderMem(true),
		)
		if err != nil {
			panic(err)
		}
		return enc
	},
}

var zstdDecPool = sync.Pool{
	New: func() any {
		dec, err := zstd.NewReader(
			nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(true),
		)
		if err != nil {
			panic(err)
		}
		return dec
	},
}

// Zstd compresses the output of an inner codec with zstd.
type Zstd struct {
	Inner Codec
}

// Default is the codec used for cached records: msgpack compressed with zstd.
var Default Codec = Zstd{Inner: MsgPack{}}

// Marshal serializes v with the inner codec and compresses the result.
func (z Zstd) Marshal(v any) ([]byte, error) {
	raw, err := z.Inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	enc := zstdEncPool.Get().(*zstd.Encoder)
	defer zstdEncPool.Put(enc)
	return enc.EncodeAll(raw, make([]byte, 0, len(raw))), nil
}

// Unmarshal decompresses data and deserializes it with the inner codec.
func (z Zstd) Unmarshal(data []byte, v any) error {
	dec := zstdDecPool.Get().(*zstd.Decoder)
	defer zstdDecPool.Put(dec)
	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("zstd decode: %w", err)
	}
	return z.Inner.Unmarshal(raw, v)
}

// Name returns the inner codec name suffixed with "+zstd".
func (z Zstd) Name() string { return z.Inner.Name() + "+zstd" }
