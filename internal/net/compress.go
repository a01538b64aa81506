package net

import (
	"fmt"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec selects how a snapshot payload is compressed.
type Codec uint8

const (
	CodecNone Codec = iota
	CodecZstd
	CodecLZ4
)

const (
	// maxLZ4Ratio bounds how far an lz4 block can expand on decompression.
	maxLZ4Ratio = 255
	// zstdMinMemory keeps the decoder limit above the encoder's default
	// window, which small frames still declare.
	zstdMinMemory = 8 << 20
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecZstd:
		return "zstd"
	case CodecLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

// ParseCodec maps a configuration name to a Codec. Empty means none.
func ParseCodec(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return CodecNone, nil
	case "zstd":
		return CodecZstd, nil
	case "lz4":
		return CodecLZ4, nil
	default:
		return CodecNone, fmt.Errorf("unsupported model codec %q", name)
	}
}

// compress returns the encoded payload and the codec actually used;
// lz4 falls back to none for incompressible input.
func compress(c Codec, data []byte) ([]byte, Codec, error) {
	switch c {
	case CodecNone:
		return data, CodecNone, nil
	case CodecZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, c, fmt.Errorf("zstd encoder: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), CodecZstd, nil
	case CodecLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(data)))
		var lc lz4.Compressor
		n, err := lc.CompressBlock(data, dst)
		if err != nil {
			return nil, c, fmt.Errorf("lz4 compression failed: %w", err)
		}
		if n == 0 {
			return data, CodecNone, nil
		}
		return dst[:n], CodecLZ4, nil
	default:
		return nil, c, fmt.Errorf("unsupported model codec %s", c)
	}
}

// checkPayloadSizes rejects header sizes that codec c cannot produce,
// before anything is allocated from them.
func checkPayloadSizes(c Codec, rawLen, dataLen uint64) error {
	switch c {
	case CodecNone:
		if rawLen != dataLen {
			return fmt.Errorf("%w: raw size %d does not match stored size %d", ErrInvalidModel, rawLen, dataLen)
		}
	case CodecZstd:
		// bounded by the decoder memory limit
	case CodecLZ4:
		if rawLen > dataLen*maxLZ4Ratio+16 {
			return fmt.Errorf("%w: raw size %d too large for %d lz4 bytes", ErrInvalidModel, rawLen, dataLen)
		}
	default:
		return fmt.Errorf("%w: unknown codec %d", ErrInvalidModel, uint8(c))
	}
	return nil
}

// decompress reverses compress; rawLen is the recorded payload size and
// has been checked by checkPayloadSizes.
func decompress(c Codec, data []byte, rawLen uint64) ([]byte, error) {
	switch c {
	case CodecNone:
		return data, nil
	case CodecZstd:
		dec, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(max(rawLen, zstdMinMemory)))
		if err != nil {
			return nil, fmt.Errorf("zstd decoder: %w", err)
		}
		defer dec.Close()
		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd decompression failed: %v", ErrInvalidModel, err)
		}
		return out, nil
	case CodecLZ4:
		out := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(data, out)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4 decompression failed: %v", ErrInvalidModel, err)
		}
		return out[:n], nil
	default:
		return nil, fmt.Errorf("%w: unknown codec %d", ErrInvalidModel, uint8(c))
	}
}
