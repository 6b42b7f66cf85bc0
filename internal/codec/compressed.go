package codec

import (
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/tphakala/gibberlink-gateway/internal/logging"
)

// CompressionAlgo names a supported compression algorithm for Compressed.
type CompressionAlgo string

// Zstd is currently the only supported compression algorithm.
const Zstd CompressionAlgo = "zstd"

// Compressed wraps a base Codec with a compression layer. Its Name is
// base.Name()+algo, e.g. "jsonzstd". If the requested algorithm is
// unavailable at runtime, Encode/Decode fall through to the base codec's
// uncompressed bytes and log a warning — compression is best-effort, never
// a hard requirement of the wire format.
type Compressed struct {
	base Codec
	algo CompressionAlgo
}

// NewCompressed returns a Compressed codec wrapping base with algo.
func NewCompressed(base Codec, algo CompressionAlgo) Compressed {
	return Compressed{base: base, algo: algo}
}

// Name returns the compression-suffixed codec name.
func (c Compressed) Name() string { return c.base.Name() + string(c.algo) }

var (
	zstdEncoderPool = sync.Pool{
		New: func() any {
			enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
			if err != nil {
				return nil
			}
			return enc
		},
	}
	zstdDecoderOnce sync.Once
	zstdDecoder     *zstd.Decoder
)

func getZstdDecoder() *zstd.Decoder {
	zstdDecoderOnce.Do(func() {
		dec, err := zstd.NewReader(nil)
		if err == nil {
			zstdDecoder = dec
		}
	})
	return zstdDecoder
}

// Encode encodes value with the base codec, then compresses the result. If
// algo is not "zstd" or the encoder is unavailable, returns the uncompressed
// base bytes and logs a warning instead of failing.
func (c Compressed) Encode(value Value) ([]byte, error) {
	raw, err := c.base.Encode(value)
	if err != nil {
		return nil, err
	}

	if c.algo != Zstd {
		logging.Warn("unsupported compression algorithm, falling through to uncompressed", "algo", c.algo)
		return raw, nil
	}

	encAny := zstdEncoderPool.Get()
	enc, ok := encAny.(*zstd.Encoder)
	if !ok || enc == nil {
		logging.Warn("zstd encoder unavailable, falling through to uncompressed")
		return raw, nil
	}
	defer zstdEncoderPool.Put(enc)

	return enc.EncodeAll(raw, make([]byte, 0, len(raw))), nil
}

// Decode decompresses data with zstd, then decodes it with the base codec.
// If decompression fails (e.g. data was never compressed, or zstd is
// unavailable), it falls through to decoding data directly as base bytes.
func (c Compressed) Decode(data []byte) (Value, error) {
	if c.algo != Zstd {
		return c.base.Decode(data)
	}

	dec := getZstdDecoder()
	if dec == nil {
		logging.Warn("zstd decoder unavailable, falling through to uncompressed decode")
		return c.base.Decode(data)
	}

	decompressed, err := dec.DecodeAll(data, nil)
	if err != nil {
		logging.Warn("zstd decompression failed, falling through to uncompressed decode", "error", err)
		return c.base.Decode(data)
	}

	return c.base.Decode(decompressed)
}
