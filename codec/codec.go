// Package codec compresses whole buffers into a self-describing blob.
//
// A blob is the 4-byte little-endian length of the original buffer
// followed by the compressed bytes. The compressed section carries no
// algorithm tag, so a blob must be decoded with the algorithm that
// produced it. Compression is not guaranteed to shrink the input;
// incompressible data may grow slightly.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/meigma/ultra/internal/sizing"
)

// HeaderSize is the size of the original-length prefix.
const HeaderSize = 4

// DefaultMaxDecodedSize bounds the allocation made for a decoded buffer.
const DefaultMaxDecodedSize = 1 << 30

var (
	// ErrCorrupt is returned when a blob is truncated or does not decode
	// to exactly the length recorded in its header.
	ErrCorrupt = errors.New("codec: corrupt or truncated data")

	// ErrSizeOverflow is returned when a buffer is too large to be
	// described by the 4-byte header.
	ErrSizeOverflow = errors.New("codec: size overflow")
)

// Algorithm identifies the compressor used for the blob body.
type Algorithm uint8

const (
	// Zstd compresses with zstandard frames.
	Zstd Algorithm = iota
	// LZ4 compresses with a single LZ4 block.
	LZ4
)

// String returns the configuration name of the algorithm.
func (a Algorithm) String() string {
	switch a {
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(a))
	}
}

// ParseAlgorithm parses an algorithm from its configuration name.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "zstd", "":
		return Zstd, nil
	case "lz4":
		return LZ4, nil
	default:
		return 0, fmt.Errorf("codec: unknown algorithm %q", name)
	}
}

// Codec encodes and decodes blobs with one algorithm.
// A Codec is not safe for concurrent use.
type Codec struct {
	algorithm  Algorithm
	level      zstd.EncoderLevel
	maxDecoded uint64
	logger     *slog.Logger

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Option configures a Codec.
type Option func(*Codec)

// WithAlgorithm selects the compression algorithm (default Zstd).
func WithAlgorithm(a Algorithm) Option {
	return func(c *Codec) {
		c.algorithm = a
	}
}

// WithLevel sets the zstd encoder level as a numeric level (1-22).
// It has no effect on LZ4.
func WithLevel(level int) Option {
	return func(c *Codec) {
		if level > 0 {
			c.level = zstd.EncoderLevelFromZstd(level)
		}
	}
}

// WithMaxDecodedSize limits the original length accepted by Decode.
// Zero uses DefaultMaxDecodedSize.
func WithMaxDecodedSize(n uint64) Option {
	return func(c *Codec) {
		c.maxDecoded = n
	}
}

// WithLogger sets the logger for codec operations.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Codec) {
		c.logger = logger
	}
}

// New creates a Codec.
func New(opts ...Option) (*Codec, error) {
	c := &Codec{
		algorithm: Zstd,
		level:     zstd.SpeedDefault,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxDecoded == 0 {
		c.maxDecoded = DefaultMaxDecodedSize
	}
	if c.maxDecoded > math.MaxUint32 {
		c.maxDecoded = math.MaxUint32
	}

	switch c.algorithm {
	case Zstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(c.level), zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1), zstd.WithDecoderMaxMemory(c.maxDecoded))
		if err != nil {
			enc.Close()
			return nil, fmt.Errorf("create zstd decoder: %w", err)
		}
		c.enc, c.dec = enc, dec
	case LZ4:
	default:
		return nil, fmt.Errorf("codec: unsupported algorithm %s", c.algorithm)
	}
	return c, nil
}

// Algorithm returns the configured algorithm.
func (c *Codec) Algorithm() Algorithm {
	return c.algorithm
}

// Close releases encoder and decoder resources.
func (c *Codec) Close() {
	if c.enc != nil {
		c.enc.Close()
	}
	if c.dec != nil {
		c.dec.Close()
	}
}

// MaxEncodedLen returns the largest blob Encode can produce for an input of
// n bytes: the header plus at least 105% of n, raised to the worst case of
// the algorithm.
func MaxEncodedLen(n int) int {
	bound := n + (n+19)/20
	if lz := lz4.CompressBlockBound(n); lz > bound {
		bound = lz
	}
	// zstd frame and block headers.
	if zs := n + n>>7 + 64; zs > bound {
		bound = zs
	}
	return HeaderSize + bound
}

// Encode compresses buf and prefixes it with its original length.
func (c *Codec) Encode(buf []byte) ([]byte, error) {
	size, err := sizing.ToUint32(len(buf), ErrSizeOverflow)
	if err != nil {
		return nil, err
	}

	out := make([]byte, HeaderSize, MaxEncodedLen(len(buf)))
	binary.LittleEndian.PutUint32(out, size)
	if len(buf) == 0 {
		return out, nil
	}

	switch c.algorithm {
	case Zstd:
		out = c.enc.EncodeAll(buf, out)
	case LZ4:
		dst := out[HeaderSize:cap(out)]
		n, err := lz4.CompressBlock(buf, dst, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if n == 0 {
			// Only happens when dst is smaller than CompressBlockBound.
			return nil, fmt.Errorf("lz4 compress: %w", ErrSizeOverflow)
		}
		out = out[:HeaderSize+n]
	}

	c.log().Debug("encoded buffer", "algorithm", c.algorithm.String(), "bytes", len(buf), "encoded", len(out))
	return out, nil
}

// Decode reads the original length N from blob and decompresses the
// remainder into exactly N bytes.
func (c *Codec) Decode(blob []byte) ([]byte, error) {
	if len(blob) < HeaderSize {
		return nil, fmt.Errorf("%w: blob is %d bytes", ErrCorrupt, len(blob))
	}
	size := uint64(binary.LittleEndian.Uint32(blob))
	if size == 0 {
		return []byte{}, nil
	}
	if size > c.maxDecoded {
		return nil, fmt.Errorf("%w: original length %d exceeds limit %d", ErrCorrupt, size, c.maxDecoded)
	}
	n, err := sizing.ToInt(size, ErrSizeOverflow)
	if err != nil {
		return nil, err
	}
	body := blob[HeaderSize:]

	var out []byte
	switch c.algorithm {
	case Zstd:
		out, err = c.dec.DecodeAll(body, make([]byte, 0, n))
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %w", ErrCorrupt, err)
		}
	case LZ4:
		out = make([]byte, n)
		var read int
		read, err = lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %w", ErrCorrupt, err)
		}
		out = out[:read]
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: decompression produced no data", ErrCorrupt)
	}
	if len(out) != n {
		return nil, fmt.Errorf("%w: got %d bytes, expected %d", ErrCorrupt, len(out), n)
	}
	return out, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (c *Codec) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}
