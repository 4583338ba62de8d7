package catpng

import (
	"encoding/binary"
	"fmt"
)

// PNG color types.
const (
	colorGrayscale      = 0
	colorTrueColor      = 2
	colorPaletted       = 3
	colorGrayscaleAlpha = 4
	colorTrueColorAlpha = 6
)

const ihdrSize = 13

// legalDepths lists the permitted bit depths for each color type.
var legalDepths = map[uint8][]uint8{
	colorGrayscale:      {1, 2, 4, 8, 16},
	colorTrueColor:      {8, 16},
	colorPaletted:       {1, 2, 4, 8},
	colorGrayscaleAlpha: {8, 16},
	colorTrueColorAlpha: {8, 16},
}

// ImageHeader is the decoded payload of an IHDR chunk.
type ImageHeader struct {
	Width             uint32
	Height            uint32
	BitDepth          uint8
	ColorType         uint8
	CompressionMethod uint8
	FilterMethod      uint8
	InterlaceMethod   uint8
}

// ParseIHDR decodes a 13 byte IHDR payload. Interlaced headers parse
// successfully; interlacing is rejected later, per input, when the
// headers are checked for mergeability.
func ParseIHDR(b []byte) (ImageHeader, error) {
	if len(b) != ihdrSize {
		return ImageHeader{}, fmt.Errorf("%w: payload is %d bytes, want %d", ErrInvalidIHDR, len(b), ihdrSize)
	}

	h := ImageHeader{
		Width:             binary.BigEndian.Uint32(b[0:4]),
		Height:            binary.BigEndian.Uint32(b[4:8]),
		BitDepth:          b[8],
		ColorType:         b[9],
		CompressionMethod: b[10],
		FilterMethod:      b[11],
		InterlaceMethod:   b[12],
	}

	if h.Width == 0 || h.Height == 0 {
		return ImageHeader{}, fmt.Errorf("%w: zero dimension in %dx%d", ErrInvalidIHDR, h.Width, h.Height)
	}

	depths, ok := legalDepths[h.ColorType]
	if !ok {
		return ImageHeader{}, fmt.Errorf("%w: color type %d", ErrInvalidIHDR, h.ColorType)
	}
	legal := false
	for _, d := range depths {
		if d == h.BitDepth {
			legal = true
			break
		}
	}
	if !legal {
		return ImageHeader{}, fmt.Errorf("%w: bit depth %d for color type %d", ErrInvalidIHDR, h.BitDepth, h.ColorType)
	}

	if h.CompressionMethod != 0 {
		return ImageHeader{}, fmt.Errorf("%w: compression method %d", ErrInvalidIHDR, h.CompressionMethod)
	}
	if h.FilterMethod != 0 {
		return ImageHeader{}, fmt.Errorf("%w: filter method %d", ErrInvalidIHDR, h.FilterMethod)
	}
	if h.InterlaceMethod > 1 {
		return ImageHeader{}, fmt.Errorf("%w: interlace method %d", ErrInvalidIHDR, h.InterlaceMethod)
	}

	return h, nil
}

// payload re-encodes the header as a 13 byte IHDR payload.
func (h ImageHeader) payload() []byte {
	b := make([]byte, ihdrSize)
	binary.BigEndian.PutUint32(b[0:4], h.Width)
	binary.BigEndian.PutUint32(b[4:8], h.Height)
	b[8] = h.BitDepth
	b[9] = h.ColorType
	b[10] = h.CompressionMethod
	b[11] = h.FilterMethod
	b[12] = h.InterlaceMethod
	return b
}

// channels returns the number of samples per pixel.
func (h ImageHeader) channels() int {
	switch h.ColorType {
	case colorTrueColor:
		return 3
	case colorGrayscaleAlpha:
		return 2
	case colorTrueColorAlpha:
		return 4
	default:
		// Grayscale and paletted images carry one sample per pixel.
		return 1
	}
}

// maxRawSize caps how much decompressed image data a single input may
// declare.
const maxRawSize = 1 << 31

// rowBytes returns the size of one scanline excluding the leading
// filter type byte.
func (h ImageHeader) rowBytes() uint64 {
	bits := uint64(h.Width) * uint64(h.BitDepth) * uint64(h.channels())
	return (bits + 7) / 8
}

// rawSize returns the expected decompressed image data size: every
// row is a filter type byte followed by rowBytes of pixel data.
// Headers declaring more than maxRawSize are rejected here, before
// anything is allocated; the unchecked product of two 32-bit
// dimension fields can overflow even 64-bit arithmetic.
func (h ImageHeader) rawSize() (int, error) {
	row := h.rowBytes() + 1
	if row > maxRawSize || uint64(h.Height) > maxRawSize/row {
		return 0, fmt.Errorf("%w: %d scanlines of %d bytes", ErrImageTooLarge, h.Height, row)
	}
	return int(uint64(h.Height) * row), nil
}

// MergeKey is the set of header fields that must be identical across
// all inputs. Height is deliberately absent; it is the field being
// summed.
type MergeKey struct {
	Width             uint32
	BitDepth          uint8
	ColorType         uint8
	CompressionMethod uint8
	FilterMethod      uint8
	InterlaceMethod   uint8
}

func (h ImageHeader) mergeKey() MergeKey {
	return MergeKey{
		Width:             h.Width,
		BitDepth:          h.BitDepth,
		ColorType:         h.ColorType,
		CompressionMethod: h.CompressionMethod,
		FilterMethod:      h.FilterMethod,
		InterlaceMethod:   h.InterlaceMethod,
	}
}

// diff names the first field on which k and o disagree, or "" when
// they are equal.
func (k MergeKey) diff(o MergeKey) string {
	switch {
	case k.Width != o.Width:
		return "width"
	case k.BitDepth != o.BitDepth:
		return "bit depth"
	case k.ColorType != o.ColorType:
		return "color type"
	case k.CompressionMethod != o.CompressionMethod:
		return "compression method"
	case k.FilterMethod != o.FilterMethod:
		return "filter method"
	case k.InterlaceMethod != o.InterlaceMethod:
		return "interlace method"
	}
	return ""
}

// CheckMergeable verifies that every header agrees with the first on
// all MergeKey fields and that no input is interlaced. It returns the
// shared key on success.
func CheckMergeable(headers []ImageHeader) (MergeKey, error) {
	if len(headers) == 0 {
		return MergeKey{}, ErrNoInputs
	}

	key := headers[0].mergeKey()
	for i, h := range headers {
		if h.InterlaceMethod != 0 {
			return MergeKey{}, &InterlacedError{Index: i}
		}
		if i == 0 {
			continue
		}
		if field := key.diff(h.mergeKey()); field != "" {
			return MergeKey{}, &HeaderMismatchError{Index: i, Field: field}
		}
	}

	return key, nil
}
