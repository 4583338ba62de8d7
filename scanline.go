package catpng

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/dylif/catpng/chunk"
)

// maxIDATPayload caps the payload of each emitted IDAT chunk,
// comfortably below the format's 2^31-1 ceiling.
const maxIDATPayload = 32 << 20

// locateSingleIDAT returns the payload of the one IDAT chunk in an
// input's chunk sequence. Zero or several IDAT chunks are rejected;
// inputs that split one compressed stream across chunks are not
// supported.
func locateSingleIDAT(chunks []*chunk.Chunk) ([]byte, error) {
	var found [][]byte
	for _, c := range chunks {
		if c.Type == chunk.TypeIDAT {
			found = append(found, c.Data)
		}
	}
	if len(found) != 1 {
		return nil, &IDATCountError{Found: len(found)}
	}
	return found[0], nil
}

// maxInflatePrealloc bounds how much buffer space is reserved up
// front; anything beyond it is allocated as data actually arrives.
const maxInflatePrealloc = 1 << 20

// inflate decompresses a zlib-wrapped IDAT stream and verifies the
// result against the size implied by the input's header.
func inflate(compressed []byte, h ImageHeader) ([]byte, error) {
	expected, err := h.rawSize()
	if err != nil {
		return nil, err
	}

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompress, err)
	}
	defer zr.Close()

	hint := expected
	if hint > maxInflatePrealloc {
		hint = maxInflatePrealloc
	}
	raw := bytes.NewBuffer(make([]byte, 0, hint))

	// Reading one byte past the expected size detects an over-long
	// stream without inflating the excess.
	if _, err := io.Copy(raw, io.LimitReader(zr, int64(expected)+1)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompress, err)
	}

	if raw.Len() != expected {
		return nil, &SizeMismatchError{Expected: expected, Actual: raw.Len()}
	}

	return raw.Bytes(), nil
}

// mergedImage is the accumulated output: the shared merge key, the
// summed height and every input's raw scanline bytes in input order.
type mergedImage struct {
	key         MergeKey
	totalHeight uint64
	raw         []byte
}

// concatenate joins each input's decompressed scanlines in input
// order. Scanlines are kept intact and contiguous; heights are
// summed.
func concatenate(key MergeKey, decoded []*decodedInput) mergedImage {
	m := mergedImage{key: key}

	size := 0
	for _, d := range decoded {
		size += len(d.raw)
	}
	m.raw = make([]byte, 0, size)

	for _, d := range decoded {
		m.raw = append(m.raw, d.raw...)
		m.totalHeight += uint64(d.header.Height)
	}

	return m
}

// header builds the corrected output header: the shared key fields
// with the summed height.
func (m mergedImage) header() ImageHeader {
	return ImageHeader{
		Width:             m.key.Width,
		Height:            uint32(m.totalHeight),
		BitDepth:          m.key.BitDepth,
		ColorType:         m.key.ColorType,
		CompressionMethod: m.key.CompressionMethod,
		FilterMethod:      m.key.FilterMethod,
		InterlaceMethod:   m.key.InterlaceMethod,
	}
}

// deflate recompresses raw image data as a single zlib stream at the
// requested level.
func deflate(raw []byte, level Level) ([]byte, error) {
	var buf bytes.Buffer

	zw, err := zlib.NewWriterLevel(&buf, level.zlib())
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// splitIDAT splits a compressed stream into IDAT chunks of at most
// maxIDATPayload bytes each. A single chunk is emitted whenever the
// stream fits.
func splitIDAT(compressed []byte) []*chunk.Chunk {
	var chunks []*chunk.Chunk
	for {
		n := len(compressed)
		if n > maxIDATPayload {
			n = maxIDATPayload
		}
		chunks = append(chunks, &chunk.Chunk{Type: chunk.TypeIDAT, Data: compressed[:n]})
		compressed = compressed[n:]
		if len(compressed) == 0 {
			return chunks
		}
	}
}
