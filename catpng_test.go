package catpng_test

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dylif/catpng"
	"github.com/dylif/catpng/chunk"
)

func newCat(level catpng.Level) *catpng.CatPNG {
	return catpng.New(level, log.New(io.Discard, "", 0))
}

func ihdrPayload(width, height uint32, bitDepth, colorType, interlace uint8) []byte {
	b := make([]byte, 13)
	binary.BigEndian.PutUint32(b[0:4], width)
	binary.BigEndian.PutUint32(b[4:8], height)
	b[8] = bitDepth
	b[9] = colorType
	b[12] = interlace
	return b
}

func compress(t *testing.T, raw []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, err := zw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func buildPNG(t *testing.T, ihdr []byte, idats ...[]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, chunk.WriteSignature(&buf))
	require.NoError(t, chunk.Write(&buf, &chunk.Chunk{Type: chunk.TypeIHDR, Data: ihdr}))
	for _, idat := range idats {
		require.NoError(t, chunk.Write(&buf, &chunk.Chunk{Type: chunk.TypeIDAT, Data: idat}))
	}
	require.NoError(t, chunk.Write(&buf, &chunk.Chunk{Type: chunk.TypeIEND}))
	return buf.Bytes()
}

// grayRaw builds unfiltered 8-bit grayscale scanlines with pixel
// values counting up from start.
func grayRaw(width, height int, start byte) []byte {
	raw := make([]byte, 0, height*(1+width))
	v := start
	for y := 0; y < height; y++ {
		raw = append(raw, 0)
		for x := 0; x < width; x++ {
			raw = append(raw, v)
			v++
		}
	}
	return raw
}

func grayPNG(t *testing.T, width, height int, start byte) []byte {
	t.Helper()
	return buildPNG(t, ihdrPayload(uint32(width), uint32(height), 8, 0, 0), compress(t, grayRaw(width, height, start)))
}

// parseOutput splits an output PNG into its header and the
// decompressed image data, checking the chunk sequence on the way.
func parseOutput(t *testing.T, out []byte) (catpng.ImageHeader, []byte) {
	t.Helper()
	r := bytes.NewReader(out)
	require.NoError(t, chunk.ReadSignature(r))

	var chunks []*chunk.Chunk
	for {
		c, err := chunk.Read(r)
		require.NoError(t, err)
		chunks = append(chunks, c)
		if c.Type == chunk.TypeIEND {
			break
		}
	}
	assert.Zero(t, r.Len(), "trailing bytes after IEND")

	require.GreaterOrEqual(t, len(chunks), 3)
	require.Equal(t, chunk.TypeIHDR, chunks[0].Type)
	var compressed []byte
	for _, c := range chunks[1 : len(chunks)-1] {
		require.Equal(t, chunk.TypeIDAT, c.Type)
		compressed = append(compressed, c.Data...)
	}
	require.Empty(t, chunks[len(chunks)-1].Data)

	header, err := catpng.ParseIHDR(chunks[0].Data)
	require.NoError(t, err)

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	require.NoError(t, err)
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	require.NoError(t, err)

	return header, raw
}

func TestConcatTwoGray(t *testing.T) {
	raw1 := grayRaw(4, 2, 10)
	raw2 := grayRaw(4, 2, 100)

	inputs := []catpng.Input{
		{Name: "first.png", Reader: bytes.NewReader(grayPNG(t, 4, 2, 10))},
		{Name: "second.png", Reader: bytes.NewReader(grayPNG(t, 4, 2, 100))},
	}

	var out bytes.Buffer
	require.NoError(t, newCat(10).Concat(inputs, &out))

	header, raw := parseOutput(t, out.Bytes())
	assert.Equal(t, uint32(4), header.Width)
	assert.Equal(t, uint32(4), header.Height)
	assert.Equal(t, uint8(8), header.BitDepth)
	assert.Equal(t, uint8(0), header.ColorType)
	assert.Equal(t, append(append([]byte{}, raw1...), raw2...), raw)

	// The output must also satisfy an independent decoder.
	img, err := png.Decode(bytes.NewReader(out.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 4), img.Bounds())
	assert.Equal(t, color.Gray{Y: 10}, img.At(0, 0))
	assert.Equal(t, color.Gray{Y: 100}, img.At(0, 2))
}

func TestConcatSingleInput(t *testing.T) {
	inputs := []catpng.Input{{Name: "only.png", Reader: bytes.NewReader(grayPNG(t, 3, 5, 1))}}

	var out bytes.Buffer
	require.NoError(t, newCat(catpng.DefaultLevel).Concat(inputs, &out))

	header, raw := parseOutput(t, out.Bytes())
	assert.Equal(t, uint32(3), header.Width)
	assert.Equal(t, uint32(5), header.Height)
	assert.Equal(t, grayRaw(3, 5, 1), raw)
}

func TestConcatOrderWithManyInputs(t *testing.T) {
	// More inputs than decode workers, with unequal heights, so a
	// completion-order bug would scramble the output.
	var inputs []catpng.Input
	var want []byte
	height := uint32(0)
	for i := 0; i < 9; i++ {
		h := i%3 + 1
		raw := grayRaw(2, h, byte(i*20))
		want = append(want, raw...)
		height += uint32(h)
		inputs = append(inputs, catpng.Input{Name: "in.png", Reader: bytes.NewReader(grayPNG(t, 2, h, byte(i*20)))})
	}

	var out bytes.Buffer
	require.NoError(t, newCat(10).Concat(inputs, &out))

	header, raw := parseOutput(t, out.Bytes())
	assert.Equal(t, height, header.Height)
	assert.Equal(t, want, raw)
}

func TestConcatLevelExtremes(t *testing.T) {
	for _, level := range []catpng.Level{0, 10} {
		inputs := []catpng.Input{
			{Name: "a.png", Reader: bytes.NewReader(grayPNG(t, 4, 2, 0))},
			{Name: "b.png", Reader: bytes.NewReader(grayPNG(t, 4, 2, 50))},
		}

		var out bytes.Buffer
		require.NoError(t, newCat(level).Concat(inputs, &out))

		_, raw := parseOutput(t, out.Bytes())
		assert.Equal(t, append(grayRaw(4, 2, 0), grayRaw(4, 2, 50)...), raw, "level %d", level)
	}
}

func TestConcatWidthMismatch(t *testing.T) {
	inputs := []catpng.Input{
		{Name: "a.png", Reader: bytes.NewReader(grayPNG(t, 4, 2, 0))},
		{Name: "b.png", Reader: bytes.NewReader(grayPNG(t, 5, 2, 0))},
	}

	var out bytes.Buffer
	err := newCat(10).Concat(inputs, &out)

	var mismatch *catpng.HeaderMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 1, mismatch.Index)
	assert.Equal(t, "width", mismatch.Field)
	assert.Zero(t, out.Len(), "failed run must not write output")
}

func TestConcatInterlacedRejected(t *testing.T) {
	// An interlaced input parses but cannot be merged; it is rejected
	// before its image data is inflated.
	laced := buildPNG(t, ihdrPayload(4, 2, 8, 0, 1), compress(t, grayRaw(4, 2, 0)))
	inputs := []catpng.Input{
		{Name: "flat.png", Reader: bytes.NewReader(grayPNG(t, 4, 2, 0))},
		{Name: "laced.png", Reader: bytes.NewReader(laced)},
	}

	var out bytes.Buffer
	err := newCat(10).Concat(inputs, &out)

	var interlaced *catpng.InterlacedError
	require.ErrorAs(t, err, &interlaced)
	assert.Equal(t, 1, interlaced.Index)
	assert.Zero(t, out.Len())
}

func TestConcatIDATCount(t *testing.T) {
	none := buildPNG(t, ihdrPayload(4, 2, 8, 0, 0))
	var count *catpng.IDATCountError

	err := newCat(10).Concat([]catpng.Input{{Name: "none.png", Reader: bytes.NewReader(none)}}, io.Discard)
	require.ErrorAs(t, err, &count)
	assert.Equal(t, 0, count.Found)

	compressed := compress(t, grayRaw(4, 2, 0))
	double := buildPNG(t, ihdrPayload(4, 2, 8, 0, 0), compressed[:3], compressed[3:])
	err = newCat(10).Concat([]catpng.Input{{Name: "double.png", Reader: bytes.NewReader(double)}}, io.Discard)
	require.ErrorAs(t, err, &count)
	assert.Equal(t, 2, count.Found)
}

func TestConcatNamesFailingInput(t *testing.T) {
	corrupt := grayPNG(t, 4, 2, 0)
	corrupt[len(corrupt)-1] ^= 0xff // last chunk CRC

	inputs := []catpng.Input{
		{Name: "good.png", Reader: bytes.NewReader(grayPNG(t, 4, 2, 0))},
		{Name: "bad.png", Reader: bytes.NewReader(corrupt)},
	}

	err := newCat(10).Concat(inputs, io.Discard)
	var crcErr *chunk.CRCError
	require.ErrorAs(t, err, &crcErr)
	assert.Contains(t, err.Error(), "bad.png")
	assert.Contains(t, err.Error(), "input 1")
}

func TestConcatSizeMismatch(t *testing.T) {
	short := buildPNG(t, ihdrPayload(4, 2, 8, 0, 0), compress(t, []byte{0, 1, 2}))

	err := newCat(10).Concat([]catpng.Input{{Name: "short.png", Reader: bytes.NewReader(short)}}, io.Discard)
	var size *catpng.SizeMismatchError
	require.ErrorAs(t, err, &size)
	assert.Equal(t, 10, size.Expected)
	assert.Equal(t, 3, size.Actual)
}

func TestConcatHugeHeaderRejected(t *testing.T) {
	// Maximal dimensions pass every per-field IHDR check; the run
	// must still fail with a typed error rather than trying to buffer
	// the implied image data.
	huge := buildPNG(t, ihdrPayload(0xffffffff, 0xffffffff, 16, 6, 0), compress(t, []byte{0}))

	err := newCat(10).Concat([]catpng.Input{{Name: "huge.png", Reader: bytes.NewReader(huge)}}, io.Discard)
	assert.ErrorIs(t, err, catpng.ErrImageTooLarge)
}

func TestConcatNoInputs(t *testing.T) {
	err := newCat(10).Concat(nil, io.Discard)
	assert.ErrorIs(t, err, catpng.ErrNoInputs)
}

func TestConcatNotPNG(t *testing.T) {
	err := newCat(10).Concat([]catpng.Input{{Name: "junk", Reader: bytes.NewReader([]byte("JFIF not a png"))}}, io.Discard)
	assert.ErrorIs(t, err, chunk.ErrBadSignature)
}

func TestConcatStdlibEncodedInputs(t *testing.T) {
	// Inputs produced by the standard library encoder use real
	// scanline filters; the merge must survive them untouched.
	encode := func(start int) []byte {
		img := image.NewGray(image.Rect(0, 0, 6, 3))
		for y := 0; y < 3; y++ {
			for x := 0; x < 6; x++ {
				img.SetGray(x, y, color.Gray{Y: uint8(start + y*6 + x)})
			}
		}
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, img))
		return buf.Bytes()
	}

	inputs := []catpng.Input{
		{Name: "a.png", Reader: bytes.NewReader(encode(0))},
		{Name: "b.png", Reader: bytes.NewReader(encode(100))},
	}

	var out bytes.Buffer
	require.NoError(t, newCat(10).Concat(inputs, &out))

	img, err := png.Decode(bytes.NewReader(out.Bytes()))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 6, 6), img.Bounds())
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			start := 0
			yy := y
			if y >= 3 {
				start, yy = 100, y-3
			}
			assert.Equal(t, color.Gray{Y: uint8(start + yy*6 + x)}, img.At(x, y), "pixel %d,%d", x, y)
		}
	}
}
