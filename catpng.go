/*
Package catpng concatenates same-width PNG images vertically into a
single PNG, working at the chunk level rather than through an image
decoder. Each input's compressed image data is inflated, the raw
scanlines are joined in input order and the result is recompressed as
one stream behind a corrected header.
*/
package catpng

import (
	"io"
	"log"
	"math"

	"github.com/dylif/catpng/chunk"
)

// Input is one PNG byte source, named for diagnostics.
type Input struct {
	Name   string
	Reader io.Reader
}

// CatPNG concatenates PNG inputs at a fixed compression level.
type CatPNG struct {
	level  Level
	logger *log.Logger
}

// New returns a CatPNG writing output at the given compression level.
func New(level Level, logger *log.Logger) *CatPNG {
	return &CatPNG{
		level:  level,
		logger: logger,
	}
}

// decodeInput reads one PNG from its source: signature, chunks
// through IEND, IHDR parse, single IDAT location, inflate. Chunk
// types other than IHDR and IDAT are read and dropped. Interlacing is
// rejected here, before inflation, because the expected raw size only
// holds for the non-interlaced scanline layout.
func (c *CatPNG) decodeInput(index int, input Input) (*decodedInput, error) {
	if err := chunk.ReadSignature(input.Reader); err != nil {
		return nil, err
	}

	var chunks []*chunk.Chunk
	for {
		ck, err := chunk.Read(input.Reader)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, ck)
		if ck.Type == chunk.TypeIEND {
			break
		}
	}

	if chunks[0].Type != chunk.TypeIHDR {
		return nil, ErrMissingIHDR
	}
	header, err := ParseIHDR(chunks[0].Data)
	if err != nil {
		return nil, err
	}
	if header.InterlaceMethod != 0 {
		return nil, &InterlacedError{Index: index}
	}

	compressed, err := locateSingleIDAT(chunks)
	if err != nil {
		return nil, err
	}

	raw, err := inflate(compressed, header)
	if err != nil {
		return nil, err
	}

	c.logger.Printf("%s: %dx%d, bit depth %d, color type %d", input.Name, header.Width, header.Height, header.BitDepth, header.ColorType)

	return &decodedInput{header: header, raw: raw}, nil
}

// Concat reads every input PNG, validates that they are mergeable and
// writes the combined PNG to w. Nothing is written to w until every
// input has been fully decoded and validated, so a failed run leaves
// the sink untouched.
func (c *CatPNG) Concat(inputs []Input, w io.Writer) error {
	if len(inputs) == 0 {
		return ErrNoInputs
	}

	decoded, err := c.decodeAll(inputs)
	if err != nil {
		return err
	}

	return c.assemble(decoded, w)
}

// assemble validates the decoded inputs against each other and writes
// the combined PNG.
func (c *CatPNG) assemble(decoded []*decodedInput, w io.Writer) error {
	headers := make([]ImageHeader, len(decoded))
	for i, d := range decoded {
		headers[i] = d.header
	}
	key, err := CheckMergeable(headers)
	if err != nil {
		return err
	}

	merged := concatenate(key, decoded)
	if merged.totalHeight > math.MaxUint32 {
		return ErrTooTall
	}

	compressed, err := deflate(merged.raw, c.level)
	if err != nil {
		return err
	}

	out := merged.header()
	c.logger.Printf("output: %dx%d, %d bytes compressed", out.Width, out.Height, len(compressed))

	if err := chunk.WriteSignature(w); err != nil {
		return err
	}
	if err := chunk.Write(w, &chunk.Chunk{Type: chunk.TypeIHDR, Data: out.payload()}); err != nil {
		return err
	}
	for _, ck := range splitIDAT(compressed) {
		if err := chunk.Write(w, ck); err != nil {
			return err
		}
	}
	return chunk.Write(w, &chunk.Chunk{Type: chunk.TypeIEND})
}
