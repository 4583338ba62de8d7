package catpng

import (
	"errors"
	"fmt"
)

var (
	// ErrNoInputs is returned when there is nothing to merge.
	ErrNoInputs = errors.New("catpng: no inputs")

	// ErrMissingIHDR is returned when an input's first chunk is not
	// IHDR.
	ErrMissingIHDR = errors.New("catpng: first chunk is not IHDR")

	// ErrInvalidIHDR is returned when an IHDR payload has the wrong
	// size or an illegal field combination.
	ErrInvalidIHDR = errors.New("catpng: invalid IHDR")

	// ErrDecompress is returned when an input's compressed image data
	// is malformed.
	ErrDecompress = errors.New("catpng: malformed compressed stream")

	// ErrImageTooLarge is returned when a header implies more image
	// data than the tool is prepared to buffer.
	ErrImageTooLarge = errors.New("catpng: image data size exceeds limit")

	// ErrTooTall is returned when the summed input heights exceed the
	// format limit.
	ErrTooTall = errors.New("catpng: combined height exceeds format limit")
)

// HeaderMismatchError reports the first input whose header disagrees
// with the first input's on a field that must be shared.
type HeaderMismatchError struct {
	Index int
	Field string
}

func (e *HeaderMismatchError) Error() string {
	return fmt.Sprintf("catpng: input %d: %s differs from the first input's", e.Index, e.Field)
}

// InterlacedError reports an interlaced input, which cannot be
// merged.
type InterlacedError struct {
	Index int
}

func (e *InterlacedError) Error() string {
	return fmt.Sprintf("catpng: input %d is interlaced", e.Index)
}

// IDATCountError reports an input carrying anything other than
// exactly one IDAT chunk.
type IDATCountError struct {
	Found int
}

func (e *IDATCountError) Error() string {
	return fmt.Sprintf("catpng: expected exactly one IDAT chunk, found %d", e.Found)
}

// SizeMismatchError reports decompressed image data whose length does
// not match the length implied by the input's header.
type SizeMismatchError struct {
	Expected int
	Actual   int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("catpng: decompressed data is %d bytes, header implies %d", e.Actual, e.Expected)
}
