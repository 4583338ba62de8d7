package chunk

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrBadSignature is returned when a source does not start with the
	// 8 byte PNG signature.
	ErrBadSignature = errors.New("chunk: invalid PNG signature")

	// ErrTruncated is returned when a source ends in the middle of a
	// chunk.
	ErrTruncated = errors.New("chunk: truncated chunk")

	// ErrTooLarge is returned when a chunk length exceeds the format
	// limit of 2^31-1 bytes.
	ErrTooLarge = errors.New("chunk: payload exceeds format limit")
)

// CRCError reports a stored checksum that does not match the one
// computed over the chunk type and payload.
type CRCError struct {
	Type string
	Want uint32
	Got  uint32
}

func (e *CRCError) Error() string {
	return fmt.Sprintf("chunk: %s CRC mismatch: stored %08x, computed %08x", e.Type, e.Want, e.Got)
}

func readFull(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

func truncated(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrTruncated
	}
	return err
}

// ReadSignature consumes the 8 byte PNG signature from r.
func ReadSignature(r io.Reader) error {
	var buf [8]byte
	if err := readFull(r, buf[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return ErrBadSignature
		}
		return err
	}
	if buf != signature {
		return ErrBadSignature
	}
	return nil
}

// Read reads the next chunk from r and verifies its checksum.
func Read(r io.Reader) (*Chunk, error) {
	var header [8]byte
	if err := readFull(r, header[:]); err != nil {
		return nil, truncated(err)
	}

	length := binary.BigEndian.Uint32(header[:4])
	if length > maxLength {
		return nil, ErrTooLarge
	}

	// The length field is untrusted; reserve a bounded amount up
	// front and let the buffer grow only as payload bytes arrive.
	grow := length
	if grow > maxPrealloc {
		grow = maxPrealloc
	}
	var payload bytes.Buffer
	payload.Grow(int(grow))
	if _, err := io.CopyN(&payload, r, int64(length)); err != nil {
		return nil, truncated(err)
	}
	data := payload.Bytes()

	var trailer [4]byte
	if err := readFull(r, trailer[:]); err != nil {
		return nil, truncated(err)
	}

	c := &Chunk{
		Type: string(header[4:8]),
		Data: data,
	}

	if stored, computed := binary.BigEndian.Uint32(trailer[:]), checksum(header[4:8], data); stored != computed {
		return nil, &CRCError{Type: c.Type, Want: stored, Got: computed}
	}

	return c, nil
}
