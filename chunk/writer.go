package chunk

import (
	"encoding/binary"
	"io"
)

// WriteSignature writes the 8 byte PNG signature to w.
func WriteSignature(w io.Writer) error {
	_, err := w.Write(signature[:])
	return err
}

// Write writes c to w. The checksum is always computed fresh from the
// type and payload; a checksum read alongside the payload is never
// reused.
func Write(w io.Writer, c *Chunk) error {
	if len(c.Data) > maxLength {
		return ErrTooLarge
	}

	var header [8]byte
	binary.BigEndian.PutUint32(header[:4], uint32(len(c.Data)))
	copy(header[4:], c.Type)

	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if _, err := w.Write(c.Data); err != nil {
		return err
	}

	var trailer [4]byte
	binary.BigEndian.PutUint32(trailer[:], checksum(header[4:8], c.Data))
	_, err := w.Write(trailer[:])
	return err
}
