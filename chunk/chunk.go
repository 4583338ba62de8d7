/*
Package chunk implements the byte-level PNG chunk codec.

A PNG file is an 8 byte signature followed by a sequence of chunks.
Each chunk is a 4 byte big-endian payload length, a 4 byte ASCII type
tag, the payload itself and a CRC-32 checksum computed over the type
tag and payload. The codec makes no structural interpretation of any
chunk type; callers decide which chunks matter.
*/
package chunk

import "hash/crc32"

// Chunk type tags interpreted elsewhere in the module.
const (
	TypeIHDR = "IHDR"
	TypeIDAT = "IDAT"
	TypeIEND = "IEND"
)

// maxLength is the format ceiling on a chunk payload.
const maxLength = 1<<31 - 1

// maxPrealloc bounds how much payload buffer space is reserved from
// the untrusted length field before any data has been read.
const maxPrealloc = 1 << 20

var signature = [8]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Chunk is a single length-prefixed, type-tagged unit of a PNG file.
// The checksum is not carried on the value; it is verified when read
// and recomputed when written.
type Chunk struct {
	Type string
	Data []byte
}

func checksum(tag, data []byte) uint32 {
	h := crc32.NewIEEE()
	h.Write(tag)
	h.Write(data)
	return h.Sum32()
}
