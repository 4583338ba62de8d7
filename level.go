package catpng

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"
)

// Level is the output compression effort, 0 through 10. 0 stores the
// image data uncompressed, 10 spends the most effort. The scale is
// wider than the underlying DEFLATE scale, so 10 clamps to the
// compressor's maximum.
type Level int

// DefaultLevel is used when no level is given on the command line.
const DefaultLevel Level = 10

// Valid reports whether l is within the accepted range.
func (l Level) Valid() bool {
	return l >= 0 && l <= 10
}

// zlib maps l onto the compressor's level scale.
func (l Level) zlib() int {
	switch {
	case l <= 0:
		return zlib.NoCompression
	case l >= zlib.BestCompression:
		return zlib.BestCompression
	default:
		return int(l)
	}
}

// ParseLevel validates a command line level argument.
func ParseLevel(s string) (Level, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("catpng: level %q is not an integer", s)
	}
	l := Level(n)
	if !l.Valid() {
		return 0, fmt.Errorf("catpng: level %d is out of range 0-10", n)
	}
	return l, nil
}
