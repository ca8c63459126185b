package codec

import (
	"errors"
	"fmt"
)

// ErrFormat marks a file whose bytes do not follow the binary layout.
var ErrFormat = errors.New("codec: format error")

// FormatError wraps ErrFormat with the position of the first bad byte.
// Offset is -1 when the problem is not tied to a position.
type FormatError struct {
	File   string
	Offset int64
	Reason string
}

func (e *FormatError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("codec: %s: %s", e.File, e.Reason)
	}
	return fmt.Sprintf("codec: %s at offset %d: %s", e.File, e.Offset, e.Reason)
}

func (e *FormatError) Unwrap() error {
	return ErrFormat
}
