package measure

import (
	"errors"
	"fmt"
)

// ErrMalformed is returned for input that does not follow the
// <name>;<temperature> line grammar. There is no attempt to resynchronize.
var ErrMalformed = errors.New("malformed input")

// RecordError locates a malformed record. Offset is the position of the
// first byte of the record, relative to the start of the stream the
// tokenizer was fed.
type RecordError struct {
	Offset int64
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record at offset %d: %v", e.Offset, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }
