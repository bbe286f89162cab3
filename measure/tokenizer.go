package measure

import (
	"fmt"
	"unicode/utf8"
)

const (
	// MaxNameLen is the longest station name in bytes.
	MaxNameLen = 100
	// MaxTempLen is the longest temperature, as in "-99.9".
	MaxTempLen = 5
)

type field uint8

const (
	fieldName field = iota
	fieldTemp
)

// Tokenizer splits a stream of <name>;<temperature>\n records and adds every
// record to a Stations map. It is an io.Writer, so the stream can be fed in
// pieces of any size; a record may be split across writes. Call Close after
// the last write to account for a final line without a trailing newline.
//
// The first malformed record stops the tokenizer; the error is sticky.
type Tokenizer struct {
	data    Stations
	field   field
	name    [MaxNameLen]byte
	nameLen int
	temp    [MaxTempLen]byte
	tempLen int
	offset  int64 // bytes consumed so far
	start   int64 // offset of the current record
	records int64
	err     error
}

// NewTokenizer returns a tokenizer adding records to data.
func NewTokenizer(data Stations) *Tokenizer {
	return &Tokenizer{data: data}
}

// Write consumes p. It returns an error, and the number of bytes consumed
// before the offending byte, at the first malformed record.
func (t *Tokenizer) Write(p []byte) (int, error) {
	if t.err != nil {
		return 0, t.err
	}
	for i, c := range p {
		switch c {
		case ';':
			if t.field == fieldTemp {
				return t.fail(i, fmt.Errorf("%w: second separator", ErrMalformed))
			}
			if t.nameLen == 0 {
				return t.fail(i, fmt.Errorf("%w: empty name", ErrMalformed))
			}
			t.field = fieldTemp
		case '\n':
			if err := t.emit(); err != nil {
				return t.fail(i, err)
			}
			t.start = t.offset + int64(i) + 1
		default:
			if t.field == fieldName {
				if t.nameLen == MaxNameLen {
					return t.fail(i, fmt.Errorf("%w: name longer than %d bytes", ErrMalformed, MaxNameLen))
				}
				t.name[t.nameLen] = c
				t.nameLen++
			} else {
				if t.tempLen == MaxTempLen {
					return t.fail(i, fmt.Errorf("%w: temperature longer than %d bytes", ErrMalformed, MaxTempLen))
				}
				t.temp[t.tempLen] = c
				t.tempLen++
			}
		}
	}
	t.offset += int64(len(p))
	return len(p), nil
}

// Close flushes a pending record that was not terminated by a newline.
func (t *Tokenizer) Close() error {
	if t.err != nil {
		return t.err
	}
	if t.field == fieldName && t.nameLen == 0 {
		return nil
	}
	if err := t.emit(); err != nil {
		t.err = &RecordError{Offset: t.start, Err: err}
		return t.err
	}
	return nil
}

// Records returns the number of records seen so far.
func (t *Tokenizer) Records() int64 { return t.records }

func (t *Tokenizer) emit() error {
	if t.field != fieldTemp {
		return fmt.Errorf("%w: missing separator", ErrMalformed)
	}
	name := t.name[:t.nameLen]
	if !utf8.Valid(name) {
		return fmt.Errorf("%w: name %q is not valid utf-8", ErrMalformed, name)
	}
	v, err := ParseTenths(t.temp[:t.tempLen])
	if err != nil {
		return err
	}
	t.data.Add(name, v)
	t.records++
	t.field = fieldName
	t.nameLen = 0
	t.tempLen = 0
	return nil
}

func (t *Tokenizer) fail(i int, err error) (int, error) {
	t.offset += int64(i)
	t.err = &RecordError{Offset: t.start, Err: err}
	return i, t.err
}
