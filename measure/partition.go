package measure

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ChunkRange is the byte range [Start, End) of the input owned by one
// worker. Start is zero or directly follows a newline, End directly follows
// a newline or is the end of the input.
type ChunkRange struct {
	Start int64
	End   int64
}

func (c ChunkRange) Len() int64 {
	if c.End < c.Start {
		return 0
	}
	return c.End - c.Start
}

func (c ChunkRange) Empty() bool { return c.Start >= c.End }

func (c ChunkRange) String() string {
	return fmt.Sprintf("[%d, %d)", c.Start, c.End)
}

// scanSize is enough to find the end of any well formed line.
const scanSize = MaxNameLen + 1 + MaxTempLen + 1

// Partition splits an input of size bytes into n contiguous ranges of
// roughly equal size. Each naive cut at i*ceil(size/n) is moved forward to
// just after the next newline, so no record is split between two ranges.
// A cut never goes behind the previous one; a range that would start past
// the end of the input, or inside a record already claimed, is empty.
func Partition(r io.ReaderAt, size int64, n int) ([]ChunkRange, error) {
	if n < 1 {
		return nil, fmt.Errorf("partition: need at least one range, got %d", n)
	}
	if size < 0 {
		return nil, fmt.Errorf("partition: negative size %d", size)
	}
	var (
		step   = (size + int64(n) - 1) / int64(n)
		ranges = make([]ChunkRange, n)
		buf    = make([]byte, scanSize)
		prev   int64
	)
	for i := 1; i < n; i++ {
		cut := min(int64(i)*step, size)
		if cut > prev {
			var err error
			if cut, err = nextLine(r, cut-1, size, buf); err != nil {
				return nil, err
			}
		} else {
			cut = prev
		}
		ranges[i-1] = ChunkRange{Start: prev, End: cut}
		prev = cut
	}
	ranges[n-1] = ChunkRange{Start: prev, End: size}
	return ranges, nil
}

// nextLine returns the offset right after the first newline at or after
// off, or size if there is none.
func nextLine(r io.ReaderAt, off, size int64, buf []byte) (int64, error) {
	for off < size {
		k, err := r.ReadAt(buf[:min(int64(len(buf)), size-off)], off)
		if i := bytes.IndexByte(buf[:k], '\n'); i >= 0 {
			return off + int64(i) + 1, nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("partition: %w", err)
		}
		if k == 0 {
			// Shorter than announced.
			return 0, fmt.Errorf("partition: read at %d: %w", off, io.ErrUnexpectedEOF)
		}
		off += int64(k)
	}
	return size, nil
}
