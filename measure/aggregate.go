// Package measure computes min, mean and max temperature per weather station
// from a file of measurements, in a single parallel pass.
//
// data:
//
// Tamale;27.5
// Bergen;9.6
// Lodwar;37.1
// Whitehorse;-3.8
// Ouarzazate;19.1
//
// The file is cut into one range per worker, each cut moved to a line
// boundary. Every worker tokenizes and aggregates its range into a map it
// owns exclusively, then hands the map over to a single merger.
package measure

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"sync"
	"time"

	"golang.org/x/exp/mmap"
)

const defaultBufferSize = 64 * 1024

// Options configure Aggregate.
type Options struct {
	// Workers is the number of ranges processed in parallel, defaults to
	// runtime.NumCPU.
	Workers int
	// BufferSize is the size of the read buffer of each worker.
	BufferSize int
	// Logger receives per chunk progress, discarded if nil.
	Logger *log.Logger
}

func (o Options) withDefaults() Options {
	if o.Workers < 1 {
		o.Workers = runtime.NumCPU()
	}
	if o.BufferSize < 1 {
		o.BufferSize = defaultBufferSize
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard, "", 0)
	}
	return o
}

// ReaderAtCloser is a read only view on the input.
type ReaderAtCloser interface {
	io.ReaderAt
	io.Closer
}

// Source is an input of known size, from which each worker opens its own
// view.
type Source interface {
	Size() int64
	Open() (ReaderAtCloser, error)
}

// FileSource opens a separate read only file handle for each worker.
type FileSource struct {
	name string
	size int64
}

// NewFileSource checks that name is a regular file and records its size.
func NewFileSource(name string) (*FileSource, error) {
	fi, err := os.Stat(name)
	if err != nil {
		return nil, err
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: not a regular file", name)
	}
	return &FileSource{name: name, size: fi.Size()}, nil
}

func (s *FileSource) Size() int64 { return s.size }

func (s *FileSource) Open() (ReaderAtCloser, error) { return os.Open(s.name) }

// MmapSource maps the file once; all workers read from the same mapping.
// Close it after Aggregate returns.
type MmapSource struct {
	r *mmap.ReaderAt
}

func NewMmapSource(name string) (*MmapSource, error) {
	r, err := mmap.Open(name)
	if err != nil {
		return nil, err
	}
	return &MmapSource{r: r}, nil
}

func (s *MmapSource) Size() int64 { return int64(s.r.Len()) }

func (s *MmapSource) Open() (ReaderAtCloser, error) { return nopCloser{s.r}, nil }

func (s *MmapSource) Close() error { return s.r.Close() }

// BytesSource serves the input from memory.
type BytesSource []byte

func (s BytesSource) Size() int64 { return int64(len(s)) }

func (s BytesSource) Open() (ReaderAtCloser, error) {
	return nopCloser{bytes.NewReader(s)}, nil
}

type nopCloser struct {
	io.ReaderAt
}

func (nopCloser) Close() error { return nil }

// Aggregate partitions src into one range per worker, aggregates all ranges
// in parallel and merges the partial results. If any worker fails, the error
// is returned and no result.
func Aggregate(src Source, opts Options) (Stations, error) {
	opts = opts.withDefaults()
	r, err := src.Open()
	if err != nil {
		return nil, err
	}
	ranges, err := Partition(r, src.Size(), opts.Workers)
	if cerr := r.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	var (
		resultC = make(chan Partial, len(ranges))
		wg      sync.WaitGroup
	)
	for i, cr := range ranges {
		wg.Add(1)
		go worker(src, i, cr, opts, resultC, &wg)
	}
	data, err := Collect(resultC, len(ranges))
	wg.Wait()
	return data, err
}

// worker aggregates a single range and hands the result to the merger.
func worker(src Source, i int, cr ChunkRange, opts Options, resultC chan<- Partial, wg *sync.WaitGroup) {
	defer wg.Done()
	started := time.Now()
	p := Partial{Index: i, Range: cr}
	p.Data, p.Err = aggregateSource(src, cr, opts.BufferSize)
	if p.Err == nil {
		opts.Logger.Printf("chunk %d %v: %d bytes, %d stations in %v",
			i, cr, cr.Len(), len(p.Data), time.Since(started))
	}
	resultC <- p
}

func aggregateSource(src Source, cr ChunkRange, bufSize int) (Stations, error) {
	if cr.Empty() {
		return make(Stations), nil
	}
	r, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return AggregateRange(r, cr, make([]byte, bufSize))
}

// AggregateRange tokenizes and aggregates the bytes of r in cr, reading into
// buf. An empty range results in an empty map.
func AggregateRange(r io.ReaderAt, cr ChunkRange, buf []byte) (Stations, error) {
	data := make(Stations)
	if cr.Empty() {
		return data, nil
	}
	t := &Tokenizer{data: data, offset: cr.Start, start: cr.Start}
	if err := feed(t, io.NewSectionReader(r, cr.Start, cr.Len()), buf); err != nil {
		return nil, err
	}
	return data, nil
}

// AggregateReader aggregates a stream that cannot be partitioned, such as
// standard input, with a single worker.
func AggregateReader(r io.Reader, opts Options) (Stations, error) {
	opts = opts.withDefaults()
	data := make(Stations)
	t := NewTokenizer(data)
	if err := feed(t, r, make([]byte, opts.BufferSize)); err != nil {
		return nil, err
	}
	opts.Logger.Printf("stream: %d records, %d stations", t.Records(), len(data))
	return data, nil
}

// feed copies r into the tokenizer, buf at a time. The tokenizer keeps its
// state between reads.
func feed(t *Tokenizer, r io.Reader, buf []byte) error {
	if len(buf) == 0 {
		return errors.New("empty read buffer")
	}
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := t.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if errors.Is(err, io.EOF) {
			return t.Close()
		}
		if err != nil {
			return err
		}
	}
}
