// 1brc prints min, mean and max temperature per station, reading the
// measurements file with one worker per CPU.
//
// data:
//
// Tamale;27.5
// Bergen;9.6
// Lodwar;37.1
// Whitehorse;-3.8
// Ouarzazate;19.1
//
// Usage:
//
//	$ 1brc [-w 8] [-mmap] measurements.txt
//	{Abha=-31.1/18.0/66.5, Abidjan=-25.9/26.0/74.6, ...}
//
// Use "-" to read from stdin, with a single worker.
package main

import (
	"flag"
	"log"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/miku/chunkbrc/measure"
)

var (
	cpuprofile = flag.String("cpuprofile", "", "file to write cpu profile to")
	numWorkers = flag.Int("w", runtime.NumCPU(), "number of workers")
	useMmap    = flag.Bool("mmap", false, "memory map the file, instead of reading it")
	bufferSize = flag.Int("b", 64*1024, "read buffer size per worker")
	verbose    = flag.Bool("v", false, "log chunk layout and timings to stderr")
)

func main() {
	flag.Parse()
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal(err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal(err)
		}
		defer pprof.StopCPUProfile()
	}
	fn := "measurements.txt"
	if flag.NArg() > 0 {
		fn = flag.Arg(0)
	}
	opts := measure.Options{
		Workers:    *numWorkers,
		BufferSize: *bufferSize,
	}
	if *verbose {
		opts.Logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	started := time.Now()
	data, err := run(fn, opts)
	if err != nil {
		// log.Fatal skips deferred calls
		pprof.StopCPUProfile()
		log.Fatal(err)
	}
	if *verbose {
		log.Printf("%d stations in %v", len(data), time.Since(started))
	}
	if err := measure.Write(os.Stdout, data); err != nil {
		log.Fatal(err)
	}
}

func run(fn string, opts measure.Options) (measure.Stations, error) {
	if fn == "-" {
		return measure.AggregateReader(os.Stdin, opts)
	}
	if *useMmap {
		src, err := measure.NewMmapSource(fn)
		if err != nil {
			return nil, err
		}
		defer src.Close()
		return measure.Aggregate(src, opts)
	}
	src, err := measure.NewFileSource(fn)
	if err != nil {
		return nil, err
	}
	return measure.Aggregate(src, opts)
}
