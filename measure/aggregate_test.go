package measure

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"testing"
	"testing/iotest"

	"golang.org/x/exp/maps"
)

var testStations = []string{
	"Abha",
	"Bergen",
	"Hamburg",
	"Lodwar",
	"Münster",
	"Ouarzazate",
	"São Paulo",
	"Tamale",
	"Whitehorse",
	"Zürich",
	"İzmir",
	strings.Repeat("Ł", MaxNameLen/2),
}

// generate returns lines of random measurements.
func generate(seed int64, lines int, trailingNewline bool) string {
	var (
		rng = rand.New(rand.NewSource(seed))
		sb  strings.Builder
	)
	for i := 0; i < lines; i++ {
		name := testStations[rng.Intn(len(testStations))]
		v := rng.Intn(1999) - 999
		fmt.Fprintf(&sb, "%s;%.1f\n", name, float64(v)/10)
	}
	s := sb.String()
	if !trailingNewline {
		s = strings.TrimSuffix(s, "\n")
	}
	return s
}

// reference is the straightforward line by line version, used as an oracle.
func reference(t *testing.T, data string) string {
	t.Helper()
	type agg struct {
		min, max, sum, count int64
	}
	var (
		stats = make(map[string]*agg)
		br    = bufio.NewReader(strings.NewReader(data))
	)
	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			t.Fatal(err)
		}
		if len(line) > 0 {
			parts := strings.Split(strings.TrimSuffix(line, "\n"), ";")
			if len(parts) != 2 {
				t.Fatalf("expected two fields: %s", line)
			}
			f, perr := strconv.ParseFloat(parts[1], 64)
			if perr != nil {
				t.Fatalf("invalid temp: %v", parts[1])
			}
			v := int64(math.Round(f * 10))
			if a, ok := stats[parts[0]]; ok {
				a.min = min(a.min, v)
				a.max = max(a.max, v)
				a.sum += v
				a.count++
			} else {
				stats[parts[0]] = &agg{min: v, max: v, sum: v, count: 1}
			}
		}
		if err == io.EOF {
			break
		}
	}
	keys := maps.Keys(stats)
	sort.Strings(keys)
	var items []string
	for _, k := range keys {
		a := stats[k]
		mean := int64(math.Floor(float64(a.sum)/float64(a.count) + 0.5))
		items = append(items, fmt.Sprintf("%s=%.1f/%.1f/%.1f", k,
			float64(a.min)/10, float64(mean)/10, float64(a.max)/10))
	}
	return "{" + strings.Join(items, ", ") + "}\n"
}

func TestAggregateMatchesReference(t *testing.T) {
	var cases = []struct {
		seed     int64
		lines    int
		trailing bool
	}{
		{1, 1, true},
		{2, 10, false},
		{3, 1000, true},
		{4, 1001, false},
		{5, 5000, true},
	}
	for _, c := range cases {
		data := generate(c.seed, c.lines, c.trailing)
		want := reference(t, data)
		for w := 1; w <= 17; w++ {
			for _, bs := range []int{1, 7, 4096} {
				got, err := Aggregate(BytesSource(data), Options{Workers: w, BufferSize: bs})
				if err != nil {
					t.Fatalf("seed %d, w=%d, bs=%d: %v", c.seed, w, bs, err)
				}
				if s := render(t, got); s != want {
					t.Fatalf("seed %d, w=%d, bs=%d: got %q, want %q", c.seed, w, bs, s, want)
				}
			}
		}
	}
}

func TestAggregateHamburg(t *testing.T) {
	data := "Hamburg;12.0\nHamburg;8.0\nHamburg;10.0\n"
	for w := 1; w <= 8; w++ {
		got, err := Aggregate(BytesSource(data), Options{Workers: w})
		if err != nil {
			t.Fatal(err)
		}
		if s := render(t, got); s != "{Hamburg=8.0/10.0/12.0}\n" {
			t.Fatalf("w=%d: got %q", w, s)
		}
	}
}

func TestAggregateSingleRecord(t *testing.T) {
	for _, data := range []string{"X;0.0", "X;0.0\n"} {
		for w := 1; w <= 32; w++ {
			got, err := Aggregate(BytesSource(data), Options{Workers: w})
			if err != nil {
				t.Fatal(err)
			}
			if s := render(t, got); s != "{X=0.0/0.0/0.0}\n" {
				t.Fatalf("%q, w=%d: got %q", data, w, s)
			}
		}
	}
}

func TestAggregateEmpty(t *testing.T) {
	got, err := Aggregate(BytesSource(nil), Options{Workers: 4})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d stations, want none", len(got))
	}
}

func writeFile(t *testing.T, data string) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "measurements.txt")
	if err := os.WriteFile(name, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	return name
}

func TestAggregateFile(t *testing.T) {
	for _, data := range []string{"", generate(11, 3000, true)} {
		name := writeFile(t, data)
		want := reference(t, data)
		fs, err := NewFileSource(name)
		if err != nil {
			t.Fatal(err)
		}
		got, err := Aggregate(fs, Options{Workers: 8})
		if err != nil {
			t.Fatal(err)
		}
		if s := render(t, got); s != want {
			t.Fatalf("file: got %q, want %q", s, want)
		}
		ms, err := NewMmapSource(name)
		if err != nil {
			t.Fatal(err)
		}
		got, err = Aggregate(ms, Options{Workers: 8})
		if cerr := ms.Close(); cerr != nil {
			t.Fatal(cerr)
		}
		if err != nil {
			t.Fatal(err)
		}
		if s := render(t, got); s != want {
			t.Fatalf("mmap: got %q, want %q", s, want)
		}
	}
}

func TestAggregateMissingFile(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "missing.txt"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("got %v, want os.ErrNotExist", err)
	}
	if _, err := NewFileSource(t.TempDir()); err == nil {
		t.Fatal("expected error for directory")
	}
}

func TestAggregateMalformed(t *testing.T) {
	head := generate(12, 500, true)
	data := head + "Bergen;1.2.3\n" + generate(13, 500, true)
	for _, w := range []int{1, 3, 8} {
		got, err := Aggregate(BytesSource(data), Options{Workers: w})
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("w=%d: got %v, want ErrMalformed", w, err)
		}
		if got != nil {
			t.Fatalf("w=%d: got partial result", w)
		}
		var re *RecordError
		if !errors.As(err, &re) {
			t.Fatalf("w=%d: got %T, want *RecordError", w, err)
		}
		if re.Offset != int64(len(head)) {
			t.Fatalf("w=%d: got offset %d, want %d", w, re.Offset, len(head))
		}
	}
}

func TestAggregateReader(t *testing.T) {
	data := generate(21, 2000, false)
	got, err := AggregateReader(iotest.HalfReader(strings.NewReader(data)), Options{BufferSize: 33})
	if err != nil {
		t.Fatal(err)
	}
	if s, want := render(t, got), reference(t, data); s != want {
		t.Fatalf("got %q, want %q", s, want)
	}
	_, err = AggregateReader(iotest.TimeoutReader(strings.NewReader(data)), Options{BufferSize: 33})
	if !errors.Is(err, iotest.ErrTimeout) {
		t.Fatalf("got %v, want read error", err)
	}
}

func TestAggregateLogger(t *testing.T) {
	var buf bytes.Buffer
	opts := Options{Workers: 2, Logger: log.New(&buf, "", 0)}
	if _, err := Aggregate(BytesSource("a;1.0\nb;2.0\n"), opts); err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{"chunk 0 [0, 6)", "chunk 1 [6, 12)"} {
		if !strings.Contains(buf.String(), s) {
			t.Fatalf("log %q does not mention %q", buf.String(), s)
		}
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	if o.Workers != runtime.NumCPU() {
		t.Fatalf("got %d workers, want %d", o.Workers, runtime.NumCPU())
	}
	if o.BufferSize != defaultBufferSize || o.Logger == nil {
		t.Fatalf("got %+v", o)
	}
}
