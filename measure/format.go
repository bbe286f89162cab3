package measure

import (
	"bufio"
	"io"
	"sort"

	"golang.org/x/exp/maps"
)

// Row is the summary of one station, in tenths of a degree.
type Row struct {
	Name string
	Min  int64
	Mean int64
	Max  int64
}

// Rows returns one row per station, sorted by the bytes of the name.
func Rows(s Stations) []Row {
	keys := maps.Keys(s)
	sort.Strings(keys)
	rows := make([]Row, len(keys))
	for i, k := range keys {
		m := s[k]
		rows[i] = Row{
			Name: k,
			Min:  int64(m.Min),
			Mean: m.Mean(),
			Max:  int64(m.Max),
		}
	}
	return rows
}

// Write renders s as a single line: {Abha=-23.0/18.0/59.2, Abidjan=...}.
func Write(w io.Writer, s Stations) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, MaxNameLen+32)
	buf = append(buf, '{')
	for i, row := range Rows(s) {
		if i > 0 {
			buf = append(buf, ", "...)
		}
		buf = append(buf, row.Name...)
		buf = append(buf, '=')
		buf = appendTenths(buf, row.Min)
		buf = append(buf, '/')
		buf = appendTenths(buf, row.Mean)
		buf = append(buf, '/')
		buf = appendTenths(buf, row.Max)
		if _, err := bw.Write(buf); err != nil {
			return err
		}
		buf = buf[:0]
	}
	buf = append(buf, '}', '\n')
	if _, err := bw.Write(buf); err != nil {
		return err
	}
	return bw.Flush()
}
