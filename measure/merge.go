package measure

import "fmt"

// Partial is the outcome of one worker. The worker gives up Data when it
// sends the partial; it must not touch the map afterwards.
type Partial struct {
	Index int
	Range ChunkRange
	Data  Stations
	Err   error
}

// Merger folds partial results into a single map. It is not safe for
// concurrent use; Collect serializes all merges on one goroutine.
type Merger struct {
	data   Stations
	merged int
}

func NewMerger() *Merger {
	return &Merger{data: make(Stations)}
}

// Merge folds p into the global result. Entries for new stations are moved
// over as they are, known stations are combined. The order in which partials
// are merged does not change the result.
func (m *Merger) Merge(p Stations) {
	for k, v := range p {
		if g, ok := m.data[k]; ok {
			g.Merge(v)
		} else {
			m.data[k] = v
		}
	}
	m.merged++
}

// Merged returns the number of partials folded so far.
func (m *Merger) Merged() int { return m.merged }

// Result returns the global result. It must not be modified afterwards.
func (m *Merger) Result() Stations { return m.data }

// Collect receives exactly n partials, in whatever order they arrive, and
// merges them. If any partial failed, no result is returned; the error of the
// failed partial with the lowest index is reported, regardless of arrival
// order.
func Collect(resultC <-chan Partial, n int) (Stations, error) {
	var (
		m      = NewMerger()
		failed *Partial
	)
	for i := 0; i < n; i++ {
		p, ok := <-resultC
		if !ok {
			return nil, fmt.Errorf("merge: channel closed after %d of %d partial results", i, n)
		}
		if p.Err != nil {
			if failed == nil || p.Index < failed.Index {
				failed = &p
			}
			continue
		}
		if failed != nil {
			continue
		}
		m.Merge(p.Data)
	}
	if failed != nil {
		return nil, fmt.Errorf("chunk %d %v: %w", failed.Index, failed.Range, failed.Err)
	}
	return m.Result(), nil
}
