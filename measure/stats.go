package measure

// Measurements, as there is no need to keep all numbers around, we can compute
// them on the fly. All values are in tenths of a degree.
type Measurements struct {
	Min   int16
	Max   int16
	Sum   int64
	Count uint64
}

func (m *Measurements) Add(v int16) {
	if v < m.Min {
		m.Min = v
	}
	if v > m.Max {
		m.Max = v
	}
	m.Sum = m.Sum + int64(v)
	m.Count++
}

func (m *Measurements) Merge(o *Measurements) {
	if o.Min < m.Min {
		m.Min = o.Min
	}
	if o.Max > m.Max {
		m.Max = o.Max
	}
	m.Sum = m.Sum + o.Sum
	m.Count = m.Count + o.Count
}

// Mean returns the average in tenths, rounded half up: 0.25 becomes 0.3 and
// -0.25 becomes -0.2. The division is exact, there is no float involved.
func (m *Measurements) Mean() int64 {
	if m.Count == 0 {
		return 0
	}
	n := int64(m.Count)
	return floorDiv(2*m.Sum+n, 2*n)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Stations maps a station name to its measurements. A Stations value is
// owned by a single goroutine at a time: a worker while scanning, then the
// merger once handed off.
type Stations map[string]*Measurements

// Add records a single value for the named station. The name is only
// copied when the station is seen for the first time.
func (s Stations) Add(name []byte, v int16) {
	if m, ok := s[string(name)]; ok {
		m.Add(v)
		return
	}
	s[string(name)] = &Measurements{
		Min:   v,
		Max:   v,
		Sum:   int64(v),
		Count: 1,
	}
}
