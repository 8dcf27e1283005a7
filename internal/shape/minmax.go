package shape

// MinMax tracks the elevation range seen during one generation pass.
// It is owned by a single pass; parallel passes use their own tracker
// and Merge afterwards.
type MinMax struct {
	min   float32
	max   float32
	count int
}

// NewMinMax returns an empty tracker.
func NewMinMax() *MinMax {
	m := &MinMax{}
	m.Reset()
	return m
}

// Reset forgets every recorded value.
func (m *MinMax) Reset() {
	m.min = 0
	m.max = 0
	m.count = 0
}

// Add records v.
func (m *MinMax) Add(v float32) {
	if m.count == 0 {
		m.min, m.max = v, v
	} else {
		m.min = min(m.min, v)
		m.max = max(m.max, v)
	}
	m.count++
}

// Merge folds another tracker's range into m.
func (m *MinMax) Merge(other *MinMax) {
	if other == nil || other.count == 0 {
		return
	}
	if m.count == 0 {
		*m = *other
		return
	}
	m.min = min(m.min, other.min)
	m.max = max(m.max, other.max)
	m.count += other.count
}

// Min returns the smallest recorded value, 0 when empty.
func (m *MinMax) Min() float32 { return m.min }

// Max returns the largest recorded value, 0 when empty.
func (m *MinMax) Max() float32 { return m.max }

// Count returns the number of recorded values.
func (m *MinMax) Count() int { return m.count }

// Normalize maps v into [0, 1] over the tracked range. A range narrower
// than 0.001 maps everything to 0.5.
func (m *MinMax) Normalize(v float32) float32 {
	span := m.max - m.min
	if m.count == 0 || span <= 0.001 {
		return 0.5
	}
	t := (v - m.min) / span
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
