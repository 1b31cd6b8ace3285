package utils

import "time"

// Clock abstracts time.Now so stores can stamp createdAt/updatedAt with a
// controllable source in tests.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// ManualClock returns a fixed instant and can be moved forward explicitly.
type ManualClock struct {
	Current time.Time
}

func (m *ManualClock) Now() time.Time {
	return m.Current
}

func (m *ManualClock) Advance(d time.Duration) {
	m.Current = m.Current.Add(d)
}
