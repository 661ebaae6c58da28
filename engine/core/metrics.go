package core

import "time"

const AVG_COUNT uint8 = 30

// Metrics keeps a rolling average of the time spent per unit of slicing work
// (one instance at one layer) and the resulting throughput.
type Metrics struct {
	avgCounter  uint8
	unitTimes   [AVG_COUNT]float64
	unitAvgMS   float64
	units       int64
	accumulated float64
	perSecond   float64
	lastWindow  int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

// Update records the duration of one unit of work.
func (m *Metrics) Update(elapsed time.Duration) {
	ms := float64(elapsed) / float64(time.Millisecond)
	m.unitTimes[m.avgCounter] = ms
	if m.avgCounter == AVG_COUNT-1 {
		sum := 0.0
		for i := uint8(0); i < AVG_COUNT; i++ {
			sum += m.unitTimes[i]
		}
		m.unitAvgMS = sum / float64(AVG_COUNT)
	}
	m.avgCounter++
	m.avgCounter %= AVG_COUNT

	// Units per second over whole-second windows.
	m.accumulated += ms
	m.lastWindow++
	if m.accumulated > 1000 {
		m.perSecond = float64(m.lastWindow)
		m.accumulated -= 1000
		m.lastWindow = 0
	}

	m.units++
}

// Units is the total number of recorded units.
func (m *Metrics) Units() int64 {
	return m.units
}

// UnitTime is the rolling average duration of a unit in milliseconds. It stays
// zero until the first full window has been recorded.
func (m *Metrics) UnitTime() float64 {
	return m.unitAvgMS
}

// PerSecond is the number of units completed in the last full second of work.
func (m *Metrics) PerSecond() float64 {
	return m.perSecond
}
