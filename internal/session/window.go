package session

import (
	"sort"
	"time"
)

// SeriesCapacity is how many points each rolling telemetry chart keeps.
const SeriesCapacity = 30

// SeriesPoint is one sample on a rolling time-series chart.
type SeriesPoint struct {
	At    time.Time
	Value float64
}

// SeriesWindow is a fixed-capacity FIFO buffer of chart points. Pushing a
// point beyond capacity evicts the oldest one.
type SeriesWindow struct {
	capacity int
	points   []SeriesPoint
}

// NewSeriesWindow creates a window holding at most capacity points.
func NewSeriesWindow(capacity int) *SeriesWindow {
	return &SeriesWindow{capacity: capacity}
}

// Push appends a point, evicting the oldest if the window is full.
func (w *SeriesWindow) Push(at time.Time, value float64) {
	w.points = append(w.points, SeriesPoint{At: at, Value: value})
	if len(w.points) > w.capacity {
		w.points = w.points[len(w.points)-w.capacity:]
	}
}

// Points returns the buffered points, oldest first. The returned slice is a
// copy; callers may keep it across further pushes.
func (w *SeriesWindow) Points() []SeriesPoint {
	out := make([]SeriesPoint, len(w.points))
	copy(out, w.points)
	return out
}

// Len returns the number of buffered points.
func (w *SeriesWindow) Len() int {
	return len(w.points)
}

// Reset discards all buffered points.
func (w *SeriesWindow) Reset() {
	w.points = w.points[:0]
}

// SpectrumSample is one frequency bin of a spectral scan.
type SpectrumSample struct {
	Frequency float64 `json:"frequency"` // MHz
	Signal    float64 `json:"signal"`    // dBm, instantaneous
	Peak      float64 `json:"peak"`      // dBm, peak-hold
}

// SpectrumWindow holds the spectral samples of the active scan, keyed by
// frequency and kept sorted ascending. A repeated frequency overwrites its
// entry in place; a novel one is appended and the whole set re-sorted.
// Frequency sets per scan are small and slowly growing, so the full re-sort
// is cheaper to get right than binary insertion.
type SpectrumWindow struct {
	samples []SpectrumSample
	index   map[float64]int
}

// NewSpectrumWindow creates an empty spectrum buffer.
func NewSpectrumWindow() *SpectrumWindow {
	return &SpectrumWindow{index: make(map[float64]int)}
}

// Upsert records a sample for the given frequency.
func (w *SpectrumWindow) Upsert(frequency, signal, peak float64) {
	if i, ok := w.index[frequency]; ok {
		w.samples[i].Signal = signal
		w.samples[i].Peak = peak
		return
	}
	w.samples = append(w.samples, SpectrumSample{Frequency: frequency, Signal: signal, Peak: peak})
	sort.Slice(w.samples, func(i, j int) bool {
		return w.samples[i].Frequency < w.samples[j].Frequency
	})
	for i, s := range w.samples {
		w.index[s.Frequency] = i
	}
}

// Samples returns the buffered samples in ascending frequency order. The
// returned slice is a copy.
func (w *SpectrumWindow) Samples() []SpectrumSample {
	out := make([]SpectrumSample, len(w.samples))
	copy(out, w.samples)
	return out
}

// Len returns the number of distinct frequencies seen.
func (w *SpectrumWindow) Len() int {
	return len(w.samples)
}

// Reset discards all samples. Called when a new scan starts.
func (w *SpectrumWindow) Reset() {
	w.samples = w.samples[:0]
	w.index = make(map[float64]int)
}
