package session

import (
	"testing"
	"time"
)

func TestSeriesWindowFIFOBound(t *testing.T) {
	w := NewSeriesWindow(SeriesCapacity)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 45; i++ {
		w.Push(base.Add(time.Duration(i)*time.Second), float64(i))
	}
	if w.Len() != SeriesCapacity {
		t.Fatalf("Len() = %d, want %d", w.Len(), SeriesCapacity)
	}
	pts := w.Points()
	// The oldest 15 points were evicted in arrival order.
	if got, want := pts[0].Value, 15.0; got != want {
		t.Errorf("oldest surviving point = %v, want %v", got, want)
	}
	for i := 1; i < len(pts); i++ {
		if pts[i].Value != pts[i-1].Value+1 {
			t.Fatalf("points out of arrival order at %d: %v after %v", i, pts[i].Value, pts[i-1].Value)
		}
	}
}

func TestSeriesWindowReset(t *testing.T) {
	w := NewSeriesWindow(5)
	w.Push(time.Now(), 1)
	w.Push(time.Now(), 2)
	w.Reset()
	if w.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", w.Len())
	}
}

func TestSeriesWindowPointsIsCopy(t *testing.T) {
	w := NewSeriesWindow(5)
	w.Push(time.Now(), 1)
	pts := w.Points()
	pts[0].Value = 99
	if w.Points()[0].Value != 1 {
		t.Error("mutation of returned slice leaked into the window")
	}
}

func TestSpectrumUpsertIdempotence(t *testing.T) {
	w := NewSpectrumWindow()
	w.Upsert(2412, -60, -55)
	w.Upsert(2412, -58, -55)
	if w.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", w.Len())
	}
	s := w.Samples()[0]
	if s.Signal != -58 || s.Peak != -55 {
		t.Errorf("sample = %+v, want signal=-58 peak=-55", s)
	}
}

func TestSpectrumSortedAscending(t *testing.T) {
	w := NewSpectrumWindow()
	for _, f := range []float64{5180, 5200, 5190, 2412, 5180} {
		w.Upsert(f, -70, -65)
	}
	want := []float64{2412, 5180, 5190, 5200}
	got := w.Samples()
	if len(got) != len(want) {
		t.Fatalf("Len() = %d, want %d", len(got), len(want))
	}
	for i, f := range want {
		if got[i].Frequency != f {
			t.Errorf("sample %d frequency = %v, want %v", i, got[i].Frequency, f)
		}
	}
}

func TestSpectrumReset(t *testing.T) {
	w := NewSpectrumWindow()
	w.Upsert(5180, -70, -65)
	w.Reset()
	if w.Len() != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", w.Len())
	}
	w.Upsert(5180, -71, -66)
	if w.Samples()[0].Signal != -71 {
		t.Error("upsert after Reset did not take")
	}
}
