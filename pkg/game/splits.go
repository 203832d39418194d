package game

// SplitRecorder keeps the finalized duration of every completed level, in
// seconds and in completion order. Entries are only ever appended.
type SplitRecorder struct {
	times []float64
}

// Record appends one level duration and returns the number of recorded
// splits.
func (r *SplitRecorder) Record(seconds float64) int {
	r.times = append(r.times, seconds)
	return len(r.times)
}

// Len returns the number of completed levels.
func (r *SplitRecorder) Len() int {
	return len(r.times)
}

// Times returns a copy of the recorded splits.
func (r *SplitRecorder) Times() []float64 {
	out := make([]float64, len(r.times))
	copy(out, r.times)
	return out
}

// Sum returns the total of all recorded splits.
func (r *SplitRecorder) Sum() float64 {
	total := 0.0
	for _, t := range r.times {
		total += t
	}
	return total
}
