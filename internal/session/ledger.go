package session

import "time"

// Accumulator attributes wall-clock time to whichever question was visible.
// A zero mark means nothing is visible (review, break, loading).
type Accumulator struct {
	store *Store
	mark  time.Time
}

func NewAccumulator(store *Store) *Accumulator {
	return &Accumulator{store: store}
}

// Start begins timing from now, discarding any open interval.
func (a *Accumulator) Start(now time.Time) {
	a.mark = now
}

// Resume begins timing only if nothing is being timed.
func (a *Accumulator) Resume(now time.Time) {
	if a.mark.IsZero() {
		a.mark = now
	}
}

// Flush credits the open interval to questionID and keeps timing.
func (a *Accumulator) Flush(questionID uint, now time.Time) {
	if a.mark.IsZero() {
		return
	}
	if elapsed := now.Sub(a.mark); elapsed > 0 {
		a.store.AddTime(questionID, elapsed)
	}
	a.mark = now
}

// Pause credits the open interval to questionID and stops timing.
func (a *Accumulator) Pause(questionID uint, now time.Time) {
	a.Flush(questionID, now)
	a.mark = time.Time{}
}

// Stop discards the open interval.
func (a *Accumulator) Stop() {
	a.mark = time.Time{}
}

func (a *Accumulator) Running() bool {
	return !a.mark.IsZero()
}
