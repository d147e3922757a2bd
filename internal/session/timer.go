package session

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Ticker runs fn once per interval on its own goroutine. At most one loop is
// alive per Ticker; fn may call Stop and Start.
type Ticker struct {
	clock    clockwork.Clock
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
}

func NewTicker(clock clockwork.Clock, interval time.Duration) *Ticker {
	return &Ticker{clock: clock, interval: interval}
}

// Start launches the loop. It returns false if one is already running.
func (t *Ticker) Start(fn func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		return false
	}
	stop := make(chan struct{})
	t.stop = stop
	tk := t.clock.NewTicker(t.interval)

	go func() {
		defer tk.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tk.Chan():
			}
			select {
			case <-stop:
				return
			default:
			}
			fn()
		}
	}()
	return true
}

// Stop ends the loop without waiting for an in-flight fn to return.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop != nil
}

// DefaultWarnings are the countdown values that raise a time warning.
var DefaultWarnings = []int{300, 60}

// crossedWarnings returns the thresholds passed when the countdown moved from
// prev to cur. A threshold fires on the tick that reaches it and never again
// while the countdown stays below it.
func crossedWarnings(thresholds []int, prev, cur int) []int {
	var out []int
	for _, th := range thresholds {
		if prev > th && cur <= th {
			out = append(out, th)
		}
	}
	return out
}
