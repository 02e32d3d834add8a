package clock

import (
	"sync"
	"time"
)

// System runs callbacks from a time.Ticker goroutine.
type System struct{}

func (System) Every(d time.Duration, fn func()) func() {
	ticker := time.NewTicker(d)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}

// Manual is a clock driven by Advance. Callbacks run synchronously on the
// goroutine that calls Advance.
type Manual struct {
	mu     sync.Mutex
	now    time.Duration
	nextID int
	timers map[int]*manualTimer
}

type manualTimer struct {
	every time.Duration
	next  time.Duration
	fn    func()
}

func NewManual() *Manual {
	return &Manual{timers: make(map[int]*manualTimer)}
}

func (m *Manual) Every(d time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.timers[id] = &manualTimer{every: d, next: m.now + d, fn: fn}

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.timers, id)
	}
}

// Advance moves the clock forward by d, firing every timer boundary crossed
// in chronological order.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		t := m.earliestLocked(target)
		if t == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = t.next
		t.next += t.every
		fn := t.fn
		m.mu.Unlock()

		fn()
	}
}

// Active reports the number of running timers.
func (m *Manual) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

func (m *Manual) earliestLocked(limit time.Duration) *manualTimer {
	bestID := -1
	var best *manualTimer
	for id, t := range m.timers {
		if t.next > limit {
			continue
		}
		if best == nil || t.next < best.next || (t.next == best.next && id < bestID) {
			best, bestID = t, id
		}
	}
	return best
}
