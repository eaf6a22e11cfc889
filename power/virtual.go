package power

import (
	"sort"
	"sync"
	"time"
)

// Virtual is a discrete-event clock. Sleep never blocks: it runs scheduled callbacks
// in time order until an armed source fires, then jumps the clock to that instant.
// Callbacks typically inject frames into a radio driver, which raises its interrupt.
type Virtual struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	events []event
}

type event struct {
	at  time.Time
	seq uint64
	fn  func()
}

// NewVirtual starts the clock at the unix epoch.
func NewVirtual() *Virtual {
	return &Virtual{now: time.Unix(0, 0)}
}

func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// Elapsed returns the virtual time since the clock started.
func (v *Virtual) Elapsed() time.Duration {
	return v.Now().Sub(time.Unix(0, 0))
}

// After schedules fn to run d after the current virtual time.
func (v *Virtual) After(d time.Duration, fn func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.seq++
	v.events = append(v.events, event{at: v.now.Add(d), seq: v.seq, fn: fn})
	sort.Slice(v.events, func(i, j int) bool {
		if v.events[i].at.Equal(v.events[j].at) {
			return v.events[i].seq < v.events[j].seq
		}
		return v.events[i].at.Before(v.events[j].at)
	})
}

// Pending returns the number of callbacks not yet run.
func (v *Virtual) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.events)
}

func (v *Virtual) Sleep(w Wake) Cause {
	v.mu.Lock()
	deadline := v.now.Add(w.Timer)
	v.mu.Unlock()

	for {
		if poll(w.Radio) {
			return CauseRadio
		}
		if poll(w.External) {
			return CauseExternal
		}

		ev, ok := v.next(w.Timer > 0, deadline)
		if ok {
			ev.fn()
			continue
		}
		if w.Timer > 0 {
			v.mu.Lock()
			v.now = deadline
			v.mu.Unlock()
			return CauseTimer
		}
		return CauseUndefined
	}
}

// next pops the earliest event due no later than deadline and advances the clock to it.
func (v *Virtual) next(bounded bool, deadline time.Time) (event, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.events) == 0 {
		return event{}, false
	}
	ev := v.events[0]
	if bounded && ev.at.After(deadline) {
		return event{}, false
	}
	v.events = v.events[1:]
	if ev.at.After(v.now) {
		v.now = ev.at
	}
	return ev, true
}
