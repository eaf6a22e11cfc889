package power

import "time"

// Host sleeps on the wall clock. It stands in for light sleep on development machines.
type Host struct{}

func NewHost() *Host { return &Host{} }

func (*Host) Now() time.Time { return time.Now() }

func (*Host) Sleep(w Wake) Cause {
	var timer <-chan time.Time
	if w.Timer > 0 {
		t := time.NewTimer(w.Timer)
		defer t.Stop()
		timer = t.C
	}
	if w.Radio == nil && w.External == nil && timer == nil {
		return CauseUndefined
	}

	select {
	case <-w.Radio:
		return CauseRadio
	case <-w.External:
		return CauseExternal
	case <-timer:
		return CauseTimer
	}
}
