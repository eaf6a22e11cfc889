// Package power models the MCU light-sleep states used between radio events.
//
// A Sleep suspends the caller until the first of its armed wake sources fires:
// the radio interrupt line, a timer, or an external GPIO edge. Only one Sleep is
// ever outstanding.
package power

import "time"

// Cause identifies which wake source ended a Sleep.
type Cause uint8

const (
	CauseUndefined Cause = iota // nothing armed, or nothing can ever fire
	CauseRadio
	CauseTimer
	CauseExternal
)

func (c Cause) String() string {
	switch c {
	case CauseRadio:
		return "radio"
	case CauseTimer:
		return "timer"
	case CauseExternal:
		return "external"
	default:
		return "undefined"
	}
}

// Wake lists the sources allowed to end a Sleep.
// A nil channel or a non-positive Timer leaves that source disarmed.
type Wake struct {
	Radio    <-chan struct{}
	External <-chan struct{}
	Timer    time.Duration
}

// Sleeper suspends execution until a wake source fires.
type Sleeper interface {
	Sleep(w Wake) Cause
	Now() time.Time
}

// Drain discards a latched signal so the next Sleep only sees fresh edges.
func Drain(ch <-chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

// Signal latches an edge on ch without blocking. ch must be buffered.
func Signal(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func poll(ch <-chan struct{}) bool {
	if ch == nil {
		return false
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
