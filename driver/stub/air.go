//go:build !tinygo && !baremetal

package stub

import "sync"

// Air is a shared single-channel medium connecting stub Drivers.
type Air struct {
	mu     sync.Mutex
	radios []*Driver
	tamper func(frame []byte) []byte
}

func NewAir() *Air { return &Air{} }

// Attach creates a Driver whose transmissions reach every other attached Driver.
func (a *Air) Attach() *Driver {
	d := New()
	d.air = a
	a.mu.Lock()
	a.radios = append(a.radios, d)
	a.mu.Unlock()
	return d
}

// Tamper installs fn to rewrite each frame in flight, CRC trailer included.
// Returning nil drops the frame. Every receiver gets its own copy.
func (a *Air) Tamper(fn func(frame []byte) []byte) {
	a.mu.Lock()
	a.tamper = fn
	a.mu.Unlock()
}

func (a *Air) deliver(from *Driver, frame []byte) {
	a.mu.Lock()
	radios := append([]*Driver(nil), a.radios...)
	tamper := a.tamper
	a.mu.Unlock()

	for _, r := range radios {
		if r == from {
			continue
		}
		f := append([]byte(nil), frame...)
		if tamper != nil {
			if f = tamper(f); f == nil {
				continue
			}
		}
		r.receiveFrame(f)
	}
}
