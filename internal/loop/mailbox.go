package loop

import "sync/atomic"

// Mailbox holds at most one pending item. Put replaces an untaken item,
// which is then discarded and never run.
type Mailbox struct {
	slot atomic.Pointer[func()]
}

// Put deposits fn, returning true if it replaced an untaken item.
func (m *Mailbox) Put(fn func()) bool {
	if fn == nil {
		return false
	}
	return m.slot.Swap(&fn) != nil
}

// Take removes and returns the pending item, or nil.
func (m *Mailbox) Take() func() {
	p := m.slot.Swap(nil)
	if p == nil {
		return nil
	}
	return *p
}

// Pending reports whether an item is waiting.
func (m *Mailbox) Pending() bool {
	return m.slot.Load() != nil
}
