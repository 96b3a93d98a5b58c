package connection

import "sync"

// Holder keeps zero or one Handle.
type Holder struct {
	mu     sync.Mutex
	handle *Handle
}

// Set stores h, replacing any held handle without touching it. The
// replaced handle is returned.
func (hd *Holder) Set(h *Handle) *Handle {
	hd.mu.Lock()
	defer hd.mu.Unlock()
	prev := hd.handle
	hd.handle = h
	return prev
}

// Clear forgets the held handle and returns it.
func (hd *Holder) Clear() *Handle {
	return hd.Set(nil)
}

// Current returns the held handle, or nil.
func (hd *Holder) Current() *Handle {
	hd.mu.Lock()
	defer hd.mu.Unlock()
	return hd.handle
}
