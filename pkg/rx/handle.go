package rx

import "sync"

// Handle owns one subscription. Release unregisters it exactly once;
// further calls are no-ops.
type Handle struct {
	once    sync.Once
	mu      sync.Mutex
	release func()
	done    bool
}

func newHandle(release func()) *Handle {
	return &Handle{release: release}
}

func releasedHandle() *Handle {
	h := &Handle{}
	h.once.Do(func() {})
	h.done = true
	return h
}

// Release stops delivery to the subscribed observer.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		if h.release != nil {
			h.release()
		}
		h.mu.Lock()
		h.done = true
		h.release = nil
		h.mu.Unlock()
	})
}

// Released reports whether Release has run.
func (h *Handle) Released() bool {
	if h == nil {
		return true
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.done
}

// Bag collects handles so an owner can release them together.
type Bag struct {
	mu      sync.Mutex
	handles []*Handle
}

// Add stores h in the bag.
func (b *Bag) Add(h *Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handles = append(b.handles, h)
}

// Len returns the number of handles held.
func (b *Bag) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handles)
}

// Release releases every handle and empties the bag.
func (b *Bag) Release() {
	b.mu.Lock()
	handles := b.handles
	b.handles = nil
	b.mu.Unlock()

	for _, h := range handles {
		h.Release()
	}
}
