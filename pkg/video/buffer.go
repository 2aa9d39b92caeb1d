package video

import "sync"

// Buffer holds the most recent frame. Publishing replaces the previous
// frame outright; readers always see the latest complete frame or none
// at all, never a partial one. Frames are treated as immutable once
// published.
type Buffer struct {
	mu    sync.RWMutex
	frame *Frame
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Publish stores f as the latest frame, dropping whatever was there.
func (b *Buffer) Publish(f *Frame) {
	b.mu.Lock()
	b.frame = f
	b.mu.Unlock()
}

// Latest returns the most recently published frame, or false if nothing
// has been published yet.
func (b *Buffer) Latest() (*Frame, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.frame == nil {
		return nil, false
	}
	return b.frame, true
}
