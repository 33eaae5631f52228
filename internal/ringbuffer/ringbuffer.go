package ringbuffer

import "sync"

// RingBuffer holds a fixed-duration circular buffer of audio bytes.
// It is safe for concurrent use from a single writer and multiple readers.
type RingBuffer struct {
	mu             sync.Mutex
	buf            []byte
	writePos       int
	capacity       int
	bytesPerSecond int
	written        int // total bytes ever written (for tracking fill level)
}

// New creates a ring buffer that holds seconds of audio at bytesPerSecond.
// Capacity never drops below one byte.
func New(seconds, bytesPerSecond int) *RingBuffer {
	if bytesPerSecond < 1 {
		bytesPerSecond = 1
	}
	cap := seconds * bytesPerSecond
	if cap < 1 {
		cap = 1
	}
	return &RingBuffer{
		buf:            make([]byte, cap),
		capacity:       cap,
		bytesPerSecond: bytesPerSecond,
	}
}

// Write appends data to the buffer, overwriting the oldest data when full.
func (rb *RingBuffer) Write(data []byte) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for len(data) > 0 {
		n := copy(rb.buf[rb.writePos:], data)
		data = data[n:]
		rb.writePos = (rb.writePos + n) % rb.capacity
		rb.written += n
	}
}

// WriteByte appends a single byte. It never fails.
func (rb *RingBuffer) WriteByte(b byte) error {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.buf[rb.writePos] = b
	rb.writePos = (rb.writePos + 1) % rb.capacity
	rb.written++
	return nil
}

// Snapshot returns a copy of the last n bytes.
// If less data has been written than requested, only the available data is returned.
func (rb *RingBuffer) Snapshot(n int) []byte {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	requested := rb.clamp(n)
	if requested == 0 {
		return nil
	}
	out := make([]byte, requested)
	rb.copyTail(out)
	return out
}

// SnapshotSeconds returns a copy of the last seconds of audio.
func (rb *RingBuffer) SnapshotSeconds(seconds float64) []byte {
	return rb.Snapshot(int(seconds * float64(rb.bytesPerSecond)))
}

func (rb *RingBuffer) clamp(requested int) int {
	if requested > rb.capacity {
		requested = rb.capacity
	}
	available := rb.written
	if available > rb.capacity {
		available = rb.capacity
	}
	if requested > available {
		requested = available
	}
	if requested < 0 {
		requested = 0
	}
	return requested
}

func (rb *RingBuffer) copyTail(out []byte) {
	requested := len(out)
	start := (rb.writePos - requested + rb.capacity) % rb.capacity

	if start+requested <= rb.capacity {
		copy(out, rb.buf[start:start+requested])
	} else {
		first := rb.capacity - start
		copy(out[:first], rb.buf[start:])
		copy(out[first:], rb.buf[:requested-first])
	}
}

// Available returns the number of seconds of audio currently stored.
func (rb *RingBuffer) Available() float64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	available := rb.written
	if available > rb.capacity {
		available = rb.capacity
	}
	return float64(available) / float64(rb.bytesPerSecond)
}

// Written returns the total number of bytes ever written.
func (rb *RingBuffer) Written() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.written
}
