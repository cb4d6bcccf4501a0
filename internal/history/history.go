package history

// DefaultCapacity is the number of stability samples kept for graphing.
const DefaultCapacity = 100

// Buffer is a fixed-capacity FIFO of stability samples, most recent last.
// It is not safe for concurrent use; the engine serializes access.
type Buffer struct {
	samples []float64
	start   int
	size    int
}

// New returns an empty buffer. capacity < 1 falls back to DefaultCapacity.
func New(capacity int) *Buffer {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Buffer{samples: make([]float64, capacity)}
}

// Push appends v, dropping the oldest sample when full.
func (b *Buffer) Push(v float64) {
	c := len(b.samples)
	if b.size < c {
		b.samples[(b.start+b.size)%c] = v
		b.size++
		return
	}
	b.samples[b.start] = v
	b.start = (b.start + 1) % c
}

// Reset empties the buffer and seeds it with the given samples.
func (b *Buffer) Reset(seed ...float64) {
	b.start, b.size = 0, 0
	for _, v := range seed {
		b.Push(v)
	}
}

// Len returns the number of stored samples.
func (b *Buffer) Len() int { return b.size }

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int { return len(b.samples) }

// Last returns the most recent sample and false if the buffer is empty.
func (b *Buffer) Last() (float64, bool) {
	if b.size == 0 {
		return 0, false
	}
	return b.samples[(b.start+b.size-1)%len(b.samples)], true
}

// Values returns a copy of the samples, oldest first.
func (b *Buffer) Values() []float64 {
	out := make([]float64, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.samples[(b.start+i)%len(b.samples)]
	}
	return out
}
