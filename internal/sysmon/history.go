package sysmon

// Ring is a fixed-capacity FIFO buffer of samples. When full, pushing a new
// sample evicts the oldest. It is not safe for concurrent use; the sampler
// owns it exclusively and hands out copies.
type Ring struct {
	buf   []float64
	start int
	size  int
}

// NewRing creates a ring with the given capacity.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{buf: make([]float64, capacity)}
}

// Push appends a sample, evicting the oldest when at capacity.
func (r *Ring) Push(v float64) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = v
		r.size++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

// Len returns the number of stored samples.
func (r *Ring) Len() int { return r.size }

// Cap returns the ring capacity.
func (r *Ring) Cap() int { return len(r.buf) }

// Values returns the samples oldest-first as a fresh slice.
func (r *Ring) Values() []float64 {
	out := make([]float64, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}
