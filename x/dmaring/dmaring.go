// Package dmaring is a single-producer, single-consumer byte ring that
// stands in for an I2S DMA descriptor chain: the CPU side blocks on
// WriteAll/ReadFull while the "hardware" side moves bytes with the
// non-blocking WriteFrom/ReadInto.
package dmaring

import (
	"errors"
	"sync/atomic"
	"time"
)

var (
	ErrTimeout = errors.New("dmaring: timeout")
	ErrClosed  = errors.New("dmaring: closed")
)

// Ring is a power-of-two sized byte ring.
type Ring struct {
	buf  []byte
	mask uint32
	rd   atomic.Uint32 // consumer index (monotonic)
	wr   atomic.Uint32 // producer index (monotonic)

	readable chan struct{} // empty -> non-empty edge
	writable chan struct{} // full -> non-full edge
	done     chan struct{}
	closed   atomic.Bool
}

// New allocates a ring. size must be a power of two >= 2.
func New(size int) *Ring {
	if size < 2 || (size&(size-1)) != 0 {
		panic("dmaring: size must be power of two >= 2")
	}
	return &Ring{
		buf:      make([]byte, size),
		mask:     uint32(size - 1),
		readable: make(chan struct{}, 1),
		writable: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func (r *Ring) size() uint32 { return uint32(len(r.buf)) }

func (r *Ring) Space() int {
	return int(r.size() - (r.wr.Load() - r.rd.Load()))
}

// WriteFrom copies as much of src as fits and returns the count.
func (r *Ring) WriteFrom(src []byte) (n int) {
	if len(src) == 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load()
	before := wr - rd
	space := int(r.size() - before)
	if space <= 0 {
		return 0
	}
	n = min(len(src), space)

	wrIdx := wr & r.mask
	first := min(int(r.size()-wrIdx), n)
	copy(r.buf[wrIdx:wrIdx+uint32(first)], src[:first])
	if second := n - first; second > 0 {
		copy(r.buf[:second], src[first:n])
	}
	r.wr.Store(wr + uint32(n))

	if before == 0 {
		signal(r.readable)
	}
	return n
}

// ReadInto copies up to len(dst) buffered bytes and returns the count.
func (r *Ring) ReadInto(dst []byte) (n int) {
	if len(dst) == 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load()
	avail := int(wr - rd)
	if avail <= 0 {
		return 0
	}
	n = min(len(dst), avail)

	rdIdx := rd & r.mask
	first := min(int(r.size()-rdIdx), n)
	copy(dst[:first], r.buf[rdIdx:rdIdx+uint32(first)])
	if second := n - first; second > 0 {
		copy(dst[first:n], r.buf[:second])
	}
	r.rd.Store(rd + uint32(n))

	if uint32(avail) == r.size() {
		signal(r.writable)
	}
	return n
}

// Discard drops up to n buffered bytes, as a DMA engine clocking data out
// would, and returns the count dropped.
func (r *Ring) Discard(n int) int {
	rd := r.rd.Load()
	wr := r.wr.Load()
	avail := int(wr - rd)
	n = min(n, avail)
	if n <= 0 {
		return 0
	}
	r.rd.Store(rd + uint32(n))
	if uint32(avail) == r.size() {
		signal(r.writable)
	}
	return n
}

// WriteAll blocks until all of src is queued, the timeout elapses or the
// ring is closed. A negative timeout waits forever. It returns the bytes
// queued so far.
func (r *Ring) WriteAll(src []byte, timeout time.Duration) (int, error) {
	return r.wait(timeout, r.writable, func() (int, bool) {
		n := r.WriteFrom(src)
		src = src[n:]
		return n, len(src) == 0
	})
}

// ReadFull blocks until dst is filled, the timeout elapses or the ring is
// closed. A negative timeout waits forever.
func (r *Ring) ReadFull(dst []byte, timeout time.Duration) (int, error) {
	return r.wait(timeout, r.readable, func() (int, bool) {
		n := r.ReadInto(dst)
		dst = dst[n:]
		return n, len(dst) == 0
	})
}

func (r *Ring) wait(timeout time.Duration, edge <-chan struct{}, step func() (int, bool)) (int, error) {
	var expired <-chan time.Time
	if timeout >= 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	total := 0
	for {
		if r.closed.Load() {
			return total, ErrClosed
		}
		n, done := step()
		total += n
		if done {
			return total, nil
		}
		select {
		case <-edge:
		case <-expired:
			n, done := step()
			total += n
			if done {
				return total, nil
			}
			return total, ErrTimeout
		case <-r.done:
			return total, ErrClosed
		}
	}
}

// Close wakes all waiters with ErrClosed. It is idempotent.
func (r *Ring) Close() {
	if r.closed.CompareAndSwap(false, true) {
		close(r.done)
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
