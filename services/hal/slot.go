package hal

// Slot holds a capability that may not exist on this board. An absent slot
// is a normal outcome, not an error.
type Slot[T any] struct {
	v  T
	ok bool
}

func Present[T any](v T) Slot[T] { return Slot[T]{v: v, ok: true} }

func Absent[T any]() Slot[T] { return Slot[T]{} }

// Get returns the value and whether it is bound.
func (s Slot[T]) Get() (T, bool) { return s.v, s.ok }

func (s Slot[T]) Bound() bool { return s.ok }
