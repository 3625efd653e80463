package unco

import "weak"

// An Owner is a non-owning reference to an entity whose lifetime is
// controlled elsewhere.
//
// Tasks and generators are bound to an Owner. A [Scheduler] never extends
// the lifetime of an Owner; it only asks whether the Owner is still valid.
// Once an Owner becomes invalid it must stay invalid.
//
// Owners are compared with == when a task deregisters itself, so
// implementations should be comparable (pointers, or structs of comparable
// fields). A nil Owner is never valid.
type Owner interface {
	Valid() bool
}

func valid(o Owner) bool {
	return o != nil && o.Valid()
}

func sameOwner(a, b Owner) (same bool) {
	defer func() {
		if recover() != nil {
			same = true // Uncomparable owners: frame identity decides.
		}
	}()
	return a == b
}

// A WeakRef is an [Owner] backed by a weak pointer.
//
// A WeakRef stays valid for as long as the garbage collector keeps the
// pointee reachable from somewhere else.
// Use it for owners that have no explicit destruction, e.g. plain Go values
// held by a host; entities with an explicit lifetime should implement Owner
// with a generation-checked handle instead.
type WeakRef[T any] struct {
	ptr weak.Pointer[T]
}

// Weak returns a [WeakRef] to v.
func Weak[T any](v *T) WeakRef[T] {
	return WeakRef[T]{ptr: weak.Make(v)}
}

// Valid reports whether the pointee is still reachable.
func (r WeakRef[T]) Valid() bool {
	return r.ptr.Value() != nil
}

// Resolve returns the pointee, or nil if it has been collected.
func (r WeakRef[T]) Resolve() *T {
	return r.ptr.Value()
}
