package unco

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Status is the state of a task or a generator.
type Status uint8

const (
	// StatusPending means the computation has not reached its end yet.
	// It is either waiting to be started or suspended.
	StatusPending Status = iota
	// StatusFinished means the computation returned normally.
	StatusFinished
	// StatusFaulted means the computation panicked. The panic was recovered
	// and recorded as a [Fault].
	StatusFaulted
	// StatusAbandoned means the computation was released before it could
	// finish. Any pending suspension was discarded.
	StatusAbandoned
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusFinished:
		return "finished"
	case StatusFaulted:
		return "faulted"
	case StatusAbandoned:
		return "abandoned"
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// A Fault records a panic recovered from the body of a task or a generator.
//
// Faults are never propagated. They are kept on the faulted computation
// and reported to the [Scheduler]'s logger at debug level.
type Fault struct {
	Value any
	Stack []byte
}

func (f *Fault) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "panic: %v", f.Value)
	if f.Stack != nil {
		b.WriteString("\n\n")
		b.Write(f.Stack)
	}
	return b.String()
}

// Unwrap returns the panic value if it is an error.
func (f *Fault) Unwrap() error {
	if err, ok := f.Value.(error); ok {
		return err
	}
	return nil
}

// abandon is the panic value used to unwind the body of a released frame.
type abandon struct{}

func try(f func()) (fault *Fault, abandoned bool) {
	ok := false
	defer func() {
		if ok {
			return
		}
		v := recover()
		if v == nil {
			panic("unco: unco does not support runtime.Goexit()")
		}
		if _, ok := v.(abandon); ok {
			abandoned = true
			return
		}
		fault = &Fault{Value: v, Stack: debug.Stack()}
	}()
	f()
	ok = true
	return nil, false
}
