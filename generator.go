package unco

// A GeneratorFunc is the body of a [Generator].
type GeneratorFunc func(y *Yielder)

// A Yielder is handed to the body of a [Generator] for suspending it.
type Yielder struct {
	g *Generator
}

// Yield suspends the generator until the next call of [Generator.Advance].
//
// If the generator is closed while suspended, Yield does not return;
// the body unwinds through its deferred calls instead.
func (y *Yielder) Yield() {
	y.g.suspend()
}

// Owner returns the owner of the generator.
func (y *Yielder) Owner() Owner {
	return y.g.owner
}

// A Generator is a resumable computation driven one step at a time by its
// holder.
//
// A Generator is lazy: its body does not run until the first call of the
// Advance method. It never resumes itself.
//
// A Generator exclusively owns its suspended state. Close releases that
// state whether or not the body has finished. A Generator handed to
// [Scheduler.DistributedFrame] is owned by the [Scheduler] from then on.
type Generator struct {
	_ noCopy
	frame
	owner Owner
}

// NewGenerator creates a [Generator] bound to owner, with fn as its body.
func NewGenerator(owner Owner, fn GeneratorFunc) *Generator {
	if fn == nil {
		panic("unco: NewGenerator called with nil GeneratorFunc")
	}
	g := &Generator{owner: owner}
	y := &Yielder{g: g}
	g.init(func() { fn(y) })
	return g
}

// Advance resumes g until it next yields or finishes, and reports whether g
// is still unfinished.
//
// Advancing a finished generator is a programming error; Advance panics.
// Callers must check the Finished method beforehand.
func (g *Generator) Advance() bool {
	if g.done() {
		panic("unco: advance of finished generator")
	}
	return g.resume()
}

// Finished reports whether g has finished, without resuming it.
//
// A faulted or closed generator is also finished.
func (g *Generator) Finished() bool {
	return g.done()
}

// OwnerValid reports whether the owner of g is still valid.
func (g *Generator) OwnerValid() bool {
	return valid(g.owner)
}

// Owner returns the owner of g.
func (g *Generator) Owner() Owner {
	return g.owner
}

// Status returns the status of g.
func (g *Generator) Status() Status {
	return g.status
}

// Fault returns the recovered panic if g has faulted, or nil otherwise.
func (g *Generator) Fault() *Fault {
	return g.fault
}

// Close releases g. Close is idempotent.
//
// If g is suspended, its body unwinds through its deferred calls; any Yield
// reached while unwinding exits immediately.
func (g *Generator) Close() {
	g.release()
}

type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
