package unco

// Stats is a snapshot of the counters of a [Scheduler].
type Stats struct {
	Updates  uint64 // updates that advanced at least one generator
	Advances uint64 // generator steps

	FramesRequested uint64
	FramesFinished  uint64
	FramesFaulted   uint64
	FramesPruned    uint64 // dropped because an owner became invalid
	FramesClosed    uint64 // closed by someone else while handed over

	TasksStarted      uint64
	TasksFinished     uint64
	TasksFaulted      uint64
	TasksRegistered   uint64
	TasksUnregistered uint64
	TasksPruned       uint64
	TasksAbandoned    uint64

	ActiveFrames    int
	PendingFrames   int
	RegisteredTasks int
}
