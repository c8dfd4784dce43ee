package driver

import "time"

// PhaseStatus reports whether a phase started or finished.
type PhaseStatus int

const (
	PhaseStart PhaseStatus = iota
	PhaseEnd
	PhaseFailed
	PhaseCached // the phase was skipped because the image cache hit
)

// Phase names passed to a PhaseObserver.
const (
	PhaseLoad     = "load"
	PhaseLex      = "lex"
	PhaseCompile  = "compile"
	PhaseAssemble = "assemble"
	PhaseCache    = "cache"
	PhaseExecute  = "execute"
)

// PhaseEvent describes a phase boundary. File is empty for phases that cover
// the whole build.
type PhaseEvent struct {
	Name    string
	File    string
	Status  PhaseStatus
	Elapsed time.Duration
}

// PhaseObserver receives phase events emitted by Build and Execute. It is
// called from the goroutine that runs the build.
type PhaseObserver func(PhaseEvent)

func (o PhaseObserver) emit(name, file string, status PhaseStatus, elapsed time.Duration) {
	if o != nil {
		o(PhaseEvent{Name: name, File: file, Status: status, Elapsed: elapsed})
	}
}
