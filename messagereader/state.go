package messagereader

import (
	"github.com/illuscio-dev/odatareader-go/odataerrors"
	"sync"
)

// Lifecycle state of a Reader.
type state int

const (
	// No read method has been called yet.
	stateFresh state = iota
	// DetectPayloadKind is reading the buffered body.
	stateSniffing
	// A read method has been called.
	stateUsed
	// Close has been called. Terminal.
	stateDisposed
)

var stateNames = map[state]string{
	stateFresh:    "Fresh",
	stateSniffing: "Sniffing",
	stateUsed:     "Used",
	stateDisposed: "Disposed",
}

func (current state) String() string {
	return stateNames[current]
}

// Calling convention a reader has committed to. The first call decides.
type mode int

const (
	modeUnset mode = iota
	modeSync
	modeAsync
)

var modeNames = map[mode]string{
	modeUnset: "unset",
	modeSync:  "synchronous",
	modeAsync: "asynchronous",
}

func (current mode) String() string {
	return modeNames[current]
}

/*
guard owns the reader state and its transitions.

A Reader is not meant to be shared between goroutines, but the async view runs the
actual work on its own goroutine, and a detector may call back into the reader while
sniffing. Transitions are therefore made under a lock, and each one is a single check
and set, so two racing calls can never both pass.
*/
type guard struct {
	lock         sync.Mutex
	state        state
	detectionRun bool
	mode         mode
}

// Caller must hold the lock.
func (guard *guard) commitMode(requested mode) error {
	if guard.mode != modeUnset && guard.mode != requested {
		return odataerrors.ModeMismatch.Newf(
			odataerrors.MsgModeMismatch, guard.mode, requested,
		).With("mode", guard.mode.String())
	}
	guard.mode = requested
	return nil
}

// Caller must hold the lock.
func (guard *guard) usageError() error {
	switch guard.state {
	case stateDisposed:
		return odataerrors.ReaderDisposed.Newf(odataerrors.MsgReaderDisposed)
	case stateUsed:
		return odataerrors.ReaderAlreadyUsed.Newf(
			odataerrors.MsgReaderAlreadyUsed, guard.state,
		).With("state", guard.state.String())
	case stateSniffing:
		return odataerrors.DetectionInProgress.Newf(odataerrors.MsgDetectionInProgress)
	}
	return nil
}

/*
beginRead is the transition to Used. Checks run in this order:

• disposed

• already used

• detection in progress

• calling mode

The reader is Used as soon as beginRead succeeds, even if the read itself then fails.
*/
func (guard *guard) beginRead(requested mode) error {
	guard.lock.Lock()
	defer guard.lock.Unlock()

	if err := guard.usageError(); err != nil {
		return err
	}
	if err := guard.commitMode(requested); err != nil {
		return err
	}
	guard.state = stateUsed
	return nil
}

/*
beginDetection allows a single detection, before any read. The reader is Sniffing from
the moment it succeeds, so reads started while detection runs on another goroutine fail
with DetectionInProgress. Callers must call stopSniffing when detection finishes, which
leaves the reader Fresh so one read can follow.
*/
func (guard *guard) beginDetection(requested mode) error {
	guard.lock.Lock()
	defer guard.lock.Unlock()

	if guard.state == stateDisposed {
		return odataerrors.ReaderDisposed.Newf(odataerrors.MsgReaderDisposed)
	}
	if guard.detectionRun {
		return odataerrors.DetectionAlreadyRun.Newf(odataerrors.MsgDetectionAlreadyRun)
	}
	if err := guard.usageError(); err != nil {
		return err
	}
	if err := guard.commitMode(requested); err != nil {
		return err
	}
	guard.detectionRun = true
	guard.state = stateSniffing
	return nil
}

func (guard *guard) stopSniffing() {
	guard.lock.Lock()
	defer guard.lock.Unlock()
	if guard.state == stateSniffing {
		guard.state = stateFresh
	}
}

// Moves to Disposed. Returns false if the reader was already disposed.
func (guard *guard) dispose() bool {
	guard.lock.Lock()
	defer guard.lock.Unlock()
	if guard.state == stateDisposed {
		return false
	}
	guard.state = stateDisposed
	return true
}

func (guard *guard) current() state {
	guard.lock.Lock()
	defer guard.lock.Unlock()
	return guard.state
}
