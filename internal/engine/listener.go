package engine

import "time"

// Listener receives run events. Implementations must be safe for
// concurrent use when one listener is shared by a worker pool.
type Listener interface {
	ValidationStarted(file string, expectedRows int)
	// Progress reports rows read so far; total is zero when unknown
	Progress(file string, current, total int)
	ValidationCompleted(file string, errorCount int, elapsed time.Duration)
}

// NopListener ignores every event
type NopListener struct{}

func (NopListener) ValidationStarted(string, int)                   {}
func (NopListener) Progress(string, int, int)                       {}
func (NopListener) ValidationCompleted(string, int, time.Duration) {}

// RecordObserver sees each usable record in source order
type RecordObserver interface {
	Observe(rec Record)
}

// Record is the read side of a streamed record
type Record interface {
	Lookup(name string) (any, bool)
}

// ObserverFunc adapts a function to RecordObserver
type ObserverFunc func(rec Record)

func (f ObserverFunc) Observe(rec Record) { f(rec) }
