package link

import "github.com/golang/glog"

// EventKind identifies an Event.
type EventKind int

const (
	// EventFrameReceived is reported for every frame handed to the processor.
	EventFrameReceived EventKind = iota
	// EventFrameRejected is reported after an error frame is sent.
	EventFrameRejected
	// EventResponseSent is reported after a successful reply is sent.
	EventResponseSent
)

// String implements fmt.Stringer.
func (k EventKind) String() string {
	switch k {
	case EventFrameReceived:
		return "received"
	case EventFrameRejected:
		return "rejected"
	case EventResponseSent:
		return "replied"
	}
	return "unknown"
}

// Event describes what the processor did with a frame.
// Data aliases internal buffers and is only valid during Observe.
type Event struct {
	Kind EventKind
	Data []byte
	Code byte
	Err  error
}

// Observer receives processing events, for diagnostics only.
type Observer interface {
	Observe(*Event)
}

// ObserveFunc is func type of Observer.
type ObserveFunc func(*Event)

// Observe implements Observer.
func (f ObserveFunc) Observe(e *Event) {
	f(e)
}

// Observers fans events out to multiple observers.
type Observers []Observer

// Observe implements Observer.
func (o Observers) Observe(e *Event) {
	for _, observer := range o {
		observer.Observe(e)
	}
}

// LogEvents logs every event at verbosity 2.
var LogEvents = ObserveFunc(func(e *Event) {
	if !glog.V(2) {
		return
	}
	switch e.Kind {
	case EventFrameRejected:
		glog.Infof("%s % x: %s %v", e.Kind, e.Data, CodeName(e.Code), e.Err)
	default:
		glog.Infof("%s % x", e.Kind, e.Data)
	}
})
