package contracts

import "iter"

// EventType distinguishes validation events.
type EventType int

const (
	// EventValue carries a validated, possibly converted, value.
	EventValue EventType = iota
	// EventError reports a validation failure.
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventValue:
		return "value"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one structured result of validating an input.
type Event struct {
	Type          EventType
	ParameterName string
	Value         any
	Code          int
	Context       map[string]any
}

// ErrorAggregator collects validation errors reported when a composite
// rule finishes.
type ErrorAggregator interface {
	Add(e Event)
	Count() int
	Clear()
}

// Rule validates an input.
type Rule interface {
	// Validate lazily yields the validation events for input.
	Validate(input any) iter.Seq[Event]
	// IsStateless reports whether the rule keeps no per-input state, so a
	// single instance may validate any number of inputs without a reset.
	IsStateless() bool
	// ParentRule returns the enclosing rule, or nil. The reference is used
	// for error context only and does not own the parent.
	ParentRule() Rule
	SetParentRule(parent Rule)
	// ParameterName returns the label used in error messages, or "".
	ParameterName() string
	SetParameterName(name string) Rule
	// OnFinish is called once validation of the enclosing composite completes.
	OnFinish(agg ErrorAggregator)
}
