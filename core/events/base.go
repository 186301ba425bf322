package events

import "time"

type Kind string

// Event is one item of the closed set of normalized live API events. Only
// types in this package implement it.
type Event interface {
	Kind() Kind
	Timestamp() time.Time
	sealed()
}

type Base struct {
	kind      Kind
	timestamp time.Time
}

func newBase(kind Kind) Base {
	return Base{kind: kind, timestamp: time.Now()}
}

func (b Base) Kind() Kind {
	return b.kind
}

func (b Base) Timestamp() time.Time {
	return b.timestamp
}

func (Base) sealed() {}
