package events

import "time"

// ResolverFinish is emitted after a bound resolver settles.
type ResolverFinish struct {
	ObjectType string
	Field      string
	Kind       string
	Err        error
	Duration   time.Duration
}
