// Package broker defines the durable list store the dispatch queue runs on.
//
// The contract is four primitives over named lists. PopAndMoveBlocking is the
// load-bearing one: it must move the value from source to destination
// atomically, so a value is never observably absent from both lists during a
// handoff. That single guarantee is what lets multiple worker replicas share
// one queue without a distributed lock.
package broker

import (
	"context"
	"time"
)

// Broker is the minimal list-store contract. Values are opaque strings;
// callers own serialization.
type Broker interface {
	// Push prepends value to the head of list.
	Push(ctx context.Context, list, value string) error

	// PopAndMoveBlocking atomically pops the tail of source and prepends it
	// to dest, blocking up to timeout if source is empty. A timeout returns
	// ("", nil) — empty is not an error.
	PopAndMoveBlocking(ctx context.Context, source, dest string, timeout time.Duration) (string, error)

	// RemoveFirst removes the first occurrence of value from list and
	// reports how many elements were removed (0 or 1).
	RemoveFirst(ctx context.Context, list, value string) (int64, error)

	// Length returns the number of elements in list.
	Length(ctx context.Context, list string) (int64, error)
}
