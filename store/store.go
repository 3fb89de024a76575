// Package store abstracts the remote document database: point reads and
// writes, atomic field increments, and live queries that re-deliver the full
// result set on every change.
package store

import (
	"context"
	"sync"
)

// ServerTimestamp marks a field whose value is assigned by the store at
// write time, never from the client clock.
var ServerTimestamp = serverTimestamp{}

type serverTimestamp struct{}

// Filter is a flat equality match on document fields. A nil filter matches
// every document in the collection.
type Filter map[string]any

// Document is a single record read back from a collection.
type Document struct {
	ID     string
	Fields map[string]any
}

// Snapshot is the full result set of a live query at one point in time.
// Err is set instead of Docs when the underlying query failed; the stream
// stays open and may recover.
type Snapshot struct {
	Docs []Document
	Err  error
}

// Store is the document database capability consumed by the services. All
// writes are fire-and-forget-then-observe: a successful write is reflected
// in caches only once a subscription delivers the updated snapshot.
type Store interface {
	// Subscribe opens a live query. The returned subscription delivers an
	// initial snapshot and then a full snapshot after every matching change,
	// in the store's causal write order for that query.
	Subscribe(ctx context.Context, collection string, filter Filter) (*Subscription, error)

	// CreateDocument inserts a new document and returns the store-assigned id.
	CreateDocument(ctx context.Context, collection string, fields map[string]any) (string, error)

	// UpsertDocument creates or fully replaces the document with the given id.
	UpsertDocument(ctx context.Context, collection string, id string, fields map[string]any) error

	// DeleteDocument removes a document. Deleting an absent id is a no-op.
	DeleteDocument(ctx context.Context, collection string, id string) error

	// AtomicIncrement adjusts a numeric field by delta using the store's
	// native increment, safe under concurrent writers. Incrementing an
	// absent document is a no-op.
	AtomicIncrement(ctx context.Context, collection string, id, field string, delta int64) error

	// GetDocument is a point read. The boolean reports presence.
	GetDocument(ctx context.Context, collection string, id string) (Document, bool, error)

	// QueryDocuments runs a one-shot query with the same filter semantics as
	// Subscribe.
	QueryDocuments(ctx context.Context, collection string, filter Filter) ([]Document, error)
}

// Subscription is the cancellable handle of a live query.
type Subscription struct {
	ch     chan Snapshot
	cancel func()
	once   sync.Once
}

func newSubscription(buffer int, cancel func()) *Subscription {
	return &Subscription{ch: make(chan Snapshot, buffer), cancel: cancel}
}

// Snapshots returns the delivery channel. It is closed after Cancel.
func (s *Subscription) Snapshots() <-chan Snapshot {
	return s.ch
}

// Cancel stops delivery and releases the underlying listener. Safe to call
// more than once and after the stream already closed.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

// Matches reports whether every filter entry equals the corresponding field.
func (f Filter) Matches(fields map[string]any) bool {
	for k, want := range f {
		if fields[k] != want {
			return false
		}
	}
	return true
}
