package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store with the same contract as the Mongo
// implementation: server-assigned timestamps, atomic increments and live
// filtered queries. It backs the test suite and local runs without a
// database.
type MemStore struct {
	mu          sync.Mutex
	collections map[string]*memCollection
	lastStamp   time.Time
}

type memCollection struct {
	docs  map[string]map[string]any
	order []string // insertion order, the store's own deterministic order
	subs  map[int]*memSub
	next  int
}

type memSub struct {
	filter Filter
	sub    *Subscription
}

func NewMemStore() *MemStore {
	return &MemStore{collections: map[string]*memCollection{}}
}

func (m *MemStore) collection(name string) *memCollection {
	c, ok := m.collections[name]
	if !ok {
		c = &memCollection{docs: map[string]map[string]any{}, subs: map[int]*memSub{}}
		m.collections[name] = c
	}
	return c
}

// serverTime returns a strictly increasing timestamp so that records created
// back to back still have a total creation order.
func (m *MemStore) serverTime() time.Time {
	now := time.Now().UTC()
	if !now.After(m.lastStamp) {
		now = m.lastStamp.Add(time.Nanosecond)
	}
	m.lastStamp = now
	return now
}

func (m *MemStore) resolveTimestamps(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if _, ok := v.(serverTimestamp); ok {
			out[k] = m.serverTime()
			continue
		}
		out[k] = v
	}
	return out
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func (m *MemStore) Subscribe(ctx context.Context, collection string, filter Filter) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.collection(collection)
	id := c.next
	c.next++

	sub := newSubscription(16, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if ms, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(ms.sub.ch)
		}
	})
	ms := &memSub{filter: filter, sub: sub}
	c.subs[id] = ms

	deliver(ms.sub.ch, Snapshot{Docs: c.snapshot(filter)})
	return sub, nil
}

func (m *MemStore) CreateDocument(ctx context.Context, collection string, fields map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.collection(collection)
	id := uuid.New().String()
	c.docs[id] = m.resolveTimestamps(fields)
	c.order = append(c.order, id)
	c.notify()
	return id, nil
}

func (m *MemStore) UpsertDocument(ctx context.Context, collection string, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.collection(collection)
	if _, exists := c.docs[id]; !exists {
		c.order = append(c.order, id)
	}
	c.docs[id] = m.resolveTimestamps(fields)
	c.notify()
	return nil
}

func (m *MemStore) DeleteDocument(ctx context.Context, collection string, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.collection(collection)
	if _, exists := c.docs[id]; !exists {
		return nil
	}
	delete(c.docs, id)
	for i, docID := range c.order {
		if docID == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.notify()
	return nil
}

func (m *MemStore) AtomicIncrement(ctx context.Context, collection string, id, field string, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.collection(collection)
	doc, exists := c.docs[id]
	if !exists {
		return nil
	}
	doc[field] = asInt64(doc[field]) + delta
	c.notify()
	return nil
}

func (m *MemStore) GetDocument(ctx context.Context, collection string, id string) (Document, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.collection(collection)
	doc, exists := c.docs[id]
	if !exists {
		return Document{}, false, nil
	}
	return Document{ID: id, Fields: copyFields(doc)}, true, nil
}

func (m *MemStore) QueryDocuments(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.collection(collection).snapshot(filter), nil
}

func (c *memCollection) snapshot(filter Filter) []Document {
	docs := make([]Document, 0, len(c.order))
	for _, id := range c.order {
		fields := c.docs[id]
		if filter.Matches(fields) {
			docs = append(docs, Document{ID: id, Fields: copyFields(fields)})
		}
	}
	return docs
}

// notify re-delivers the current result set to every live subscription on
// the collection. Caller holds the store mutex.
func (c *memCollection) notify() {
	for _, ms := range c.subs {
		deliver(ms.sub.ch, Snapshot{Docs: c.snapshot(ms.filter)})
	}
}

// deliver pushes a snapshot, dropping the oldest queued one when the
// consumer lags. A slow consumer always sees the latest state.
func deliver(ch chan Snapshot, snap Snapshot) {
	for {
		select {
		case ch <- snap:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
