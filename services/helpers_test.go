package services_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"poi-server/services"
	"poi-server/store"
)

// fakeIdentity is an in-memory identity provider with the same
// auth-state-changed contract as AuthService.
type fakeIdentity struct {
	mu        sync.Mutex
	userID    string
	email     string
	listeners map[int]func(userID, email string)
	nextID    int
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{listeners: map[int]func(string, string){}}
}

func (f *fakeIdentity) CurrentUserID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userID
}

func (f *fakeIdentity) CurrentEmail() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.email
}

func (f *fakeIdentity) OnAuthStateChanged(fn func(userID, email string)) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = fn
	userID, email := f.userID, f.email
	f.mu.Unlock()

	fn(userID, email)
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

func (f *fakeIdentity) signIn(userID, email string) {
	f.set(userID, email)
}

func (f *fakeIdentity) signOut() {
	f.set("", "")
}

func (f *fakeIdentity) set(userID, email string) {
	f.mu.Lock()
	f.userID, f.email = userID, email
	fns := make([]func(string, string), 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(userID, email)
	}
}

// failingStore wraps a Store and fails selected operations, for the
// fail-open paths.
type failingStore struct {
	store.Store
	failGet    bool
	failUpsert bool
}

func (f *failingStore) GetDocument(ctx context.Context, collection, id string) (store.Document, bool, error) {
	if f.failGet {
		return store.Document{}, false, fmt.Errorf("transient read failure")
	}
	return f.Store.GetDocument(ctx, collection, id)
}

func (f *failingStore) UpsertDocument(ctx context.Context, collection, id string, fields map[string]any) error {
	if f.failUpsert {
		return fmt.Errorf("transient write failure")
	}
	return f.Store.UpsertDocument(ctx, collection, id, fields)
}

func waitForPOIs(t *testing.T, sub *services.POISubscription, pred func(services.POISnapshot) bool) services.POISnapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-sub.Snapshots():
			if !ok {
				t.Fatal("POI subscription closed before expected snapshot")
			}
			if pred(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for POI snapshot")
		}
	}
}

func waitForLikes(t *testing.T, sub *services.LikeSubscription, pred func(services.LikeSnapshot) bool) services.LikeSnapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-sub.Snapshots():
			if !ok {
				t.Fatal("like subscription closed before expected snapshot")
			}
			if pred(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for like snapshot")
		}
	}
}
