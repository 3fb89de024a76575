package services

import (
	"context"
	"log"
	"sort"
	"strings"

	"poi-server/models"
	"poi-server/store"
	"poi-server/utils/errors"
)

// RegistryService owns the canonical POI collection. Writes go straight to
// the store and are never mirrored into local state; callers observe them
// through the next snapshot the subscription delivers.
type RegistryService struct {
	store store.Store

	// cascadeLikes controls whether deleting a POI also removes the like
	// records referencing it. Off by default: orphaned likes are cheap
	// history, and the reconciler never counts them against live POIs.
	cascadeLikes bool
}

func NewRegistryService(st store.Store, cascadeLikes bool) *RegistryService {
	return &RegistryService{store: st, cascadeLikes: cascadeLikes}
}

type POISnapshot struct {
	POIs []models.PointOfInterest
	Err  error
}

// POISubscription delivers the full POI list, newest first, after every
// store change.
type POISubscription struct {
	snapshots chan POISnapshot
	inner     *store.Subscription
}

func (s *POISubscription) Snapshots() <-chan POISnapshot {
	return s.snapshots
}

// Cancel stops delivery and releases the store listener. Idempotent.
func (s *POISubscription) Cancel() {
	s.inner.Cancel()
}

func (s *RegistryService) Subscribe(ctx context.Context) (*POISubscription, error) {
	if s.store == nil {
		return nil, errors.ErrNotConfigured
	}
	inner, err := s.store.Subscribe(ctx, poiCollection, nil)
	if err != nil {
		return nil, wrapStoreErr(err)
	}

	sub := &POISubscription{snapshots: make(chan POISnapshot, 16), inner: inner}
	go func() {
		defer close(sub.snapshots)
		for snap := range inner.Snapshots() {
			if snap.Err != nil {
				sub.snapshots <- POISnapshot{Err: snap.Err}
				continue
			}
			sub.snapshots <- POISnapshot{POIs: sortPOIs(mapDocsToPOIs(snap.Docs))}
		}
	}()
	return sub, nil
}

// List is a one-shot read with the same ordering as the subscription.
func (s *RegistryService) List(ctx context.Context) ([]models.PointOfInterest, error) {
	if s.store == nil {
		return nil, errors.ErrNotConfigured
	}
	docs, err := s.store.QueryDocuments(ctx, poiCollection, nil)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return sortPOIs(mapDocsToPOIs(docs)), nil
}

func (s *RegistryService) Get(ctx context.Context, id string) (models.PointOfInterest, error) {
	if s.store == nil {
		return models.PointOfInterest{}, errors.ErrNotConfigured
	}
	doc, found, err := s.store.GetDocument(ctx, poiCollection, id)
	if err != nil {
		return models.PointOfInterest{}, wrapStoreErr(err)
	}
	if !found {
		return models.PointOfInterest{}, errors.ErrNotFound
	}
	return mapDocToPOI(doc), nil
}

// Create persists a new POI with a zero like counter and a server-assigned
// creation timestamp. A blank address is omitted entirely rather than stored
// as an empty string.
func (s *RegistryService) Create(ctx context.Context, input models.CreatePOI) error {
	if s.store == nil {
		return errors.ErrNotConfigured
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return errors.ErrInvalidInput
	}

	fields := map[string]any{
		"name":       name,
		"latitude":   input.Latitude,
		"longitude":  input.Longitude,
		"likesCount": int64(0),
		"createdAt":  store.ServerTimestamp,
	}
	if address := strings.TrimSpace(input.Address); address != "" {
		fields["address"] = address
	}

	if _, err := s.store.CreateDocument(ctx, poiCollection, fields); err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

// Delete removes the POI document. With cascade enabled the like records
// referencing it are removed best-effort afterwards.
func (s *RegistryService) Delete(ctx context.Context, id string) error {
	if s.store == nil {
		return errors.ErrNotConfigured
	}
	if err := s.store.DeleteDocument(ctx, poiCollection, id); err != nil {
		return wrapStoreErr(err)
	}
	if !s.cascadeLikes {
		return nil
	}

	likes, err := s.store.QueryDocuments(ctx, likesCollection, store.Filter{"poiId": id})
	if err != nil {
		log.Printf("cascade: failed to list likes for POI %s: %v", id, err)
		return nil
	}
	for _, like := range likes {
		if err := s.store.DeleteDocument(ctx, likesCollection, like.ID); err != nil {
			log.Printf("cascade: failed to delete like %s: %v", like.ID, err)
		}
	}
	return nil
}

func mapDocsToPOIs(docs []store.Document) []models.PointOfInterest {
	pois := make([]models.PointOfInterest, 0, len(docs))
	for _, doc := range docs {
		pois = append(pois, mapDocToPOI(doc))
	}
	return pois
}

// sortPOIs orders newest first; ties keep the store's own delivery order.
func sortPOIs(pois []models.PointOfInterest) []models.PointOfInterest {
	sort.SliceStable(pois, func(i, j int) bool {
		return pois[i].CreatedAt.After(pois[j].CreatedAt)
	})
	return pois
}
