package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"poi-server/models"
	"poi-server/store"
	"poi-server/utils/errors"
)

// LedgerService owns the current user's like relationships. The liked-set is
// scoped to one user (a userId equality query), never a global like index,
// so the subscription's volume is bounded by that user's likes alone.
type LedgerService struct {
	store    store.Store
	identity Identity

	mu       sync.RWMutex
	likedIDs map[string]struct{}
}

func NewLedgerService(st store.Store, identity Identity) *LedgerService {
	return &LedgerService{store: st, identity: identity, likedIDs: map[string]struct{}{}}
}

type LikeSnapshot struct {
	LikedIDs map[string]struct{}
	Liked    []models.LikedPoiSnapshot
	Err      error
}

type LikeSubscription struct {
	snapshots chan LikeSnapshot
	inner     *store.Subscription
	once      sync.Once
}

func (s *LikeSubscription) Snapshots() <-chan LikeSnapshot {
	return s.snapshots
}

// Cancel stops delivery. Idempotent.
func (s *LikeSubscription) Cancel() {
	s.once.Do(func() {
		if s.inner != nil {
			s.inner.Cancel()
			return
		}
		close(s.snapshots)
	})
}

// likeDocID is the composite key making re-likes upserts instead of
// duplicates.
func likeDocID(poiID, userID string) string {
	return fmt.Sprintf("%s_%s", poiID, userID)
}

// Subscribe opens the live liked-set for userID. A blank userID (signed out)
// yields a single empty snapshot and opens no store subscription.
func (s *LedgerService) Subscribe(ctx context.Context, userID string) (*LikeSubscription, error) {
	if userID == "" {
		s.setLikedIDs(map[string]struct{}{})
		sub := &LikeSubscription{snapshots: make(chan LikeSnapshot, 1)}
		sub.snapshots <- LikeSnapshot{LikedIDs: map[string]struct{}{}}
		return sub, nil
	}
	if s.store == nil {
		return nil, errors.ErrNotConfigured
	}

	inner, err := s.store.Subscribe(ctx, likesCollection, store.Filter{"userId": userID})
	if err != nil {
		return nil, wrapStoreErr(err)
	}

	sub := &LikeSubscription{snapshots: make(chan LikeSnapshot, 16), inner: inner}
	go func() {
		defer close(sub.snapshots)
		for snap := range inner.Snapshots() {
			if snap.Err != nil {
				sub.snapshots <- LikeSnapshot{Err: snap.Err}
				continue
			}
			ids := make(map[string]struct{}, len(snap.Docs))
			liked := make([]models.LikedPoiSnapshot, 0, len(snap.Docs))
			for _, doc := range snap.Docs {
				like := mapDocToLike(doc)
				ids[like.PoiID] = struct{}{}
				liked = append(liked, like)
			}
			sort.SliceStable(liked, func(i, j int) bool {
				return liked[i].CreatedAt.After(liked[j].CreatedAt)
			})
			s.setLikedIDs(ids)
			sub.snapshots <- LikeSnapshot{LikedIDs: ids, Liked: liked}
		}
	}()
	return sub, nil
}

// IsLiked looks up the last delivered liked-set. O(1), no store access.
func (s *LedgerService) IsLiked(poiID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.likedIDs[poiID]
	return ok
}

// Like upserts the like record and then bumps the POI's counter with the
// store's atomic increment. The two writes are sequential, not a
// transaction: an observer may briefly see the record without the adjusted
// counter, and a failure between them leaves skew for the reconciler.
func (s *LedgerService) Like(ctx context.Context, poi models.PointOfInterest) error {
	if s.store == nil {
		return errors.ErrNotConfigured
	}
	userID := s.currentUserID(ctx)
	if userID == "" {
		return errors.ErrNotAuthenticated
	}

	fields := map[string]any{
		"poiId":     poi.ID,
		"userId":    userID,
		"name":      poi.Name,
		"latitude":  poi.Latitude,
		"longitude": poi.Longitude,
		"createdAt": store.ServerTimestamp,
	}
	if poi.Address != "" {
		fields["address"] = poi.Address
	}

	if err := s.store.UpsertDocument(ctx, likesCollection, likeDocID(poi.ID, userID), fields); err != nil {
		return wrapStoreErr(err)
	}
	if err := s.store.AtomicIncrement(ctx, poiCollection, poi.ID, "likesCount", 1); err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

// Unlike deletes the like record and decrements the counter. The decrement
// is not guarded against an absent record; the reconciler repairs any skew.
func (s *LedgerService) Unlike(ctx context.Context, poiID string) error {
	if s.store == nil {
		return errors.ErrNotConfigured
	}
	userID := s.currentUserID(ctx)
	if userID == "" {
		return errors.ErrNotAuthenticated
	}

	if err := s.store.DeleteDocument(ctx, likesCollection, likeDocID(poiID, userID)); err != nil {
		return wrapStoreErr(err)
	}
	if err := s.store.AtomicIncrement(ctx, poiCollection, poiID, "likesCount", -1); err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

// LikedPOIs is a one-shot read of userID's denormalized like snapshots,
// newest first.
func (s *LedgerService) LikedPOIs(ctx context.Context, userID string) ([]models.LikedPoiSnapshot, error) {
	if s.store == nil {
		return nil, errors.ErrNotConfigured
	}
	docs, err := s.store.QueryDocuments(ctx, likesCollection, store.Filter{"userId": userID})
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	liked := make([]models.LikedPoiSnapshot, 0, len(docs))
	for _, doc := range docs {
		liked = append(liked, mapDocToLike(doc))
	}
	sort.SliceStable(liked, func(i, j int) bool {
		return liked[i].CreatedAt.After(liked[j].CreatedAt)
	})
	return liked, nil
}

func (s *LedgerService) setLikedIDs(ids map[string]struct{}) {
	s.mu.Lock()
	s.likedIDs = ids
	s.mu.Unlock()
}

// currentUserID prefers the request context (set by the JWT middleware) and
// falls back to the identity provider for in-process use.
func (s *LedgerService) currentUserID(ctx context.Context) string {
	if id, ok := ctx.Value("userID").(string); ok && id != "" {
		return id
	}
	if s.identity != nil {
		return s.identity.CurrentUserID()
	}
	return ""
}
