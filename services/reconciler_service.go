package services

import (
	"context"
	"log"
	"time"

	"poi-server/store"
	"poi-server/utils/errors"
)

// ReconcilerService repairs the denormalized like counters. Like and unlike
// are two independent writes, so a failure between them leaves a POI's
// likesCount out of step with the actual like records; this recomputes the
// true counts and applies the difference.
type ReconcilerService struct {
	store    store.Store
	interval time.Duration
}

func NewReconcilerService(st store.Store, interval time.Duration) *ReconcilerService {
	return &ReconcilerService{store: st, interval: interval}
}

// Reconcile recomputes every POI's likesCount from like-record membership
// and adjusts only the skewed counters. Returns the number of repairs.
func (s *ReconcilerService) Reconcile(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, errors.ErrNotConfigured
	}

	likes, err := s.store.QueryDocuments(ctx, likesCollection, nil)
	if err != nil {
		return 0, wrapStoreErr(err)
	}
	counts := map[string]int64{}
	for _, like := range likes {
		counts[fieldString(like.Fields, "poiId")]++
	}

	pois, err := s.store.QueryDocuments(ctx, poiCollection, nil)
	if err != nil {
		return 0, wrapStoreErr(err)
	}

	fixed := 0
	for _, poi := range pois {
		want := counts[poi.ID]
		have := fieldInt(poi.Fields, "likesCount")
		if want == have {
			continue
		}
		// The delta goes through the atomic increment so likes landing
		// during the sweep are not overwritten.
		if err := s.store.AtomicIncrement(ctx, poiCollection, poi.ID, "likesCount", want-have); err != nil {
			return fixed, wrapStoreErr(err)
		}
		fixed++
	}
	return fixed, nil
}

// Run reconciles on a fixed interval until the context is cancelled.
func (s *ReconcilerService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Println("Like reconciler started. Interval:", s.interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("Like reconciler stopped.")
			return
		case <-ticker.C:
			fixed, err := s.Reconcile(ctx)
			if err != nil {
				log.Printf("Reconcile failed: %v", err)
				continue
			}
			if fixed > 0 {
				log.Printf("Reconciled %d like counters", fixed)
			}
		}
	}
}
