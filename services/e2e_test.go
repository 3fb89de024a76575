package services_test

import (
	"context"
	"testing"

	"poi-server/models"
	"poi-server/services"
	"poi-server/store"
)

// Full session walk-through: sign in, resolve role, create a POI, like it,
// and observe every effect exclusively through the subscriptions.
func TestSignInCreateLikeScenario(t *testing.T) {
	m := store.NewMemStore()
	auth := services.NewAuthService(m, "test-secret")
	roleService := services.NewRoleService(m, nil, auth)
	roleService.Start()
	defer roleService.Close()
	registry := services.NewRegistryService(m, false)
	ledger := services.NewLedgerService(m, auth)
	ctx := context.Background()

	userID, err := auth.Register(ctx, "alice@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := auth.Login(ctx, "alice@example.com", "hunter22"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if roleService.State() != services.RoleResolved || roleService.Role() != models.RoleUser {
		t.Fatalf("expected Resolved(user), got state %v role %v", roleService.State(), roleService.Role())
	}

	poiSub, err := registry.Subscribe(ctx)
	if err != nil {
		t.Fatalf("registry Subscribe failed: %v", err)
	}
	defer poiSub.Cancel()
	waitForPOIs(t, poiSub, func(s services.POISnapshot) bool { return s.Err == nil && len(s.POIs) == 0 })

	if err := registry.Create(ctx, models.CreatePOI{Name: "Park", Latitude: 48.8, Longitude: 2.3}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	snap := waitForPOIs(t, poiSub, func(s services.POISnapshot) bool { return len(s.POIs) == 1 })
	park := snap.POIs[0]
	if park.Name != "Park" || park.LikesCount != 0 {
		t.Fatalf("unexpected created POI: %+v", park)
	}

	likeSub, err := ledger.Subscribe(ctx, userID)
	if err != nil {
		t.Fatalf("ledger Subscribe failed: %v", err)
	}
	defer likeSub.Cancel()

	if err := ledger.Like(ctx, park); err != nil {
		t.Fatalf("Like failed: %v", err)
	}

	likes := waitForLikes(t, likeSub, func(s services.LikeSnapshot) bool { return len(s.LikedIDs) == 1 })
	if _, ok := likes.LikedIDs[park.ID]; !ok {
		t.Fatalf("liked set missing %s", park.ID)
	}
	if !ledger.IsLiked(park.ID) {
		t.Fatal("IsLiked must report the liked POI")
	}

	snap = waitForPOIs(t, poiSub, func(s services.POISnapshot) bool {
		return len(s.POIs) == 1 && s.POIs[0].LikesCount == 1
	})
	if snap.POIs[0].ID != park.ID {
		t.Fatalf("registry delivered a different POI: %s", snap.POIs[0].ID)
	}
}
