package services_test

import (
	"context"
	"testing"

	"poi-server/models"
	"poi-server/services"
	"poi-server/store"
)

func TestInitialSignedOutStateIsUnauthenticated(t *testing.T) {
	roleService := services.NewRoleService(store.NewMemStore(), nil, newFakeIdentity())
	roleService.Start()
	defer roleService.Close()

	if got := roleService.State(); got != services.RoleUnauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", got)
	}
	if roleService.IsAdmin() {
		t.Fatal("signed-out session must not be admin")
	}
}

func TestFirstSignInProvisionsUserRole(t *testing.T) {
	m := store.NewMemStore()
	identity := newFakeIdentity()
	roleService := services.NewRoleService(m, nil, identity)
	roleService.Start()
	defer roleService.Close()

	identity.signIn("u1", "u1@example.com")

	if got := roleService.State(); got != services.RoleResolved {
		t.Fatalf("expected Resolved, got %v", got)
	}
	if got := roleService.Role(); got != models.RoleUser {
		t.Fatalf("expected default role user, got %v", got)
	}

	doc, found, err := m.GetDocument(context.Background(), "users", "u1")
	if err != nil || !found {
		t.Fatalf("expected provisioned role record: found=%v err=%v", found, err)
	}
	if doc.Fields["role"] != "user" || doc.Fields["email"] != "u1@example.com" {
		t.Fatalf("unexpected provisioned record: %v", doc.Fields)
	}
}

func TestExistingAdminRecordResolvesAdmin(t *testing.T) {
	m := store.NewMemStore()
	mustUpsertRole(t, m, "u1", "admin")
	identity := newFakeIdentity()
	roleService := services.NewRoleService(m, nil, identity)
	roleService.Start()
	defer roleService.Close()

	identity.signIn("u1", "u1@example.com")

	if !roleService.IsAdmin() {
		t.Fatal("expected admin role")
	}
}

func TestUnknownRoleValueNormalizesToUser(t *testing.T) {
	m := store.NewMemStore()
	mustUpsertRole(t, m, "u1", "superuser")
	identity := newFakeIdentity()
	roleService := services.NewRoleService(m, nil, identity)
	roleService.Start()
	defer roleService.Close()

	identity.signIn("u1", "u1@example.com")

	if got := roleService.Role(); got != models.RoleUser {
		t.Fatalf("expected normalization to user, got %v", got)
	}
}

func TestRoleLookupFailureFailsOpenToUser(t *testing.T) {
	m := &failingStore{Store: store.NewMemStore(), failGet: true}
	identity := newFakeIdentity()
	roleService := services.NewRoleService(m, nil, identity)
	roleService.Start()
	defer roleService.Close()

	identity.signIn("u1", "u1@example.com")

	if got := roleService.State(); got != services.RoleResolved {
		t.Fatalf("failed lookup must still resolve, got state %v", got)
	}
	if got := roleService.Role(); got != models.RoleUser {
		t.Fatalf("expected fail-open role user, got %v", got)
	}
}

func TestProvisioningFailureStillResolvesUser(t *testing.T) {
	m := &failingStore{Store: store.NewMemStore(), failUpsert: true}
	identity := newFakeIdentity()
	roleService := services.NewRoleService(m, nil, identity)
	roleService.Start()
	defer roleService.Close()

	identity.signIn("u1", "u1@example.com")

	if got := roleService.Role(); got != models.RoleUser {
		t.Fatalf("expected role user despite provisioning failure, got %v", got)
	}
}

func TestSignOutReEntersUnauthenticated(t *testing.T) {
	m := store.NewMemStore()
	identity := newFakeIdentity()
	roleService := services.NewRoleService(m, nil, identity)
	roleService.Start()
	defer roleService.Close()

	identity.signIn("u1", "u1@example.com")
	identity.signOut()

	if got := roleService.State(); got != services.RoleUnauthenticated {
		t.Fatalf("expected Unauthenticated after sign-out, got %v", got)
	}
	if got := roleService.Role(); got != models.Role("") {
		t.Fatalf("expected no role after sign-out, got %v", got)
	}
}

func TestRoleForResolvesArbitraryUser(t *testing.T) {
	m := store.NewMemStore()
	mustUpsertRole(t, m, "admin-user", "admin")
	roleService := services.NewRoleService(m, nil, newFakeIdentity())

	if got := roleService.RoleFor(context.Background(), "admin-user"); got != models.RoleAdmin {
		t.Fatalf("expected admin, got %v", got)
	}
	if got := roleService.RoleFor(context.Background(), ""); got != models.Role("") {
		t.Fatalf("expected no role for blank user, got %v", got)
	}
}

func mustUpsertRole(t *testing.T, m *store.MemStore, userID, role string) {
	t.Helper()
	err := m.UpsertDocument(context.Background(), "users", userID, map[string]any{
		"role":  role,
		"email": userID + "@example.com",
	})
	if err != nil {
		t.Fatalf("failed to seed role record: %v", err)
	}
}
