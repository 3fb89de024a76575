package services_test

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"poi-server/services"
	"poi-server/store"
	"poi-server/utils/errors"
)

func TestRegisterAndLogin(t *testing.T) {
	auth := services.NewAuthService(store.NewMemStore(), "test-secret")
	ctx := context.Background()

	userID, err := auth.Register(ctx, "alice@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if userID == "" {
		t.Fatal("expected a user id")
	}

	tokenString, err := auth.Login(ctx, "alice@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("expected a valid token: %v", err)
	}
	claims := token.Claims.(jwt.MapClaims)
	if claims["userID"] != userID {
		t.Fatalf("token carries wrong user id: %v", claims["userID"])
	}

	if auth.CurrentUserID() != userID || auth.CurrentEmail() != "alice@example.com" {
		t.Fatal("login must set the current user")
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	auth := services.NewAuthService(store.NewMemStore(), "test-secret")
	ctx := context.Background()

	if _, err := auth.Register(ctx, "alice@example.com", "hunter22"); err != nil {
		t.Fatal(err)
	}
	if _, err := auth.Login(ctx, "alice@example.com", "wrong"); err == nil {
		t.Fatal("expected login failure")
	}
	if auth.CurrentUserID() != "" {
		t.Fatal("failed login must not set the current user")
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	auth := services.NewAuthService(store.NewMemStore(), "test-secret")
	ctx := context.Background()

	if _, err := auth.Register(ctx, "alice@example.com", "hunter22"); err != nil {
		t.Fatal(err)
	}
	if _, err := auth.Register(ctx, "alice@example.com", "other"); !errors.Is(err, errors.ErrConflict) {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
}

func TestAuthStateListener(t *testing.T) {
	auth := services.NewAuthService(store.NewMemStore(), "test-secret")
	ctx := context.Background()

	userID, err := auth.Register(ctx, "alice@example.com", "hunter22")
	if err != nil {
		t.Fatal(err)
	}

	var events []string
	cancel := auth.OnAuthStateChanged(func(uid, email string) {
		events = append(events, uid)
	})
	defer cancel()

	// Initial resolution fires immediately with the signed-out state.
	if len(events) != 1 || events[0] != "" {
		t.Fatalf("expected initial signed-out event, got %v", events)
	}

	if _, err := auth.Login(ctx, "alice@example.com", "hunter22"); err != nil {
		t.Fatal(err)
	}
	auth.Logout()

	if len(events) != 3 || events[1] != userID || events[2] != "" {
		t.Fatalf("unexpected event sequence: %v", events)
	}

	cancel()
	cancel() // idempotent
	if _, err := auth.Login(ctx, "alice@example.com", "hunter22"); err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 {
		t.Fatal("cancelled listener must not receive events")
	}
}
