package services

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"poi-server/models"
	"poi-server/store"
	"poi-server/utils/errors"
)

// Identity reports the signed-in user and broadcasts auth-state changes.
// Implemented by AuthService; test fakes implement it directly.
type Identity interface {
	CurrentUserID() string
	CurrentEmail() string
	// OnAuthStateChanged registers fn and fires it immediately with the
	// current state (initial resolution), then on every sign-in and
	// sign-out. The returned cancel is idempotent.
	OnAuthStateChanged(fn func(userID, email string)) (cancel func())
}

// AuthService is the identity provider: credential storage, JWT issuance and
// the auth-state-changed stream the Role Resolver consumes.
type AuthService struct {
	store     store.Store
	jwtSecret string

	mu        sync.Mutex
	userID    string
	email     string
	listeners map[int]func(userID, email string)
	nextID    int
}

func NewAuthService(st store.Store, jwtSecret string) *AuthService {
	return &AuthService{
		store:     st,
		jwtSecret: jwtSecret,
		listeners: map[int]func(string, string){},
	}
}

// Register creates a credential record and returns the new user id.
func (s *AuthService) Register(ctx context.Context, email, password string) (string, error) {
	if s.store == nil {
		return "", errors.ErrNotConfigured
	}
	if email == "" || password == "" {
		return "", errors.ErrInvalidInput
	}

	existing, err := s.store.QueryDocuments(ctx, accountsCollection, store.Filter{"email": email})
	if err != nil {
		return "", wrapStoreErr(err)
	}
	if len(existing) > 0 {
		return "", errors.ErrConflict
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "HASH_ERROR", "failed to hash password", http.StatusInternalServerError)
	}

	userID := uuid.New().String()
	fields := map[string]any{
		"email":        email,
		"passwordHash": string(passwordHash),
		"createdAt":    store.ServerTimestamp,
	}
	if err := s.store.UpsertDocument(ctx, accountsCollection, userID, fields); err != nil {
		return "", wrapStoreErr(err)
	}
	return userID, nil
}

// Login verifies credentials, issues a JWT and publishes the sign-in to
// auth-state listeners.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	if s.store == nil {
		return "", errors.ErrNotConfigured
	}

	accounts, err := s.store.QueryDocuments(ctx, accountsCollection, store.Filter{"email": email})
	if err != nil {
		return "", wrapStoreErr(err)
	}
	if len(accounts) == 0 {
		return "", errors.NewAPIError("INVALID_CREDENTIALS", "Invalid email or password", http.StatusUnauthorized)
	}
	account := models.Account{
		ID:           accounts[0].ID,
		Email:        fieldString(accounts[0].Fields, "email"),
		PasswordHash: fieldString(accounts[0].Fields, "passwordHash"),
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", errors.NewAPIError("INVALID_CREDENTIALS", "Invalid email or password", http.StatusUnauthorized)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userID": account.ID,
		"email":  email,
		"exp":    time.Now().Add(24 * time.Hour).Unix(),
	})
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", errors.Wrap(err, "JWT_ERROR", "Failed to generate token", http.StatusInternalServerError)
	}

	s.setCurrent(account.ID, email)
	return tokenString, nil
}

// Logout clears the current user and publishes the sign-out.
func (s *AuthService) Logout() {
	s.setCurrent("", "")
}

func (s *AuthService) CurrentUserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *AuthService) CurrentEmail() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.email
}

func (s *AuthService) OnAuthStateChanged(fn func(userID, email string)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	userID, email := s.userID, s.email
	s.mu.Unlock()

	fn(userID, email)
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *AuthService) setCurrent(userID, email string) {
	s.mu.Lock()
	s.userID, s.email = userID, email
	fns := make([]func(string, string), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	// Listeners run outside the lock; they may call back into the service.
	for _, fn := range fns {
		fn(userID, email)
	}
}
