package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"poi-server/models"
	"poi-server/store"
)

type RoleState int

const (
	RoleUnresolved RoleState = iota
	RoleResolving
	RoleResolved
	RoleUnauthenticated
)

const roleCacheTTL = time.Hour

// RoleService resolves the current user's role from the users collection,
// provisioning a default record on first sign-in. Lookup failures fail open
// to the least-privileged role: missing role data must never read as "no
// user".
type RoleService struct {
	store       store.Store
	redisClient *redis.Client // nil disables the role cache
	identity    Identity

	mu          sync.RWMutex
	state       RoleState
	role        models.Role
	userID      string
	unsubscribe func()
}

func NewRoleService(st store.Store, redisClient *redis.Client, identity Identity) *RoleService {
	return &RoleService{
		store:       st,
		redisClient: redisClient,
		identity:    identity,
		state:       RoleUnresolved,
	}
}

// Start subscribes to identity changes. Each sign-in re-enters Resolving and
// lands on Resolved; a sign-out lands on Unauthenticated.
func (s *RoleService) Start() {
	if s.identity == nil {
		return
	}
	s.unsubscribe = s.identity.OnAuthStateChanged(s.handleAuthChange)
}

func (s *RoleService) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func (s *RoleService) handleAuthChange(userID, email string) {
	if userID == "" {
		s.mu.Lock()
		s.state = RoleUnauthenticated
		s.role = ""
		s.userID = ""
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.state = RoleResolving
	s.userID = userID
	s.mu.Unlock()

	role := s.resolve(context.Background(), userID, email)

	s.mu.Lock()
	s.state = RoleResolved
	s.role = role
	s.mu.Unlock()
}

// resolve fetches or provisions the role record for userID.
func (s *RoleService) resolve(ctx context.Context, userID, email string) models.Role {
	if role, ok := s.cachedRole(ctx, userID); ok {
		return role
	}
	if s.store == nil {
		return models.RoleUser
	}

	doc, found, err := s.store.GetDocument(ctx, usersCollection, userID)
	if err != nil {
		log.Printf("role lookup failed for %s, defaulting to user: %v", userID, err)
		return models.RoleUser
	}

	var role models.Role
	if found {
		role = normalizeRole(fieldString(doc.Fields, "role"))
	} else {
		record := models.UserRecord{Role: models.RoleUser, Email: email}
		fields := map[string]any{
			"role":  string(record.Role),
			"email": record.Email,
		}
		if err := s.store.UpsertDocument(ctx, usersCollection, userID, fields); err != nil {
			log.Printf("failed to provision role record for %s: %v", userID, err)
		}
		role = record.Role
	}

	s.cacheRole(ctx, userID, role)
	return role
}

// RoleFor resolves an arbitrary user's role, for per-request checks on a
// shared server. Same fail-open semantics as the current-user path.
func (s *RoleService) RoleFor(ctx context.Context, userID string) models.Role {
	if userID == "" {
		return ""
	}
	return s.resolve(ctx, userID, "")
}

func (s *RoleService) State() RoleState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *RoleService) Role() models.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// IsAdmin is a pure projection of the resolved role.
func (s *RoleService) IsAdmin() bool {
	return s.Role() == models.RoleAdmin
}

func (s *RoleService) cachedRole(ctx context.Context, userID string) (models.Role, bool) {
	if s.redisClient == nil {
		return "", false
	}
	cached, err := s.redisClient.Get(ctx, "role:"+userID).Result()
	if err != nil {
		return "", false
	}
	return normalizeRole(cached), true
}

func (s *RoleService) cacheRole(ctx context.Context, userID string, role models.Role) {
	if s.redisClient == nil {
		return
	}
	if err := s.redisClient.Set(ctx, "role:"+userID, string(role), roleCacheTTL).Err(); err != nil {
		log.Printf("failed to cache role for %s: %v", userID, err)
	}
}

// normalizeRole maps anything that is not exactly "admin" to the standard
// role.
func normalizeRole(value string) models.Role {
	if value == string(models.RoleAdmin) {
		return models.RoleAdmin
	}
	return models.RoleUser
}
