package handlers

import (
	"encoding/json"
	"net/http"

	"poi-server/middleware"
	"poi-server/models"
	"poi-server/services"
	"poi-server/utils/errors"
)

type RoleHandler struct {
	roleService *services.RoleService
}

func NewRoleHandler(roleService *services.RoleService) *RoleHandler {
	return &RoleHandler{roleService: roleService}
}

func (h *RoleHandler) GetMyRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}

	role := h.roleService.RoleFor(r.Context(), userID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"role":    role,
		"isAdmin": role == models.RoleAdmin,
	})
}

// requireAdmin resolves the request user's role and writes a 403 when it is
// not admin. Role lookups fail open to the standard role, so a store outage
// denies admin actions rather than granting them.
func requireAdmin(w http.ResponseWriter, r *http.Request, roleService *services.RoleService) bool {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return false
	}
	if roleService.RoleFor(r.Context(), userID) != models.RoleAdmin {
		middleware.WriteError(w, errors.ErrForbidden)
		return false
	}
	return true
}
