package handlers

import (
	"encoding/json"
	"net/http"

	"poi-server/middleware"
	"poi-server/services"
)

type AdminHandler struct {
	reconciler  *services.ReconcilerService
	roleService *services.RoleService
}

func NewAdminHandler(reconciler *services.ReconcilerService, roleService *services.RoleService) *AdminHandler {
	return &AdminHandler{reconciler: reconciler, roleService: roleService}
}

// Reconcile recomputes the like counters on demand. Administrators only.
func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r, h.roleService) {
		return
	}

	fixed, err := h.reconciler.Reconcile(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"fixed": fixed})
}
