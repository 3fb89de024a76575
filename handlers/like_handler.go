package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"poi-server/middleware"
	"poi-server/models"
	"poi-server/services"
	"poi-server/utils/errors"
)

type LikeHandler struct {
	ledger   *services.LedgerService
	registry *services.RegistryService
}

type LikedPOIResponse struct {
	Liked []models.LikedPoiSnapshot `json:"liked"`
	Count int                       `json:"count"`
}

func NewLikeHandler(ledger *services.LedgerService, registry *services.RegistryService) *LikeHandler {
	return &LikeHandler{ledger: ledger, registry: registry}
}

func (h *LikeHandler) ListLikes(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}

	liked, err := h.ledger.LikedPOIs(r.Context(), userID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(LikedPOIResponse{Liked: liked, Count: len(liked)})
}

// LikePOI records a like. The POI is read back first so the like record
// carries the current denormalized fields.
func (h *LikeHandler) LikePOI(w http.ResponseWriter, r *http.Request) {
	var input struct {
		PoiID string `json:"poiId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.PoiID == "" {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}

	poi, err := h.registry.Get(r.Context(), input.PoiID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	if err := h.ledger.Like(r.Context(), poi); err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Liked"})
}

func (h *LikeHandler) UnlikePOI(w http.ResponseWriter, r *http.Request) {
	poiID := mux.Vars(r)["poiId"]
	if poiID == "" {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}

	if err := h.ledger.Unlike(r.Context(), poiID); err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Unliked"})
}
