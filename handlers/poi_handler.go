package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"poi-server/middleware"
	"poi-server/models"
	"poi-server/services"
	"poi-server/utils/errors"
)

type POIHandler struct {
	registry    *services.RegistryService
	geoService  *services.GeoService
	roleService *services.RoleService
}

type POIListResponse struct {
	POIs  []models.PointOfInterest `json:"pois"`
	Count int                      `json:"count"`
}

type NearbyPOIResponse struct {
	NearbyPOIs []models.PointOfInterest `json:"nearby_pois"`
	Count      int                      `json:"count"`
	Lat        float64                  `json:"lat"`
	Lon        float64                  `json:"lon"`
	Radius     float64                  `json:"radius"`
}

func NewPOIHandler(registry *services.RegistryService, geoService *services.GeoService, roleService *services.RoleService) *POIHandler {
	return &POIHandler{registry: registry, geoService: geoService, roleService: roleService}
}

func (h *POIHandler) ListPOIs(w http.ResponseWriter, r *http.Request) {
	pois, err := h.registry.List(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(POIListResponse{POIs: pois, Count: len(pois)})
}

func (h *POIHandler) CreatePOI(w http.ResponseWriter, r *http.Request) {
	var input models.CreatePOI
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}

	if err := h.registry.Create(r.Context(), input); err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"message": "POI created"})
}

// DeletePOI removes a POI. Administrators only.
func (h *POIHandler) DeletePOI(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r, h.roleService) {
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}

	if err := h.registry.Delete(r.Context(), id); err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "POI deleted"})
}

func (h *POIHandler) GetNearbyPOIs(w http.ResponseWriter, r *http.Request) {
	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}
	lon, err := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}
	radius, err := strconv.ParseFloat(r.URL.Query().Get("radius"), 64)
	if err != nil || radius <= 0 {
		radius = 5 // Default radius in km
	}

	pois, err := h.geoService.FindNearbyPOIs(r.Context(), lat, lon, radius)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(NearbyPOIResponse{
		NearbyPOIs: pois,
		Count:      len(pois),
		Lat:        lat,
		Lon:        lon,
		Radius:     radius,
	})
}
