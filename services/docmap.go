package services

import (
	"net/http"
	"time"

	"poi-server/models"
	"poi-server/store"
	"poi-server/utils/errors"
)

const (
	poiCollection      = "pointsOfInterest"
	likesCollection    = "likes"
	usersCollection    = "users"
	accountsCollection = "accounts"
)

func wrapStoreErr(err error) error {
	return errors.Wrap(err, "STORE_UNAVAILABLE", "Store operation failed", http.StatusBadGateway)
}

func fieldString(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

func fieldFloat(fields map[string]any, key string) float64 {
	switch n := fields[key].(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}

func fieldInt(fields map[string]any, key string) int64 {
	switch n := fields[key].(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func fieldTime(fields map[string]any, key string) time.Time {
	t, _ := fields[key].(time.Time)
	return t
}

func mapDocToPOI(doc store.Document) models.PointOfInterest {
	return models.PointOfInterest{
		ID:         doc.ID,
		Name:       fieldString(doc.Fields, "name"),
		Address:    fieldString(doc.Fields, "address"),
		Latitude:   fieldFloat(doc.Fields, "latitude"),
		Longitude:  fieldFloat(doc.Fields, "longitude"),
		LikesCount: fieldInt(doc.Fields, "likesCount"),
		CreatedAt:  fieldTime(doc.Fields, "createdAt"),
	}
}

func mapDocToLike(doc store.Document) models.LikedPoiSnapshot {
	return models.LikedPoiSnapshot{
		PoiID:     fieldString(doc.Fields, "poiId"),
		Name:      fieldString(doc.Fields, "name"),
		Address:   fieldString(doc.Fields, "address"),
		Latitude:  fieldFloat(doc.Fields, "latitude"),
		Longitude: fieldFloat(doc.Fields, "longitude"),
		CreatedAt: fieldTime(doc.Fields, "createdAt"),
	}
}
