package services

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/redis/go-redis/v9"

	"poi-server/models"
	"poi-server/utils/errors"
)

const geoIndexKey = "pois:geo"

// GeoService keeps a Redis geo index of the POI collection and answers
// nearby queries against it. It is a pure consumer of the registry's
// subscription stream: the index only ever reflects state observed through
// the store, never a local write.
type GeoService struct {
	redisClient *redis.Client
	registry    *RegistryService
	sub         *POISubscription
}

func NewGeoService(redisClient *redis.Client, registry *RegistryService) *GeoService {
	return &GeoService{redisClient: redisClient, registry: registry}
}

// Start opens the registry subscription and rebuilds the index on every
// snapshot.
func (s *GeoService) Start(ctx context.Context) error {
	sub, err := s.registry.Subscribe(ctx)
	if err != nil {
		return err
	}
	s.sub = sub

	go func() {
		for snap := range sub.Snapshots() {
			if snap.Err != nil {
				log.Printf("geo index: snapshot error: %v", snap.Err)
				continue
			}
			s.rebuild(ctx, snap.POIs)
		}
	}()
	return nil
}

// Close cancels the registry subscription. Idempotent.
func (s *GeoService) Close() {
	if s.sub != nil {
		s.sub.Cancel()
	}
}

func (s *GeoService) rebuild(ctx context.Context, pois []models.PointOfInterest) {
	if err := s.redisClient.Del(ctx, geoIndexKey).Err(); err != nil {
		log.Printf("geo index: failed to clear index: %v", err)
		return
	}
	for _, poi := range pois {
		poiJSON, err := json.Marshal(poi)
		if err != nil {
			log.Printf("geo index: failed to marshal POI %s: %v", poi.ID, err)
			continue
		}
		if err := s.redisClient.HSet(ctx, "poi:"+poi.ID, "data", poiJSON).Err(); err != nil {
			log.Printf("geo index: failed to store POI %s: %v", poi.ID, err)
			continue
		}
		err = s.redisClient.GeoAdd(ctx, geoIndexKey, &redis.GeoLocation{
			Name:      poi.ID,
			Longitude: poi.Longitude,
			Latitude:  poi.Latitude,
		}).Err()
		if err != nil {
			log.Printf("geo index: failed to index POI %s: %v", poi.ID, err)
		}
	}
}

// FindNearbyPOIs returns POIs within radiusKm of the given point, closest
// first.
func (s *GeoService) FindNearbyPOIs(ctx context.Context, lat, lon, radiusKm float64) ([]models.PointOfInterest, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, errors.ErrInvalidInput
	}

	geoResults, err := s.redisClient.GeoRadius(ctx, geoIndexKey, lon, lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		WithDist:  true,
		Sort:      "ASC",
		Count:     50,
	}).Result()
	if err != nil {
		return nil, errors.Wrap(err, "STORE_UNAVAILABLE", "Geo index unavailable", http.StatusBadGateway)
	}

	var results []models.PointOfInterest
	for _, geoResult := range geoResults {
		poiJSON, err := s.redisClient.HGet(ctx, "poi:"+geoResult.Name, "data").Result()
		if err != nil {
			log.Printf("geo index: missing payload for POI %s: %v", geoResult.Name, err)
			continue
		}
		var poi models.PointOfInterest
		if err := json.Unmarshal([]byte(poiJSON), &poi); err != nil {
			log.Printf("geo index: failed to unmarshal POI %s: %v", geoResult.Name, err)
			continue
		}
		results = append(results, poi)
	}
	return results, nil
}
