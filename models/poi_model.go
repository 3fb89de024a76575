package models

import "time"

type PointOfInterest struct {
	ID         string    `json:"id" bson:"_id,omitempty"`
	Name       string    `json:"name" bson:"name"`
	Address    string    `json:"address,omitempty" bson:"address,omitempty"`
	Latitude   float64   `json:"latitude" bson:"latitude"`
	Longitude  float64   `json:"longitude" bson:"longitude"`
	LikesCount int64     `json:"likesCount" bson:"likesCount"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
}

// CreatePOI is the caller-supplied part of a new point of interest.
// The store assigns the id, the likes counter and the creation timestamp.
type CreatePOI struct {
	Name      string  `json:"name"`
	Address   string  `json:"address,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LikedPoiSnapshot is the denormalized copy of a POI carried inside a like
// record, so a liked list renders without a second read.
type LikedPoiSnapshot struct {
	PoiID     string    `json:"poiId" bson:"poiId"`
	Name      string    `json:"name" bson:"name"`
	Address   string    `json:"address,omitempty" bson:"address,omitempty"`
	Latitude  float64   `json:"latitude" bson:"latitude"`
	Longitude float64   `json:"longitude" bson:"longitude"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}
