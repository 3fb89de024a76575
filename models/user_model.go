package models

import "time"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Account is a credential record in the identity collection.
type Account struct {
	ID           string    `json:"id" bson:"_id,omitempty"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// UserRecord is the role document keyed by user id, provisioned lazily on
// first sign-in.
type UserRecord struct {
	Role  Role   `json:"role" bson:"role"`
	Email string `json:"email" bson:"email"`
}
