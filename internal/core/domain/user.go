package domain

import "time"

// User is the minimal directory view the engine needs. The directory is
// consulted only to enrich dispatch messages, never to authorize.
type User struct {
	ID           string
	Name         string
	Email        string
	Phone        *string
	RegisteredAt time.Time
}
