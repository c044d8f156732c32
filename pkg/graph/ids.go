package graph

import "github.com/google/uuid"

// NewID returns a fresh object id.
func NewID() string {
	return uuid.NewString()
}
