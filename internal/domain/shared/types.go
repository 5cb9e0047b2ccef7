package shared

import (
	"github.com/google/uuid"
)

// ID identifies a published event or a stream client
type ID string

// NewID generates a random UUID-backed ID
func NewID() ID {
	return ID(uuid.New().String())
}

// String returns the string representation of ID
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if ID is empty
func (id ID) IsEmpty() bool {
	return string(id) == ""
}
