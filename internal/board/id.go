package board

import (
	"strings"

	"github.com/google/uuid"
)

// IDProvider issues unique identifiers for connections.
type IDProvider interface {
	NewID() (string, error)
}

type uuidProvider struct{}

// NewUUIDProvider constructs an IDProvider that issues UUIDv7 identifiers.
func NewUUIDProvider() IDProvider {
	return &uuidProvider{}
}

func (p *uuidProvider) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

// NewRoomID returns a short shareable room code derived from a random UUID.
func NewRoomID() string {
	compact := strings.ReplaceAll(uuid.NewString(), "-", "")
	return compact[:8]
}
