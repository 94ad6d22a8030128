package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session is the registry entry behind an issued access token.
// Entries disappear when their TTL elapses; Touch moves LastActivity without extending the TTL.
type Session struct {
	Token        string
	UserID       uuid.UUID
	CreatedAt    time.Time
	LastActivity time.Time
	TTL          time.Duration
}
