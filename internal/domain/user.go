package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of account roles carried in access tokens.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleEventTeam Role = "event_team"
	RoleVolunteer Role = "volunteer"
	RoleStudent   Role = "student"
	RoleFoodStall Role = "food_stall"
	RoleGameStall Role = "game_stall"
)

// ParseRole resolves a role name, returning false for anything outside the closed set.
func ParseRole(raw string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RoleAdmin, RoleEventTeam, RoleVolunteer, RoleStudent, RoleFoodStall, RoleGameStall:
		return r, true
	default:
		return "", false
	}
}

// User is the authentication identity consumed by the session-security pipeline.
type User struct {
	UserID        uuid.UUID
	Email         string
	FullName      string
	PasswordHash  string
	Role          Role
	EmailVerified bool
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
