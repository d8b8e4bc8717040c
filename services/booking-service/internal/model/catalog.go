package model

import "time"

// Service is a catalog entry. Duration is informational; the booking grid
// uses a fixed slot width regardless of it.
type Service struct {
	ID              int64
	Name            string
	Description     string
	Price           Money
	DurationMinutes int
	CreatedAt       time.Time
}

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "cliente"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleClient
}

type User struct {
	ID           int64
	Name         string
	Email        string
	Phone        string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID int64
	Role   Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Owns reports whether the actor is the given client.
func (a Actor) Owns(clientID int64) bool {
	return a.UserID != 0 && a.UserID == clientID
}
