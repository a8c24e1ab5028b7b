package entity

import "github.com/google/uuid"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleAgent  Role = "agent"
	RoleRenter Role = "renter"
)

// Actor is the authenticated caller of an operation
type Actor struct {
	UserId uuid.UUID
	Role   Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
