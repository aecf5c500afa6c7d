package domain

import "github.com/google/uuid"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
	RoleAdmin    Role = "admin"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	ID   uuid.UUID
	Role Role
}
