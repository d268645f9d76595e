package models

import (
	"time"
)

// User roles, lowest to highest. Each role inherits the permissions of the
// roles below it (see the authz package for the precomputed closure).
const (
	RoleRegular   = "regular"
	RoleCashier   = "cashier"
	RoleManager   = "manager"
	RoleSuperuser = "superuser"
)

type User struct {
	ID       int64  `json:"id"`
	Utorid   string `json:"utorid"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	// Verified gates transfers and redemption requests.
	Verified bool `json:"verified"`
	// Suspicious marks a cashier whose recorded purchases are held for
	// manager verification before any points post.
	Suspicious bool      `json:"suspicious"`
	CreatedAt  time.Time `json:"created_at"`
}
