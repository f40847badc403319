package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole represents the role granted to a storefront account
type UserRole string

const (
	RoleUser    UserRole = "USER"
	RoleManager UserRole = "MANAGER"
	RoleAdmin   UserRole = "ADMIN"
)

// Authority names. Roles are also exposed as ROLE_<name> authorities.
const (
	AuthorityAdminCreate = "ADMIN_CREATE"
	AuthorityAdminRead   = "ADMIN_READ"
	AuthorityAdminUpdate = "ADMIN_UPDATE"
	AuthorityAdminDelete = "ADMIN_DELETE"

	AuthorityManagerCreate     = "MANAGER_CREATE"
	AuthorityManagerRead       = "MANAGER_READ"
	AuthorityManagerUpdate     = "MANAGER_UPDATE"
	AuthorityManagerDeleteAvis = "MANAGER_DELETE_AVIS"
)

var managerPermissions = []string{
	AuthorityManagerCreate,
	AuthorityManagerRead,
	AuthorityManagerUpdate,
	AuthorityManagerDeleteAvis,
}

var rolePermissions = map[UserRole][]string{
	RoleUser:    nil,
	RoleManager: managerPermissions,
	RoleAdmin: append([]string{
		AuthorityAdminCreate,
		AuthorityAdminRead,
		AuthorityAdminUpdate,
		AuthorityAdminDelete,
	}, managerPermissions...),
}

// Authorities returns the authority set granted by the role, including ROLE_<name>
func (r UserRole) Authorities() []string {
	perms := rolePermissions[r]
	authorities := make([]string, 0, len(perms)+1)
	authorities = append(authorities, perms...)
	return append(authorities, "ROLE_"+string(r))
}

// IsValid reports whether the role is one of the known roles
func (r UserRole) IsValid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// User represents a storefront account
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"` // login email
	FirstName string    `json:"first_name" db:"first_name"`
	Role      UserRole  `json:"role" db:"role"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Authorities is resolved from Role when the user is loaded; not persisted.
	Authorities []string `json:"authorities" db:"-"`
}

// NewUser creates a new User instance with authorities resolved from role
func NewUser(username, firstName string, role UserRole) *User {
	now := time.Now()
	return &User{
		ID:          uuid.New(),
		Username:    username,
		FirstName:   firstName,
		Role:        role,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
		Authorities: role.Authorities(),
	}
}

// HasAuthority returns true if the user holds the given authority
func (u *User) HasAuthority(authority string) bool {
	for _, a := range u.Authorities {
		if a == authority {
			return true
		}
	}
	return false
}
