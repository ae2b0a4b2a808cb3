package entity

import "time"

// Role enumerates the administrative roles an account can hold.
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleSuperAdmin    Role = "superadmin"
	RoleAdministrator Role = "administrator"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSuperAdmin, RoleAdministrator:
		return true
	}
	return false
}

// Account is a site administrator. Email is stored lower-cased and is the
// login identity. TokenVersion is only advanced by the store's atomic increment.
type Account struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	TokenVersion int64     `json:"tokenVersion" db:"token_version"`
	FirstName    string    `json:"firstName" db:"first_name"`
	LastName     string    `json:"lastName" db:"last_name"`
	PhoneNumber  string    `json:"phoneNumber" db:"phone_number"`
	Address      string    `json:"address,omitempty" db:"address"`
	Designation  string    `json:"designation,omitempty" db:"designation"`
	Role         Role      `json:"role" db:"role"`
	ImageURL     string    `json:"userImage,omitempty" db:"image_url"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// AccountPatch lists the fields an update may change. Nil means unchanged.
// Email and TokenVersion are deliberately absent.
type AccountPatch struct {
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	PhoneNumber *string `json:"phoneNumber"`
	Address     *string `json:"address"`
	Designation *string `json:"designation"`
	Role        *Role   `json:"role"`
	ImageURL    *string `json:"userImage"`
	Password    *string `json:"password"`
}

// Apply copies the set profile fields onto a. Password is handled by the caller
// because it must be hashed first.
func (p AccountPatch) Apply(a *Account) {
	if p.FirstName != nil {
		a.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		a.LastName = *p.LastName
	}
	if p.PhoneNumber != nil {
		a.PhoneNumber = *p.PhoneNumber
	}
	if p.Address != nil {
		a.Address = *p.Address
	}
	if p.Designation != nil {
		a.Designation = *p.Designation
	}
	if p.Role != nil {
		a.Role = *p.Role
	}
	if p.ImageURL != nil {
		a.ImageURL = *p.ImageURL
	}
}
