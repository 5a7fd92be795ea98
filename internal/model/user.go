package model

import "time"

// Roles carried in the access token.  Admin users manage the restaurant;
// everyone else is a customer.
const (
	RoleAdmin    = "ADMIN"
	RoleCustomer = "CUSTOMER"
)

// User represents an application user record as stored in the `users`
// table.  PasswordHash never leaves the server; handlers serialise
// PublicUser instead.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Name         – display name.
//  Email        – unique, lower-cased email address.
//  Phone        – phone number used for password recovery.
//  PasswordHash – bcrypt hash (or a legacy plain value before migration).
//  IsAdmin      – administrator flag.
//  IsMember     – loyalty membership flag; members get the order discount.
type User struct {
	ID           uint64
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	IsAdmin      bool
	IsMember     bool
	CreatedAt    time.Time
}

// Role maps the admin flag to the token role.
func (u User) Role() string {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleCustomer
}

// PublicUser is the JSON shape of a user.
type PublicUser struct {
	UserID   uint64 `json:"UserID"`
	Name     string `json:"Name"`
	Email    string `json:"Email"`
	Phone    string `json:"Phone,omitempty"`
	IsAdmin  bool   `json:"isAdmin"`
	IsMember bool   `json:"isMember"`
}

// Public strips secrets from u.
func (u User) Public() PublicUser {
	return PublicUser{UserID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone, IsAdmin: u.IsAdmin, IsMember: u.IsMember}
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the token is stored.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
