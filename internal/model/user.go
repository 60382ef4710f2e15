// Package model defines the records persisted by the stores and returned by the API.
package model

import (
	"slices"
	"time"
)

// Role is the kind of account a user registered as.
type Role string

const (
	RoleLearner    Role = "LEARNER"
	RoleInstructor Role = "INSTRUCTOR"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleLearner || r == RoleInstructor
}

// User is an identity record.
//
// Email is the authentication subject carried in bearer tokens. Both Email and
// Username are unique across the store. Following holds the outbound social
// edge only; follower lists are never stored.
//
// PasswordHash is never serialised. Version and CredentialsChangedAt are
// bookkeeping for the store and the authorization gate and stay off the wire.
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Role           Role      `json:"role"`
	Bio            string    `json:"bio"`
	Skills         []string  `json:"skills"`
	ProfilePicture *string   `json:"profilePicture"`
	Following      []string  `json:"following"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`

	CredentialsChangedAt time.Time `json:"-"`
	Version              int64     `json:"-"`
}

// IsFollowing reports whether u follows the user with the given id.
func (u *User) IsFollowing(userID string) bool {
	return slices.Contains(u.Following, userID)
}

// Follow adds userID to the following set. It returns false when the edge
// already existed.
func (u *User) Follow(userID string) bool {
	if u.IsFollowing(userID) {
		return false
	}
	u.Following = append(u.Following, userID)
	return true
}

// Unfollow removes userID from the following set. It returns false when there
// was no such edge.
func (u *User) Unfollow(userID string) bool {
	i := slices.Index(u.Following, userID)
	if i < 0 {
		return false
	}
	u.Following = slices.Delete(u.Following, i, i+1)
	return true
}

// HasPassword reports whether the account can sign in with a password.
// Accounts created through GitHub sign-in have none.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// UniqueStrings returns in with duplicates and empty entries removed, keeping
// the order of first appearance. Used for the skills and following sets.
func UniqueStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || slices.Contains(out, s) {
			continue
		}
		out = append(out, s)
	}
	return out
}
