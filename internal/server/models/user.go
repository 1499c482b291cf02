package models

import (
	"time"

	"github.com/dmitrijs2005/honeykeeper/internal/cryptox"
)

// User is the identity record owned by the identity-management collaborator.
// PasswordHash is the legacy direct-authentication hash; it holds
// cryptox.UnusablePassword once honeyword credentials are initialized.
type User struct {
	ID           string
	UserName     string
	PasswordHash string
	CreatedAt    time.Time
}

// HasUsablePassword reports whether direct password authentication is still
// possible for the user.
func (u *User) HasUsablePassword() bool {
	return u.PasswordHash != "" && u.PasswordHash[0] != cryptox.UnusablePassword[0]
}
