package domain

import "time"

// Identity is the authenticated principal. Tokens carry exactly these
// fields, so the gate can rebuild it without a store lookup.
type Identity struct {
	ID     int64
	Email  string
	Role   Role
	Active bool
}

// Account is an Identity plus what only the credential verifier and the
// account administration paths read.
type Account struct {
	Identity

	PasswordHash string // argon2id PHC string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
