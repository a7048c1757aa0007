package domain

import "time"

// AuthChallenge is a single-use nonce a wallet signs to prove ownership of
// its address.
type AuthChallenge struct {
	ID            string
	WalletAddress string
	Nonce         string
	Used          bool
	ExpiresAt     time.Time
	CreatedAt     time.Time
}

// Valid reports whether the challenge can still be redeemed at now.
func (c *AuthChallenge) Valid(now time.Time) bool {
	return !c.Used && now.Before(c.ExpiresAt)
}
