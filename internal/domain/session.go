package domain

import "time"

// SessionStatus enumerates mint session lifecycle states.
type SessionStatus string

const (
	SessionStatusPending           SessionStatus = "PENDING"
	SessionStatusGenerating        SessionStatus = "GENERATING"
	SessionStatusGenerationFailed  SessionStatus = "GENERATION_FAILED"
	SessionStatusAwaitingPayment   SessionStatus = "AWAITING_PAYMENT"
	SessionStatusPaymentReceived   SessionStatus = "PAYMENT_RECEIVED"
	SessionStatusInscribing        SessionStatus = "INSCRIBING"
	SessionStatusInscriptionFailed SessionStatus = "INSCRIPTION_FAILED"
	SessionStatusConfirmed         SessionStatus = "CONFIRMED"
	SessionStatusFailed            SessionStatus = "FAILED"
)

// Failure reasons recorded in ErrorCode when a session enters FAILED.
const (
	FailReasonCancelled = "cancelled"
	FailReasonExpired   = "expired"
)

// IsTerminal reports whether no further transition is permitted from s.
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case SessionStatusConfirmed,
		SessionStatusGenerationFailed,
		SessionStatusInscriptionFailed,
		SessionStatusFailed:
		return true
	}
	return false
}

// Progress returns the canonical progress percentage for a status. Terminal
// failure states return -1: failed sessions keep whatever progress they last
// reported.
func (s SessionStatus) Progress() int {
	switch s {
	case SessionStatusPending:
		return 0
	case SessionStatusGenerating:
		return 10
	case SessionStatusAwaitingPayment:
		return 50
	case SessionStatusPaymentReceived:
		return 60
	case SessionStatusInscribing:
		return 75
	case SessionStatusConfirmed:
		return 100
	}
	return -1
}

// MintSession is one attempt by one identity to mint one collectible.
type MintSession struct {
	ID             string
	WalletAddress  string
	Status         SessionStatus
	Progress       int
	StatusMessage  string
	ErrorCode      string
	ErrorMessage   string
	TokenID        int64
	ArtifactID     string
	PaymentAddress string
	AmountKoinu    int64
	PaymentTxRef   string
	PaymentAt      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ExpiresAt      time.Time
	CompletedAt    *time.Time
}

// Expired reports whether the session deadline has passed at the given
// instant. Terminal sessions never expire; their outcome is already fixed.
func (m *MintSession) Expired(now time.Time) bool {
	return !m.Status.IsTerminal() && now.After(m.ExpiresAt)
}

// SessionPatch carries the mutable fields of a guarded session update.
// Nil pointers leave the stored value untouched.
type SessionPatch struct {
	Status         SessionStatus
	Progress       int
	StatusMessage  string
	ErrorCode      *string
	ErrorMessage   *string
	ArtifactID     *string
	PaymentAddress *string
	AmountKoinu    *int64
	PaymentTxRef   *string
	PaymentAt      *time.Time
	CompletedAt    *time.Time
}
