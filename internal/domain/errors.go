package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotOwner            = errors.New("not session owner")
	ErrConflict            = errors.New("state conflict")
	ErrSoldOut             = errors.New("supply exhausted")
	ErrActiveSession       = errors.New("active session exists")
	ErrBadState            = errors.New("invalid state for transition")
	ErrPaymentNotConfirmed = errors.New("payment not confirmed")
	ErrChallengeInvalid    = errors.New("challenge invalid or expired")
	ErrProviderFailure     = errors.New("provider failure")
)
