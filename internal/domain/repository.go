package domain

import (
	"context"
	"time"
)

// SessionRepository defines persistence for mint sessions.
type SessionRepository interface {
	Create(ctx context.Context, s *MintSession) error
	GetByID(ctx context.Context, id string) (*MintSession, error)
	// HasActive reports whether the wallet already owns a non-terminal session.
	HasActive(ctx context.Context, walletAddress string) (bool, error)
	// UpdateIf applies the patch only when the stored status still equals
	// expect. Returns ErrConflict when the status already moved, ErrNotFound
	// when the session does not exist.
	UpdateIf(ctx context.Context, id string, expect SessionStatus, patch SessionPatch) (*MintSession, error)
	// ExpireOverdue marks every non-terminal session past its deadline as
	// FAILED(expired) and returns how many were swept.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

// ArtifactRepository defines persistence for generated collectibles.
type ArtifactRepository interface {
	Create(ctx context.Context, a *Artifact) error
	GetByID(ctx context.Context, id string) (*Artifact, error)
	GetByTokenID(ctx context.Context, tokenID int64) (*Artifact, error)
	// Finalize sets the inscription reference and CONFIRMED status exactly
	// once; a second call is a no-op returning ErrConflict.
	Finalize(ctx context.Context, id string, res InscriptionResult, at time.Time) error
	CountConfirmedByRarity(ctx context.Context) (map[RarityTier]int64, error)
}

// TokenCounterRepository hands out unique sequential token ids under the
// supply cap.
type TokenCounterRepository interface {
	// Allocate atomically increments the counter and returns the fresh id,
	// or ErrSoldOut once lastIssued reached maxSupply.
	Allocate(ctx context.Context) (int64, error)
	Remaining(ctx context.Context) (int64, error)
}

// StepJobRepository is the durable queue the worker drains.
type StepJobRepository interface {
	Enqueue(ctx context.Context, sessionID string, typ StepType) error
	// Claim picks the oldest queued job, marks it RUNNING and returns it;
	// ErrNotFound when the queue is empty.
	Claim(ctx context.Context) (*StepJob, error)
	Finish(ctx context.Context, id string, status StepStatus, lastError string) error
	// RequeueStale returns RUNNING jobs older than the lease back to QUEUED.
	RequeueStale(ctx context.Context, lease time.Duration) (int64, error)
}

// AuditRepository appends session transitions to the mint event log.
type AuditRepository interface {
	Record(ctx context.Context, sessionID string, from, to SessionStatus, detail string) error
}

// ChallengeRepository defines persistence for wallet auth challenges.
type ChallengeRepository interface {
	Create(ctx context.Context, c *AuthChallenge) error
	// Redeem marks the challenge used iff it is still valid at now, returning
	// ErrChallengeInvalid otherwise.
	Redeem(ctx context.Context, id string, now time.Time) (*AuthChallenge, error)
}
