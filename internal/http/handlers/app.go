package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"dogemint/internal/domain"
	"dogemint/internal/infra"
	"dogemint/internal/mint"
)

// SignatureVerifier is the opaque wallet-signature collaborator: it reports
// whether the signature over the message was produced by the address.
type SignatureVerifier interface {
	VerifyMessage(ctx context.Context, address, signature, message string) (bool, error)
}

// Pinger is the slice of the connection pool the health endpoint needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// App is the handler container with its injected dependencies.
type App struct {
	Config     *infra.Config
	Logger     infra.Logger
	DB         Pinger
	Mint       *mint.Service
	Challenges domain.ChallengeRepository
	Verifier   SignatureVerifier
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]any{
		"success": false,
		"error":   map[string]string{"code": code, "message": message},
	})
}

// domainError translates sentinel errors into the API error envelope.
func (a *App) domainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrActiveSession):
		a.error(w, http.StatusConflict, "active_session", "an active mint session already exists for this wallet")
	case errors.Is(err, domain.ErrSoldOut):
		a.error(w, http.StatusBadRequest, "sold_out", "the collection is sold out")
	case errors.Is(err, domain.ErrNotOwner):
		a.error(w, http.StatusForbidden, "not_owner", "session belongs to a different wallet")
	case errors.Is(err, domain.ErrBadState), errors.Is(err, domain.ErrConflict):
		a.error(w, http.StatusConflict, "invalid_state", "session is not in a state that allows this operation")
	case errors.Is(err, domain.ErrPaymentNotConfirmed):
		a.error(w, http.StatusConflict, "payment_not_confirmed", "payment has not been observed on chain yet")
	case errors.Is(err, domain.ErrChallengeInvalid):
		a.error(w, http.StatusUnauthorized, "challenge_invalid", "challenge is expired or already used")
	default:
		a.Logger.Error().Err(err).Msg("internal error")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
