package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"dogemint/internal/middleware"
)

// MintStart opens a new mint session for the authenticated wallet.
func (a *App) MintStart(w http.ResponseWriter, r *http.Request) {
	wallet := middleware.WalletFromContext(r.Context())
	if wallet == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing wallet context")
		return
	}

	summary, err := a.Mint.Start(r.Context(), wallet)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, summary)
}

// MintStatus returns the session summary; expiry is applied on read.
func (a *App) MintStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if sessionID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "session_id required")
		return
	}

	summary, err := a.Mint.GetStatus(r.Context(), sessionID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, summary)
}

type confirmPaymentRequest struct {
	SessionID string `json:"session_id"`
	TxRef     string `json:"tx_ref"`
}

// MintConfirmPayment handles a claimed payment for the wallet's session.
func (a *App) MintConfirmPayment(w http.ResponseWriter, r *http.Request) {
	wallet := middleware.WalletFromContext(r.Context())
	if wallet == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing wallet context")
		return
	}

	var req confirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.SessionID == "" || req.TxRef == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "session_id and tx_ref required")
		return
	}

	summary, err := a.Mint.ConfirmPayment(r.Context(), req.SessionID, wallet, req.TxRef)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, summary)
}

// MintCancel aborts the wallet's session before payment.
func (a *App) MintCancel(w http.ResponseWriter, r *http.Request) {
	wallet := middleware.WalletFromContext(r.Context())
	if wallet == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing wallet context")
		return
	}
	sessionID := chi.URLParam(r, "session_id")
	if sessionID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "session_id required")
		return
	}

	if err := a.Mint.Cancel(r.Context(), sessionID, wallet); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"success": true})
}

// MintStats is the public collection aggregate.
func (a *App) MintStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.Mint.Stats(r.Context())
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, stats)
}

// ArtifactByToken is the public gallery view of one collectible.
func (a *App) ArtifactByToken(w http.ResponseWriter, r *http.Request) {
	tokenID, err := strconv.ParseInt(chi.URLParam(r, "token_id"), 10, 64)
	if err != nil || tokenID <= 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "token_id must be a positive integer")
		return
	}

	artifact, err := a.Mint.ArtifactByToken(r.Context(), tokenID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, artifact)
}
