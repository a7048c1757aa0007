package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"dogemint/internal/domain"
	"dogemint/internal/middleware"
)

type challengeRequest struct {
	WalletAddress string `json:"wallet_address"`
}

type challengeResponse struct {
	ChallengeID string    `json:"challenge_id"`
	Message     string    `json:"message"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type verifyRequest struct {
	ChallengeID   string `json:"challenge_id"`
	WalletAddress string `json:"wallet_address"`
	Signature     string `json:"signature"`
}

type verifyResponse struct {
	Token         string `json:"token"`
	WalletAddress string `json:"wallet_address"`
}

// challengeMessage is what the wallet actually signs.
func challengeMessage(nonce string) string {
	return fmt.Sprintf("dogemint login %s", nonce)
}

// AuthChallenge issues a single-use nonce for the wallet to sign.
func (a *App) AuthChallenge(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.WalletAddress == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "wallet_address required")
		return
	}

	challenge := &domain.AuthChallenge{
		ID:            uuid.NewString(),
		WalletAddress: req.WalletAddress,
		Nonce:         uuid.NewString(),
		ExpiresAt:     time.Now().Add(a.Config.ChallengeTTL),
	}
	if err := a.Challenges.Create(r.Context(), challenge); err != nil {
		a.domainError(w, err)
		return
	}

	a.json(w, http.StatusOK, challengeResponse{
		ChallengeID: challenge.ID,
		Message:     challengeMessage(challenge.Nonce),
		ExpiresAt:   challenge.ExpiresAt,
	})
}

// AuthVerify redeems a challenge: the nonce is burned on the attempt, the
// signature is checked by the collaborator, and a session token is issued.
func (a *App) AuthVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.ChallengeID == "" || req.WalletAddress == "" || req.Signature == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "challenge_id, wallet_address and signature required")
		return
	}

	challenge, err := a.Challenges.Redeem(r.Context(), req.ChallengeID, time.Now())
	if err != nil {
		a.domainError(w, err)
		return
	}
	if challenge.WalletAddress != req.WalletAddress {
		a.error(w, http.StatusUnauthorized, "unauthorized", "challenge was issued for a different wallet")
		return
	}

	ok, err := a.Verifier.VerifyMessage(r.Context(), req.WalletAddress, req.Signature, challengeMessage(challenge.Nonce))
	if err != nil {
		a.Logger.Error().Err(err).Msg("signature verification failed")
		a.error(w, http.StatusBadGateway, "verifier_unavailable", "signature verification unavailable")
		return
	}
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid signature")
		return
	}

	token, err := middleware.SignToken(a.Config.JWTSecret, req.WalletAddress, a.Config.JWTTTL)
	if err != nil {
		a.Logger.Error().Err(err).Msg("sign token failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to issue token")
		return
	}

	a.json(w, http.StatusOK, verifyResponse{Token: token, WalletAddress: req.WalletAddress})
}
