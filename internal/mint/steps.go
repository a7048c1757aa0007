package mint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dogemint/internal/domain"
	"dogemint/internal/metrics"
)

// HandleStep executes one claimed step job. Jobs are delivered at least
// once, so each handler re-reads the session and compares-and-sets on the
// expected prior status: a stale redelivery or a completion racing an
// expiry/cancel writes nothing.
func (s *Service) HandleStep(ctx context.Context, job *domain.StepJob) error {
	start := time.Now()
	var err error
	switch job.Type {
	case domain.StepTypeGenerate:
		err = s.runGeneration(ctx, job.SessionID)
	case domain.StepTypeInscribe:
		err = s.runInscription(ctx, job.SessionID)
	default:
		err = fmt.Errorf("unsupported step type %q", job.Type)
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.StepDuration.WithLabelValues(string(job.Type), outcome).Observe(time.Since(start).Seconds())
	return err
}

// runGeneration drives PENDING -> GENERATING -> {AWAITING_PAYMENT |
// GENERATION_FAILED}. The status is moved to GENERATING before the external
// call so a poller never sees PENDING while the generator is already running.
func (s *Service) runGeneration(ctx context.Context, sessionID string) error {
	session, err := s.repos.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}

	switch session.Status {
	case domain.SessionStatusPending:
		updated, err := s.repos.Sessions.UpdateIf(ctx, sessionID, domain.SessionStatusPending, domain.SessionPatch{
			Status:        domain.SessionStatusGenerating,
			Progress:      domain.SessionStatusGenerating.Progress(),
			StatusMessage: "Generating your collectible",
		})
		if err != nil {
			if errors.Is(err, domain.ErrConflict) {
				// Cancelled or expired between claim and transition.
				s.log.Info().Str("session_id", sessionID).Msg("generation skipped, session moved")
				return nil
			}
			return err
		}
		session = updated
		s.recordAudit(ctx, sessionID, domain.SessionStatusPending, domain.SessionStatusGenerating, "")
	case domain.SessionStatusGenerating:
		// Redelivery of a job whose previous attempt died mid-call.
	default:
		s.log.Info().
			Str("session_id", sessionID).
			Str("status", string(session.Status)).
			Msg("generation skipped, unexpected status")
		return nil
	}

	generated, genErr := s.generator.Generate(ctx, session.TokenID, session.WalletAddress)
	if genErr != nil {
		s.failStep(ctx, session, domain.SessionStatusGenerating, domain.SessionStatusGenerationFailed,
			"Generation failed", genErr)
		// Reported through the session; the job itself succeeded at deciding.
		return nil
	}

	artifact := &domain.Artifact{
		ID:           uuid.NewString(),
		TokenID:      session.TokenID,
		OwnerAddress: session.WalletAddress,
		Status:       domain.ArtifactStatusAwaitingPayment,
		Rarity:       generated.Rarity,
		Traits:       generated.Traits,
		ContentRef:   generated.ContentRef,
		PromptUsed:   generated.PromptUsed,
	}
	if err := s.repos.Artifacts.Create(ctx, artifact); err != nil {
		return fmt.Errorf("persist artifact: %w", err)
	}

	payAddr := s.cfg.PaymentAddress
	amount := session.AmountKoinu
	if _, err := s.repos.Sessions.UpdateIf(ctx, sessionID, domain.SessionStatusGenerating, domain.SessionPatch{
		Status:         domain.SessionStatusAwaitingPayment,
		Progress:       domain.SessionStatusAwaitingPayment.Progress(),
		StatusMessage:  "Ready, awaiting payment",
		ArtifactID:     &artifact.ID,
		PaymentAddress: &payAddr,
		AmountKoinu:    &amount,
	}); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// The session was expired or cancelled while generating. The
			// token id stays consumed; the artifact stays unsold.
			s.log.Warn().
				Str("session_id", sessionID).
				Int64("token_id", session.TokenID).
				Msg("generation finished for a session that already moved")
			return nil
		}
		return err
	}
	s.recordAudit(ctx, sessionID, domain.SessionStatusGenerating, domain.SessionStatusAwaitingPayment, "artifact "+artifact.ID)

	s.log.Info().
		Str("session_id", sessionID).
		Int64("token_id", session.TokenID).
		Str("rarity", string(generated.Rarity)).
		Msg("generation succeeded")
	return nil
}

// runInscription drives PAYMENT_RECEIVED -> INSCRIBING -> {CONFIRMED |
// INSCRIPTION_FAILED}. Artifact finalization is an at-most-once write; a
// redelivered job that finds it already finalized only finishes the session.
func (s *Service) runInscription(ctx context.Context, sessionID string) error {
	session, err := s.repos.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}

	switch session.Status {
	case domain.SessionStatusPaymentReceived:
		if _, err := s.repos.Sessions.UpdateIf(ctx, sessionID, domain.SessionStatusPaymentReceived, domain.SessionPatch{
			Status:        domain.SessionStatusInscribing,
			Progress:      domain.SessionStatusInscribing.Progress(),
			StatusMessage: "Inscribing on the chain",
		}); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				s.log.Info().Str("session_id", sessionID).Msg("inscription skipped, session moved")
				return nil
			}
			return err
		}
		s.recordAudit(ctx, sessionID, domain.SessionStatusPaymentReceived, domain.SessionStatusInscribing, "")
	case domain.SessionStatusInscribing:
		// Redelivery after a mid-flight crash.
	default:
		s.log.Info().
			Str("session_id", sessionID).
			Str("status", string(session.Status)).
			Msg("inscription skipped, unexpected status")
		return nil
	}

	artifact, err := s.repos.Artifacts.GetByID(ctx, session.ArtifactID)
	if err != nil {
		return fmt.Errorf("load artifact: %w", err)
	}

	result, insErr := s.inscriber.Inscribe(ctx, artifact)
	if insErr != nil {
		s.failStep(ctx, session, domain.SessionStatusInscribing, domain.SessionStatusInscriptionFailed,
			"Inscription failed", insErr)
		return nil
	}

	now := s.now()
	if err := s.repos.Artifacts.Finalize(ctx, artifact.ID, *result, now); err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			return fmt.Errorf("finalize artifact: %w", err)
		}
		// Already finalized by a previous attempt; fall through to close the
		// session.
	}

	if _, err := s.repos.Sessions.UpdateIf(ctx, sessionID, domain.SessionStatusInscribing, domain.SessionPatch{
		Status:        domain.SessionStatusConfirmed,
		Progress:      domain.SessionStatusConfirmed.Progress(),
		StatusMessage: "Mint confirmed",
		CompletedAt:   &now,
	}); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Expiry beat the success write. The expired status is
			// authoritative for the client; the inscribed artifact is a
			// support case, so make it loud.
			s.log.Error().
				Str("session_id", sessionID).
				Str("inscription_id", result.InscriptionID).
				Msg("inscription succeeded but session already terminal")
			return nil
		}
		return err
	}
	s.recordAudit(ctx, sessionID, domain.SessionStatusInscribing, domain.SessionStatusConfirmed, "inscription "+result.InscriptionID)
	metrics.SessionsCompleted.WithLabelValues(string(domain.SessionStatusConfirmed)).Inc()

	s.log.Info().
		Str("session_id", sessionID).
		Str("inscription_id", result.InscriptionID).
		Str("tx_hash", result.TxHash).
		Msg("mint confirmed")
	return nil
}

// failStep converts an upstream failure into the corresponding *_FAILED
// session state. Losing the CAS race to an expiry or cancel is acceptable;
// the session is terminal either way.
func (s *Service) failStep(ctx context.Context, session *domain.MintSession, expect, failed domain.SessionStatus, message string, cause error) {
	code := "upstream_error"
	detail := cause.Error()
	if _, err := s.repos.Sessions.UpdateIf(ctx, session.ID, expect, domain.SessionPatch{
		Status:        failed,
		Progress:      -1,
		StatusMessage: message,
		ErrorCode:     &code,
		ErrorMessage:  &detail,
	}); err != nil {
		s.log.Warn().Err(err).
			Str("session_id", session.ID).
			Str("target", string(failed)).
			Msg("failed-state transition lost")
		return
	}
	s.recordAudit(ctx, session.ID, expect, failed, detail)
	metrics.SessionsCompleted.WithLabelValues(string(failed)).Inc()

	s.log.Error().Err(cause).
		Str("session_id", session.ID).
		Str("status", string(failed)).
		Msg("step failed")
}
