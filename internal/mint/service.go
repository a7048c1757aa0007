package mint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dogemint/internal/domain"
	"dogemint/internal/infra"
	"dogemint/internal/metrics"
)

// Generator is the AI content-generation collaborator. It may be slow and
// may fail; the orchestrator performs no retries.
type Generator interface {
	Generate(ctx context.Context, tokenID int64, owner string) (*domain.GeneratedArtifact, error)
}

// Inscriber is the on-chain inscription collaborator.
type Inscriber interface {
	Inscribe(ctx context.Context, artifact *domain.Artifact) (*domain.InscriptionResult, error)
}

// PaymentStatus is the payment-status collaborator's answer for an address.
type PaymentStatus struct {
	Received      bool
	Confirmations int
}

// PaymentChecker reports whether the expected amount reached the address.
type PaymentChecker interface {
	Check(ctx context.Context, address string, amountKoinu int64) (PaymentStatus, error)
}

// Repos bundles the persistence dependencies of the orchestrator.
type Repos struct {
	Sessions  domain.SessionRepository
	Artifacts domain.ArtifactRepository
	Counter   domain.TokenCounterRepository
	Jobs      domain.StepJobRepository
	Audit     domain.AuditRepository
}

// Service drives mint sessions through the state machine. It holds no
// per-session state in memory: the store is the source of truth, and every
// transition is a compare-and-set keyed on the expected prior status.
type Service struct {
	cfg       *infra.Config
	log       zerolog.Logger
	repos     Repos
	generator Generator
	inscriber Inscriber
	payments  PaymentChecker

	now func() time.Time
}

// NewService constructs the orchestrator.
func NewService(cfg *infra.Config, log zerolog.Logger, repos Repos, gen Generator, ins Inscriber, pay PaymentChecker) *Service {
	return &Service{
		cfg:       cfg,
		log:       log,
		repos:     repos,
		generator: gen,
		inscriber: ins,
		payments:  pay,
		now:       time.Now,
	}
}

// ArtifactSummary is the client-facing slice of an artifact.
type ArtifactSummary struct {
	TokenID       int64          `json:"token_id"`
	Rarity        string         `json:"rarity"`
	Traits        []domain.Trait `json:"traits"`
	ContentRef    string         `json:"content_ref"`
	InscriptionID string         `json:"inscription_id,omitempty"`
	InscriptionTx string         `json:"inscription_tx,omitempty"`
}

// SessionSummary is the client-facing view of a session, shaped for polling
// a progress bar.
type SessionSummary struct {
	SessionID      string           `json:"session_id"`
	Status         string           `json:"status"`
	StatusMessage  string           `json:"status_message"`
	Progress       int              `json:"progress"`
	TokenID        int64            `json:"token_id"`
	PaymentAddress string           `json:"payment_address,omitempty"`
	AmountKoinu    int64            `json:"amount_koinu,omitempty"`
	ErrorCode      string           `json:"error_code,omitempty"`
	ErrorMessage   string           `json:"error_message,omitempty"`
	Artifact       *ArtifactSummary `json:"artifact,omitempty"`
	ExpiresAt      time.Time        `json:"expires_at"`
}

// Start opens a new mint session for the wallet: rejects when the wallet
// already has a non-terminal session or the supply is gone, otherwise
// allocates the token id, persists the PENDING session and queues the
// generation step. The caller gets the summary immediately; generation runs
// in the worker.
func (s *Service) Start(ctx context.Context, walletAddress string) (*SessionSummary, error) {
	active, err := s.repos.Sessions.HasActive(ctx, walletAddress)
	if err != nil {
		return nil, fmt.Errorf("check active session: %w", err)
	}
	if active {
		return nil, domain.ErrActiveSession
	}

	tokenID, err := s.repos.Counter.Allocate(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := &domain.MintSession{
		ID:            uuid.NewString(),
		WalletAddress: walletAddress,
		Status:        domain.SessionStatusPending,
		Progress:      0,
		StatusMessage: "Mint session created",
		TokenID:       tokenID,
		AmountKoinu:   s.cfg.PriceKoinu,
		ExpiresAt:     now.Add(s.cfg.SessionTTL),
	}
	if err := s.repos.Sessions.Create(ctx, session); err != nil {
		if errors.Is(err, domain.ErrActiveSession) {
			// A concurrent start for the same wallet won between the
			// HasActive check and this insert.
			return nil, domain.ErrActiveSession
		}
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.recordAudit(ctx, session.ID, "", domain.SessionStatusPending, fmt.Sprintf("token %d allocated", tokenID))

	if err := s.repos.Jobs.Enqueue(ctx, session.ID, domain.StepTypeGenerate); err != nil {
		// The session exists but nothing will drive it; the reconciler will
		// expire it eventually. Surface the failure to the caller.
		return nil, fmt.Errorf("enqueue generation: %w", err)
	}

	metrics.SessionsStarted.Inc()
	s.log.Info().
		Str("session_id", session.ID).
		Str("wallet", walletAddress).
		Int64("token_id", tokenID).
		Msg("mint session started")

	return s.summarize(ctx, session), nil
}

// GetStatus returns the session summary. Expiry is enforced lazily here: a
// non-terminal session past its deadline is first moved to FAILED(expired),
// so every subsequent read observes the same terminal state.
func (s *Service) GetStatus(ctx context.Context, sessionID string) (*SessionSummary, error) {
	session, err := s.repos.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Expired(s.now()) {
		expired, err := s.expire(ctx, session)
		if err != nil {
			return nil, err
		}
		session = expired
	}

	return s.summarize(ctx, session), nil
}

// ConfirmPayment handles a claimed payment for the session. The claim is
// checked against the payment-status collaborator before the transition
// unless the service runs in trust mode.
func (s *Service) ConfirmPayment(ctx context.Context, sessionID, walletAddress, txRef string) (*SessionSummary, error) {
	session, err := s.repos.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.WalletAddress != walletAddress {
		return nil, domain.ErrNotOwner
	}
	if session.Expired(s.now()) {
		if _, err := s.expire(ctx, session); err != nil {
			return nil, err
		}
		return nil, domain.ErrBadState
	}
	if session.Status != domain.SessionStatusAwaitingPayment || session.ArtifactID == "" {
		return nil, domain.ErrBadState
	}
	if txRef == "" {
		return nil, fmt.Errorf("%w: empty tx reference", domain.ErrBadState)
	}

	if s.cfg.PaymentVerify == infra.PaymentVerifyCheck {
		status, err := s.payments.Check(ctx, session.PaymentAddress, session.AmountKoinu)
		if err != nil {
			return nil, fmt.Errorf("payment check: %w", err)
		}
		if !status.Received {
			return nil, domain.ErrPaymentNotConfirmed
		}
	}

	now := s.now()
	updated, err := s.repos.Sessions.UpdateIf(ctx, session.ID, domain.SessionStatusAwaitingPayment, domain.SessionPatch{
		Status:        domain.SessionStatusPaymentReceived,
		Progress:      domain.SessionStatusPaymentReceived.Progress(),
		StatusMessage: "Payment received, inscribing on chain",
		PaymentTxRef:  &txRef,
		PaymentAt:     &now,
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, session.ID, domain.SessionStatusAwaitingPayment, domain.SessionStatusPaymentReceived, "tx "+txRef)

	if err := s.repos.Jobs.Enqueue(ctx, session.ID, domain.StepTypeInscribe); err != nil {
		return nil, fmt.Errorf("enqueue inscription: %w", err)
	}

	s.log.Info().
		Str("session_id", session.ID).
		Str("tx_ref", txRef).
		Msg("payment confirmed")

	return s.summarize(ctx, updated), nil
}

// Cancel marks the session FAILED(cancelled). Only the owner may cancel, and
// only before a payment reference has been recorded; a paid session has to go
// through the manual support path. A session already past its deadline is
// expired instead of cancelled.
func (s *Service) Cancel(ctx context.Context, sessionID, walletAddress string) error {
	session, err := s.repos.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.WalletAddress != walletAddress {
		return domain.ErrNotOwner
	}
	if session.Expired(s.now()) {
		// Expiry wins over cancellation: record the authoritative terminal
		// reason, same as a status poll would.
		if _, err := s.expire(ctx, session); err != nil {
			return err
		}
		return domain.ErrBadState
	}
	if session.Status.IsTerminal() {
		return domain.ErrBadState
	}
	if session.PaymentTxRef != "" {
		return domain.ErrBadState
	}

	code := domain.FailReasonCancelled
	msg := "cancelled by owner"
	if _, err := s.repos.Sessions.UpdateIf(ctx, session.ID, session.Status, domain.SessionPatch{
		Status:        domain.SessionStatusFailed,
		Progress:      -1,
		StatusMessage: "Mint cancelled",
		ErrorCode:     &code,
		ErrorMessage:  &msg,
	}); err != nil {
		return err
	}
	s.recordAudit(ctx, session.ID, session.Status, domain.SessionStatusFailed, domain.FailReasonCancelled)
	metrics.SessionsCompleted.WithLabelValues(string(domain.SessionStatusFailed)).Inc()

	s.log.Info().Str("session_id", session.ID).Msg("mint session cancelled")
	return nil
}

// Stats is the public aggregate over confirmed artifacts and the counter.
type Stats struct {
	TotalMinted  int64            `json:"total_minted"`
	Remaining    int64            `json:"remaining"`
	ByRarityTier map[string]int64 `json:"by_rarity_tier"`
}

// Stats returns the collection-wide mint statistics.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	remaining, err := s.repos.Counter.Remaining(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.repos.Artifacts.CountConfirmedByRarity(ctx)
	if err != nil {
		return nil, err
	}

	out := &Stats{Remaining: remaining, ByRarityTier: make(map[string]int64, len(counts))}
	for tier, n := range counts {
		out.ByRarityTier[string(tier)] = n
		out.TotalMinted += n
	}
	metrics.SupplyRemaining.Set(float64(remaining))
	return out, nil
}

// ArtifactByToken is the public gallery view of a minted collectible.
func (s *Service) ArtifactByToken(ctx context.Context, tokenID int64) (*ArtifactSummary, error) {
	artifact, err := s.repos.Artifacts.GetByTokenID(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	return &ArtifactSummary{
		TokenID:       artifact.TokenID,
		Rarity:        string(artifact.Rarity),
		Traits:        artifact.Traits,
		ContentRef:    artifact.ContentRef,
		InscriptionID: artifact.InscriptionID,
		InscriptionTx: artifact.InscriptionTx,
	}, nil
}

// expire moves a non-terminal session past its deadline to FAILED(expired).
// A concurrent writer winning the race is fine: the reload reflects whoever
// got there first.
func (s *Service) expire(ctx context.Context, session *domain.MintSession) (*domain.MintSession, error) {
	code := domain.FailReasonExpired
	msg := "mint window elapsed before completion"
	updated, err := s.repos.Sessions.UpdateIf(ctx, session.ID, session.Status, domain.SessionPatch{
		Status:        domain.SessionStatusFailed,
		Progress:      -1,
		StatusMessage: "Session expired",
		ErrorCode:     &code,
		ErrorMessage:  &msg,
	})
	if err == nil {
		s.recordAudit(ctx, session.ID, session.Status, domain.SessionStatusFailed, domain.FailReasonExpired)
		metrics.SessionsExpired.Inc()
		metrics.SessionsCompleted.WithLabelValues(string(domain.SessionStatusFailed)).Inc()
		return updated, nil
	}
	if errors.Is(err, domain.ErrConflict) {
		return s.repos.Sessions.GetByID(ctx, session.ID)
	}
	return nil, err
}

func (s *Service) summarize(ctx context.Context, session *domain.MintSession) *SessionSummary {
	summary := &SessionSummary{
		SessionID:     session.ID,
		Status:        string(session.Status),
		StatusMessage: session.StatusMessage,
		Progress:      session.Progress,
		TokenID:       session.TokenID,
		ErrorCode:     session.ErrorCode,
		ErrorMessage:  session.ErrorMessage,
		ExpiresAt:     session.ExpiresAt,
	}
	if session.Status == domain.SessionStatusAwaitingPayment {
		summary.PaymentAddress = session.PaymentAddress
		summary.AmountKoinu = session.AmountKoinu
	}
	if session.ArtifactID != "" {
		artifact, err := s.repos.Artifacts.GetByID(ctx, session.ArtifactID)
		if err != nil {
			s.log.Warn().Err(err).Str("session_id", session.ID).Msg("artifact lookup for summary failed")
		} else {
			summary.Artifact = &ArtifactSummary{
				TokenID:       artifact.TokenID,
				Rarity:        string(artifact.Rarity),
				Traits:        artifact.Traits,
				ContentRef:    artifact.ContentRef,
				InscriptionID: artifact.InscriptionID,
				InscriptionTx: artifact.InscriptionTx,
			}
		}
	}
	return summary
}

func (s *Service) recordAudit(ctx context.Context, sessionID string, from, to domain.SessionStatus, detail string) {
	if err := s.repos.Audit.Record(ctx, sessionID, from, to, detail); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID).Msg("audit record failed")
	}
}
