package mint

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dogemint/internal/domain"
	"dogemint/internal/infra"
)

type testEnv struct {
	svc       *Service
	sessions  *memSessions
	artifacts *memArtifacts
	counter   *memCounter
	jobs      *memJobs
	audit     *memAudit
	generator *stubGenerator
	inscriber *stubInscriber
	payments  *stubPayments
	clock     time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		sessions:  newMemSessions(),
		artifacts: newMemArtifacts(),
		counter:   &memCounter{maxSupply: 100},
		jobs:      &memJobs{},
		audit:     &memAudit{},
		generator: &stubGenerator{},
		inscriber: &stubInscriber{},
		payments:  &stubPayments{status: PaymentStatus{Received: true, Confirmations: 1}},
		clock:     time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	cfg := &infra.Config{
		PriceKoinu:     420 * 100_000_000,
		PaymentAddress: "DTreasury1111111111111111111111111",
		SessionTTL:     30 * time.Minute,
		PaymentVerify:  infra.PaymentVerifyCheck,
		MaxSupply:      100,
	}
	env.svc = NewService(cfg, zerolog.Nop(), Repos{
		Sessions:  env.sessions,
		Artifacts: env.artifacts,
		Counter:   env.counter,
		Jobs:      env.jobs,
		Audit:     env.audit,
	}, env.generator, env.inscriber, env.payments)
	env.svc.now = func() time.Time { return env.clock }
	return env
}

// drain runs every queued step job through the worker path once.
func (e *testEnv) drain(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for {
		job, err := e.jobs.Claim(ctx)
		if err != nil {
			return
		}
		stepErr := e.svc.HandleStep(ctx, job)
		status := domain.StepStatusSucceeded
		if stepErr != nil {
			status = domain.StepStatusFailed
		}
		require.NoError(t, e.jobs.Finish(ctx, job.ID, status, ""))
	}
}

const testWallet = "DWalletAaaaaaaaaaaaaaaaaaaaaaaaaaa"

func TestStartCreatesPendingSessionAndQueuesGeneration(t *testing.T) {
	env := newTestEnv(t)

	summary, err := env.svc.Start(context.Background(), testWallet)
	require.NoError(t, err)

	assert.Equal(t, string(domain.SessionStatusPending), summary.Status)
	assert.Equal(t, 0, summary.Progress)
	assert.Equal(t, int64(1), summary.TokenID)
	assert.Empty(t, summary.PaymentAddress, "payment details are hidden before AWAITING_PAYMENT")
	assert.Equal(t, 1, env.jobs.pending(domain.StepTypeGenerate))
	assert.Equal(t, env.clock.Add(30*time.Minute), summary.ExpiresAt)
}

func TestStartRejectsSecondActiveSession(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Start(context.Background(), testWallet)
	require.NoError(t, err)

	_, err = env.svc.Start(context.Background(), testWallet)
	assert.ErrorIs(t, err, domain.ErrActiveSession)

	// A different wallet is unaffected.
	_, err = env.svc.Start(context.Background(), "DWalletBbbbbbbbbbbbbbbbbbbbbbbbbbb")
	assert.NoError(t, err)
}

func TestStartSoldOut(t *testing.T) {
	env := newTestEnv(t)
	env.counter.maxSupply = 1

	_, err := env.svc.Start(context.Background(), testWallet)
	require.NoError(t, err)

	_, err = env.svc.Start(context.Background(), "DWalletBbbbbbbbbbbbbbbbbbbbbbbbbbb")
	assert.ErrorIs(t, err, domain.ErrSoldOut)
}

func TestStartConcurrentLastToken(t *testing.T) {
	env := newTestEnv(t)
	env.counter.maxSupply = 1

	const attempts = 8
	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			wallet := testWallet + string(rune('0'+i))
			_, results[i] = env.svc.Start(context.Background(), wallet)
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range results {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, domain.ErrSoldOut)
		}
	}
	assert.Equal(t, 1, won, "exactly one caller gets the last token")
}

func TestStartConcurrentSameWalletSingleWinner(t *testing.T) {
	env := newTestEnv(t)

	const attempts = 8
	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = env.svc.Start(context.Background(), testWallet)
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range results {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, domain.ErrActiveSession)
		}
	}
	assert.Equal(t, 1, won, "exactly one start wins for a wallet")

	live := 0
	for _, s := range env.sessions.sessions {
		if s.WalletAddress == testWallet && !s.Status.IsTerminal() {
			live++
		}
	}
	assert.Equal(t, 1, live, "one non-terminal session per wallet")
}

// blindActiveSessions never reports an active session, replaying the
// interleaving where two starts both pass the pre-insert check and the
// store's unique constraint has to decide.
type blindActiveSessions struct{ *memSessions }

func (b blindActiveSessions) HasActive(context.Context, string) (bool, error) {
	return false, nil
}

func TestStartBackstopCatchesCheckInsertRace(t *testing.T) {
	env := newTestEnv(t)
	env.svc.repos.Sessions = blindActiveSessions{env.sessions}
	ctx := context.Background()

	_, err := env.svc.Start(ctx, testWallet)
	require.NoError(t, err)

	_, err = env.svc.Start(ctx, testWallet)
	assert.ErrorIs(t, err, domain.ErrActiveSession)
}

func TestHappyPathThroughConfirmed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	summary, err := env.svc.Start(ctx, testWallet)
	require.NoError(t, err)
	sessionID := summary.SessionID

	env.drain(t)

	summary, err = env.svc.GetStatus(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.SessionStatusAwaitingPayment), summary.Status)
	assert.Equal(t, 50, summary.Progress)
	assert.Equal(t, "DTreasury1111111111111111111111111", summary.PaymentAddress)
	assert.Equal(t, int64(420*100_000_000), summary.AmountKoinu)
	require.NotNil(t, summary.Artifact)
	assert.Equal(t, int64(1), summary.Artifact.TokenID)

	summary, err = env.svc.ConfirmPayment(ctx, sessionID, testWallet, "txref-abc")
	require.NoError(t, err)
	assert.Equal(t, string(domain.SessionStatusPaymentReceived), summary.Status)
	assert.Equal(t, 60, summary.Progress)
	assert.Equal(t, 1, env.payments.calls)

	env.drain(t)

	summary, err = env.svc.GetStatus(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.SessionStatusConfirmed), summary.Status)
	assert.Equal(t, 100, summary.Progress)
	require.NotNil(t, summary.Artifact)
	assert.Equal(t, "insc-1", summary.Artifact.InscriptionID)
	assert.Equal(t, "txhash-1", summary.Artifact.InscriptionTx)

	artifact, err := env.svc.ArtifactByToken(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "insc-1", artifact.InscriptionID)
}

func TestGenerationFailureEndsSession(t *testing.T) {
	env := newTestEnv(t)
	env.generator.err = errUpstream
	ctx := context.Background()

	summary, err := env.svc.Start(ctx, testWallet)
	require.NoError(t, err)

	env.drain(t)

	got, err := env.svc.GetStatus(ctx, summary.SessionID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.SessionStatusGenerationFailed), got.Status)
	assert.Equal(t, "upstream_error", got.ErrorCode)
	// Progress stays where it was before the failure.
	assert.Equal(t, 10, got.Progress)

	// The wallet can start over.
	_, err = env.svc.Start(ctx, testWallet)
	assert.NoError(t, err)
}

func TestConfirmPaymentRejectsNonOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	summary, err := env.svc.Start(ctx, testWallet)
	require.NoError(t, err)
	env.drain(t)

	_, err = env.svc.ConfirmPayment(ctx, summary.SessionID, "DWalletImpostor1111111111111111111", "txref")
	assert.ErrorIs(t, err, domain.ErrNotOwner)
}

func TestConfirmPaymentWrongStateLeavesSessionUntouched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	summary, err := env.svc.Start(ctx, testWallet)
	require.NoError(t, err)

	// Still PENDING, no artifact yet.
	_, err = env.svc.ConfirmPayment(ctx, summary.SessionID, testWallet, "txref")
	assert.ErrorIs(t, err, domain.ErrBadState)
	assert.Zero(t, env.payments.calls, "collaborator is not consulted for a session not awaiting payment")

	got, err := env.svc.GetStatus(ctx, summary.SessionID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.SessionStatusPending), got.Status)
}

func TestConfirmPaymentUnconfirmedCheckRejectsWithoutMutation(t *testing.T) {
	env := newTestEnv(t)
	env.payments.status = PaymentStatus{Received: false}
	ctx := context.Background()

	summary, err := env.svc.Start(ctx, testWallet)
	require.NoError(t, err)
	env.drain(t)

	_, err = env.svc.ConfirmPayment(ctx, summary.SessionID, testWallet, "txref")
	assert.ErrorIs(t, err, domain.ErrPaymentNotConfirmed)

	got, err := env.svc.GetStatus(ctx, summary.SessionID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.SessionStatusAwaitingPayment), got.Status)
	assert.Empty(t, got.ErrorCode)
	assert.Zero(t, env.jobs.pending(domain.StepTypeInscribe))
}

func TestConfirmPaymentTrustModeSkipsCheck(t *testing.T) {
	env := newTestEnv(t)
	env.svc.cfg.PaymentVerify = infra.PaymentVerifyTrust
	env.payments.status = PaymentStatus{Received: false}
	ctx := context.Background()

	summary, err := env.svc.Start(ctx, testWallet)
	require.NoError(t, err)
	env.drain(t)

	got, err := env.svc.ConfirmPayment(ctx, summary.SessionID, testWallet, "txref")
	require.NoError(t, err)
	assert.Equal(t, string(domain.SessionStatusPaymentReceived), got.Status)
	assert.Zero(t, env.payments.calls)
}

func TestConfirmPaymentEmptyTxRef(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	summary, err := env.svc.Start(ctx, testWallet)
	require.NoError(t, err)
	env.drain(t)

	_, err = env.svc.ConfirmPayment(ctx, summary.SessionID, testWallet, "")
	assert.ErrorIs(t, err, domain.ErrBadState)
}

func TestInscriptionFailureEndsSession(t *testing.T) {
	env := newTestEnv(t)
	env.inscriber.err = errUpstream
	ctx := context.Background()

	summary, err := env.svc.Start(ctx, testWallet)
	require.NoError(t, err)
	env.drain(t)

	_, err = env.svc.ConfirmPayment(ctx, summary.SessionID, testWallet, "txref")
	require.NoError(t, err)
	env.drain(t)

	got, err := env.svc.GetStatus(ctx, summary.SessionID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.SessionStatusInscriptionFailed), got.Status)
	// The artifact is persisted but never finalized.
	artifact, err := env.artifacts.GetByTokenID(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, artifact.InscriptionID)
}

func TestCancelBeforePayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	summary, err := env.svc.Start(ctx, testWallet)
	require.NoError(t, err)
	env.drain(t)

	require.NoError(t, env.svc.Cancel(ctx, summary.SessionID, testWallet))

	got, err := env.svc.GetStatus(ctx, summary.SessionID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.SessionStatusFailed), got.Status)
	assert.Equal(t, domain.FailReasonCancelled, got.ErrorCode)
}

func TestCancelAfterPaymentRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	summary, err := env.svc.Start(ctx, testWallet)
	require.NoError(t, err)
	env.drain(t)
	_, err = env.svc.ConfirmPayment(ctx, summary.SessionID, testWallet, "txref")
	require.NoError(t, err)

	err = env.svc.Cancel(ctx, summary.SessionID, testWallet)
	assert.ErrorIs(t, err, domain.ErrBadState)
}

func TestCancelByNonOwnerRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	summary, err := env.svc.Start(ctx, testWallet)
	require.NoError(t, err)

	err = env.svc.Cancel(ctx, summary.SessionID, "DWalletImpostor1111111111111111111")
	assert.ErrorIs(t, err, domain.ErrNotOwner)
}

func TestCancelAfterDeadlineRecordsExpiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	summary, err := env.svc.Start(ctx, testWallet)
	require.NoError(t, err)
	env.drain(t)

	env.clock = env.clock.Add(31 * time.Minute)

	err = env.svc.Cancel(ctx, summary.SessionID, testWallet)
	assert.ErrorIs(t, err, domain.ErrBadState)

	got, err := env.svc.GetStatus(ctx, summary.SessionID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.SessionStatusFailed), got.Status)
	assert.Equal(t, domain.FailReasonExpired, got.ErrorCode)
}

func TestGetStatusExpiresLazilyExactlyOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	summary, err := env.svc.Start(ctx, testWallet)
	require.NoError(t, err)
	env.drain(t)

	env.clock = env.clock.Add(31 * time.Minute)

	got, err := env.svc.GetStatus(ctx, summary.SessionID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.SessionStatusFailed), got.Status)
	assert.Equal(t, domain.FailReasonExpired, got.ErrorCode)

	// A second poll observes the same terminal state, not a second expiry.
	audits := len(env.audit.entries)
	again, err := env.svc.GetStatus(ctx, summary.SessionID)
	require.NoError(t, err)
	assert.Equal(t, got.Status, again.Status)
	assert.Equal(t, audits, len(env.audit.entries))
}

func TestExpiredSessionFreesWalletForNewMint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	summary, err := env.svc.Start(ctx, testWallet)
	require.NoError(t, err)

	env.clock = env.clock.Add(31 * time.Minute)
	_, err = env.svc.GetStatus(ctx, summary.SessionID)
	require.NoError(t, err)

	_, err = env.svc.Start(ctx, testWallet)
	assert.NoError(t, err)
}

func TestConfirmPaymentOnExpiredSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	summary, err := env.svc.Start(ctx, testWallet)
	require.NoError(t, err)
	env.drain(t)

	env.clock = env.clock.Add(31 * time.Minute)

	_, err = env.svc.ConfirmPayment(ctx, summary.SessionID, testWallet, "txref")
	assert.ErrorIs(t, err, domain.ErrBadState)

	got, err := env.svc.GetStatus(ctx, summary.SessionID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.SessionStatusFailed), got.Status)
	assert.Equal(t, domain.FailReasonExpired, got.ErrorCode)
}

func TestStatsCountsConfirmedByTier(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.generator.artifact = &domain.GeneratedArtifact{
		Rarity:     domain.RarityRare,
		Traits:     []domain.Trait{{Type: "base", Value: "shiba"}},
		ContentRef: "https://content.test/rare.png",
	}

	summary, err := env.svc.Start(ctx, testWallet)
	require.NoError(t, err)
	env.drain(t)
	_, err = env.svc.ConfirmPayment(ctx, summary.SessionID, testWallet, "txref")
	require.NoError(t, err)
	env.drain(t)

	stats, err := env.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalMinted)
	assert.Equal(t, int64(99), stats.Remaining)
	assert.Equal(t, int64(1), stats.ByRarityTier[string(domain.RarityRare)])
}

func TestGetStatusUnknownSession(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.GetStatus(context.Background(), "no-such-session")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
