package mint

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"dogemint/internal/domain"
)

// memSessions is an in-memory SessionRepository with the same conflict
// semantics as the Postgres adapter.
type memSessions struct {
	mu       sync.Mutex
	sessions map[string]*domain.MintSession
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: make(map[string]*domain.MintSession)}
}

func (m *memSessions) Create(_ context.Context, s *domain.MintSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Mirrors uq_mint_sessions_wallet_active: one live session per wallet.
	for _, existing := range m.sessions {
		if existing.WalletAddress == s.WalletAddress && !existing.Status.IsTerminal() {
			return domain.ErrActiveSession
		}
	}
	cp := *s
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memSessions) GetByID(_ context.Context, id string) (*domain.MintSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) HasActive(_ context.Context, wallet string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.WalletAddress == wallet && !s.Status.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}

func (m *memSessions) UpdateIf(_ context.Context, id string, expect domain.SessionStatus, patch domain.SessionPatch) (*domain.MintSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if s.Status != expect {
		return nil, domain.ErrConflict
	}
	s.Status = patch.Status
	if patch.Progress > s.Progress {
		s.Progress = patch.Progress
	}
	s.StatusMessage = patch.StatusMessage
	if patch.ErrorCode != nil {
		s.ErrorCode = *patch.ErrorCode
	}
	if patch.ErrorMessage != nil {
		s.ErrorMessage = *patch.ErrorMessage
	}
	if patch.ArtifactID != nil {
		s.ArtifactID = *patch.ArtifactID
	}
	if patch.PaymentAddress != nil {
		s.PaymentAddress = *patch.PaymentAddress
	}
	if patch.AmountKoinu != nil {
		s.AmountKoinu = *patch.AmountKoinu
	}
	if patch.PaymentTxRef != nil {
		s.PaymentTxRef = *patch.PaymentTxRef
	}
	if patch.PaymentAt != nil {
		at := *patch.PaymentAt
		s.PaymentAt = &at
	}
	if patch.CompletedAt != nil {
		at := *patch.CompletedAt
		s.CompletedAt = &at
	}
	s.UpdatedAt = time.Now()
	cp := *s
	return &cp, nil
}

func (m *memSessions) ExpireOverdue(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.sessions {
		if !s.Status.IsTerminal() && now.After(s.ExpiresAt) {
			s.Status = domain.SessionStatusFailed
			s.ErrorCode = domain.FailReasonExpired
			n++
		}
	}
	return n, nil
}

type memArtifacts struct {
	mu        sync.Mutex
	artifacts map[string]*domain.Artifact
}

func newMemArtifacts() *memArtifacts {
	return &memArtifacts{artifacts: make(map[string]*domain.Artifact)}
}

func (m *memArtifacts) Create(_ context.Context, a *domain.Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.artifacts[a.ID] = &cp
	return nil
}

func (m *memArtifacts) GetByID(_ context.Context, id string) (*domain.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.artifacts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memArtifacts) GetByTokenID(_ context.Context, tokenID int64) (*domain.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.artifacts {
		if a.TokenID == tokenID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memArtifacts) Finalize(_ context.Context, id string, res domain.InscriptionResult, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.artifacts[id]
	if !ok {
		return domain.ErrNotFound
	}
	if a.InscriptionID != "" {
		return domain.ErrConflict
	}
	a.Status = domain.ArtifactStatusConfirmed
	a.InscriptionID = res.InscriptionID
	a.InscriptionTx = res.TxHash
	a.InscribedAt = &at
	return nil
}

func (m *memArtifacts) CountConfirmedByRarity(_ context.Context) (map[domain.RarityTier]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[domain.RarityTier]int64)
	for _, a := range m.artifacts {
		if a.Status == domain.ArtifactStatusConfirmed {
			counts[a.Rarity]++
		}
	}
	return counts, nil
}

type memCounter struct {
	mu         sync.Mutex
	lastIssued int64
	maxSupply  int64
}

func (m *memCounter) Allocate(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastIssued >= m.maxSupply {
		return 0, domain.ErrSoldOut
	}
	m.lastIssued++
	return m.lastIssued, nil
}

func (m *memCounter) Remaining(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxSupply - m.lastIssued, nil
}

type memJobs struct {
	mu    sync.Mutex
	queue []*domain.StepJob
	seq   int
}

func (m *memJobs) Enqueue(_ context.Context, sessionID string, typ domain.StepType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.queue = append(m.queue, &domain.StepJob{
		ID:        fmt.Sprintf("job-%d", m.seq),
		SessionID: sessionID,
		Type:      typ,
		Status:    domain.StepStatusQueued,
		CreatedAt: time.Now(),
	})
	return nil
}

func (m *memJobs) Claim(_ context.Context) (*domain.StepJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.queue {
		if j.Status == domain.StepStatusQueued {
			j.Status = domain.StepStatusRunning
			j.Attempts++
			cp := *j
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memJobs) Finish(_ context.Context, id string, status domain.StepStatus, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.queue {
		if j.ID == id {
			j.Status = status
			j.LastError = lastError
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memJobs) RequeueStale(_ context.Context, _ time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, j := range m.queue {
		if j.Status == domain.StepStatusRunning {
			j.Status = domain.StepStatusQueued
			n++
		}
	}
	return n, nil
}

func (m *memJobs) pending(typ domain.StepType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, j := range m.queue {
		if j.Type == typ && j.Status == domain.StepStatusQueued {
			n++
		}
	}
	return n
}

type memAudit struct {
	mu      sync.Mutex
	entries []string
}

func (m *memAudit) Record(_ context.Context, sessionID string, from, to domain.SessionStatus, detail string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, sessionID+":"+string(from)+"->"+string(to))
	return nil
}

// stubGenerator returns a canned artifact or error.
type stubGenerator struct {
	artifact *domain.GeneratedArtifact
	err      error
	calls    int
}

func (g *stubGenerator) Generate(context.Context, int64, string) (*domain.GeneratedArtifact, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	if g.artifact != nil {
		return g.artifact, nil
	}
	return &domain.GeneratedArtifact{
		Rarity:     domain.RarityCommon,
		Traits:     []domain.Trait{{Type: "base", Value: "shiba"}},
		ContentRef: "https://content.test/1.png",
		PromptUsed: "a shiba",
	}, nil
}

type stubInscriber struct {
	result *domain.InscriptionResult
	err    error
	calls  int
}

func (i *stubInscriber) Inscribe(context.Context, *domain.Artifact) (*domain.InscriptionResult, error) {
	i.calls++
	if i.err != nil {
		return nil, i.err
	}
	if i.result != nil {
		return i.result, nil
	}
	return &domain.InscriptionResult{InscriptionID: "insc-1", TxHash: "txhash-1"}, nil
}

type stubPayments struct {
	status PaymentStatus
	err    error
	calls  int
}

func (p *stubPayments) Check(context.Context, string, int64) (PaymentStatus, error) {
	p.calls++
	return p.status, p.err
}

var errUpstream = errors.New("upstream exploded")
