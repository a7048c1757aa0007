package domain

import "time"

// ArtifactStatus enumerates collectible states.
type ArtifactStatus string

const (
	ArtifactStatusAwaitingPayment ArtifactStatus = "AWAITING_PAYMENT"
	ArtifactStatusConfirmed       ArtifactStatus = "CONFIRMED"
)

// Trait is a single categorical attribute of a generated collectible.
type Trait struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Artifact is the generated collectible owned by an identity, identified by
// its permanent token id.
type Artifact struct {
	ID            string
	TokenID       int64
	OwnerAddress  string
	Status        ArtifactStatus
	Rarity        RarityTier
	Traits        []Trait
	ContentRef    string
	PromptUsed    string
	InscriptionID string
	InscriptionTx string
	InscribedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// GeneratedArtifact is what the generator collaborator returns prior to
// persistence.
type GeneratedArtifact struct {
	Rarity     RarityTier
	Traits     []Trait
	ContentRef string
	PromptUsed string
}

// InscriptionResult is what the inscriber collaborator returns on success.
type InscriptionResult struct {
	InscriptionID string
	TxHash        string
}
