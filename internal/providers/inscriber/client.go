package inscriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"dogemint/internal/domain"
	"dogemint/internal/mint"
)

// Options controls how the inscription client is configured.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client talks to the inscription sidecar that writes collectibles onto the
// chain. Inscription is slow and irreversible; the client performs a single
// attempt and reports the outcome.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient constructs an inscription client.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		// Inscription includes chain confirmation waits on the sidecar side.
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: httpClient,
		logger:     opts.Logger,
	}
}

type inscribeRequest struct {
	TokenID    int64          `json:"token_id"`
	Owner      string         `json:"owner"`
	ContentRef string         `json:"content_ref"`
	Rarity     string         `json:"rarity"`
	Traits     []domain.Trait `json:"traits"`
}

type inscribeResponse struct {
	InscriptionID string `json:"inscription_id"`
	TxHash        string `json:"tx_hash"`
	Error         string `json:"error,omitempty"`
}

// Inscribe writes the artifact onto the chain and returns its references.
func (c *Client) Inscribe(ctx context.Context, artifact *domain.Artifact) (*domain.InscriptionResult, error) {
	payload, err := json.Marshal(inscribeRequest{
		TokenID:    artifact.TokenID,
		Owner:      artifact.OwnerAddress,
		ContentRef: artifact.ContentRef,
		Rarity:     string(artifact.Rarity),
		Traits:     artifact.Traits,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/inscribe", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	var out inscribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrProviderFailure, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := out.Error
		if msg == "" {
			msg = resp.Status
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderFailure, msg)
	}
	if out.InscriptionID == "" || out.TxHash == "" {
		return nil, fmt.Errorf("%w: malformed inscription output", domain.ErrProviderFailure)
	}

	c.logger.Info().
		Int64("token_id", artifact.TokenID).
		Str("inscription_id", out.InscriptionID).
		Msg("artifact inscribed")

	return &domain.InscriptionResult{
		InscriptionID: out.InscriptionID,
		TxHash:        out.TxHash,
	}, nil
}

var _ mint.Inscriber = (*Client)(nil)
