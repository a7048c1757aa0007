package generator

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"dogemint/internal/domain"
	"dogemint/internal/mint"
)

// Options controls how the generator client is configured.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	Collection     string
	ContentBaseURL string
	HTTPClient     *http.Client
	Logger         zerolog.Logger
}

// Client talks to the external content-generation backend. Without an API
// key it produces deterministic synthetic collectibles so the whole pipeline
// stays exercisable in local and CI environments. With a key configured, a
// backend failure is a real generation failure and is surfaced as such.
type Client struct {
	apiKey         string
	baseURL        string
	model          string
	collection     string
	contentBaseURL string
	httpClient     *http.Client
	logger         zerolog.Logger
}

// NewClient constructs a generator client with sane defaults.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	collection := opts.Collection
	if collection == "" {
		collection = "dogemint"
	}
	return &Client{
		apiKey:         strings.TrimSpace(opts.APIKey),
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		model:          opts.Model,
		collection:     collection,
		contentBaseURL: strings.TrimRight(opts.ContentBaseURL, "/"),
		httpClient:     httpClient,
		logger:         opts.Logger,
	}
}

// Generate produces the trait set and content reference for a token.
func (c *Client) Generate(ctx context.Context, tokenID int64, owner string) (*domain.GeneratedArtifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.apiKey == "" {
		return c.synthetic(tokenID), nil
	}
	return c.remote(ctx, tokenID, owner)
}

type generateRequest struct {
	Collection string `json:"collection"`
	TokenID    int64  `json:"token_id"`
	Model      string `json:"model"`
	Owner      string `json:"owner"`
}

type generateResponse struct {
	Rarity     string         `json:"rarity"`
	Traits     []domain.Trait `json:"traits"`
	ContentRef string         `json:"content_ref"`
	Prompt     string         `json:"prompt"`
	Error      string         `json:"error,omitempty"`
}

func (c *Client) remote(ctx context.Context, tokenID int64, owner string) (*domain.GeneratedArtifact, error) {
	payload, err := json.Marshal(generateRequest{
		Collection: c.collection,
		TokenID:    tokenID,
		Model:      c.model,
		Owner:      owner,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	var out generateResponse
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
	if out.ContentRef == "" || len(out.Traits) == 0 {
		return nil, fmt.Errorf("%w: malformed generation output", domain.ErrProviderFailure)
	}

	return &domain.GeneratedArtifact{
		Rarity:     domain.RarityTier(out.Rarity),
		Traits:     out.Traits,
		ContentRef: out.ContentRef,
		PromptUsed: out.Prompt,
	}, nil
}

// Trait value pools for the synthetic generator. Values are drawn
// deterministically from the token id so reruns of the same token always
// produce the same collectible.
var (
	bases       = []string{"classic shibe", "golden shibe", "space shibe", "pirate shibe", "samurai shibe"}
	headwear    = []string{"none", "beanie", "crown", "helmet", "party hat", "halo"}
	eyes        = []string{"round", "laser", "sleepy", "wink", "star"}
	outfits     = []string{"plain", "hoodie", "suit", "kimono", "astronaut"}
	backgrounds = []string{"moon", "meadow", "cyber grid", "sunset", "deep space"}
)

func (c *Client) synthetic(tokenID int64) *domain.GeneratedArtifact {
	seed := syntheticSeed(c.collection, tokenID)

	rarity := domain.DrawRarity(int(seed % 1000))
	traits := []domain.Trait{
		{Type: "base", Value: pick(bases, seed>>10)},
		{Type: "headwear", Value: pick(headwear, seed>>20)},
		{Type: "eyes", Value: pick(eyes, seed>>30)},
		{Type: "outfit", Value: pick(outfits, seed>>40)},
		{Type: "background", Value: pick(backgrounds, seed>>50)},
	}

	prompt := fmt.Sprintf("%s #%d: %s wearing %s, %s eyes, %s outfit, %s background",
		c.collection, tokenID,
		traits[0].Value, traits[1].Value, traits[2].Value, traits[3].Value, traits[4].Value)

	c.logger.Debug().
		Int64("token_id", tokenID).
		Str("rarity", string(rarity)).
		Msg("synthetic collectible generated")

	return &domain.GeneratedArtifact{
		Rarity:     rarity,
		Traits:     traits,
		ContentRef: fmt.Sprintf("%s/%s/%d.png", c.contentBaseURL, c.collection, tokenID),
		PromptUsed: prompt,
	}
}

func syntheticSeed(collection string, tokenID int64) uint64 {
	h := sha256.New()
	h.Write([]byte(collection))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(tokenID))
	h.Write(buf[:])
	return binary.BigEndian.Uint64(h.Sum(nil)[:8])
}

func pick(values []string, roll uint64) string {
	return values[int(roll%uint64(len(values)))]
}

var _ mint.Generator = (*Client)(nil)
