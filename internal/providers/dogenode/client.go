package dogenode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dogemint/internal/mint"
)

// KoinuPerDoge converts node amounts (DOGE) to the integer koinu the mint
// accounts in.
const KoinuPerDoge = 100_000_000

// Options controls how the node client is configured.
type Options struct {
	URL        string
	User       string
	Pass       string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client is a minimal JSON-RPC client for a Dogecoin-compatible node. Only
// the handful of calls the mint needs are exposed.
type Client struct {
	url        string
	user       string
	pass       string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient constructs a node client. A nil HTTP client gets a reusable one
// with a sensible timeout.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		url:        opts.URL,
		user:       opts.User,
		pass:       opts.Pass,
		httpClient: httpClient,
		logger:     opts.Logger,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "1.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.user != "" {
		req.SetBasicAuth(c.user, c.pass)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("node rpc %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("node rpc %s: read response: %w", method, err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("node rpc %s: decode response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("node rpc %s: %s (code %d)", method, rpcResp.Error.Message, rpcResp.Error.Code)
	}
	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("node rpc %s: decode result: %w", method, err)
		}
	}
	return nil
}

// VerifyMessage checks a wallet signature over a message via the node.
func (c *Client) VerifyMessage(ctx context.Context, address, signature, message string) (bool, error) {
	var ok bool
	if err := c.call(ctx, "verifymessage", []any{address, signature, message}, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

// requiredConfirmations before a payment counts as received.
const requiredConfirmations = 1

// Check implements mint.PaymentChecker: the expected amount must have reached
// the address with at least one confirmation.
func (c *Client) Check(ctx context.Context, address string, amountKoinu int64) (mint.PaymentStatus, error) {
	var receivedDoge float64
	if err := c.call(ctx, "getreceivedbyaddress", []any{address, requiredConfirmations}, &receivedDoge); err != nil {
		return mint.PaymentStatus{}, err
	}

	// Round rather than truncate: the node reports DOGE as a float and an
	// exactly-paid amount can come back a fraction of a koinu short.
	receivedKoinu := int64(math.Round(receivedDoge * KoinuPerDoge))
	status := mint.PaymentStatus{
		Received:      receivedKoinu >= amountKoinu,
		Confirmations: 0,
	}
	if status.Received {
		status.Confirmations = requiredConfirmations
	}
	c.logger.Debug().
		Str("address", address).
		Int64("expected_koinu", amountKoinu).
		Int64("received_koinu", receivedKoinu).
		Msg("payment status checked")
	return status, nil
}

var _ mint.PaymentChecker = (*Client)(nil)
