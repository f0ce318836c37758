package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"sss-shared/internal/observability"
)

// DefaultTimeout bounds a single HTTP round trip.
const DefaultTimeout = 30 * time.Second

// retryPolicy governs how idempotent reads are repeated after transport
// failures, HTTP 429 and non-200 replies. JSON-RPC errors are final.
type retryPolicy struct {
	attempts int // retries after the first try
	first    time.Duration
	ceiling  time.Duration
	factor   float64
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{attempts: 3, first: time.Second, ceiling: 10 * time.Second, factor: 2}
}

// next returns the delay that follows d.
func (p retryPolicy) next(d time.Duration) time.Duration {
	d = time.Duration(float64(d) * p.factor)
	if d > p.ceiling {
		return p.ceiling
	}
	return d
}

// HTTPClient talks JSON-RPC 2.0 to a Solana node over HTTP.
type HTTPClient struct {
	endpoint   string
	http       *http.Client
	limiter    *rate.Limiter
	commitment Commitment
	retry      retryPolicy
	seq        atomic.Uint64
}

var _ RPCClient = (*HTTPClient)(nil)

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) { c.http.Timeout = d }
}

// WithMaxRetries sets how many times a read is retried.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) { c.retry.attempts = n }
}

// WithRetryDelay sets the delay before the first retry.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) { c.retry.first = d }
}

// WithMaxDelay caps the delay between retries.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) { c.retry.ceiling = d }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) { c.http = client }
}

// WithRateLimit caps outgoing requests per second; rps <= 0 removes the cap.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *HTTPClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// WithCommitment sets the commitment for blockhash, account reads and preflight.
func WithCommitment(commitment Commitment) ClientOption {
	return func(c *HTTPClient) { c.commitment = commitment }
}

// NewHTTPClient creates a client for endpoint.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:   endpoint,
		http:       &http.Client{Timeout: DefaultTimeout},
		commitment: CommitmentConfirmed,
		retry:      defaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the configured RPC URL.
func (c *HTTPClient) Endpoint() string {
	return c.endpoint
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      uint64      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC 2.0 error object returned by the node.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// errTransient marks a failure worth another attempt.
var errTransient = errors.New("transient")

// call is for idempotent methods and retries transient failures.
func (c *HTTPClient) call(ctx context.Context, method string, params, result interface{}) error {
	return c.invoke(ctx, method, params, result, c.retry.attempts)
}

// callOnce never retries. sendTransaction goes through here.
func (c *HTTPClient) callOnce(ctx context.Context, method string, params, result interface{}) error {
	return c.invoke(ctx, method, params, result, 0)
}

func (c *HTTPClient) invoke(ctx context.Context, method string, params, result interface{}, retries int) error {
	start := time.Now()
	defer func() { observability.RecordRPCLatency(method, time.Since(start).Seconds()) }()

	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: c.seq.Add(1), Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	wait := c.retry.first
	for attempt := 0; ; attempt++ {
		raw, err := c.post(ctx, body)
		if err == nil {
			return decodeResult(raw, result)
		}
		if !errors.Is(err, errTransient) || attempt >= retries {
			if attempt > 0 {
				return fmt.Errorf("%s failed after %d attempts: %w", method, attempt+1, err)
			}
			return err
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		wait = c.retry.next(wait)
	}
}

// post performs one HTTP round trip and returns the raw JSON-RPC result.
// Retryable failures wrap errTransient.
func (c *HTTPClient) post(ctx context.Context, body []byte) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http request: %v", errTransient, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	switch {
	case err != nil:
		return nil, fmt.Errorf("%w: read response: %v", errTransient, err)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: rate limited (429)", errTransient)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: unexpected status %d: %s", errTransient, resp.StatusCode, payload)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(payload, &rpcResp); err != nil {
		return nil, fmt.Errorf("%w: unmarshal response: %v", errTransient, err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

func decodeResult(raw json.RawMessage, result interface{}) error {
	if result == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}
	return nil
}

// GetLatestBlockhash returns a recent blockhash at the client commitment.
func (c *HTTPClient) GetLatestBlockhash(ctx context.Context) (*Blockhash, error) {
	params := []interface{}{
		map[string]interface{}{"commitment": c.commitment},
	}

	var result getLatestBlockhashResult
	if err := c.call(ctx, "getLatestBlockhash", params, &result); err != nil {
		return nil, err
	}

	hash, err := HashFromBase58(result.Value.Blockhash)
	if err != nil {
		return nil, err
	}

	return &Blockhash{
		Hash:                 hash,
		LastValidBlockHeight: result.Value.LastValidBlockHeight,
	}, nil
}

type getLatestBlockhashResult struct {
	Value struct {
		Blockhash            string `json:"blockhash"`
		LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
	} `json:"value"`
}

// SendTransaction submits a signed transaction. The call is never retried:
// a resend after an ambiguous failure is left to the caller.
func (c *HTTPClient) SendTransaction(ctx context.Context, tx *SignedTransaction) (Signature, error) {
	params := []interface{}{
		tx.Base64(),
		map[string]interface{}{
			"encoding":            "base64",
			"preflightCommitment": c.commitment,
		},
	}

	var result string
	if err := c.callOnce(ctx, "sendTransaction", params, &result); err != nil {
		return Signature{}, err
	}

	sig, err := SignatureFromBase58(result)
	if err != nil {
		return Signature{}, err
	}
	if sig != tx.ID() {
		return Signature{}, fmt.Errorf("node returned signature %s, expected %s", sig, tx.ID())
	}
	return sig, nil
}

// GetSignatureStatuses returns statuses for up to 256 signatures.
func (c *HTTPClient) GetSignatureStatuses(ctx context.Context, sigs ...Signature) ([]*SignatureStatus, error) {
	encoded := make([]string, len(sigs))
	for i, s := range sigs {
		encoded[i] = s.String()
	}
	params := []interface{}{
		encoded,
		map[string]interface{}{"searchTransactionHistory": false},
	}

	var result getSignatureStatusesResult
	if err := c.call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return nil, err
	}

	statuses := make([]*SignatureStatus, len(result.Value))
	for i, v := range result.Value {
		if v == nil {
			continue
		}
		statuses[i] = &SignatureStatus{
			Slot:               v.Slot,
			Confirmations:      v.Confirmations,
			Err:                v.Err,
			ConfirmationStatus: Commitment(v.ConfirmationStatus),
		}
	}
	return statuses, nil
}

type getSignatureStatusesResult struct {
	Value []*signatureStatusValue `json:"value"`
}

type signatureStatusValue struct {
	Slot               int64       `json:"slot"`
	Confirmations      *uint64     `json:"confirmations"`
	Err                interface{} `json:"err"`
	ConfirmationStatus string      `json:"confirmationStatus"`
}

// GetAccountInfo retrieves account info by public key.
// Returns nil if account not found.
func (c *HTTPClient) GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error) {
	params := []interface{}{
		pubkey,
		map[string]interface{}{
			"encoding":   "base64",
			"commitment": c.commitment,
		},
	}

	var result getAccountInfoResult
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}

	if result.Value == nil {
		return nil, nil
	}

	info := &AccountInfo{
		Lamports:   result.Value.Lamports,
		Owner:      result.Value.Owner,
		Executable: result.Value.Executable,
		RentEpoch:  result.Value.RentEpoch,
	}

	if len(result.Value.Data) >= 1 {
		info.Data = result.Value.Data[0]
	}

	return info, nil
}

type getAccountInfoResult struct {
	Value *getAccountInfoValue `json:"value"`
}

type getAccountInfoValue struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"` // [base64_data, encoding]
	Executable bool     `json:"executable"`
	RentEpoch  uint64   `json:"rentEpoch"`
}

// GetAssetsByOwner calls the DAS getAssetsByOwner method. Pages start at 1.
func (c *HTTPClient) GetAssetsByOwner(ctx context.Context, owner string, page, limit int) (*AssetPage, error) {
	params := map[string]interface{}{
		"ownerAddress": owner,
		"page":         page,
		"limit":        limit,
	}

	var result getAssetsByOwnerResult
	if err := c.call(ctx, "getAssetsByOwner", params, &result); err != nil {
		return nil, err
	}

	out := &AssetPage{
		Total: result.Total,
		Limit: result.Limit,
		Page:  result.Page,
		Items: make([]Asset, len(result.Items)),
	}
	for i, item := range result.Items {
		out.Items[i] = Asset{
			ID:        item.ID,
			Interface: item.Interface,
			JSONURI:   item.Content.JSONURI,
			Name:      item.Content.Metadata.Name,
			Symbol:    item.Content.Metadata.Symbol,
			Owner:     item.Ownership.Owner,
		}
	}
	return out, nil
}

type getAssetsByOwnerResult struct {
	Total int                `json:"total"`
	Limit int                `json:"limit"`
	Page  int                `json:"page"`
	Items []dasAssetResponse `json:"items"`
}

type dasAssetResponse struct {
	ID        string `json:"id"`
	Interface string `json:"interface"`
	Content   struct {
		JSONURI  string `json:"json_uri"`
		Metadata struct {
			Name   string `json:"name"`
			Symbol string `json:"symbol"`
		} `json:"metadata"`
	} `json:"content"`
	Ownership struct {
		Owner string `json:"owner"`
	} `json:"ownership"`
}
