package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/tolempay/billing/pkg/config"
	"github.com/tolempay/billing/pkg/domain"
)

// Client sends signed operations to the gateway over HTTP. Transport
// failures surface as domain.ErrGateway, distinct from a logical payment
// decline carried inside a verified response.
type Client struct {
	cfg      *config.Gateway
	protocol *Protocol
	builder  *Builder
	http     *http.Client
	logger   *slog.Logger
}

// NewClient creates a gateway client. Every call carries the configured
// timeout; a timed-out charge leaves its transaction pending for a later
// callback or status poll to resolve.
func NewClient(cfg *config.Gateway, logger *slog.Logger) *Client {
	return &Client{
		cfg:      cfg,
		protocol: NewProtocol(cfg),
		builder:  NewBuilder(cfg),
		http:     &http.Client{Timeout: cfg.HTTPTimeout},
		logger:   logger.With("component", "gateway"),
	}
}

// Protocol exposes the signing protocol for callback verification.
func (c *Client) Protocol() *Protocol { return c.protocol }

// Builder exposes the request builder.
func (c *Client) Builder() *Builder { return c.builder }

// CreateCharge submits a hosted-checkout charge and returns the verified,
// decoded response.
func (c *Client) CreateCharge(ctx context.Context, req ChargeCreateRequest) (*CallbackPayload, error) {
	return c.post(ctx, "/payment/create", req)
}

// ChargeStatus polls an earlier charge by order id.
func (c *Client) ChargeStatus(ctx context.Context, req ChargeStatusRequest) (*CallbackPayload, error) {
	return c.post(ctx, "/payment/status", req)
}

// ChargeRecurrent charges a stored recurring token.
func (c *Client) ChargeRecurrent(ctx context.Context, req ChargeRecurrentRequest) (*CallbackPayload, error) {
	return c.post(ctx, "/payment/recurrent", req)
}

// FetchReceipt retrieves the fiscal receipt for a completed payment.
func (c *Client) FetchReceipt(ctx context.Context, req ReceiptRequest) (*CallbackPayload, error) {
	return c.post(ctx, "/payment/receipt", req)
}

func (c *Client) post(ctx context.Context, path string, payload any) (*CallbackPayload, error) {
	signed, err := c.protocol.Sign(payload)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(signed)
	if err != nil {
		return nil, fmt.Errorf("encode gateway request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ApiUrl+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+base64.StdEncoding.EncodeToString([]byte(c.cfg.ApiKey)))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Error("gateway request failed", "path", path, "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrGateway, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("gateway returned non-200", "path", path, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: http status %d", domain.ErrGateway, resp.StatusCode)
	}

	var signedResp SignedMessage
	if err := json.Unmarshal(raw, &signedResp); err != nil {
		return nil, fmt.Errorf("%w: malformed response envelope: %v", domain.ErrGateway, err)
	}

	var decoded CallbackPayload
	if err := c.protocol.Decode(signedResp, &decoded); err != nil {
		return nil, err
	}
	return &decoded, nil
}
