// Package gateway implements the wire protocol of the external payment
// gateway: request signing, response verification, payload decoding, and
// status normalization. The package holds no business state; everything it
// needs arrives through config.Gateway at construction time so the protocol
// is testable with fixture secrets.
package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/tolempay/billing/pkg/config"
	"github.com/tolempay/billing/pkg/domain"
)

// SignedMessage is the envelope exchanged with the gateway in both
// directions: Data is a base64-encoded JSON document and Sign is the hex
// HMAC-SHA512 of the base64 string under the shared secret.
type SignedMessage struct {
	Data string `json:"data"`
	Sign string `json:"sign"`
}

// Protocol signs outbound payloads and verifies inbound ones.
type Protocol struct {
	secret []byte
}

// NewProtocol creates a Protocol using the shared secret from config.
func NewProtocol(cfg *config.Gateway) *Protocol {
	return &Protocol{secret: []byte(cfg.SecretKey)}
}

// Sign serializes the payload to JSON, base64-encodes it, and computes the
// HMAC over the base64 string.
func (p *Protocol) Sign(payload any) (SignedMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return SignedMessage{}, fmt.Errorf("encode gateway payload: %w", err)
	}
	data := base64.StdEncoding.EncodeToString(raw)
	return SignedMessage{Data: data, Sign: p.sign(data)}, nil
}

// Verify recomputes the HMAC over msg.Data and compares it to msg.Sign in
// constant time. A mismatch fails closed with domain.ErrIntegrity: no
// business logic may run on unverified data.
func (p *Protocol) Verify(msg SignedMessage) error {
	expected := p.sign(msg.Data)
	if !hmac.Equal([]byte(expected), []byte(msg.Sign)) {
		return domain.ErrIntegrity
	}
	return nil
}

// Decode verifies the message, then base64-decodes Data and unmarshals the
// JSON document into v.
func (p *Protocol) Decode(msg SignedMessage, v any) error {
	if err := p.Verify(msg); err != nil {
		return err
	}
	raw, err := base64.StdEncoding.DecodeString(msg.Data)
	if err != nil {
		return fmt.Errorf("%w: decode gateway data: %v", domain.ErrGateway, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: parse gateway data: %v", domain.ErrGateway, err)
	}
	return nil
}

func (p *Protocol) sign(data string) string {
	mac := hmac.New(sha512.New, p.secret)
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
