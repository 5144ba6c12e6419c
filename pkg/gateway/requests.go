package gateway

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tolempay/billing/pkg/config"
)

// Order id prefixes. The prefix is protocol state: callbacks for recurrent_
// orders must not credit the wallet a second time, so the prefix is how the
// callback path tells a top-up charge from a token charge.
const (
	OrderPrefixPay       = "pay_"
	OrderPrefixRecurrent = "recurrent_"
)

// NewOrderID generates a pay_<epoch-ms> order id for card and top-up charges.
func NewOrderID() string {
	return fmt.Sprintf("%s%d", OrderPrefixPay, time.Now().UnixMilli())
}

// NewRecurrentOrderID generates a recurrent_<epoch-ms> order id for token
// charges.
func NewRecurrentOrderID() string {
	return fmt.Sprintf("%s%d", OrderPrefixRecurrent, time.Now().UnixMilli())
}

// ChargeCreateRequest is the payload for a hosted-checkout charge.
type ChargeCreateRequest struct {
	MerchantID  string          `json:"merchant_id"`
	ServiceID   string          `json:"service_id"`
	OrderID     string          `json:"order_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description,omitempty"`
	CallbackUrl string          `json:"callback_url"`
	SuccessUrl  string          `json:"success_url,omitempty"`
	FailureUrl  string          `json:"failure_url,omitempty"`
}

// ChargeStatusRequest polls the gateway for the status of an earlier charge.
type ChargeStatusRequest struct {
	MerchantID string `json:"merchant_id"`
	ServiceID  string `json:"service_id"`
	OrderID    string `json:"order_id"`
}

// ChargeRecurrentRequest charges a stored recurring token without customer
// interaction.
type ChargeRecurrentRequest struct {
	MerchantID  string          `json:"merchant_id"`
	ServiceID   string          `json:"service_id"`
	OrderID     string          `json:"order_id"`
	Token       string          `json:"recurrent_token"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description,omitempty"`
	CallbackUrl string          `json:"callback_url"`
}

// ReceiptRequest fetches the fiscal receipt for a completed payment.
type ReceiptRequest struct {
	MerchantID string `json:"merchant_id"`
	ServiceID  string `json:"service_id"`
	PaymentID  string `json:"payment_id"`
}

// Builder constructs operation payloads carrying the merchant identity and
// redirect URLs from config.
type Builder struct {
	cfg *config.Gateway
}

// NewBuilder creates a request Builder bound to the gateway config.
func NewBuilder(cfg *config.Gateway) *Builder {
	return &Builder{cfg: cfg}
}

// ChargeCreate builds a hosted-checkout charge payload with a fresh pay_
// order id.
func (b *Builder) ChargeCreate(amount decimal.Decimal, currency, description string) ChargeCreateRequest {
	return ChargeCreateRequest{
		MerchantID:  b.cfg.MerchantID,
		ServiceID:   b.cfg.ServiceID,
		OrderID:     NewOrderID(),
		Amount:      amount,
		Currency:    currency,
		Description: description,
		CallbackUrl: b.cfg.CallbackUrl,
		SuccessUrl:  b.cfg.SuccessUrl,
		FailureUrl:  b.cfg.FailureUrl,
	}
}

// ChargeStatus builds a status poll payload for an existing order.
func (b *Builder) ChargeStatus(orderID string) ChargeStatusRequest {
	return ChargeStatusRequest{
		MerchantID: b.cfg.MerchantID,
		ServiceID:  b.cfg.ServiceID,
		OrderID:    orderID,
	}
}

// ChargeRecurrent builds a token charge payload with a fresh recurrent_
// order id.
func (b *Builder) ChargeRecurrent(token string, amount decimal.Decimal, currency, description string) ChargeRecurrentRequest {
	return ChargeRecurrentRequest{
		MerchantID:  b.cfg.MerchantID,
		ServiceID:   b.cfg.ServiceID,
		OrderID:     NewRecurrentOrderID(),
		Token:       token,
		Amount:      amount,
		Currency:    currency,
		Description: description,
		CallbackUrl: b.cfg.CallbackUrl,
	}
}

// Receipt builds a receipt-fetch payload for a completed payment.
func (b *Builder) Receipt(paymentID string) ReceiptRequest {
	return ReceiptRequest{
		MerchantID: b.cfg.MerchantID,
		ServiceID:  b.cfg.ServiceID,
		PaymentID:  paymentID,
	}
}

// PayerInfo carries card metadata from a callback.
type PayerInfo struct {
	PanMasked string `json:"pan_masked"`
}

// CallbackPayload is the decoded body of a gateway webhook callback or a
// synchronous charge response. "success" is the only operation status that
// triggers completion side effects.
type CallbackPayload struct {
	OrderID         string          `json:"order_id"`
	OperationStatus string          `json:"operation_status"`
	PaymentID       string          `json:"payment_id"`
	RecurrentToken  string          `json:"recurrent_token,omitempty"`
	PayerInfo       PayerInfo       `json:"payer_info"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentDate     string          `json:"payment_date,omitempty"`
	PaymentPageUrl  string          `json:"payment_page_url,omitempty"`
}
