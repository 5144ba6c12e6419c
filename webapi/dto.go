package webapi

import "github.com/shopspring/decimal"

// PurchaseRequest is the payload for POST /purchase.
type PurchaseRequest struct {
	UserID     string `json:"user_id" validate:"required,uuid"`
	ItemID     string `json:"item_id" validate:"required,uuid"`
	Source     string `json:"source" validate:"required,oneof=wallet card"`
	CardMasked string `json:"card_masked,omitempty"`
}

// TopUpRequest is the payload for POST /topup.
type TopUpRequest struct {
	UserID   string          `json:"user_id" validate:"required,uuid"`
	Currency string          `json:"currency" validate:"required,len=3"`
	Amount   decimal.Decimal `json:"amount" validate:"required"`
}

// SubscribeRequest is the payload for POST /subscriptions.
type SubscribeRequest struct {
	UserID     string `json:"user_id" validate:"required,uuid"`
	PriceID    string `json:"price_id" validate:"required,uuid"`
	Source     string `json:"source" validate:"required,oneof=wallet card"`
	CardMasked string `json:"card_masked,omitempty"`
}

// FeeRuleRequest is the payload for POST /fees/rules.
type FeeRuleRequest struct {
	Currency   string           `json:"currency" validate:"required,len=3"`
	Percentage decimal.Decimal  `json:"percentage" validate:"required"`
	MinAmount  *decimal.Decimal `json:"min_amount,omitempty"`
	MaxAmount  *decimal.Decimal `json:"max_amount,omitempty"`
}

// TransactionResponse is the wire shape of a transaction record.
type TransactionResponse struct {
	ID        string          `json:"id"`
	Currency  string          `json:"currency"`
	Amount    decimal.Decimal `json:"amount"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Status    string          `json:"status"`
	OrderID   string          `json:"order_id,omitempty"`
	PaymentID string          `json:"payment_id,omitempty"`
}

// PurchaseResponse is the body for a completed or initiated purchase.
type PurchaseResponse struct {
	Transaction    TransactionResponse `json:"transaction"`
	FeeAmount      *decimal.Decimal    `json:"fee_amount,omitempty"`
	SellerAmount   *decimal.Decimal    `json:"seller_amount,omitempty"`
	PaymentPageUrl string              `json:"payment_page_url,omitempty"`
}
