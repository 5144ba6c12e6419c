package gateway

import (
	"strings"

	"github.com/tolempay/billing/pkg/domain"
)

// statusTable maps the gateway's status vocabulary onto the internal
// four-state one. Lookup is case-insensitive. Adding a new upstream status
// is a one-line change here.
var statusTable = map[string]domain.TransactionStatus{
	"success":    domain.StatusCompleted,
	"approved":   domain.StatusCompleted,
	"withdraw":   domain.StatusCompleted,
	"paid":       domain.StatusCompleted,
	"completed":  domain.StatusCompleted,
	"failed":     domain.StatusFailed,
	"declined":   domain.StatusFailed,
	"error":      domain.StatusFailed,
	"cancelled":  domain.StatusCanceled,
	"canceled":   domain.StatusCanceled,
	"refunded":   domain.StatusCanceled,
	"pending":    domain.StatusPending,
	"processing": domain.StatusPending,
	"created":    domain.StatusPending,
	"new":        domain.StatusPending,
}

// NormalizeStatus maps a gateway status string onto the internal vocabulary.
// Unrecognized strings map to pending: an unknown status must never silently
// complete or fail a payment.
func NormalizeStatus(s string) domain.TransactionStatus {
	if status, ok := statusTable[strings.ToLower(strings.TrimSpace(s))]; ok {
		return status
	}
	return domain.StatusPending
}
