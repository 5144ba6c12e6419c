// Package directory is the client for the external profile/content service.
// The billing engine uses it to resolve who owns a purchasable item and
// whether a seller is in good standing. Lookups fail closed: if the service
// cannot answer, the purchase is blocked.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/tolempay/billing/pkg/config"
	"github.com/tolempay/billing/pkg/domain"
)

// Item describes a purchasable item as the content service knows it.
type Item struct {
	ID       uuid.UUID       `json:"id"`
	SellerID uuid.UUID       `json:"seller_id"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	IsActive bool            `json:"is_active"`
}

// Service answers ownership and standing questions about users and items.
// pkg/engine depends on this interface; Client is the HTTP implementation.
type Service interface {
	// Item resolves a purchasable item, or domain.ErrItemNotFound.
	Item(ctx context.Context, itemID uuid.UUID) (*Item, error)
	// HasActiveSubscription reports whether the user holds an active
	// subscription on the platform profile.
	HasActiveSubscription(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Client is the HTTP implementation of Service. Identical concurrent
// lookups are collapsed through singleflight: a burst of purchases of the
// same item costs one upstream request.
type Client struct {
	baseUrl string
	http    *http.Client
	group   singleflight.Group
	logger  *slog.Logger
}

// NewClient creates a directory client with the configured timeout.
func NewClient(cfg *config.Directory, logger *slog.Logger) *Client {
	return &Client{
		baseUrl: cfg.BaseUrl,
		http:    &http.Client{Timeout: cfg.HTTPTimeout},
		logger:  logger.With("component", "directory"),
	}
}

func (c *Client) Item(ctx context.Context, itemID uuid.UUID) (*Item, error) {
	v, err, _ := c.group.Do("item:"+itemID.String(), func() (any, error) {
		var item Item
		if err := c.get(ctx, "/items/"+itemID.String(), &item); err != nil {
			return nil, err
		}
		return &item, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Item), nil
}

func (c *Client) HasActiveSubscription(ctx context.Context, userID uuid.UUID) (bool, error) {
	v, err, _ := c.group.Do("standing:"+userID.String(), func() (any, error) {
		var status struct {
			Active bool `json:"active"`
		}
		if err := c.get(ctx, "/users/"+userID.String()+"/subscription", &status); err != nil {
			return false, err
		}
		return status.Active, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseUrl+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSellerUnavailable, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("directory lookup failed", "path", path, "error", err)
		return fmt.Errorf("%w: %v", domain.ErrSellerUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrItemNotFound
	case resp.StatusCode != http.StatusOK:
		c.logger.Warn("directory returned non-200", "path", path, "status", resp.StatusCode)
		return fmt.Errorf("%w: http status %d", domain.ErrSellerUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrSellerUnavailable, err)
	}
	return nil
}
