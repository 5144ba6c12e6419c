// Package currency maintains the registry of currencies the platform can
// hold wallet balances in. The registry is process-wide, read-mostly, and
// safe for concurrent use.
package currency

import (
	"errors"
	"sync"
)

const (
	// DefaultCurrency is the platform's settlement currency.
	DefaultCurrency = "KZT"
	// DefaultDecimals is used for currencies without explicit metadata.
	DefaultDecimals = 2
)

// ErrUnsupported is returned when a currency code is not registered.
var ErrUnsupported = errors.New("currency not supported")

// Meta holds currency-specific metadata.
type Meta struct {
	Decimals int
	Symbol   string
}

// Registry maps currency codes to their metadata.
type Registry struct {
	mu         sync.RWMutex
	currencies map[string]Meta
}

// NewRegistry creates a registry seeded with the currencies the platform
// supports out of the box.
func NewRegistry() *Registry {
	r := &Registry{currencies: make(map[string]Meta)}
	for code, meta := range map[string]Meta{
		"KZT": {Decimals: 2, Symbol: "₸"},
		"USD": {Decimals: 2, Symbol: "$"},
		"EUR": {Decimals: 2, Symbol: "€"},
		"RUB": {Decimals: 2, Symbol: "₽"},
	} {
		r.Register(code, meta)
	}
	return r
}

// Register adds or updates a currency.
func (r *Registry) Register(code string, meta Meta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currencies[code] = meta
}

// Get returns metadata for the given code, or an error if unregistered.
func (r *Registry) Get(code string) (Meta, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	meta, ok := r.currencies[code]
	if !ok {
		return Meta{}, ErrUnsupported
	}
	return meta, nil
}

// IsSupported reports whether a currency code is registered.
func (r *Registry) IsSupported(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.currencies[code]
	return ok
}

// ListSupported returns all registered currency codes.
func (r *Registry) ListSupported() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.currencies))
	for code := range r.currencies {
		codes = append(codes, code)
	}
	return codes
}

// IsValidFormat checks that a code looks like an ISO 4217 currency code
// (three uppercase letters) without consulting the registry.
func IsValidFormat(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

var global = NewRegistry()

// IsSupported checks the global registry.
func IsSupported(code string) bool { return global.IsSupported(code) }

// Get reads from the global registry.
func Get(code string) (Meta, error) { return global.Get(code) }

// Default returns the global registry instance.
func Default() *Registry { return global }
