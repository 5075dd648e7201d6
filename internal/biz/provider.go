package biz

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// EsimStatus is the canonical status record produced by a status check.
// It is built fresh on every check and never persisted here.
type EsimStatus struct {
	ICCID          string    `json:"iccid"`
	OrderSimID     string    `json:"order_sim_id"`
	Provider       string    `json:"api_provider"`  // originating provider tag
	PlanName       string    `json:"plan_name"`
	Status         string    `json:"status"`        // ACTIVE/INACTIVE/EXPIRED/UNKNOWN
	PurchaseDate   string    `json:"purchase_date"`
	Validity       string    `json:"validity"`
	DataCapacity   string    `json:"data_capacity"` // display strings; upstream data is
	DataConsumed   string    `json:"data_consumed"` // not guaranteed self-consistent, so
	DataRemaining  string    `json:"data_remaining"` // capacity != consumed+remaining is tolerated
	ActivationCode string    `json:"activation_code"`
	APN            string    `json:"apn"`
	LastUpdated    time.Time `json:"last_updated"` // zero when upstream reports no freshness info
}

// Bundle is one provider catalog entry for a country.
type Bundle struct {
	Name        string  `json:"name"`        // bundle code, e.g. "esim_1GB_7D_TR_U"
	Description string  `json:"description"` // display name, e.g. "Turkey 1GB 7 Days"
	Country     string  `json:"country"`
	DataGB      float64 `json:"data_gb"`
	Days        int     `json:"days"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
}

// ProviderOrder is the result of placing a renewal order upstream.
type ProviderOrder struct {
	OrderReference string // provider-side order identifier
	Payload        string // raw provider response, stored opaquely on the order
}

// ProviderClient is the capability every upstream adapter implements.
// Adapters own their authentication scheme and response translation; failures
// come back as *UpstreamError so the aggregator can apply fallback policy.
type ProviderClient interface {
	Name() string
	FetchStatus(ctx context.Context, iccid string) (*EsimStatus, error)
}

// RenewalProviderClient is the extended capability of the provider that
// supports catalog-based renewals.
type RenewalProviderClient interface {
	ProviderClient
	FetchCatalog(ctx context.Context, countryCode string) ([]*Bundle, error)
	PlaceOrder(ctx context.Context, bundleName, iccid string) (*ProviderOrder, error)
	FetchOrderDetails(ctx context.Context, providerOrderID string) (*EsimStatus, error)
}

// UpstreamErrorKind classifies an upstream failure.
type UpstreamErrorKind string

const (
	UpstreamTimeout   UpstreamErrorKind = "timeout"
	UpstreamAuth      UpstreamErrorKind = "auth"
	UpstreamNotFound  UpstreamErrorKind = "not_found"
	UpstreamMalformed UpstreamErrorKind = "malformed"
	UpstreamHTTP      UpstreamErrorKind = "http"
)

// UpstreamError is a classified provider failure. A not_found is not fatal at
// the aggregator level; everything else is fatal for that single provider
// attempt only.
type UpstreamError struct {
	Provider string
	Kind     UpstreamErrorKind
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// NewUpstreamError wraps err as a classified upstream failure.
func NewUpstreamError(provider string, kind UpstreamErrorKind, err error) *UpstreamError {
	return &UpstreamError{Provider: provider, Kind: kind, Err: err}
}

// IsUpstreamNotFound reports whether err is an upstream not-found.
func IsUpstreamNotFound(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Kind == UpstreamNotFound
}

// UpstreamKind returns the classification of err, or "" when err is not an
// upstream error.
func UpstreamKind(err error) UpstreamErrorKind {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return ""
}
