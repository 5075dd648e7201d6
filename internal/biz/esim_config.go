package biz

import (
	"time"

	"esim-service/internal/conf"
)

// EsimConfig business configuration
type EsimConfig struct {
	StatusTimeout      time.Duration // per-provider timeout during a status check
	CatalogCacheTTL    time.Duration // per-country catalog cache TTL
	CheckoutExpiry     time.Duration // pending orders older than this get cancelled
	SuccessURL         string
	CancelURL          string
	DefaultRenewalDays int
	DefaultCurrency    string
}

// NewEsimConfig creates EsimConfig from the bootstrap config
func NewEsimConfig(c *conf.Bootstrap) *EsimConfig {
	config := &EsimConfig{
		StatusTimeout:      8 * time.Second,
		CatalogCacheTTL:    15 * time.Minute,
		CheckoutExpiry:     24 * time.Hour,
		DefaultRenewalDays: 7,
		DefaultCurrency:    "USD",
	}
	if c.Esim != nil {
		if d := c.Esim.StatusTimeout.AsDuration(); d > 0 {
			config.StatusTimeout = d
		}
		if d := c.Esim.CatalogCacheTtl.AsDuration(); d > 0 {
			config.CatalogCacheTTL = d
		}
		if d := c.Esim.CheckoutExpiry.AsDuration(); d > 0 {
			config.CheckoutExpiry = d
		}
		if c.Esim.SuccessUrl != "" {
			config.SuccessURL = c.Esim.SuccessUrl
		}
		if c.Esim.CancelUrl != "" {
			config.CancelURL = c.Esim.CancelUrl
		}
		if c.Esim.DefaultRenewalDays > 0 {
			config.DefaultRenewalDays = c.Esim.DefaultRenewalDays
		}
	}
	if c.Stripe != nil && c.Stripe.Currency != "" {
		config.DefaultCurrency = c.Stripe.Currency
	}
	return config
}
