package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EsimMetrics service metrics
type EsimMetrics struct {
	// Status check metrics
	StatusCheckTotal      *prometheus.CounterVec   // status checks (by result)
	StatusCheckDuration   prometheus.Histogram     // status check latency
	ProviderFetchTotal    *prometheus.CounterVec   // per-provider fetch attempts (by provider, result)
	ProviderFetchDuration *prometheus.HistogramVec // per-provider fetch latency

	// Catalog metrics
	CatalogFetchTotal    *prometheus.CounterVec // catalog fetches (by source: cache/upstream)
	CatalogFetchDuration prometheus.Histogram   // catalog fetch latency
	BundleMatchTotal     *prometheus.CounterVec // bundle match attempts (by result)

	// Renewal order metrics
	RenewalOrderTotal    *prometheus.CounterVec   // renewal orders (by status)
	RenewalAmount        *prometheus.CounterVec   // renewal amount (by status)
	RenewalDuration      *prometheus.HistogramVec // renewal op latency (by operation)
	ProvisioningTotal    *prometheus.CounterVec   // provider provisioning calls (by result)
	CheckoutSessionTotal *prometheus.CounterVec   // checkout session creations (by result)

	// Distributed lock metrics
	LockAcquireTotal    *prometheus.CounterVec // lock acquisitions (by result)
	LockAcquireDuration prometheus.Histogram   // lock acquisition latency
}

// NewEsimMetrics creates the service metrics
func NewEsimMetrics() *EsimMetrics {
	return &EsimMetrics{
		StatusCheckTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esim_status_check_total",
				Help: "Total number of eSIM status checks",
			},
			[]string{"result"}, // result: success/not_found/failed
		),
		StatusCheckDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "esim_status_check_duration_seconds",
				Help:    "Duration of eSIM status checks",
				Buckets: prometheus.DefBuckets,
			},
		),
		ProviderFetchTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esim_provider_fetch_total",
				Help: "Total number of upstream provider fetches",
			},
			[]string{"provider", "result"},
		),
		ProviderFetchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "esim_provider_fetch_duration_seconds",
				Help:    "Duration of upstream provider fetches",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),

		CatalogFetchTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esim_catalog_fetch_total",
				Help: "Total number of catalog fetches",
			},
			[]string{"source"}, // source: cache/upstream
		),
		CatalogFetchDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "esim_catalog_fetch_duration_seconds",
				Help:    "Duration of catalog fetches",
				Buckets: prometheus.DefBuckets,
			},
		),
		BundleMatchTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esim_bundle_match_total",
				Help: "Total number of bundle match attempts",
			},
			[]string{"result"}, // result: success/failed
		),

		RenewalOrderTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esim_renewal_order_total",
				Help: "Total number of renewal orders",
			},
			[]string{"status"},
		),
		RenewalAmount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esim_renewal_amount_total",
				Help: "Total renewal amount",
			},
			[]string{"status"},
		),
		RenewalDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "esim_renewal_duration_seconds",
				Help:    "Duration of renewal operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"}, // operation: create/confirm/cancel/reconcile
		),
		ProvisioningTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esim_provisioning_total",
				Help: "Total number of provider provisioning calls",
			},
			[]string{"result"},
		),
		CheckoutSessionTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esim_checkout_session_total",
				Help: "Total number of checkout session creations",
			},
			[]string{"result"},
		),

		LockAcquireTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esim_lock_acquire_total",
				Help: "Total number of lock acquisition attempts",
			},
			[]string{"result"},
		),
		LockAcquireDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "esim_lock_acquire_duration_seconds",
				Help:    "Duration of lock acquisition",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
		),
	}
}

// Global metrics instance
var defaultMetrics *EsimMetrics

// InitMetrics initializes the global metrics
func InitMetrics() {
	defaultMetrics = NewEsimMetrics()
}

// GetMetrics returns the global metrics instance
func GetMetrics() *EsimMetrics {
	if defaultMetrics == nil {
		InitMetrics()
	}
	return defaultMetrics
}
