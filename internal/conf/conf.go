// Package conf holds the bootstrap configuration scanned from the Kratos
// config source. Durations are configured as strings ("8s", "15m").
package conf

import "time"

// Duration is a config duration string ("5s", "10m").
type Duration string

// AsDuration parses the duration, returning 0 for empty or invalid values.
func (d Duration) AsDuration() time.Duration {
	if d == "" {
		return 0
	}
	v, err := time.ParseDuration(string(d))
	if err != nil {
		return 0
	}
	return v
}

// Bootstrap is the root configuration.
type Bootstrap struct {
	Server    *Server    `json:"server"`
	Data      *Data      `json:"data"`
	Providers *Providers `json:"providers"`
	Esim      *Esim      `json:"esim"`
	Stripe    *Stripe    `json:"stripe"`
	Email     *Email     `json:"email"`
}

// Server transport configuration.
type Server struct {
	Http *HTTP `json:"http"`
}

// HTTP server configuration.
type HTTP struct {
	Network string   `json:"network"`
	Addr    string   `json:"addr"`
	Timeout Duration `json:"timeout"`
}

// Data storage configuration.
type Data struct {
	Database *Database `json:"database"`
	Redis    *Redis    `json:"redis"`
	Rocketmq *Rocketmq `json:"rocketmq"`
}

// Database configuration.
type Database struct {
	Driver string `json:"driver"`
	Source string `json:"source"`
}

// Redis configuration.
type Redis struct {
	Addr         string   `json:"addr"`
	Password     string   `json:"password"`
	Db           int      `json:"db"`
	ReadTimeout  Duration `json:"read_timeout"`
	WriteTimeout Duration `json:"write_timeout"`
}

// Rocketmq payment-event consumer configuration.
type Rocketmq struct {
	Enabled     bool     `json:"enabled"`
	NameServers []string `json:"name_servers"`
	GroupName   string   `json:"group_name"`
	Topic       string   `json:"topic"`
	RetryTimes  int      `json:"retry_times"`
}

// Providers holds the upstream adapter credentials. All credentials are
// injected here at process start; adapters never embed them.
type Providers struct {
	Airhub     *AirhubProvider     `json:"airhub"`
	Esimcard   *EsimcardProvider   `json:"esimcard"`
	Travelroam *TravelroamProvider `json:"travelroam"`
}

// AirhubProvider AirHub API credentials.
type AirhubProvider struct {
	BaseUrl  string   `json:"base_url"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	Timeout  Duration `json:"timeout"`
}

// EsimcardProvider eSIMCard reseller API credentials.
type EsimcardProvider struct {
	BaseUrl  string   `json:"base_url"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Timeout  Duration `json:"timeout"`
}

// TravelroamProvider TravelRoam whitelabel API credentials.
type TravelroamProvider struct {
	BaseUrl      string   `json:"base_url"`
	ApiKey       string   `json:"api_key"`
	ClientSecret string   `json:"client_secret"`
	Timeout      Duration `json:"timeout"`
}

// Esim business configuration.
type Esim struct {
	// StatusTimeout bounds each provider call during a status check.
	StatusTimeout Duration `json:"status_timeout"`
	// CatalogCacheTtl TTL for the per-country catalog cache.
	CatalogCacheTtl Duration `json:"catalog_cache_ttl"`
	// CheckoutExpiry how long a pending order may wait for payment before the
	// reconciler cancels it.
	CheckoutExpiry Duration `json:"checkout_expiry"`
	// SuccessUrl / CancelUrl checkout redirect targets.
	SuccessUrl string `json:"success_url"`
	CancelUrl  string `json:"cancel_url"`
	// DefaultRenewalDays used when the caller omits renewal_days.
	DefaultRenewalDays int `json:"default_renewal_days"`
}

// Stripe gateway configuration.
type Stripe struct {
	SecretKey string `json:"secret_key"`
	Currency  string `json:"currency"`
}

// Email SMTP notifier configuration.
type Email struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
}
