package constants

// Redis key prefixes
const (
	// RedisKeyCatalog catalog cache key prefix (keyed by country code)
	RedisKeyCatalog = "catalog:"
	// RedisKeyRenewLock per-order provisioning lock key prefix
	RedisKeyRenewLock = "renew:lock:"
)

// Renewal order lifecycle states
const (
	// OrderStatusPending awaiting payment
	OrderStatusPending = "pending"
	// OrderStatusPaid payment captured, provisioning not yet done
	OrderStatusPaid = "paid"
	// OrderStatusCompleted payment captured and provider order placed
	OrderStatusCompleted = "completed"
	// OrderStatusCancelled checkout abandoned before payment
	OrderStatusCancelled = "cancelled"
	// OrderStatusFailed pre-payment setup failure (no match, gateway error)
	OrderStatusFailed = "failed"
	// OrderStatusProviderFailed payment captured but provider provisioning failed;
	// flags the order for manual operator remediation
	OrderStatusProviderFailed = "provider_failed"
)

// Payment transaction states
const (
	// PaymentStatusPending checkout session created, not paid
	PaymentStatusPending = "pending"
	// PaymentStatusPaid gateway reports the session as paid
	PaymentStatusPaid = "paid"
	// PaymentStatusFailed session expired or cancelled before payment
	PaymentStatusFailed = "failed"
	// PaymentStatusRefunded charge refunded by an operator
	PaymentStatusRefunded = "refunded"
)

// Canonical eSIM status values
const (
	// EsimStatusActive profile active on the upstream provider
	EsimStatusActive = "ACTIVE"
	// EsimStatusInactive profile provisioned but not active
	EsimStatusInactive = "INACTIVE"
	// EsimStatusExpired bundle validity window has passed
	EsimStatusExpired = "EXPIRED"
	// EsimStatusUnknown no provider returned a usable record
	EsimStatusUnknown = "UNKNOWN"
)

// Provider tags
const (
	// ProviderAirHub AirHub upstream
	ProviderAirHub = "AIRHUB"
	// ProviderEsimCard eSIMCard upstream
	ProviderEsimCard = "ESIMCARD"
	// ProviderTravelRoam TravelRoam upstream (the only renewal-capable provider)
	ProviderTravelRoam = "TRAVELROAM"
)

// Result tags (used for metric labels)
const (
	// ResultSuccess operation succeeded
	ResultSuccess = "success"
	// ResultFailed operation failed
	ResultFailed = "failed"
	// ResultNotFound identifier unknown upstream
	ResultNotFound = "not_found"
)

// Payment event status (from the gateway event relay)
const (
	// PaymentEventStatusSuccess payment completed
	PaymentEventStatusSuccess = "SUCCESS"
)

// Order ID prefixes
const (
	// OrderIDPrefixRenewal renewal order ID prefix
	OrderIDPrefixRenewal = "REN-"
)
