package errors

import (
	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	i18nPkg "github.com/gaoyong06/go-pkg/middleware/i18n"
)

func init() {
	pkgErrors.InitGlobalErrorManager("i18n", i18nPkg.Language)
}

// eSIM Service error codes
// Format: SSMMEE (6 digits)
//   SS: service identifier, fixed 21 for esim-service
//   MM: module identifier
//   EE: error sequence within the module
//
// Modules:
//   00: common (reuses go-pkg common codes)
//   01: reserved (status failures surface as per-provider upstream errors)
//   02: catalog module
//   03: renewal order module
//   04: payment gateway module
//   05: data access
//   06-99: reserved

// Catalog module error codes (210200-210299)
const (
	// ErrCodeCatalogFetchFailed catalog fetch from provider failed
	ErrCodeCatalogFetchFailed = 210201
	// ErrCodeNoMatchingBundle no catalog bundle matches the plan description
	ErrCodeNoMatchingBundle = 210202
	// ErrCodePlanDescriptionInvalid plan description carries no data/validity tokens
	ErrCodePlanDescriptionInvalid = 210203
)

// Renewal order module error codes (210300-210399)
const (
	// ErrCodeRenewalOrderNotFound renewal order does not exist
	ErrCodeRenewalOrderNotFound = 210301
	// ErrCodeRenewalOrderCreateFailed renewal order creation failed
	ErrCodeRenewalOrderCreateFailed = 210302
	// ErrCodeRenewalOrderUpdateFailed renewal order update failed
	ErrCodeRenewalOrderUpdateFailed = 210303
	// ErrCodeRenewalNotCancellable order is past the cancellable state
	ErrCodeRenewalNotCancellable = 210304
	// ErrCodeRenewLockFailed failed to acquire the per-order provisioning lock
	ErrCodeRenewLockFailed = 210305
	// ErrCodeProviderNotRenewable provider does not support renewals
	ErrCodeProviderNotRenewable = 210306
	// ErrCodeCurrencyRequired currency is required
	ErrCodeCurrencyRequired = 210307
	// ErrCodeAmountInvalid amount must be positive
	ErrCodeAmountInvalid = 210308
)

// Payment gateway module error codes (210400-210499)
const (
	// ErrCodePaymentGatewayUnavailable payment gateway not configured
	ErrCodePaymentGatewayUnavailable = 210401
	// ErrCodeCheckoutSessionCreateFailed checkout session creation failed
	ErrCodeCheckoutSessionCreateFailed = 210402
	// ErrCodeCheckoutSessionRetrieveFailed checkout session retrieval failed
	ErrCodeCheckoutSessionRetrieveFailed = 210403
	// ErrCodePaymentTransactionNotFound payment transaction not found for session
	ErrCodePaymentTransactionNotFound = 210404
)

// Data access error codes (210500-210599)
const (
	// ErrCodeRenewalOrderGetFailed renewal order query failed
	ErrCodeRenewalOrderGetFailed = 210501
	// ErrCodePaymentTransactionCreateFailed payment transaction creation failed
	ErrCodePaymentTransactionCreateFailed = 210502
	// ErrCodePaymentTransactionGetFailed payment transaction query failed
	ErrCodePaymentTransactionGetFailed = 210503
	// ErrCodePaymentTransactionUpdateFailed payment transaction update failed
	ErrCodePaymentTransactionUpdateFailed = 210504
	// ErrCodeProviderConfigNil provider adapter config is nil
	ErrCodeProviderConfigNil = 210505
)
