package biz

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"esim-service/internal/constants"
	esimErrors "esim-service/internal/errors"
	"esim-service/internal/metrics"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// RenewalOrder is the long-lived renewal entity. It is mutated only through
// the state-machine transitions below and never deleted.
type RenewalOrder struct {
	OrderID          string
	ICCID            string
	Provider         string
	Amount           float64
	Currency         string
	Status           string
	ProviderOrderID  string
	ProviderResponse string // opaque JSON payload
	CustomerEmail    string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CompletedAt      *time.Time
}

// PaymentTransaction is one payment attempt tied 1:1 to a renewal order.
type PaymentTransaction struct {
	OrderID     string
	SessionID   string // gateway checkout session id
	ChargeID    string // populated only after capture
	Amount      float64
	Currency    string
	Status      string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// RenewalOrderRepo is the persistence boundary (defined in biz, implemented
// in data). MarkPaymentTransactionPaid must be an atomic conditional update.
type RenewalOrderRepo interface {
	CreateRenewalOrder(ctx context.Context, order *RenewalOrder) error
	GetRenewalOrderByID(ctx context.Context, orderID string) (*RenewalOrder, error)
	UpdateRenewalOrderStatus(ctx context.Context, orderID, status string) error
	// CancelRenewalOrderIfPending flips pending->cancelled; false when the
	// order was not pending.
	CancelRenewalOrderIfPending(ctx context.Context, orderID string) (bool, error)
	CompleteRenewalOrder(ctx context.Context, orderID, providerOrderID, providerResponse string) error
	MarkRenewalOrderProviderFailed(ctx context.Context, orderID, reason string) error
	ListPendingRenewalOrdersBefore(ctx context.Context, cutoff time.Time, limit int) ([]*RenewalOrder, error)

	CreatePaymentTransaction(ctx context.Context, tx *PaymentTransaction) error
	GetPaymentTransactionBySessionID(ctx context.Context, sessionID string) (*PaymentTransaction, error)
	GetPaymentTransactionByOrderID(ctx context.Context, orderID string) (*PaymentTransaction, error)
	// MarkPaymentTransactionPaid is the compare-and-set guarding provisioning:
	// pending->paid, true only for the caller that won the transition.
	MarkPaymentTransactionPaid(ctx context.Context, sessionID, chargeID string) (bool, error)
	FailPaymentTransaction(ctx context.Context, sessionID string) error
}

// OrderLocker serializes confirmPayment invocations per order. Different
// orders never share a lock.
type OrderLocker interface {
	WithOrderLock(ctx context.Context, orderID string, fn func() error) error
}

// renewalPayload is the resolved-bundle context stored on the order at
// creation time and consumed at provisioning time.
type renewalPayload struct {
	BundleName  string `json:"bundle_name"`
	PlanName    string `json:"plan_name"`
	CountryCode string `json:"country_code"`
	RenewalDays int    `json:"renewal_days"`
}

// providerFailure is stored on the order when provisioning fails after a
// successful payment.
type providerFailure struct {
	Error             string `json:"error"`
	PaymentSuccessful bool   `json:"payment_successful"`
}

// CreateRenewalRequest creates a renewal order.
type CreateRenewalRequest struct {
	ICCID           string
	Provider        string
	Amount          float64
	Currency        string
	PlanDescription string
	CountryCode     string
	RenewalDays     int
	CustomerEmail   string
}

// CreateRenewalResult is the caller-facing order-creation shape.
type CreateRenewalResult struct {
	OrderID     string  `json:"order_id"`
	Status      string  `json:"status"`
	CheckoutURL string  `json:"checkout_url"`
	SessionID   string  `json:"session_id"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
}

// ConfirmPaymentResult is the caller-facing confirm-payment shape.
// ProviderReason is populated only when Status is provider_failed.
type ConfirmPaymentResult struct {
	OrderID        string  `json:"order_id"`
	Status         string  `json:"status"`
	ICCID          string  `json:"iccid,omitempty"`
	Amount         float64 `json:"amount,omitempty"`
	Currency       string  `json:"currency,omitempty"`
	ProviderReason string  `json:"provider_reason,omitempty"`
}

// RenewalOrderUseCase owns the renewal order state machine:
//
//	PENDING -> PAID -> COMPLETED
//	PENDING -> CANCELLED | FAILED
//	PAID    -> PROVIDER_FAILED
//
// COMPLETED, CANCELLED, FAILED and PROVIDER_FAILED are terminal.
type RenewalOrderUseCase struct {
	repo     RenewalOrderRepo
	gateway  PaymentGateway
	catalog  *CatalogUseCase
	provider RenewalProviderClient
	locker   OrderLocker
	notifier Notifier // optional
	conf     *EsimConfig
	log      *log.Helper
	metrics  *metrics.EsimMetrics
}

// NewRenewalOrderUseCase creates the renewal order UseCase
func NewRenewalOrderUseCase(
	repo RenewalOrderRepo,
	gateway PaymentGateway,
	catalog *CatalogUseCase,
	provider RenewalProviderClient,
	locker OrderLocker,
	notifier Notifier,
	conf *EsimConfig,
	logger log.Logger,
) *RenewalOrderUseCase {
	return &RenewalOrderUseCase{
		repo:     repo,
		gateway:  gateway,
		catalog:  catalog,
		provider: provider,
		locker:   locker,
		notifier: notifier,
		conf:     conf,
		log:      log.NewHelper(logger),
		metrics:  metrics.GetMetrics(),
	}
}

// newOrderID generates a unique renewal order identifier, e.g. REN-3FA2B41C90DE.
func newOrderID() string {
	hex := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return constants.OrderIDPrefixRenewal + hex[:12]
}

// CreateRenewal matches the plan description against the provider catalog,
// creates the order and the checkout session, and returns the checkout URL.
// A failed match or a gateway failure leaves the order in FAILED with no
// dangling PENDING order; no payment objects exist for a failed match.
func (uc *RenewalOrderUseCase) CreateRenewal(ctx context.Context, req *CreateRenewalRequest) (*CreateRenewalResult, error) {
	startTime := time.Now()
	defer func() {
		if uc.metrics != nil {
			uc.metrics.RenewalDuration.WithLabelValues("create").Observe(time.Since(startTime).Seconds())
		}
	}()

	if req.Currency == "" {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, esimErrors.ErrCodeCurrencyRequired)
	}
	if req.Amount <= 0 {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, esimErrors.ErrCodeAmountInvalid)
	}
	provider := strings.ToUpper(req.Provider)
	if provider == "" {
		provider = uc.provider.Name()
	}
	if provider != uc.provider.Name() {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, esimErrors.ErrCodeProviderNotRenewable)
	}
	renewalDays := req.RenewalDays
	if renewalDays <= 0 {
		renewalDays = uc.conf.DefaultRenewalDays
	}

	orderID := newOrderID()

	// Match first: a plan we cannot resolve must never reach the gateway.
	bundle, err := uc.catalog.Match(ctx, req.PlanDescription, req.CountryCode)
	if err != nil {
		failed := &RenewalOrder{
			OrderID:       orderID,
			ICCID:         req.ICCID,
			Provider:      provider,
			Amount:        req.Amount,
			Currency:      req.Currency,
			Status:        constants.OrderStatusFailed,
			CustomerEmail: req.CustomerEmail,
		}
		if createErr := uc.repo.CreateRenewalOrder(ctx, failed); createErr != nil {
			uc.log.Errorf("CreateRenewalOrder (failed state) failed: order_id=%s, error=%v", orderID, createErr)
		}
		uc.countOrder(constants.OrderStatusFailed, req.Amount)
		return nil, err
	}

	payload, _ := json.Marshal(renewalPayload{
		BundleName:  bundle.Name,
		PlanName:    req.PlanDescription,
		CountryCode: req.CountryCode,
		RenewalDays: renewalDays,
	})
	order := &RenewalOrder{
		OrderID:          orderID,
		ICCID:            req.ICCID,
		Provider:         provider,
		Amount:           req.Amount,
		Currency:         req.Currency,
		Status:           constants.OrderStatusPending,
		ProviderResponse: string(payload),
		CustomerEmail:    req.CustomerEmail,
	}
	if err := uc.repo.CreateRenewalOrder(ctx, order); err != nil {
		uc.log.Errorf("CreateRenewalOrder failed: order_id=%s, error=%v", orderID, err)
		uc.countOrder(constants.OrderStatusFailed, req.Amount)
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, esimErrors.ErrCodeRenewalOrderCreateFailed)
	}

	session, err := uc.gateway.CreateCheckoutSession(ctx, &CreateCheckoutRequest{
		OrderID:     orderID,
		ICCID:       req.ICCID,
		Provider:    provider,
		PackageName: bundle.Description,
		Amount:      req.Amount,
		Currency:    req.Currency,
		SuccessURL:  uc.conf.SuccessURL,
		CancelURL:   uc.conf.CancelURL,
	})
	if err != nil {
		uc.log.Errorf("CreateCheckoutSession failed: order_id=%s, error=%v", orderID, err)
		uc.failPendingOrder(ctx, orderID)
		if uc.metrics != nil {
			uc.metrics.CheckoutSessionTotal.WithLabelValues(constants.ResultFailed).Inc()
		}
		uc.countOrder(constants.OrderStatusFailed, req.Amount)
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, esimErrors.ErrCodeCheckoutSessionCreateFailed)
	}
	if uc.metrics != nil {
		uc.metrics.CheckoutSessionTotal.WithLabelValues(constants.ResultSuccess).Inc()
	}

	if err := uc.repo.CreatePaymentTransaction(ctx, &PaymentTransaction{
		OrderID:   orderID,
		SessionID: session.SessionID,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Status:    constants.PaymentStatusPending,
	}); err != nil {
		// No order may sit in PENDING without a linked transaction.
		uc.log.Errorf("CreatePaymentTransaction failed: order_id=%s, session_id=%s, error=%v", orderID, session.SessionID, err)
		uc.failPendingOrder(ctx, orderID)
		uc.countOrder(constants.OrderStatusFailed, req.Amount)
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, esimErrors.ErrCodePaymentTransactionCreateFailed)
	}

	uc.countOrder(constants.OrderStatusPending, req.Amount)
	uc.log.Infof("Renewal order created: order_id=%s, iccid=%s, bundle=%s, session_id=%s",
		orderID, req.ICCID, bundle.Name, session.SessionID)
	return &CreateRenewalResult{
		OrderID:     orderID,
		Status:      constants.OrderStatusPending,
		CheckoutURL: session.CheckoutURL,
		SessionID:   session.SessionID,
		Amount:      req.Amount,
		Currency:    req.Currency,
	}, nil
}

// ConfirmPayment verifies the checkout session and, exactly once per order,
// drives the paid order through provider provisioning. It is safe to call
// repeatedly and concurrently for the same session: unpaid sessions are a
// no-op, terminal orders return their stored result, and the PAID->provisioning
// transition is guarded by the per-order lock plus the transaction CAS.
func (uc *RenewalOrderUseCase) ConfirmPayment(ctx context.Context, sessionID string) (*ConfirmPaymentResult, error) {
	startTime := time.Now()
	defer func() {
		if uc.metrics != nil {
			uc.metrics.RenewalDuration.WithLabelValues("confirm").Observe(time.Since(startTime).Seconds())
		}
	}()

	tx, err := uc.repo.GetPaymentTransactionBySessionID(ctx, sessionID)
	if err != nil {
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, esimErrors.ErrCodePaymentTransactionGetFailed)
	}
	if tx == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, esimErrors.ErrCodePaymentTransactionNotFound)
	}
	order, err := uc.repo.GetRenewalOrderByID(ctx, tx.OrderID)
	if err != nil {
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, esimErrors.ErrCodeRenewalOrderGetFailed)
	}
	if order == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, esimErrors.ErrCodeRenewalOrderNotFound)
	}

	// Terminal orders: return the stored result, no provider or gateway calls.
	if isTerminal(order.Status) {
		return uc.resultFor(order), nil
	}

	session, err := uc.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		uc.log.Errorf("RetrieveSession failed: session_id=%s, error=%v", sessionID, err)
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, esimErrors.ErrCodeCheckoutSessionRetrieveFailed)
	}
	if !session.Paid {
		// Polled before payment completed: no side effects.
		return uc.resultFor(order), nil
	}

	var result *ConfirmPaymentResult
	lockErr := uc.withOrderLock(ctx, order.OrderID, func() error {
		won, err := uc.repo.MarkPaymentTransactionPaid(ctx, sessionID, session.ChargeID)
		if err != nil {
			return pkgErrors.WrapErrorWithLang(ctx, err, esimErrors.ErrCodePaymentTransactionUpdateFailed)
		}
		if !won {
			// A concurrent confirm already took (or finished) provisioning.
			current, err := uc.repo.GetRenewalOrderByID(ctx, order.OrderID)
			if err != nil {
				return pkgErrors.WrapErrorWithLang(ctx, err, esimErrors.ErrCodeRenewalOrderGetFailed)
			}
			if current != nil {
				order = current
			}
			result = uc.resultFor(order)
			return nil
		}

		// The CAS is won and payment is captured: from here the order must
		// reach a terminal state. A failed paid-status write is logged and
		// provisioning proceeds; the terminal write below supersedes it.
		if err := uc.repo.UpdateRenewalOrderStatus(ctx, order.OrderID, constants.OrderStatusPaid); err != nil {
			uc.log.Errorf("UpdateRenewalOrderStatus(paid) failed: order_id=%s, error=%v", order.OrderID, err)
		}
		uc.log.Infof("Order marked as paid: order_id=%s, session_id=%s", order.OrderID, sessionID)
		uc.countOrder(constants.OrderStatusPaid, order.Amount)

		result = uc.provision(ctx, order)
		return nil
	})
	if lockErr != nil {
		return nil, lockErr
	}
	return result, nil
}

// provision places the provider order for a paid renewal. Payment is already
// captured: a provider failure moves the order to PROVIDER_FAILED for manual
// remediation and is reported explicitly, never as success and never as a
// pre-payment failure. The core does not retry and does not refund.
func (uc *RenewalOrderUseCase) provision(ctx context.Context, order *RenewalOrder) *ConfirmPaymentResult {
	var payload renewalPayload
	if err := json.Unmarshal([]byte(order.ProviderResponse), &payload); err != nil || payload.BundleName == "" {
		reason := "order has no resolved bundle payload"
		uc.log.Errorf("provisioning aborted: order_id=%s, %s", order.OrderID, reason)
		uc.markProviderFailed(ctx, order, reason)
		return &ConfirmPaymentResult{
			OrderID:        order.OrderID,
			Status:         constants.OrderStatusProviderFailed,
			ICCID:          order.ICCID,
			Amount:         order.Amount,
			Currency:       order.Currency,
			ProviderReason: reason,
		}
	}

	uc.log.Infof("Placing provider order: order_id=%s, bundle=%s, iccid=%s", order.OrderID, payload.BundleName, order.ICCID)
	providerOrder, err := uc.provider.PlaceOrder(ctx, payload.BundleName, order.ICCID)
	if err != nil {
		uc.log.Errorf("Provider order failed after payment: order_id=%s, error=%v. Manual processing required.", order.OrderID, err)
		if uc.metrics != nil {
			uc.metrics.ProvisioningTotal.WithLabelValues(constants.ResultFailed).Inc()
		}
		uc.markProviderFailed(ctx, order, err.Error())
		return &ConfirmPaymentResult{
			OrderID:        order.OrderID,
			Status:         constants.OrderStatusProviderFailed,
			ICCID:          order.ICCID,
			Amount:         order.Amount,
			Currency:       order.Currency,
			ProviderReason: err.Error(),
		}
	}

	if err := uc.repo.CompleteRenewalOrder(ctx, order.OrderID, providerOrder.OrderReference, providerOrder.Payload); err != nil {
		// Provisioning happened; surface the order as completed and let the
		// reconciliation trail catch the stale row.
		uc.log.Errorf("CompleteRenewalOrder failed: order_id=%s, error=%v", order.OrderID, err)
	}
	if uc.metrics != nil {
		uc.metrics.ProvisioningTotal.WithLabelValues(constants.ResultSuccess).Inc()
	}
	uc.countOrder(constants.OrderStatusCompleted, order.Amount)
	uc.log.Infof("Renewal completed: order_id=%s, provider_order=%s", order.OrderID, providerOrder.OrderReference)

	// Verify the assignment the provider created for this order. Read-only;
	// a failed lookup leaves the completed order as is.
	if details, err := uc.provider.FetchOrderDetails(ctx, providerOrder.OrderReference); err != nil {
		uc.log.Warnf("provider order details fetch failed: order_id=%s, reference=%s, error=%v",
			order.OrderID, providerOrder.OrderReference, err)
	} else {
		uc.log.Infof("provider assignment verified: order_id=%s, reference=%s, iccid=%s, status=%s",
			order.OrderID, providerOrder.OrderReference, details.ICCID, details.Status)
	}

	if uc.notifier != nil && order.CustomerEmail != "" {
		if err := uc.notifier.SendRenewalConfirmation(ctx, order, payload.PlanName, order.CustomerEmail); err != nil {
			uc.log.Warnf("renewal confirmation email failed: order_id=%s, error=%v", order.OrderID, err)
		}
	}

	return &ConfirmPaymentResult{
		OrderID:  order.OrderID,
		Status:   constants.OrderStatusCompleted,
		ICCID:    order.ICCID,
		Amount:   order.Amount,
		Currency: order.Currency,
	}
}

// CancelOrder cancels a pending order (checkout abandoned). Terminal orders
// are left untouched.
func (uc *RenewalOrderUseCase) CancelOrder(ctx context.Context, orderID string) error {
	ok, err := uc.repo.CancelRenewalOrderIfPending(ctx, orderID)
	if err != nil {
		return pkgErrors.WrapErrorWithLang(ctx, err, esimErrors.ErrCodeRenewalOrderUpdateFailed)
	}
	if !ok {
		order, err := uc.repo.GetRenewalOrderByID(ctx, orderID)
		if err != nil {
			return pkgErrors.WrapErrorWithLang(ctx, err, esimErrors.ErrCodeRenewalOrderGetFailed)
		}
		if order == nil {
			return pkgErrors.NewBizErrorWithLang(ctx, esimErrors.ErrCodeRenewalOrderNotFound)
		}
		if order.Status == constants.OrderStatusCancelled {
			return nil
		}
		return pkgErrors.NewBizErrorWithLang(ctx, esimErrors.ErrCodeRenewalNotCancellable)
	}

	if tx, err := uc.repo.GetPaymentTransactionByOrderID(ctx, orderID); err == nil && tx != nil {
		if err := uc.repo.FailPaymentTransaction(ctx, tx.SessionID); err != nil {
			uc.log.Warnf("FailPaymentTransaction failed: order_id=%s, error=%v", orderID, err)
		}
	}
	uc.countOrder(constants.OrderStatusCancelled, 0)
	uc.log.Infof("Renewal order cancelled: order_id=%s", orderID)
	return nil
}

// GetOrder returns a renewal order by id.
func (uc *RenewalOrderUseCase) GetOrder(ctx context.Context, orderID string) (*RenewalOrder, error) {
	order, err := uc.repo.GetRenewalOrderByID(ctx, orderID)
	if err != nil {
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, esimErrors.ErrCodeRenewalOrderGetFailed)
	}
	if order == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, esimErrors.ErrCodeRenewalOrderNotFound)
	}
	return order, nil
}

// ListPackages surfaces the renewal provider's catalog for a country.
func (uc *RenewalOrderUseCase) ListPackages(ctx context.Context, countryCode string) ([]*Bundle, error) {
	return uc.catalog.ListBundles(ctx, countryCode)
}

// ReconcilePending sweeps stale pending orders: sessions that got paid without
// the client ever confirming go through the normal idempotent confirm path;
// sessions unpaid past the checkout expiry cancel the order. Returns the
// number of orders acted on.
func (uc *RenewalOrderUseCase) ReconcilePending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	startTime := time.Now()
	defer func() {
		if uc.metrics != nil {
			uc.metrics.RenewalDuration.WithLabelValues("reconcile").Observe(time.Since(startTime).Seconds())
		}
	}()

	cutoff := time.Now().Add(-olderThan)
	orders, err := uc.repo.ListPendingRenewalOrdersBefore(ctx, cutoff, limit)
	if err != nil {
		return 0, pkgErrors.WrapErrorWithLang(ctx, err, esimErrors.ErrCodeRenewalOrderGetFailed)
	}

	acted := 0
	for _, order := range orders {
		tx, err := uc.repo.GetPaymentTransactionByOrderID(ctx, order.OrderID)
		if err != nil {
			uc.log.Errorf("reconcile: transaction lookup failed: order_id=%s, error=%v", order.OrderID, err)
			continue
		}
		if tx == nil {
			// Creation was interrupted between order and transaction writes.
			if err := uc.CancelOrder(ctx, order.OrderID); err == nil {
				acted++
			}
			continue
		}

		session, err := uc.gateway.RetrieveSession(ctx, tx.SessionID)
		if err != nil {
			uc.log.Warnf("reconcile: RetrieveSession failed: order_id=%s, session_id=%s, error=%v", order.OrderID, tx.SessionID, err)
			continue
		}
		switch {
		case session.Paid:
			if _, err := uc.ConfirmPayment(ctx, tx.SessionID); err != nil {
				uc.log.Errorf("reconcile: ConfirmPayment failed: order_id=%s, error=%v", order.OrderID, err)
				continue
			}
			acted++
		case time.Since(order.CreatedAt) > uc.conf.CheckoutExpiry:
			if err := uc.CancelOrder(ctx, order.OrderID); err != nil {
				uc.log.Errorf("reconcile: CancelOrder failed: order_id=%s, error=%v", order.OrderID, err)
				continue
			}
			acted++
		}
	}
	if acted > 0 {
		uc.log.Infof("Reconciled %d pending renewal orders", acted)
	}
	return acted, nil
}

// withOrderLock runs fn under the per-order mutex when a locker is wired, and
// degrades to the repo-level CAS alone otherwise.
func (uc *RenewalOrderUseCase) withOrderLock(ctx context.Context, orderID string, fn func() error) error {
	if uc.locker == nil {
		return fn()
	}
	return uc.locker.WithOrderLock(ctx, orderID, fn)
}

// failPendingOrder flips a just-created order to FAILED after a setup error.
func (uc *RenewalOrderUseCase) failPendingOrder(ctx context.Context, orderID string) {
	if err := uc.repo.UpdateRenewalOrderStatus(ctx, orderID, constants.OrderStatusFailed); err != nil {
		uc.log.Errorf("UpdateRenewalOrderStatus(failed) failed: order_id=%s, error=%v", orderID, err)
	}
}

func (uc *RenewalOrderUseCase) markProviderFailed(ctx context.Context, order *RenewalOrder, reason string) {
	if err := uc.repo.MarkRenewalOrderProviderFailed(ctx, order.OrderID, reason); err != nil {
		uc.log.Errorf("MarkRenewalOrderProviderFailed failed: order_id=%s, error=%v", order.OrderID, err)
	}
	uc.countOrder(constants.OrderStatusProviderFailed, order.Amount)
}

// resultFor builds the caller-facing shape for an order's current state,
// resurfacing the stored provisioning failure reason for PROVIDER_FAILED.
func (uc *RenewalOrderUseCase) resultFor(order *RenewalOrder) *ConfirmPaymentResult {
	result := &ConfirmPaymentResult{
		OrderID:  order.OrderID,
		Status:   order.Status,
		ICCID:    order.ICCID,
		Amount:   order.Amount,
		Currency: order.Currency,
	}
	if order.Status == constants.OrderStatusProviderFailed {
		var failure providerFailure
		if err := json.Unmarshal([]byte(order.ProviderResponse), &failure); err == nil && failure.Error != "" {
			result.ProviderReason = failure.Error
		} else {
			result.ProviderReason = order.ProviderResponse
		}
		if result.ProviderReason == "" {
			result.ProviderReason = "provider provisioning failed"
		}
	}
	return result
}

func (uc *RenewalOrderUseCase) countOrder(status string, amount float64) {
	if uc.metrics == nil {
		return
	}
	uc.metrics.RenewalOrderTotal.WithLabelValues(status).Inc()
	if amount > 0 {
		uc.metrics.RenewalAmount.WithLabelValues(status).Add(amount)
	}
}

// isTerminal reports whether an order status admits no further transitions.
func isTerminal(status string) bool {
	switch status {
	case constants.OrderStatusCompleted,
		constants.OrderStatusCancelled,
		constants.OrderStatusFailed,
		constants.OrderStatusProviderFailed:
		return true
	}
	return false
}
