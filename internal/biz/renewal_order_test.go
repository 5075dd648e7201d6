package biz

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"esim-service/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryOrderRepo is a mutex-guarded in-memory RenewalOrderRepo with the same
// conditional-update semantics as the database implementation.
type memoryOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*RenewalOrder
	txs    map[string]*PaymentTransaction // keyed by session id
}

func newMemoryOrderRepo() *memoryOrderRepo {
	return &memoryOrderRepo{
		orders: map[string]*RenewalOrder{},
		txs:    map[string]*PaymentTransaction{},
	}
}

func (r *memoryOrderRepo) CreateRenewalOrder(ctx context.Context, order *RenewalOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *order
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.orders[order.OrderID] = &cp
	return nil
}

func (r *memoryOrderRepo) GetRenewalOrderByID(ctx context.Context, orderID string) (*RenewalOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r *memoryOrderRepo) UpdateRenewalOrderStatus(ctx context.Context, orderID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[orderID]; ok {
		o.Status = status
		o.UpdatedAt = time.Now()
	}
	return nil
}

func (r *memoryOrderRepo) CancelRenewalOrderIfPending(ctx context.Context, orderID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok || o.Status != constants.OrderStatusPending {
		return false, nil
	}
	o.Status = constants.OrderStatusCancelled
	return true, nil
}

func (r *memoryOrderRepo) CompleteRenewalOrder(ctx context.Context, orderID, providerOrderID, providerResponse string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[orderID]; ok {
		now := time.Now()
		o.Status = constants.OrderStatusCompleted
		o.ProviderOrderID = providerOrderID
		o.ProviderResponse = providerResponse
		o.CompletedAt = &now
	}
	return nil
}

func (r *memoryOrderRepo) MarkRenewalOrderProviderFailed(ctx context.Context, orderID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[orderID]; ok {
		o.Status = constants.OrderStatusProviderFailed
		o.ProviderResponse = fmt.Sprintf(`{"error":%q,"payment_successful":true}`, reason)
	}
	return nil
}

func (r *memoryOrderRepo) ListPendingRenewalOrdersBefore(ctx context.Context, cutoff time.Time, limit int) ([]*RenewalOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*RenewalOrder
	for _, o := range r.orders {
		if o.Status == constants.OrderStatusPending && o.CreatedAt.Before(cutoff) {
			cp := *o
			out = append(out, &cp)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *memoryOrderRepo) CreatePaymentTransaction(ctx context.Context, tx *PaymentTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *tx
	cp.CreatedAt = time.Now()
	r.txs[tx.SessionID] = &cp
	return nil
}

func (r *memoryOrderRepo) GetPaymentTransactionBySessionID(ctx context.Context, sessionID string) (*PaymentTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *tx
	return &cp, nil
}

func (r *memoryOrderRepo) GetPaymentTransactionByOrderID(ctx context.Context, orderID string) (*PaymentTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.txs {
		if tx.OrderID == orderID {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memoryOrderRepo) MarkPaymentTransactionPaid(ctx context.Context, sessionID, chargeID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[sessionID]
	if !ok || tx.Status != constants.PaymentStatusPending {
		return false, nil
	}
	now := time.Now()
	tx.Status = constants.PaymentStatusPaid
	tx.ChargeID = chargeID
	tx.CompletedAt = &now
	return true, nil
}

func (r *memoryOrderRepo) FailPaymentTransaction(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tx, ok := r.txs[sessionID]; ok && tx.Status == constants.PaymentStatusPending {
		tx.Status = constants.PaymentStatusFailed
	}
	return nil
}

// fakeGateway is a scriptable PaymentGateway.
type fakeGateway struct {
	mu        sync.Mutex
	createErr error
	sessions  map[string]bool // session id -> paid
	nextID    int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: map[string]bool{}}
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, req *CreateCheckoutRequest) (*CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.nextID++
	id := fmt.Sprintf("cs_test_%d", g.nextID)
	g.sessions[id] = false
	return &CheckoutSession{SessionID: id, CheckoutURL: "https://checkout.test/" + id}, nil
}

func (g *fakeGateway) RetrieveSession(ctx context.Context, sessionID string) (*SessionStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	paid, ok := g.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("unknown session %s", sessionID)
	}
	status := &SessionStatus{SessionID: sessionID, Paid: paid}
	if paid {
		status.ChargeID = "pi_" + sessionID
	}
	return status, nil
}

func (g *fakeGateway) pay(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[sessionID] = true
}

// localLocker serializes per order with in-process mutexes.
type localLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLocalLocker() *localLocker {
	return &localLocker{locks: map[string]*sync.Mutex{}}
}

func (l *localLocker) WithOrderLock(ctx context.Context, orderID string, fn func() error) error {
	l.mu.Lock()
	m, ok := l.locks[orderID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[orderID] = m
	}
	l.mu.Unlock()
	m.Lock()
	defer m.Unlock()
	return fn()
}

type renewalFixture struct {
	uc       *RenewalOrderUseCase
	repo     *memoryOrderRepo
	gateway  *fakeGateway
	provider *fakeRenewalProvider
}

func newRenewalFixture(t *testing.T) *renewalFixture {
	t.Helper()
	repo := newMemoryOrderRepo()
	gateway := newFakeGateway()
	provider := &fakeRenewalProvider{name: constants.ProviderTravelRoam, bundles: turkeyCatalog()}
	conf := testStatusConfig()
	catalog := NewCatalogUseCase(provider, nil, conf, testLogger())
	uc := NewRenewalOrderUseCase(repo, gateway, catalog, provider, newLocalLocker(), nil, conf, testLogger())
	return &renewalFixture{uc: uc, repo: repo, gateway: gateway, provider: provider}
}

func validCreateRequest() *CreateRenewalRequest {
	return &CreateRenewalRequest{
		ICCID:           "89000000000000000001",
		Provider:        constants.ProviderTravelRoam,
		Amount:          4.9,
		Currency:        "USD",
		PlanDescription: "eSIM, 1GB, 7 Days, Turkey, V2",
		CountryCode:     "TR",
		RenewalDays:     7,
	}
}

func TestCreateRenewalHappyPath(t *testing.T) {
	f := newRenewalFixture(t)

	result, err := f.uc.CreateRenewal(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, constants.OrderStatusPending, result.Status)
	assert.NotEmpty(t, result.CheckoutURL)
	assert.NotEmpty(t, result.SessionID)
	assert.Contains(t, result.OrderID, constants.OrderIDPrefixRenewal)

	order, err := f.repo.GetRenewalOrderByID(context.Background(), result.OrderID)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, constants.OrderStatusPending, order.Status)
	assert.Contains(t, order.ProviderResponse, "esimp_1GB_7D_TR_V2")

	tx, err := f.repo.GetPaymentTransactionBySessionID(context.Background(), result.SessionID)
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, constants.PaymentStatusPending, tx.Status)
	assert.Equal(t, result.OrderID, tx.OrderID)
}

func TestCreateRenewalValidation(t *testing.T) {
	f := newRenewalFixture(t)

	req := validCreateRequest()
	req.Currency = ""
	_, err := f.uc.CreateRenewal(context.Background(), req)
	assert.Error(t, err)

	req = validCreateRequest()
	req.Amount = 0
	_, err = f.uc.CreateRenewal(context.Background(), req)
	assert.Error(t, err)

	req = validCreateRequest()
	req.Provider = constants.ProviderAirHub
	_, err = f.uc.CreateRenewal(context.Background(), req)
	assert.Error(t, err)

	assert.Empty(t, f.repo.orders, "validation failures must not create orders")
}

func TestCreateRenewalNoMatchLeavesFailedOrderWithoutPayment(t *testing.T) {
	f := newRenewalFixture(t)

	req := validCreateRequest()
	req.PlanDescription = "Turkey 99GB 99 Days"
	_, err := f.uc.CreateRenewal(context.Background(), req)
	require.Error(t, err)

	require.Len(t, f.repo.orders, 1)
	for _, order := range f.repo.orders {
		assert.Equal(t, constants.OrderStatusFailed, order.Status)
	}
	assert.Empty(t, f.repo.txs, "a failed match must not create payment objects")
	assert.Empty(t, f.gateway.sessions, "a failed match must never reach the gateway")
}

func TestCreateRenewalGatewayFailureFailsOrder(t *testing.T) {
	f := newRenewalFixture(t)
	f.gateway.createErr = fmt.Errorf("gateway down")

	_, err := f.uc.CreateRenewal(context.Background(), validCreateRequest())
	require.Error(t, err)

	require.Len(t, f.repo.orders, 1)
	for _, order := range f.repo.orders {
		assert.Equal(t, constants.OrderStatusFailed, order.Status)
	}
	assert.Empty(t, f.repo.txs)
}

func TestConfirmPaymentCompletesOrder(t *testing.T) {
	f := newRenewalFixture(t)

	created, err := f.uc.CreateRenewal(context.Background(), validCreateRequest())
	require.NoError(t, err)
	f.gateway.pay(created.SessionID)

	result, err := f.uc.ConfirmPayment(context.Background(), created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, constants.OrderStatusCompleted, result.Status)
	assert.Equal(t, 1, f.provider.placedCalls)
	assert.Equal(t, "esimp_1GB_7D_TR_V2", f.provider.lastBundle)
	assert.Equal(t, "89000000000000000001", f.provider.lastICCID)
	assert.Equal(t, 1, f.provider.detailCalls, "the created assignment is verified")
	assert.Equal(t, "TR-REF-1", f.provider.lastOrderID)

	order, _ := f.repo.GetRenewalOrderByID(context.Background(), created.OrderID)
	assert.Equal(t, constants.OrderStatusCompleted, order.Status)
	assert.Equal(t, "TR-REF-1", order.ProviderOrderID)
	assert.NotNil(t, order.CompletedAt)

	tx, _ := f.repo.GetPaymentTransactionBySessionID(context.Background(), created.SessionID)
	assert.Equal(t, constants.PaymentStatusPaid, tx.Status)
	assert.NotEmpty(t, tx.ChargeID)
}

// flakyOrderRepo fails a configurable number of status writes before
// delegating to the in-memory repo.
type flakyOrderRepo struct {
	*memoryOrderRepo
	mu                  sync.Mutex
	statusWriteFailures int
}

func (r *flakyOrderRepo) UpdateRenewalOrderStatus(ctx context.Context, orderID, status string) error {
	r.mu.Lock()
	if r.statusWriteFailures > 0 {
		r.statusWriteFailures--
		r.mu.Unlock()
		return fmt.Errorf("status write lost")
	}
	r.mu.Unlock()
	return r.memoryOrderRepo.UpdateRenewalOrderStatus(ctx, orderID, status)
}

func TestConfirmPaymentCompletesDespiteLostPaidStatusWrite(t *testing.T) {
	repo := &flakyOrderRepo{memoryOrderRepo: newMemoryOrderRepo(), statusWriteFailures: 1}
	gateway := newFakeGateway()
	provider := &fakeRenewalProvider{name: constants.ProviderTravelRoam, bundles: turkeyCatalog()}
	conf := testStatusConfig()
	catalog := NewCatalogUseCase(provider, nil, conf, testLogger())
	uc := NewRenewalOrderUseCase(repo, gateway, catalog, provider, newLocalLocker(), nil, conf, testLogger())

	created, err := uc.CreateRenewal(context.Background(), validCreateRequest())
	require.NoError(t, err)
	gateway.pay(created.SessionID)

	// The payment capture wins even though the paid-status write is lost.
	// Provisioning must still run and the order must reach a terminal state.
	result, err := uc.ConfirmPayment(context.Background(), created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, constants.OrderStatusCompleted, result.Status)
	assert.Equal(t, 1, provider.placedCalls)

	order, _ := repo.GetRenewalOrderByID(context.Background(), created.OrderID)
	assert.Equal(t, constants.OrderStatusCompleted, order.Status)

	// Repeated confirms observe the terminal state and do not re-provision.
	again, err := uc.ConfirmPayment(context.Background(), created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, constants.OrderStatusCompleted, again.Status)
	assert.Equal(t, 1, provider.placedCalls)
}

func TestConfirmPaymentUnpaidIsNoOp(t *testing.T) {
	f := newRenewalFixture(t)

	created, err := f.uc.CreateRenewal(context.Background(), validCreateRequest())
	require.NoError(t, err)

	result, err := f.uc.ConfirmPayment(context.Background(), created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, constants.OrderStatusPending, result.Status)
	assert.Zero(t, f.provider.placedCalls, "unpaid sessions must not provision")
}

func TestConfirmPaymentUnknownSession(t *testing.T) {
	f := newRenewalFixture(t)

	_, err := f.uc.ConfirmPayment(context.Background(), "cs_missing")
	assert.Error(t, err)
}

func TestConfirmPaymentProvisionsAtMostOnce(t *testing.T) {
	f := newRenewalFixture(t)

	created, err := f.uc.CreateRenewal(context.Background(), validCreateRequest())
	require.NoError(t, err)
	f.gateway.pay(created.SessionID)

	const confirms = 8
	var wg sync.WaitGroup
	results := make([]*ConfirmPaymentResult, confirms)
	errs := make([]error, confirms)
	for i := 0; i < confirms; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.uc.ConfirmPayment(context.Background(), created.SessionID)
		}(i)
	}
	wg.Wait()

	for i := 0; i < confirms; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, constants.OrderStatusCompleted, results[i].Status)
	}
	assert.Equal(t, 1, f.provider.placedCalls, "provisioning must happen exactly once")
}

func TestConfirmPaymentRepeatAfterCompletionIsStable(t *testing.T) {
	f := newRenewalFixture(t)

	created, err := f.uc.CreateRenewal(context.Background(), validCreateRequest())
	require.NoError(t, err)
	f.gateway.pay(created.SessionID)

	first, err := f.uc.ConfirmPayment(context.Background(), created.SessionID)
	require.NoError(t, err)
	second, err := f.uc.ConfirmPayment(context.Background(), created.SessionID)
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, 1, f.provider.placedCalls)
}

func TestConfirmPaymentProviderFailure(t *testing.T) {
	f := newRenewalFixture(t)
	f.provider.orderErr = NewUpstreamError(constants.ProviderTravelRoam, UpstreamHTTP, fmt.Errorf("bundle sold out"))

	created, err := f.uc.CreateRenewal(context.Background(), validCreateRequest())
	require.NoError(t, err)
	f.gateway.pay(created.SessionID)

	result, err := f.uc.ConfirmPayment(context.Background(), created.SessionID)
	require.NoError(t, err, "a provider failure after payment is reported in the result, not as an error")
	assert.Equal(t, constants.OrderStatusProviderFailed, result.Status)
	assert.NotEmpty(t, result.ProviderReason)

	order, _ := f.repo.GetRenewalOrderByID(context.Background(), created.OrderID)
	assert.Equal(t, constants.OrderStatusProviderFailed, order.Status)

	// Payment stays captured; remediation is manual, never an automatic refund.
	tx, _ := f.repo.GetPaymentTransactionBySessionID(context.Background(), created.SessionID)
	assert.Equal(t, constants.PaymentStatusPaid, tx.Status)

	// A later confirm resurfaces the stored failure without retrying upstream.
	again, err := f.uc.ConfirmPayment(context.Background(), created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, constants.OrderStatusProviderFailed, again.Status)
	assert.Equal(t, "bundle sold out", mustExtractReasonSuffix(again.ProviderReason))
	assert.Equal(t, 1, f.provider.placedCalls)
}

// mustExtractReasonSuffix strips the provider/kind prefix from a classified
// upstream error string.
func mustExtractReasonSuffix(reason string) string {
	for i := len(reason) - 1; i >= 0; i-- {
		if reason[i] == ':' {
			return reason[i+2:]
		}
	}
	return reason
}

func TestCancelOrder(t *testing.T) {
	f := newRenewalFixture(t)

	created, err := f.uc.CreateRenewal(context.Background(), validCreateRequest())
	require.NoError(t, err)

	require.NoError(t, f.uc.CancelOrder(context.Background(), created.OrderID))
	order, _ := f.repo.GetRenewalOrderByID(context.Background(), created.OrderID)
	assert.Equal(t, constants.OrderStatusCancelled, order.Status)

	tx, _ := f.repo.GetPaymentTransactionBySessionID(context.Background(), created.SessionID)
	assert.Equal(t, constants.PaymentStatusFailed, tx.Status)

	// Cancelling again is idempotent.
	require.NoError(t, f.uc.CancelOrder(context.Background(), created.OrderID))
}

func TestCancelOrderRejectsTerminalStates(t *testing.T) {
	f := newRenewalFixture(t)

	created, err := f.uc.CreateRenewal(context.Background(), validCreateRequest())
	require.NoError(t, err)
	f.gateway.pay(created.SessionID)
	_, err = f.uc.ConfirmPayment(context.Background(), created.SessionID)
	require.NoError(t, err)

	err = f.uc.CancelOrder(context.Background(), created.OrderID)
	assert.Error(t, err, "completed orders are not cancellable")
}

func TestCancelOrderUnknown(t *testing.T) {
	f := newRenewalFixture(t)
	assert.Error(t, f.uc.CancelOrder(context.Background(), "REN-MISSING"))
}

func TestReconcilePendingConfirmsPaidAndCancelsExpired(t *testing.T) {
	f := newRenewalFixture(t)
	f.uc.conf.CheckoutExpiry = 10 * time.Millisecond

	paidOrder, err := f.uc.CreateRenewal(context.Background(), validCreateRequest())
	require.NoError(t, err)
	f.gateway.pay(paidOrder.SessionID)

	staleOrder, err := f.uc.CreateRenewal(context.Background(), validCreateRequest())
	require.NoError(t, err)

	// Age both orders past the sweep cutoff and the checkout expiry.
	f.repo.mu.Lock()
	for _, o := range f.repo.orders {
		o.CreatedAt = time.Now().Add(-time.Hour)
	}
	f.repo.mu.Unlock()

	acted, err := f.uc.ReconcilePending(context.Background(), time.Minute, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, acted)

	confirmed, _ := f.repo.GetRenewalOrderByID(context.Background(), paidOrder.OrderID)
	assert.Equal(t, constants.OrderStatusCompleted, confirmed.Status)

	cancelled, _ := f.repo.GetRenewalOrderByID(context.Background(), staleOrder.OrderID)
	assert.Equal(t, constants.OrderStatusCancelled, cancelled.Status)
}

func TestGetOrder(t *testing.T) {
	f := newRenewalFixture(t)

	created, err := f.uc.CreateRenewal(context.Background(), validCreateRequest())
	require.NoError(t, err)

	order, err := f.uc.GetOrder(context.Background(), created.OrderID)
	require.NoError(t, err)
	assert.Equal(t, created.OrderID, order.OrderID)

	_, err = f.uc.GetOrder(context.Background(), "REN-MISSING")
	assert.Error(t, err)
}
