package data

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"esim-service/internal/biz"
	"esim-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// renewalOrderRepo renewal order and payment transaction data access
type renewalOrderRepo struct {
	data *Data
	log  *log.Helper
}

// NewRenewalOrderRepo creates the renewal order repo (returns the biz.RenewalOrderRepo interface)
func NewRenewalOrderRepo(data *Data, logger log.Logger) biz.RenewalOrderRepo {
	return &renewalOrderRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// CreateRenewalOrder inserts a new renewal order row
func (r *renewalOrderRepo) CreateRenewalOrder(ctx context.Context, order *biz.RenewalOrder) error {
	m := model.RenewalOrder{
		OrderID:          order.OrderID,
		ICCID:            order.ICCID,
		Provider:         order.Provider,
		Amount:           order.Amount,
		Currency:         order.Currency,
		Status:           order.Status,
		ProviderResponse: order.ProviderResponse,
		CustomerEmail:    order.CustomerEmail,
	}
	if m.Status == "" {
		m.Status = model.RenewalStatusPending
	}
	return r.data.db.WithContext(ctx).Create(&m).Error
}

// GetRenewalOrderByID looks up a renewal order by its id. A missing order is
// (nil, nil), not an error.
func (r *renewalOrderRepo) GetRenewalOrderByID(ctx context.Context, orderID string) (*biz.RenewalOrder, error) {
	var m model.RenewalOrder
	if err := r.data.db.WithContext(ctx).Where("order_id = ?", orderID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toBizRenewalOrder(&m), nil
}

// UpdateRenewalOrderStatus updates the order status
func (r *renewalOrderRepo) UpdateRenewalOrderStatus(ctx context.Context, orderID, status string) error {
	return r.data.db.WithContext(ctx).Model(&model.RenewalOrder{}).
		Where("order_id = ?", orderID).
		Update("status", status).Error
}

// CancelRenewalOrderIfPending flips pending->cancelled as a single conditional
// update. Returns false when the order was not pending (or does not exist).
func (r *renewalOrderRepo) CancelRenewalOrderIfPending(ctx context.Context, orderID string) (bool, error) {
	res := r.data.db.WithContext(ctx).Model(&model.RenewalOrder{}).
		Where("order_id = ? AND status = ?", orderID, model.RenewalStatusPending).
		Update("status", model.RenewalStatusCancelled)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CompleteRenewalOrder records a successful provisioning
func (r *renewalOrderRepo) CompleteRenewalOrder(ctx context.Context, orderID, providerOrderID, providerResponse string) error {
	now := time.Now()
	return r.data.db.WithContext(ctx).Model(&model.RenewalOrder{}).
		Where("order_id = ?", orderID).
		Updates(map[string]interface{}{
			"status":            model.RenewalStatusCompleted,
			"provider_order_id": providerOrderID,
			"provider_response": providerResponse,
			"completed_at":      &now,
		}).Error
}

// MarkRenewalOrderProviderFailed records a post-payment provisioning failure.
// The stored payload keeps the payment fact next to the failure reason so an
// operator sees both at once.
func (r *renewalOrderRepo) MarkRenewalOrderProviderFailed(ctx context.Context, orderID, reason string) error {
	payload, _ := json.Marshal(map[string]interface{}{
		"error":              reason,
		"payment_successful": true,
	})
	return r.data.db.WithContext(ctx).Model(&model.RenewalOrder{}).
		Where("order_id = ?", orderID).
		Updates(map[string]interface{}{
			"status":            model.RenewalStatusProviderFailed,
			"provider_response": string(payload),
		}).Error
}

// ListPendingRenewalOrdersBefore returns pending orders created before cutoff,
// oldest first.
func (r *renewalOrderRepo) ListPendingRenewalOrdersBefore(ctx context.Context, cutoff time.Time, limit int) ([]*biz.RenewalOrder, error) {
	var ms []model.RenewalOrder
	q := r.data.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", model.RenewalStatusPending, cutoff).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&ms).Error; err != nil {
		return nil, err
	}
	orders := make([]*biz.RenewalOrder, 0, len(ms))
	for i := range ms {
		orders = append(orders, toBizRenewalOrder(&ms[i]))
	}
	return orders, nil
}

// CreatePaymentTransaction inserts a payment transaction row
func (r *renewalOrderRepo) CreatePaymentTransaction(ctx context.Context, tx *biz.PaymentTransaction) error {
	m := model.PaymentTransaction{
		SessionID: tx.SessionID,
		OrderID:   tx.OrderID,
		Amount:    tx.Amount,
		Currency:  tx.Currency,
		Status:    tx.Status,
	}
	if m.Status == "" {
		m.Status = model.PaymentStatusPending
	}
	return r.data.db.WithContext(ctx).Create(&m).Error
}

// GetPaymentTransactionBySessionID looks up a transaction by checkout session id
func (r *renewalOrderRepo) GetPaymentTransactionBySessionID(ctx context.Context, sessionID string) (*biz.PaymentTransaction, error) {
	var m model.PaymentTransaction
	if err := r.data.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toBizPaymentTransaction(&m), nil
}

// GetPaymentTransactionByOrderID looks up the transaction linked to an order
func (r *renewalOrderRepo) GetPaymentTransactionByOrderID(ctx context.Context, orderID string) (*biz.PaymentTransaction, error) {
	var m model.PaymentTransaction
	if err := r.data.db.WithContext(ctx).Where("order_id = ?", orderID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toBizPaymentTransaction(&m), nil
}

// MarkPaymentTransactionPaid is the pending->paid compare-and-set. Exactly one
// caller per session observes true; later callers (and retries) get false.
func (r *renewalOrderRepo) MarkPaymentTransactionPaid(ctx context.Context, sessionID, chargeID string) (bool, error) {
	now := time.Now()
	res := r.data.db.WithContext(ctx).Model(&model.PaymentTransaction{}).
		Where("session_id = ? AND status = ?", sessionID, model.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":       model.PaymentStatusPaid,
			"charge_id":    chargeID,
			"completed_at": &now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// FailPaymentTransaction flips a still-pending transaction to failed
func (r *renewalOrderRepo) FailPaymentTransaction(ctx context.Context, sessionID string) error {
	return r.data.db.WithContext(ctx).Model(&model.PaymentTransaction{}).
		Where("session_id = ? AND status = ?", sessionID, model.PaymentStatusPending).
		Update("status", model.PaymentStatusFailed).Error
}

func toBizRenewalOrder(m *model.RenewalOrder) *biz.RenewalOrder {
	return &biz.RenewalOrder{
		OrderID:          m.OrderID,
		ICCID:            m.ICCID,
		Provider:         m.Provider,
		Amount:           m.Amount,
		Currency:         m.Currency,
		Status:           m.Status,
		ProviderOrderID:  m.ProviderOrderID,
		ProviderResponse: m.ProviderResponse,
		CustomerEmail:    m.CustomerEmail,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
		CompletedAt:      m.CompletedAt,
	}
}

func toBizPaymentTransaction(m *model.PaymentTransaction) *biz.PaymentTransaction {
	return &biz.PaymentTransaction{
		OrderID:     m.OrderID,
		SessionID:   m.SessionID,
		ChargeID:    m.ChargeID,
		Amount:      m.Amount,
		Currency:    m.Currency,
		Status:      m.Status,
		CreatedAt:   m.CreatedAt,
		CompletedAt: m.CompletedAt,
	}
}
