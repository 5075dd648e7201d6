package service

import (
	"context"
	"time"

	"esim-service/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
)

// EsimService is the transport-facing facade over the status, catalog and
// renewal use cases.
type EsimService struct {
	status  *biz.StatusUseCase
	renewal *biz.RenewalOrderUseCase
	log     *log.Helper
}

// NewEsimService creates the EsimService
func NewEsimService(status *biz.StatusUseCase, renewal *biz.RenewalOrderUseCase, logger log.Logger) *EsimService {
	return &EsimService{
		status:  status,
		renewal: renewal,
		log:     log.NewHelper(logger),
	}
}

// GetEsimStatusReply is the status check response.
type GetEsimStatusReply struct {
	*biz.EsimStatus
}

// GetEsimStatus checks all providers for an ICCID and returns the freshest
// record.
func (s *EsimService) GetEsimStatus(ctx context.Context, iccid string) (*GetEsimStatusReply, error) {
	status, err := s.status.Check(ctx, iccid)
	if err != nil {
		s.log.Errorf("GetEsimStatus failed: iccid=%s, error=%v", iccid, err)
		return nil, err
	}
	return &GetEsimStatusReply{EsimStatus: status}, nil
}

// ListPackagesReply is the renewal package listing response.
type ListPackagesReply struct {
	Country  string        `json:"country"`
	Packages []*biz.Bundle `json:"packages"`
}

// ListPackages lists the renewal bundles available for a country.
func (s *EsimService) ListPackages(ctx context.Context, countryCode string) (*ListPackagesReply, error) {
	bundles, err := s.renewal.ListPackages(ctx, countryCode)
	if err != nil {
		s.log.Errorf("ListPackages failed: country=%s, error=%v", countryCode, err)
		return nil, err
	}
	return &ListPackagesReply{Country: countryCode, Packages: bundles}, nil
}

// CreateRenewalRequest is the renewal creation request body.
type CreateRenewalRequest struct {
	ICCID           string  `json:"iccid"`
	Provider        string  `json:"provider"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	PlanDescription string  `json:"plan_description"`
	CountryCode     string  `json:"country_code"`
	RenewalDays     int     `json:"renewal_days"`
	CustomerEmail   string  `json:"customer_email"`
}

// CreateRenewal creates a renewal order and returns the checkout URL.
func (s *EsimService) CreateRenewal(ctx context.Context, req *CreateRenewalRequest) (*biz.CreateRenewalResult, error) {
	result, err := s.renewal.CreateRenewal(ctx, &biz.CreateRenewalRequest{
		ICCID:           req.ICCID,
		Provider:        req.Provider,
		Amount:          req.Amount,
		Currency:        req.Currency,
		PlanDescription: req.PlanDescription,
		CountryCode:     req.CountryCode,
		RenewalDays:     req.RenewalDays,
		CustomerEmail:   req.CustomerEmail,
	})
	if err != nil {
		s.log.Errorf("CreateRenewal failed: iccid=%s, error=%v", req.ICCID, err)
		return nil, err
	}
	return result, nil
}

// ConfirmPaymentRequest is the payment confirmation request body.
type ConfirmPaymentRequest struct {
	SessionID string `json:"session_id"`
}

// ConfirmPayment verifies a checkout session and completes the renewal.
func (s *EsimService) ConfirmPayment(ctx context.Context, req *ConfirmPaymentRequest) (*biz.ConfirmPaymentResult, error) {
	result, err := s.renewal.ConfirmPayment(ctx, req.SessionID)
	if err != nil {
		s.log.Errorf("ConfirmPayment failed: session_id=%s, error=%v", req.SessionID, err)
		return nil, err
	}
	return result, nil
}

// CancelOrderReply is the cancellation response.
type CancelOrderReply struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// CancelOrder cancels a pending renewal order.
func (s *EsimService) CancelOrder(ctx context.Context, orderID string) (*CancelOrderReply, error) {
	if err := s.renewal.CancelOrder(ctx, orderID); err != nil {
		s.log.Errorf("CancelOrder failed: order_id=%s, error=%v", orderID, err)
		return nil, err
	}
	return &CancelOrderReply{OrderID: orderID, Status: "cancelled"}, nil
}

// GetOrderReply is the order lookup response.
type GetOrderReply struct {
	OrderID         string     `json:"order_id"`
	ICCID           string     `json:"iccid"`
	Provider        string     `json:"provider"`
	Amount          float64    `json:"amount"`
	Currency        string     `json:"currency"`
	Status          string     `json:"status"`
	ProviderOrderID string     `json:"provider_order_id,omitempty"`
	CustomerEmail   string     `json:"customer_email,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// GetOrder returns a renewal order by id.
func (s *EsimService) GetOrder(ctx context.Context, orderID string) (*GetOrderReply, error) {
	order, err := s.renewal.GetOrder(ctx, orderID)
	if err != nil {
		s.log.Errorf("GetOrder failed: order_id=%s, error=%v", orderID, err)
		return nil, err
	}
	return &GetOrderReply{
		OrderID:         order.OrderID,
		ICCID:           order.ICCID,
		Provider:        order.Provider,
		Amount:          order.Amount,
		Currency:        order.Currency,
		Status:          order.Status,
		ProviderOrderID: order.ProviderOrderID,
		CustomerEmail:   order.CustomerEmail,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
		CompletedAt:     order.CompletedAt,
	}, nil
}
