package biz

import "context"

// PaymentGateway is the hosted-checkout gateway contract. The core depends
// only on this interface; the Stripe implementation lives in the data layer.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req *CreateCheckoutRequest) (*CheckoutSession, error)
	// RetrieveSession is read-only and safe to repeat.
	RetrieveSession(ctx context.Context, sessionID string) (*SessionStatus, error)
}

// CreateCheckoutRequest creates a hosted checkout session. OrderID travels as
// opaque session metadata so a webhook-independent caller can correlate the
// session back to a renewal order.
type CreateCheckoutRequest struct {
	OrderID     string
	ICCID       string
	Provider    string
	PackageName string
	Amount      float64 // major units; converted to minor units at the gateway boundary
	Currency    string
	SuccessURL  string
	CancelURL   string
}

// CheckoutSession is a created hosted-checkout session.
type CheckoutSession struct {
	SessionID   string
	CheckoutURL string
}

// SessionStatus is the paid/unpaid state of a checkout session.
type SessionStatus struct {
	SessionID string
	Paid      bool
	ChargeID  string // populated only after capture
}
