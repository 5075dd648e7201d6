package data

import (
	"context"
	"math"
	"strings"

	"esim-service/internal/biz"
	"esim-service/internal/conf"
	esimErrors "esim-service/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// stripeGateway is the hosted-checkout implementation of biz.PaymentGateway.
type stripeGateway struct {
	api *client.API
	log *log.Helper
}

// NewStripeGateway creates the Stripe gateway (returns the biz.PaymentGateway interface)
func NewStripeGateway(c *conf.Bootstrap, logger log.Logger) (biz.PaymentGateway, error) {
	if c.Stripe == nil || c.Stripe.SecretKey == "" {
		return nil, pkgErrors.NewBizErrorWithLang(context.Background(), esimErrors.ErrCodePaymentGatewayUnavailable)
	}

	api := &client.API{}
	api.Init(c.Stripe.SecretKey, nil)

	return &stripeGateway{
		api: api,
		log: log.NewHelper(logger),
	}, nil
}

// CreateCheckoutSession creates a hosted checkout session for one renewal.
// Amounts cross this boundary in major units and are billed in minor units.
func (g *stripeGateway) CreateCheckoutSession(ctx context.Context, req *biz.CreateCheckoutRequest) (*biz.CheckoutSession, error) {
	name := req.PackageName
	if name == "" {
		name = "eSIM Renewal"
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(strings.ToLower(req.Currency)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String("eSIM Renewal: " + name),
						Description: stripe.String("Renewal for ICCID " + req.ICCID),
					},
					UnitAmount: stripe.Int64(toMinorUnits(req.Amount)),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.Context = ctx
	params.AddMetadata("order_id", req.OrderID)
	params.AddMetadata("iccid", req.ICCID)
	params.AddMetadata("provider", req.Provider)
	params.AddMetadata("package_name", req.PackageName)

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		g.log.Errorf("stripe checkout session create failed: order_id=%s, error=%v", req.OrderID, err)
		return nil, err
	}

	g.log.Infof("stripe checkout session created: order_id=%s, session_id=%s", req.OrderID, sess.ID)
	return &biz.CheckoutSession{
		SessionID:   sess.ID,
		CheckoutURL: sess.URL,
	}, nil
}

// RetrieveSession reads the paid/unpaid state of a session. Read-only.
func (g *stripeGateway) RetrieveSession(ctx context.Context, sessionID string) (*biz.SessionStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, err
	}

	status := &biz.SessionStatus{
		SessionID: sess.ID,
		Paid:      sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
	}
	if sess.PaymentIntent != nil {
		status.ChargeID = sess.PaymentIntent.ID
	}
	return status, nil
}

// toMinorUnits converts a major-unit amount to gateway minor units.
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
