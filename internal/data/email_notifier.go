package data

import (
	"context"
	"fmt"

	"esim-service/internal/biz"
	"esim-service/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"gopkg.in/gomail.v2"
)

// emailNotifier sends the renewal confirmation mail over SMTP.
type emailNotifier struct {
	dialer *gomail.Dialer
	from   string
	log    *log.Helper
}

// NewEmailNotifier creates the SMTP notifier (returns the biz.Notifier
// interface). Returns nil when email is disabled; the order flow treats a nil
// notifier as "no notifications".
func NewEmailNotifier(c *conf.Bootstrap, logger log.Logger) biz.Notifier {
	if c.Email == nil || !c.Email.Enabled || c.Email.Host == "" {
		return nil
	}
	return &emailNotifier{
		dialer: gomail.NewDialer(c.Email.Host, c.Email.Port, c.Email.Username, c.Email.Password),
		from:   c.Email.From,
		log:    log.NewHelper(logger),
	}
}

// SendRenewalConfirmation mails the completed-renewal summary to the customer.
func (n *emailNotifier) SendRenewalConfirmation(ctx context.Context, order *biz.RenewalOrder, packageName, recipient string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", fmt.Sprintf("eSIM Renewal Confirmed - Order %s", order.OrderID))
	m.SetBody("text/plain", fmt.Sprintf(
		"Your eSIM renewal is complete.\n\n"+
			"Order ID: %s\n"+
			"ICCID: %s\n"+
			"Plan: %s\n"+
			"Amount: %.2f %s\n\n"+
			"Your plan is active again. Thank you.\n",
		order.OrderID, order.ICCID, packageName, order.Amount, order.Currency,
	))

	if err := n.dialer.DialAndSend(m); err != nil {
		return err
	}
	n.log.Infof("renewal confirmation sent: order_id=%s, recipient=%s", order.OrderID, recipient)
	return nil
}
