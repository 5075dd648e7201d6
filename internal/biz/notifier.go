package biz

import "context"

// Notifier sends the customer-facing renewal confirmation. Delivery is
// best-effort; a failed notification never changes order state.
type Notifier interface {
	SendRenewalConfirmation(ctx context.Context, order *RenewalOrder, packageName, recipient string) error
}
