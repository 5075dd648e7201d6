package model

import (
	"time"

	"esim-service/internal/constants"
)

// Payment transaction status constants
const (
	PaymentStatusPending  = constants.PaymentStatusPending
	PaymentStatusPaid     = constants.PaymentStatusPaid
	PaymentStatusFailed   = constants.PaymentStatusFailed
	PaymentStatusRefunded = constants.PaymentStatusRefunded
)

// PaymentTransaction is the payment attempt table, 1:1 with a renewal order.
// The pending->paid transition is a conditional update and doubles as the
// idempotency guard for provisioning.
type PaymentTransaction struct {
	SessionID   string     `gorm:"primaryKey;type:varchar(128)"` // gateway checkout session id
	OrderID     string     `gorm:"type:varchar(64);not null;uniqueIndex"`
	ChargeID    string     `gorm:"type:varchar(128)"`
	Amount      float64    `gorm:"type:decimal(10,2);not null"`
	Currency    string     `gorm:"type:varchar(8);not null"`
	Status      string     `gorm:"type:enum('pending','paid','failed','refunded');not null;default:'pending'"`
	CreatedAt   time.Time  `gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime"`
	CompletedAt *time.Time `gorm:""`
}

// TableName sets the table name
func (PaymentTransaction) TableName() string {
	return "payment_transaction"
}
