package model

import (
	"time"

	"esim-service/internal/constants"
)

// Renewal order status constants (reference the constants package values)
const (
	RenewalStatusPending        = constants.OrderStatusPending
	RenewalStatusPaid           = constants.OrderStatusPaid
	RenewalStatusCompleted      = constants.OrderStatusCompleted
	RenewalStatusCancelled      = constants.OrderStatusCancelled
	RenewalStatusFailed         = constants.OrderStatusFailed
	RenewalStatusProviderFailed = constants.OrderStatusProviderFailed
)

// RenewalOrder is the renewal order table. Rows are append-only in identity:
// status transitions mutate the row, nothing ever deletes it.
type RenewalOrder struct {
	OrderID          string     `gorm:"primaryKey;type:varchar(64)"`
	ICCID            string     `gorm:"column:iccid;type:varchar(32);not null;index"`
	Provider         string     `gorm:"type:varchar(32);not null"`
	Amount           float64    `gorm:"type:decimal(10,2);not null"`
	Currency         string     `gorm:"type:varchar(8);not null"`
	Status           string     `gorm:"type:enum('pending','paid','completed','cancelled','failed','provider_failed');not null;default:'pending';index"`
	ProviderOrderID  string     `gorm:"type:varchar(64)"` // upstream order reference, set on completion
	ProviderResponse string     `gorm:"type:text"`        // opaque JSON: bundle payload, then provider result or failure
	CustomerEmail    string     `gorm:"type:varchar(255)"`
	CreatedAt        time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime"`
	CompletedAt      *time.Time `gorm:""`
}

// TableName sets the table name
func (RenewalOrder) TableName() string {
	return "renewal_order"
}
