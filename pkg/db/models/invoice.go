package models

import (
	"time"

	"github.com/google/uuid"
)

// Invoice marks that billing paperwork was issued for a confirmed payment.
// At most one row exists per gateway payment id.
type Invoice struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	PaymentID   string    `gorm:"column:payment_id;not null;unique"`
	AmountCents int64     `gorm:"column:amount_cents;not null"`
	IssuedAt    time.Time `gorm:"column:issued_at;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName maps Invoice onto the invoices table.
func (Invoice) TableName() string {
	return "invoices"
}
