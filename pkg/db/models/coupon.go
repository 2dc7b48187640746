package models

import (
	"time"

	"github.com/google/uuid"
)

// Coupon is a discount code with an optional redemption cap.
type Coupon struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Code            string    `gorm:"column:code;not null;unique"`
	Active          bool      `gorm:"column:active;not null;default:true"`
	DiscountPercent int       `gorm:"column:discount_percent;not null"`
	MaxUses         *int      `gorm:"column:max_uses"`
	CurrentUses     int       `gorm:"column:current_uses;not null;default:0"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName maps Coupon onto the coupons table.
func (Coupon) TableName() string {
	return "coupons"
}
