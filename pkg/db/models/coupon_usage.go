package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CouponUsage is an append-only audit row recorded per redemption.
type CouponUsage struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CouponID  uuid.UUID       `gorm:"column:coupon_id;type:uuid;not null;index"`
	Metadata  json.RawMessage `gorm:"column:metadata;type:jsonb"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// TableName maps CouponUsage onto the coupon_usages table.
func (CouponUsage) TableName() string {
	return "coupon_usages"
}
