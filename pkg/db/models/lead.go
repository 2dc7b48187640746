package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/boostcv/backend/pkg/enums"
)

// Lead is a captured prospect keyed by email. Gateway reference ids are
// filled in once a subscription is created; only the webhook reconciler
// moves a lead to active.
type Lead struct {
	ID                  uuid.UUID        `gorm:"type:uuid;primaryKey"`
	Email               string           `gorm:"column:email;not null;unique"`
	FullName            string           `gorm:"column:full_name;not null"`
	Phone               *string          `gorm:"column:phone"`
	ResumeData          json.RawMessage  `gorm:"column:resume_data;type:jsonb"`
	Status              enums.LeadStatus `gorm:"column:status;not null;default:'captured'"`
	AsaasCustomerID     *string          `gorm:"column:asaas_customer_id;index"`
	AsaasSubscriptionID *string          `gorm:"column:asaas_subscription_id;index"`
	CreatedAt           time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName maps Lead onto the boost_leads table.
func (Lead) TableName() string {
	return "boost_leads"
}
