package models

import "time"

// PaymentDownload records download entitlement per authorization token.
// The primary key is the token itself: a gateway payment id for paid flows
// or a locally generated UUID for coupon and free flows. Rows are never
// deleted; the counter is the audit trail.
type PaymentDownload struct {
	ID             string     `gorm:"column:id;primaryKey"`
	DownloadCount  int        `gorm:"column:download_count;not null;default:0"`
	MaxDownloads   int        `gorm:"column:max_downloads;not null;default:1"`
	LastDownloadAt *time.Time `gorm:"column:last_download_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName maps PaymentDownload onto the payment_downloads table.
func (PaymentDownload) TableName() string {
	return "payment_downloads"
}
