package downloads

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/boostcv/backend/pkg/db/models"
)

// Repository manages persistence for download authorizations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Find(ctx context.Context, id string) (*models.PaymentDownload, error)
	Create(ctx context.Context, record *models.PaymentDownload) error
	// TryIncrement bumps the download counter only while it is below the
	// maximum, reporting whether this call won the increment. The check and
	// the write are a single conditional UPDATE so concurrent callers cannot
	// both pass a stale read.
	TryIncrement(ctx context.Context, id string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a download ledger repository bound to the database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Find(ctx context.Context, id string) (*models.PaymentDownload, error) {
	var record models.PaymentDownload
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repository) Create(ctx context.Context, record *models.PaymentDownload) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) TryIncrement(ctx context.Context, id string) (bool, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&models.PaymentDownload{}).
		Where("id = ? AND download_count < max_downloads", id).
		Updates(map[string]any{
			"download_count":   gorm.Expr("download_count + 1"),
			"last_download_at": now,
			"updated_at":       now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
