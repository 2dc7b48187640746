package coupons

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/boostcv/backend/internal/downloads"
	"github.com/boostcv/backend/pkg/db/models"
	pkgerrors "github.com/boostcv/backend/pkg/errors"
	"github.com/boostcv/backend/pkg/logger"
)

// TxRunner executes a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Validation is the read-only answer for a coupon lookup.
type Validation struct {
	Valid           bool
	DiscountPercent int
	Message         string
}

// Redemption is a successful coupon spend: the discount applied and a fresh
// single-use download token minted for the caller.
type Redemption struct {
	Token           downloads.Token
	DiscountPercent int
}

// ServiceParams groups dependencies for the coupon ledger service.
type ServiceParams struct {
	Tx        TxRunner
	Coupons   Repository
	Downloads downloads.Repository
	Logger    *logger.Logger
}

// Service owns coupon validation and redemption. Redemption is the only
// writer of current_uses.
type Service struct {
	tx        TxRunner
	coupons   Repository
	downloads downloads.Repository
	logger    *logger.Logger
}

// NewService wires the coupon ledger service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Coupons == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if params.Downloads == nil {
		return nil, fmt.Errorf("downloads repository required")
	}
	return &Service{
		tx:        params.Tx,
		coupons:   params.Coupons,
		downloads: params.Downloads,
		logger:    params.Logger,
	}, nil
}

// Validate answers whether a code is currently redeemable without spending
// it. Codes are matched case-insensitively after trimming.
func (s *Service) Validate(ctx context.Context, code string) (*Validation, error) {
	coupon, err := s.coupons.FindByCode(ctx, normalizeCode(code))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	if coupon == nil {
		return &Validation{Valid: false, Message: "coupon not found"}, nil
	}
	if !coupon.Active {
		return &Validation{Valid: false, Message: "coupon is no longer active"}, nil
	}
	if coupon.MaxUses != nil && coupon.CurrentUses >= *coupon.MaxUses {
		return &Validation{Valid: false, Message: "coupon usage limit reached"}, nil
	}
	return &Validation{
		Valid:           true,
		DiscountPercent: coupon.DiscountPercent,
		Message:         "coupon applied",
	}, nil
}

// Redeem spends one use of the coupon and mints a single-use download token.
// The usage increment, the audit row, and the token row commit together; a
// coupon at its cap fails with LIMIT_EXCEEDED and writes nothing.
func (s *Service) Redeem(ctx context.Context, code string, metadata json.RawMessage) (*Redemption, error) {
	normalized := normalizeCode(code)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	var redemption *Redemption
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		couponRepo := s.coupons.WithTx(tx)
		downloadRepo := s.downloads.WithTx(tx)

		coupon, err := couponRepo.FindByCode(ctx, normalized)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
		}
		if coupon == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		if !coupon.Active {
			return pkgerrors.New(pkgerrors.CodeValidation, "coupon is no longer active")
		}

		won, err := couponRepo.TryIncrementUsage(ctx, coupon.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment coupon usage")
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeLimitExceeded, "coupon usage limit reached").
				WithDetails(map[string]any{"code": normalized})
		}

		if err := couponRepo.CreateUsage(ctx, &models.CouponUsage{
			CouponID: coupon.ID,
			Metadata: metadata,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record coupon usage")
		}

		token := downloads.LocalToken(uuid.NewString())
		if err := downloadRepo.Create(ctx, &models.PaymentDownload{
			ID:            token.Value,
			DownloadCount: 0,
			MaxDownloads:  1,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mint download token")
		}

		redemption = &Redemption{Token: token, DiscountPercent: coupon.DiscountPercent}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info(s.logger.WithCouponCode(ctx, normalized), "coupon redeemed")
	}
	return redemption, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
