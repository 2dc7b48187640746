package downloads

import (
	"context"
	"fmt"

	"github.com/boostcv/backend/pkg/asaas"
	"github.com/boostcv/backend/pkg/db"
	"github.com/boostcv/backend/pkg/db/models"
	pkgerrors "github.com/boostcv/backend/pkg/errors"
	"github.com/boostcv/backend/pkg/logger"
)

// StatusGetter is the slice of the gateway client the ledger needs.
type StatusGetter interface {
	GetPaymentStatus(ctx context.Context, paymentID string) (*asaas.PaymentStatus, error)
}

// Decision is the outcome of an authorization attempt. Watermarked is the
// fail-closed default: only an explicit grant clears it.
type Decision struct {
	Authorized  bool
	Watermarked bool
	Reason      string
}

var denied = Decision{Authorized: false, Watermarked: true}

// ServiceParams groups dependencies for the download ledger service.
type ServiceParams struct {
	Repo    Repository
	Gateway StatusGetter
	Logger  *logger.Logger
}

// Service decides whether a presented token entitles the caller to the
// clean artifact, and is the sole writer of the download counter.
type Service struct {
	repo    Repository
	gateway StatusGetter
	logger  *logger.Logger
}

// NewService wires the download ledger service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("downloads repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("gateway status getter required")
	}
	return &Service{
		repo:    params.Repo,
		gateway: params.Gateway,
		logger:  params.Logger,
	}, nil
}

// Authorize runs the ledger state machine for one download attempt.
//
// An exhausted record is terminal. Gateway tokens require a confirmed
// settlement before any row is written; local tokens require a row minted
// earlier by the coupon ledger, so presenting an arbitrary UUID buys
// nothing. Grants go through a conditional increment (or a guarded insert
// for first-time gateway confirmations) so two racing calls produce exactly
// one grant.
func (s *Service) Authorize(ctx context.Context, token Token) (Decision, error) {
	if token.Value == "" {
		return denied, nil
	}

	record, err := s.repo.Find(ctx, token.Value)
	if err != nil {
		return denied, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load download record")
	}
	if record != nil && record.DownloadCount >= record.MaxDownloads {
		return Decision{Authorized: false, Watermarked: true, Reason: "download limit reached"}, nil
	}

	switch token.Kind {
	case KindGateway:
		return s.authorizeGateway(ctx, token.Value, record)
	case KindLocal:
		return s.authorizeLocal(ctx, token.Value, record)
	default:
		return denied, nil
	}
}

func (s *Service) authorizeGateway(ctx context.Context, paymentID string, record *models.PaymentDownload) (Decision, error) {
	status, err := s.gateway.GetPaymentStatus(ctx, paymentID)
	if err != nil {
		return denied, err
	}
	if !status.Confirmed {
		return Decision{
			Authorized:  false,
			Watermarked: true,
			Reason:      fmt.Sprintf("payment not confirmed (status %s)", status.Status),
		}, nil
	}

	if record == nil {
		created := &models.PaymentDownload{
			ID:            paymentID,
			DownloadCount: 1,
			MaxDownloads:  1,
		}
		if err := s.repo.Create(ctx, created); err != nil {
			// A concurrent first download already inserted the row and
			// consumed the grant.
			if db.IsUniqueViolation(err, "") {
				s.warn(ctx, "concurrent first download lost insert race")
				return Decision{Authorized: false, Watermarked: true, Reason: "download limit reached"}, nil
			}
			return denied, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create download record")
		}
		return Decision{Authorized: true, Watermarked: false}, nil
	}

	return s.tryGrant(ctx, paymentID)
}

func (s *Service) authorizeLocal(ctx context.Context, id string, record *models.PaymentDownload) (Decision, error) {
	if record == nil {
		return Decision{Authorized: false, Watermarked: true, Reason: "unknown download token"}, nil
	}
	return s.tryGrant(ctx, id)
}

func (s *Service) tryGrant(ctx context.Context, id string) (Decision, error) {
	won, err := s.repo.TryIncrement(ctx, id)
	if err != nil {
		return denied, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment download counter")
	}
	if !won {
		return Decision{Authorized: false, Watermarked: true, Reason: "download limit reached"}, nil
	}
	return Decision{Authorized: true, Watermarked: false}, nil
}

func (s *Service) warn(ctx context.Context, msg string) {
	if s.logger == nil {
		return
	}
	s.logger.Warn(ctx, msg)
}
