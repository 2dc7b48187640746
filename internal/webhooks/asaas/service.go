package asaaswebhook

import (
	"context"

	"github.com/boostcv/backend/internal/leads"
	"github.com/boostcv/backend/pkg/db/models"
	"github.com/boostcv/backend/pkg/enums"
	pkgerrors "github.com/boostcv/backend/pkg/errors"
	"github.com/boostcv/backend/pkg/logger"
)

// eventGuard dedups deliveries by event id.
type eventGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// ServiceParams groups dependencies for the webhook reconciler.
type ServiceParams struct {
	Leads  leads.Repository
	Guard  eventGuard
	Logger *logger.Logger
}

// Service reconciles gateway payment confirmations onto leads. It is the
// only writer of the active lead status.
type Service struct {
	leads  leads.Repository
	guard  eventGuard
	logger *logger.Logger
}

// NewService wires the webhook reconciler.
func NewService(params ServiceParams) (*Service, error) {
	if params.Leads == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "leads repository required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	return &Service{
		leads:  params.Leads,
		guard:  params.Guard,
		logger: params.Logger,
	}, nil
}

// HandleEvent processes one webhook delivery. Non-confirmation events and
// events that match no lead are acknowledged without action; the gateway
// retries on anything but a 2xx, so only structural problems return errors.
func (s *Service) HandleEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event payload required")
	}
	if !event.Type.IsConfirmation() {
		s.info(ctx, "ignoring webhook event", map[string]any{"event_type": event.Type.String()})
		return nil
	}
	if event.Payment == nil || event.Payment.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "confirmation event missing payment payload")
	}

	if event.ID != "" {
		duplicate, err := s.guard.CheckAndMark(ctx, event.ID)
		if err != nil {
			// Redis being down must not drop confirmations; the reconcile
			// below is idempotent on its own.
			s.warn(ctx, "idempotency guard unavailable", map[string]any{"error": err.Error()})
		} else if duplicate {
			s.info(ctx, "duplicate webhook delivery acknowledged", map[string]any{"event_id": event.ID})
			return nil
		}
	}

	if err := s.activateLead(ctx, event); err != nil {
		if event.ID != "" {
			if delErr := s.guard.Delete(ctx, event.ID); delErr != nil {
				s.warn(ctx, "failed to release idempotency mark", map[string]any{"error": delErr.Error()})
			}
		}
		return err
	}
	return nil
}

func (s *Service) activateLead(ctx context.Context, event *Event) error {
	lead, err := s.findLead(ctx, event.Payment)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup lead for webhook")
	}
	if lead == nil {
		s.warn(ctx, "webhook payment matches no lead", map[string]any{
			"payment_id":      event.Payment.ID,
			"customer_id":     event.Payment.Customer,
			"subscription_id": event.Payment.Subscription,
		})
		return nil
	}
	if lead.Status == enums.LeadStatusActive {
		return nil
	}

	lead.Status = enums.LeadStatusActive
	if err := s.leads.Update(ctx, lead); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "activate lead")
	}

	s.info(s.logCtx(ctx, lead.ID.String()), "lead activated by payment confirmation", map[string]any{
		"payment_id": event.Payment.ID,
	})
	return nil
}

// findLead resolves the event to a lead by subscription id first, then by
// customer id. One-off charges carry no subscription reference.
func (s *Service) findLead(ctx context.Context, payment *PaymentPayload) (lead *models.Lead, err error) {
	if payment.Subscription != "" {
		lead, err = s.leads.FindBySubscriptionID(ctx, payment.Subscription)
		if err != nil || lead != nil {
			return lead, err
		}
	}
	if payment.Customer != "" {
		return s.leads.FindByCustomerID(ctx, payment.Customer)
	}
	return nil, nil
}

func (s *Service) logCtx(ctx context.Context, leadID string) context.Context {
	if s.logger == nil {
		return ctx
	}
	return s.logger.WithLeadID(ctx, leadID)
}

func (s *Service) info(ctx context.Context, msg string, fields map[string]any) {
	if s.logger == nil {
		return
	}
	s.logger.Info(s.logger.WithFields(ctx, fields), msg)
}

func (s *Service) warn(ctx context.Context, msg string, fields map[string]any) {
	if s.logger == nil {
		return
	}
	s.logger.Warn(s.logger.WithFields(ctx, fields), msg)
}
