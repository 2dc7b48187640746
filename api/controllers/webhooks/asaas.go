package webhooks

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/boostcv/backend/api/responses"
	asaaswebhook "github.com/boostcv/backend/internal/webhooks/asaas"
	pkgerrors "github.com/boostcv/backend/pkg/errors"
	"github.com/boostcv/backend/pkg/logger"
)

const asaasTokenHeader = "asaas-access-token"

// AsaasWebhookService reconciles gateway payment events.
type AsaasWebhookService interface {
	HandleEvent(ctx context.Context, event *asaaswebhook.Event) error
}

// WebhookTokenSource supplies the shared secret expected on deliveries.
type WebhookTokenSource interface {
	WebhookToken() string
}

// AsaasWebhook handles Asaas payment confirmation deliveries. When a webhook
// token is configured, deliveries missing it are rejected before decoding.
func AsaasWebhook(svc AsaasWebhookService, tokens WebhookTokenSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		if tokens != nil {
			if expected := tokens.WebhookToken(); expected != "" {
				if r.Header.Get(asaasTokenHeader) != expected {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook token"))
					return
				}
			}
		}

		// Gateway payloads carry many fields beyond the ones used here, so
		// the strict body decoder does not apply.
		var event asaaswebhook.Event
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode webhook payload"))
			return
		}

		if err := svc.HandleEvent(ctx, &event); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{"received": true})
	}
}
