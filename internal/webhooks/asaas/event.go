package asaaswebhook

import "github.com/boostcv/backend/pkg/enums"

// Event is the delivery envelope Asaas posts to the webhook endpoint.
type Event struct {
	ID      string                 `json:"id"`
	Type    enums.WebhookEventType `json:"event"`
	Payment *PaymentPayload        `json:"payment"`
}

// PaymentPayload is the payment snapshot embedded in the event. Subscription
// is empty for one-off charges.
type PaymentPayload struct {
	ID           string `json:"id"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
	Status       string `json:"status"`
}
