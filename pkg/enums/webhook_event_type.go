package enums

// WebhookEventType is the event discriminator pushed by the Asaas webhook.
type WebhookEventType string

const (
	WebhookEventPaymentReceived  WebhookEventType = "PAYMENT_RECEIVED"
	WebhookEventPaymentConfirmed WebhookEventType = "PAYMENT_CONFIRMED"
)

// String implements fmt.Stringer.
func (w WebhookEventType) String() string {
	return string(w)
}

// IsConfirmation reports whether the event flips a lead to active. Any other
// event kind is acknowledged without action.
func (w WebhookEventType) IsConfirmation() bool {
	return w == WebhookEventPaymentReceived || w == WebhookEventPaymentConfirmed
}
