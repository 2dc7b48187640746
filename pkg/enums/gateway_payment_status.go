package enums

// GatewayPaymentStatus is the raw status string reported by the Asaas API.
type GatewayPaymentStatus string

const (
	GatewayPaymentStatusPending   GatewayPaymentStatus = "PENDING"
	GatewayPaymentStatusReceived  GatewayPaymentStatus = "RECEIVED"
	GatewayPaymentStatusConfirmed GatewayPaymentStatus = "CONFIRMED"
	GatewayPaymentStatusOverdue   GatewayPaymentStatus = "OVERDUE"
	GatewayPaymentStatusRefunded  GatewayPaymentStatus = "REFUNDED"
)

// String implements fmt.Stringer.
func (g GatewayPaymentStatus) String() string {
	return string(g)
}

// IsConfirmed reports whether the status is one of the two terminal success
// codes. Everything else, OVERDUE and PENDING included, must be re-polled.
func (g GatewayPaymentStatus) IsConfirmed() bool {
	return g == GatewayPaymentStatusReceived || g == GatewayPaymentStatusConfirmed
}
