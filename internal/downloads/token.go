package downloads

import "strings"

// gatewayIDPrefix is the structural prefix Asaas stamps on payment ids.
const gatewayIDPrefix = "pay_"

// Kind discriminates who issued a download token.
type Kind string

const (
	// KindGateway marks tokens issued by the payment gateway; settlement is
	// confirmed against the gateway before any grant.
	KindGateway Kind = "gateway"
	// KindLocal marks tokens minted locally for coupon and free flows; a
	// pre-existing ledger row is the only proof of entitlement.
	KindLocal Kind = "local"
)

// Token is a download authorization identifier tagged with its origin. The
// kind is decided exactly once, at the boundary where the raw string enters
// the system, and carried through typed parameters from there on.
type Token struct {
	Kind  Kind
	Value string
}

// GatewayToken tags a gateway-issued payment id.
func GatewayToken(paymentID string) Token {
	return Token{Kind: KindGateway, Value: paymentID}
}

// LocalToken tags a locally minted authorization id.
func LocalToken(id string) Token {
	return Token{Kind: KindLocal, Value: id}
}

// ParseToken classifies a raw token arriving over the wire.
func ParseToken(raw string) Token {
	value := strings.TrimSpace(raw)
	if strings.HasPrefix(value, gatewayIDPrefix) {
		return GatewayToken(value)
	}
	return LocalToken(value)
}
