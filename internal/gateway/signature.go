package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifySignature checks a settlement callback against the gateway key
// secret. The expected signature is hex(HMAC-SHA256(orderID + "|" +
// paymentID, keySecret)). Comparison is constant-time. A callback with any
// field missing never verifies.
func VerifySignature(cb SettlementCallback, keySecret string) bool {
	if cb.GatewayOrderID == "" || cb.GatewayPaymentID == "" || cb.Signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(keySecret))
	mac.Write([]byte(cb.GatewayOrderID + "|" + cb.GatewayPaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(cb.Signature))
}

// SignCallback computes the signature the gateway would produce for the
// given order and payment ids. Used by tests and the mock provider.
func SignCallback(gatewayOrderID, gatewayPaymentID, keySecret string) string {
	mac := hmac.New(sha256.New, []byte(keySecret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
