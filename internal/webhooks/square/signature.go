package square

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// SignatureHeader carries the provider's HMAC over the notification URL and
// raw body.
const SignatureHeader = "X-Square-Hmacsha256-Signature"

// VerifySignature checks the webhook HMAC-SHA256. The mac covers the exact
// notification URL concatenated with the raw body, base64 encoded.
func VerifySignature(secret, notificationURL string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(notificationURL))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
