package binance

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the lower-case hex HMAC-SHA256 digest of the encoded
// parameter string. Identical (secret, ordered parameters) always yields the
// same digest.
func Sign(secret string, params *Params) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(params.Encode()))
	return hex.EncodeToString(mac.Sum(nil))
}
