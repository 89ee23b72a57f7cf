package submission

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// IdentityHasher maps a client network address to a stable pseudo-identity.
// The mapping is keyed on the server secret, so the same physical client
// reliably hashes to the same identifier within a deployment while the raw
// address cannot be recovered without the secret. Raw addresses must never
// be stored or logged once hashed.
type IdentityHasher struct {
	secret []byte
}

func NewIdentityHasher(secret string) *IdentityHasher {
	return &IdentityHasher{secret: []byte(secret)}
}

func (h *IdentityHasher) Hash(ipAddress string) string {
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(ipAddress))
	return hex.EncodeToString(mac.Sum(nil))
}
