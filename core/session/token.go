package session

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/pkg/errors"
)

// accessTokenBytes gives 72 bits of entropy: a 12-char URL-safe token that
// stays scannable as a QR code. Collisions at a few tokens/course/day are
// negligible; the unique index on the column catches the rest.
const accessTokenBytes = 9

func generateAccessToken() (string, error) {
	buf := make([]byte, accessTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "generating access token")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
