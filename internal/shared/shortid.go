package shared

import (
	"crypto/rand"

	"github.com/google/uuid"
)

const shortIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// ShortID returns a URL-safe random identifier of the given length.
// Used for quote and product codes where full UUIDs would be unwieldy.
func ShortID(length int) string {
	if length <= 0 {
		length = 10
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		// rand failure is effectively fatal elsewhere; fall back to a UUID slice.
		id := uuid.NewString()
		if len(id) > length {
			return id[:length]
		}
		return id
	}
	for i, b := range buf {
		buf[i] = shortIDAlphabet[int(b)%len(shortIDAlphabet)]
	}
	return string(buf)
}
