package ws

import (
	"crypto/rand"
	"encoding/hex"
)

// newConnID mints the per-connection socket id. Clients cannot forge another
// user's exclusion window with a guessed id, so it is random, not sequential.
func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
