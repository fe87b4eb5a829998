package core

import (
	"encoding/hex"

	"github.com/go-crypt/x/blake2b"
)

// Digest returns the hex encoded BLAKE2b-256 hash of payload.
// Used for ETags and logs; version identity never depends on it.
func Digest(payload []byte) string {
	h, _ := blake2b.New(32, nil)
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
