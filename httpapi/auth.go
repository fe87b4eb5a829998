package httpapi

import (
	"crypto/subtle"
	"net/http"
)

// APIKeyHeader carries the write credential.
const APIKeyHeader = "x-api-key"

// CheckAPIKey reports whether r carries one of keys in the x-api-key header.
// It looks at nothing but the header and has no side effects.
func CheckAPIKey(r *http.Request, keys []string) error {
	presented := r.Header.Get(APIKeyHeader)
	if presented == "" {
		return ErrMissingAPIKey
	}
	match := 0
	for _, key := range keys {
		// Compare against every key so timing does not reveal which one matched.
		match |= subtle.ConstantTimeCompare([]byte(presented), []byte(key))
	}
	if match != 1 {
		return ErrInvalidAPIKey
	}
	return nil
}
