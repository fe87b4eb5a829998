package httpapi

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckAPIKey(t *testing.T) {
	keys := []string{"alpha", "beta"}

	tests := []struct {
		name    string
		header  string
		wantErr error
	}{
		{"missing", "", ErrMissingAPIKey},
		{"unknown", "gamma", ErrInvalidAPIKey},
		{"prefix of a key", "alph", ErrInvalidAPIKey},
		{"first key", "alpha", nil},
		{"second key", "beta", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/storage/a/b", nil)
			if tt.header != "" {
				r.Header.Set(APIKeyHeader, tt.header)
			}
			err := CheckAPIKey(r, keys)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}

	t.Run("no keys configured", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/storage/a/b", nil)
		r.Header.Set(APIKeyHeader, "alpha")
		assert.ErrorIs(t, CheckAPIKey(r, nil), ErrInvalidAPIKey)
	})
}
