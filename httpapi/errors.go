package httpapi

import "errors"

var (
	// ErrStoreRequired is returned when a store is not provided.
	ErrStoreRequired = errors.New("store required")

	// ErrMissingAPIKey indicates a write without the x-api-key header.
	ErrMissingAPIKey = errors.New("missing api key")

	// ErrInvalidAPIKey indicates a write with an unknown api key.
	ErrInvalidAPIKey = errors.New("invalid api key")

	// ErrPayloadTooLarge indicates a request body above the configured limit.
	ErrPayloadTooLarge = errors.New("payload too large")
)
