package oracle

import "errors"

var (
	ErrProviderUnavailable = errors.New("scoring oracle unavailable")
	ErrInferenceTimeout    = errors.New("scoring oracle timeout")
	ErrInvalidResponse     = errors.New("scoring oracle returned invalid response")
)
