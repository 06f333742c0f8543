package metadata

import "errors"

// ErrAPIKeyMissing is returned when the metadata provider is used without a key.
var ErrAPIKeyMissing = errors.New("tmdb api key is not configured")
