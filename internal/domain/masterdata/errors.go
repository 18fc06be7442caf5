package masterdata

import "errors"

// Sentinel kinds for master data errors.
var (
	ErrUnavailable = errors.New("master data unavailable")
	ErrUnknownKey  = errors.New("unknown index key")
)
