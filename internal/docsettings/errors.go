package docsettings

import "errors"

// ErrNoWritableLocation reports that every flush target failed.
// Callers must treat it as "the write had no effect", not as corruption.
var ErrNoWritableLocation = errors.New("no writable sidecar location")

var (
	errConfigInvalid        = errors.New("invalid config file")
	errUnknownPlacementMode = errors.New("unknown placement_mode")
)
