package capture

import "errors"

var (
	ErrSessionInitFailure = errors.New("capture: session initialization failed")
	ErrSourceNotReady     = errors.New("capture: frame source not ready")
	ErrAlreadyActive      = errors.New("capture: session already active")
	ErrNotActive          = errors.New("capture: no active session")
	ErrChildIDRequired    = errors.New("capture: child id is required")
)
