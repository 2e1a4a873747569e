package probe

import "errors"

var (
	// ErrHostUnavailable means a parameter could not be read at all; only that parameter is lost
	ErrHostUnavailable = errors.New("host unavailable")

	// ErrProbeRejected means the host refused a candidate value; probing moves on to the next one
	ErrProbeRejected = errors.New("probe value rejected")
)
