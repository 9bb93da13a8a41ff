package risk

import "errors"

// ErrInvalidThresholds is returned when thresholds are not strictly
// increasing within (0, 1].
var ErrInvalidThresholds = errors.New("invalid risk thresholds")
