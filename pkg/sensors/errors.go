package sensors

import "errors"

// ErrSensorUnavailable marks a source that failed repeatedly and is
// now only re-probed at the slow interval.
var ErrSensorUnavailable = errors.New("sensors: source unavailable")
