package fallback

import "errors"

// ErrTransportUnreachable indicates the brain did not answer a probe.
var ErrTransportUnreachable = errors.New("brain transport unreachable")
