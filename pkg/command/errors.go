package command

import "errors"

// ErrInvalidCommand is returned for any command that fails validation.
// It is resolved at the transport boundary and never reaches hardware.
var ErrInvalidCommand = errors.New("command: invalid command")

// IsInvalid reports whether err is a validation failure.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidCommand)
}
