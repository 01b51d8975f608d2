package audio

import "errors"

// ErrUnknownSource is returned by NewSource for an unsupported source name.
var ErrUnknownSource = errors.New("unknown source: use one of: file, microphone")

// ErrInvalidDuration is returned when a recording duration is not a positive number.
var ErrInvalidDuration = errors.New("invalid duration: please enter a positive number")

// ProcessingError reports a failure to prepare or inspect audio, such as a
// missing ffmpeg binary, a failed conversion, or an unexpected sample rate.
type ProcessingError struct {
	Msg string
	Err error
}

// Error returns Msg only; the cause stays reachable through Unwrap.
func (e *ProcessingError) Error() string {
	return e.Msg
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// IsProcessingError reports whether err is or wraps a *ProcessingError.
func IsProcessingError(err error) bool {
	var pe *ProcessingError
	return errors.As(err, &pe)
}
