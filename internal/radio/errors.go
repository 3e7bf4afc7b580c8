package radio

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownChannel is returned when a channel is not in the configured set.
	ErrUnknownChannel = errors.New("unknown channel")

	// ErrUnknownQuality is returned when a quality key is not configured.
	ErrUnknownQuality = errors.New("unknown quality")

	// ErrInvalidResource is returned for file names that are not a single
	// path element inside a stream output directory.
	ErrInvalidResource = errors.New("invalid resource name")

	// ErrSupervisorFailed marks a channel supervisor that gave up after
	// exhausting its launch attempts.
	ErrSupervisorFailed = errors.New("channel supervisor failed")
)

// LaunchError is the result of a failed transcoder launch attempt.
type LaunchError struct {
	Channel ChannelID
	Quality QualityID
	Attempt int
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch transcoder %s/%s (attempt %d): %v", e.Channel, e.Quality, e.Attempt, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }
