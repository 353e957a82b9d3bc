package dispatch

import "errors"

var (
	ErrEventNotFound = errors.New("dispatch event not found")
	// ErrNotClaimed means another worker holds the event or it is already finished.
	ErrNotClaimed = errors.New("dispatch event not claimable")
)
