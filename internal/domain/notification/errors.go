package notification

import "errors"

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrQueueFull            = errors.New("notification queue is full")
	ErrServiceStopped       = errors.New("notification service is stopped")
)
