package domain

import "errors"

var (
	ErrInvalidTimeOfDay = errors.New("invalid time of day")
	ErrInvalidWeekday   = errors.New("invalid weekday")
	ErrInvalidName      = errors.New("reminder name must not be empty")
	ErrRecordNotFound   = errors.New("reminder not found")
	ErrReminderDisabled = errors.New("reminder is disabled")
	ErrStoreIO          = errors.New("reminder store failure")
)
