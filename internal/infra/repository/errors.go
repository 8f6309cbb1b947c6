package repository

import "errors"

var (
	ErrInvalidReminderData = errors.New("invalid reminder data")
	ErrTxRetriesExhausted  = errors.New("reminder update kept conflicting")
)
