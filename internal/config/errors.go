package config

import "errors"

var (
	ErrRedisAddrMissing    = errors.New("REDIS_ADDR is required")
	ErrInvalidRedisDB      = errors.New("REDIS_DB must be a valid integer")
	ErrInvalidBool         = errors.New("invalid boolean value")
	ErrUnknownStoreBackend = errors.New("STORE_BACKEND must be redis or postgres")
	ErrDatabaseURLMissing  = errors.New("DATABASE_URL is required for the postgres store")
	ErrUnknownNotifySink   = errors.New("unknown notification sink")
	ErrPushURLMissing      = errors.New("NOTIFY_PUSH_URL is required for the push sink")
	ErrEmailConfigMissing  = errors.New("SENDGRID_API_KEY, SENDGRID_FROM_EMAIL and NOTIFY_EMAIL_TO are required for the email sink")
)
