package config

import (
	"errors"
	"fmt"
)

// ValidateForRun checks every section needed to serve traffic.
func ValidateForRun(cfg *Config) error {
	var errs []error

	if platformRequiresRedis || cfg.Store.Backend == StoreRedis || cfg.Store.Backend == "" {
		if err := cfg.Redis.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := cfg.Store.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := cfg.Notify.Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %w", errors.Join(errs...))
	}
	return nil
}
