//go:build gcloud

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// The Redis delay queue carries inexact alarms on gcloud, so Redis is
// required whatever the reminder store is.
const platformRequiresRedis = true

func (c *TaskQueueConfig) Validate() error {
	var errs []error

	if c.GCloudProjectID == "" {
		errs = append(errs, errors.New("GCLOUD_PROJECT_ID is required"))
	}
	if c.GCloudLocationID == "" {
		errs = append(errs, errors.New("GCLOUD_LOCATION_ID is required"))
	}
	if c.GCloudQueueID == "" {
		errs = append(errs, errors.New("GCLOUD_QUEUE_ID is required"))
	}
	if c.GCloudTargetURL == "" {
		errs = append(errs, errors.New("GCLOUD_TARGET_URL is required"))
	} else if u, err := url.Parse(c.GCloudTargetURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("GCLOUD_TARGET_URL must be an absolute URL: %q", c.GCloudTargetURL))
	}
	if c.GCloudServiceAccountMail != "" && !strings.Contains(c.GCloudServiceAccountMail, "@") {
		errs = append(errs, fmt.Errorf("GCLOUD_SERVICE_ACCOUNT_EMAIL is not an email: %q", c.GCloudServiceAccountMail))
	}

	if len(errs) > 0 {
		return fmt.Errorf("task queue configuration errors: %w", errors.Join(errs...))
	}

	return nil
}
