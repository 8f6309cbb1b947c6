//go:build !gcloud

package config

const platformRequiresRedis = false

// Validate is a no-op locally: timers run in-process.
func (c *TaskQueueConfig) Validate() error {
	return nil
}
