package instance

import "github.com/sejinpark/posportal-backend/pkg/env"

// GetID returns the scheduler worker identifier or a default value.
func GetID() string {
	return env.Get("WORKER_ID", "scheduler-0")
}
