package models

import "time"

// BackendStatus is a point-in-time view of one primary backend's breaker.
type BackendStatus struct {
	Name                string     `json:"name"`
	Eligible            bool       `json:"eligible"`
	CooldownUntil       *time.Time `json:"cooldown_until,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastError           string     `json:"last_error,omitempty"`
}

// PoolStatus describes the secondary credential pool.
type PoolStatus struct {
	Size         int `json:"size"`
	CurrentIndex int `json:"current_index"`
}

// ProviderStatus groups breaker and pool state for the admin surfaces.
type ProviderStatus struct {
	Primary   []BackendStatus `json:"primary"`
	Secondary PoolStatus      `json:"secondary"`
}
