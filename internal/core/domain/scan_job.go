package domain

import "time"

// ScanJob is a container image analysis request handed to the job queue.
type ScanJob struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	UserID      string    `json:"userid"`
	TargetClass string    `json:"target_class"`
	TargetID    string    `json:"target_id,omitempty"`
	SystemID    string    `json:"ems_id"`
	Zone        string    `json:"zone,omitempty"`
	ServerHost  string    `json:"server_host,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
