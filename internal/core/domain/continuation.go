package domain

import "time"

// EntityRef identifies the entity a policy is evaluated against.
type EntityRef struct {
	Class string `json:"class"`
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
}

// ContinuationRecord is a deferred action encoded as data so it can be resumed
// by another process once a policy decision arrives.
type ContinuationRecord struct {
	ID        string    `json:"id"`
	SystemID  string    `json:"system_id"`
	Selector  string    `json:"selector"`
	Args      []string  `json:"args"`
	Target    EntityRef `json:"target"`
	Event     string    `json:"event"`
	CreatedAt time.Time `json:"created_at"`
}

// Decision is the outcome returned by the policy engine for one callback.
type Decision struct {
	CallbackID string `json:"callback_id"`
	Prevented  bool   `json:"prevented"`
	Message    string `json:"message,omitempty"`
}

// PolicyRequest is what gets dispatched to the policy engine.
type PolicyRequest struct {
	CallbackID string            `json:"callback_id"`
	Target     EntityRef         `json:"target"`
	Event      string            `json:"event"`
	Inputs     map[string]string `json:"inputs,omitempty"`
}
