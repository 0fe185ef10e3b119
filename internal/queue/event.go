// Package queue defines the application events exchanged over RabbitMQ,
// the publisher used by the services and the audit consumer.
package queue

// Queue names. Each event type has its own durable queue.
const (
	SubmittedQueue = "application.submitted"
	DecidedQueue   = "application.decided"
)

// ApplicationEvent is published when an application is submitted or an
// admin records a decision. It carries enough for the audit log without
// querying the store.
type ApplicationEvent struct {
	Type          string `json:"type"` // SubmittedQueue or DecidedQueue
	ApplicationID string `json:"application_id"`
	ApplicantID   string `json:"applicant_id,omitempty"`
	ProgramID     string `json:"program_id,omitempty"`
	Status        string `json:"status"`
	Actor         string `json:"actor"` // user id of the applicant or admin
	Backend       string `json:"backend"`
	OccurredAt    string `json:"occurred_at"` // RFC 3339, UTC
}
