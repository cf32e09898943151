package domain

import "time"

// TargetClass tags which kind of resource a request replaces. It only steers
// prompt construction upstream; the saga itself never interprets it.
type TargetClass string

const (
	TargetClassPrimary   TargetClass = "primary"
	TargetClassSecondary TargetClass = "secondary"
)

// GenerationRequest is the immutable input to one saga run.
type GenerationRequest struct {
	ID        string
	Prompt    string
	TargetRef string
	Class     TargetClass
}

// RequestStatus enumerates queued-request lifecycle states.
type RequestStatus string

const (
	RequestStatusQueued    RequestStatus = "QUEUED"
	RequestStatusRunning   RequestStatus = "RUNNING"
	RequestStatusSucceeded RequestStatus = "SUCCEEDED"
	RequestStatusFailed    RequestStatus = "FAILED"
)

// RequestRecord is the persisted form of a generation request as it moves
// through the queue.
type RequestRecord struct {
	ID          string
	TargetRef   string
	Class       TargetClass
	Prompt      string
	Status      RequestStatus
	FailedStage Stage
	Reason      string
	ArtifactRef string
	AppliedRef  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
