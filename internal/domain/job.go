package domain

import "time"

// StepType enumerates background step job categories.
type StepType string

const (
	StepTypeGenerate StepType = "GENERATE"
	StepTypeInscribe StepType = "INSCRIBE"
)

// StepStatus enumerates step job lifecycle states.
type StepStatus string

const (
	StepStatusQueued    StepStatus = "QUEUED"
	StepStatusRunning   StepStatus = "RUNNING"
	StepStatusSucceeded StepStatus = "SUCCEEDED"
	StepStatusFailed    StepStatus = "FAILED"
)

// StepJob is one queued unit of background work for a session. Jobs are
// claimed by the worker with SKIP LOCKED and executed at least once; step
// handlers must stay idempotent against the session's current status.
type StepJob struct {
	ID        string
	SessionID string
	Type      StepType
	Status    StepStatus
	Attempts  int
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}
