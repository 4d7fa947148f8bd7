package model

import (
	"encoding/json"
	"time"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusSubmitting TaskStatus = "SUBMITTING"
	// Submitted to the provider, waiting for it to start.
	TaskStatusQueued     TaskStatus = "QUEUED"
	TaskStatusProcessing TaskStatus = "PROCESSING"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusFailed     TaskStatus = "FAILED"
)

// validTransitions holds the forward edges of the task state machine.
// The only backward edge is the explicit user retry FAILED -> PENDING.
var validTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusPending:    {TaskStatusSubmitting},
	TaskStatusSubmitting: {TaskStatusQueued, TaskStatusFailed},
	TaskStatusQueued:     {TaskStatusProcessing, TaskStatusCompleted, TaskStatusFailed},
	TaskStatusProcessing: {TaskStatusCompleted, TaskStatusFailed},
	TaskStatusFailed:     {TaskStatusPending},
}

func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further automatic transition occurs.
// FAILED still accepts the user-initiated retry edge.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Active statuses count against the configured concurrency limit.
func (s TaskStatus) Active() bool {
	return s == TaskStatusSubmitting || s == TaskStatusQueued || s == TaskStatusProcessing
}

// SubmissionParams is the settings snapshot frozen into a task at creation.
// It is never mutated after submission except to attach the outgoing
// debug payload.
type SubmissionParams struct {
	Settings      Settings        `json:"settings"`
	IsRemix       bool            `json:"is_remix,omitempty"`
	RemixSourceID string          `json:"remix_source_id,omitempty"`
	DebugPayload  json.RawMessage `json:"debug_payload,omitempty"`
}

// Task tracks one requested video generation (or remix) from creation to
// terminal outcome. ID is minted locally and stable for the task's whole
// local lifetime; ProviderTaskID is assigned by the provider on successful
// submission and never changes afterwards.
type Task struct {
	ID             string           `json:"id"`
	ProviderTaskID string           `json:"api_task_id,omitempty"`
	Prompt         string           `json:"prompt"`
	Status         TaskStatus       `json:"status"`
	VideoURL       string           `json:"video_url,omitempty"`
	Error          string           `json:"error,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	CompletedAt    time.Time        `json:"completed_at,omitempty"`
	RawResponse    json.RawMessage  `json:"raw_response,omitempty"`
	Params         SubmissionParams `json:"params"`
}

// ResetForRetry clears the failure outcome so the task is indistinguishable
// (bar id and timestamps) from a freshly created PENDING one.
func (t *Task) ResetForRetry() {
	t.Status = TaskStatusPending
	t.ProviderTaskID = ""
	t.Error = ""
	t.VideoURL = ""
	t.RawResponse = nil
	t.CompletedAt = time.Time{}
}
