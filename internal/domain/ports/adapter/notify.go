package adapter

import "context"

type EventType string

const (
	EventTaskSubmitted    EventType = "task_submitted"
	EventTaskCompleted    EventType = "task_completed"
	EventTaskFailed       EventType = "task_failed"
	EventHistorySynced    EventType = "history_synced"
	EventDownloadFallback EventType = "download_fallback"
	EventQueueStarted     EventType = "queue_started"
	EventQueueStopped     EventType = "queue_stopped"
)

// Event is a fire-and-forget user-facing notification emitted by the queue
// engine and its collaborators.
type Event struct {
	Type           EventType
	TaskID         string
	ProviderTaskID string
	Detail         string
	URL            string
	Count          int
}

// NotificationSink receives events. Implementations must never block the
// caller on delivery problems; failures are logged and dropped.
type NotificationSink interface {
	Notify(ctx context.Context, ev Event)
}

// VideoMaterializer saves a completed video locally, best effort. On any
// failure it falls back to surfacing the URL through the notification sink
// and never reports an error to the caller.
type VideoMaterializer interface {
	Save(ctx context.Context, url, filename string)
}
