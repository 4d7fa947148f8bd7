package notify

import (
	"context"

	"sora-batch-studio/internal/domain/ports/adapter"
	"sora-batch-studio/internal/infra/i18n"

	"github.com/rs/zerolog"
)

var _ adapter.NotificationSink = (*LogSink)(nil)

// LogSink renders events as structured log lines. It is the default sink
// when no external channel is configured.
type LogSink struct {
	tr  *i18n.Translator
	log *zerolog.Logger
}

func NewLogSink(tr *i18n.Translator, logger *zerolog.Logger) *LogSink {
	return &LogSink{tr: tr, log: logger}
}

func (s *LogSink) Notify(ctx context.Context, ev adapter.Event) {
	s.log.Info().
		Str("event", string(ev.Type)).
		Str("task_id", ev.TaskID).
		Str("api_task_id", ev.ProviderTaskID).
		Msg(Render(s.tr, ev))
}

// Render localizes an event into a single user-facing line.
func Render(tr *i18n.Translator, ev adapter.Event) string {
	switch ev.Type {
	case adapter.EventTaskSubmitted:
		return tr.T("task_submitted", shortID(ev.ProviderTaskID))
	case adapter.EventTaskCompleted:
		return tr.T("task_completed", shortID(ev.ProviderTaskID))
	case adapter.EventTaskFailed:
		return tr.T("task_failed", ev.Detail)
	case adapter.EventHistorySynced:
		if ev.Count == 0 {
			return tr.T("history_empty")
		}
		return tr.T("history_synced", ev.Count)
	case adapter.EventDownloadFallback:
		return tr.T("download_fallback", ev.URL)
	case adapter.EventQueueStarted:
		return tr.T("queue_started")
	case adapter.EventQueueStopped:
		return tr.T("queue_stopped")
	default:
		return ev.Detail
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
