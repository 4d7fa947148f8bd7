package adapter

import (
	"context"
	"encoding/json"

	"sora-batch-studio/internal/domain/model"
)

// SubmitResult is the outcome of a submit or remix attempt. Expected failure
// modes (HTTP errors, insufficient balance, network failures) never surface
// as Go errors; they come back as OK=false with a descriptive Error.
type SubmitResult struct {
	OK             bool
	ProviderTaskID string
	Error          string
	// DebugPayload is the exact outgoing request body, retained on the task
	// for diagnostics.
	DebugPayload json.RawMessage
}

// PollResult maps one provider poll onto the internal status vocabulary.
// A transport failure yields TaskStatusProcessing with a diagnostic Error so
// the engine keeps retrying instead of giving up.
type PollResult struct {
	Status   model.TaskStatus
	VideoURL string
	Error    string
	Raw      json.RawMessage
}

// Balance is the provider account quota, where supported.
type Balance struct {
	Remaining float64 `json:"remain_balance"`
	Used      float64 `json:"used_balance"`
	Unlimited bool    `json:"unlimited_quota"`
}

// VideoProvider is the port for a third-party video generation service.
//
// ListHistory returns domain.ErrUnauthorized on an authentication failure and
// degrades to an empty slice on anything transport-level; providers without a
// listing endpoint return an empty slice immediately. Remix and Balance
// return domain.ErrUnsupported where the provider lacks the capability.
type VideoProvider interface {
	Name() string
	Submit(ctx context.Context, prompt string, cfg model.Settings) SubmitResult
	Remix(ctx context.Context, providerTaskID, prompt string, cfg model.Settings) SubmitResult
	Poll(ctx context.Context, providerTaskID string, cfg model.Settings) PollResult
	ListHistory(ctx context.Context, cfg model.Settings) ([]model.Task, error)
	Balance(ctx context.Context, cfg model.Settings) (Balance, error)
}
