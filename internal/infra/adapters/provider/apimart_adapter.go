// File: internal/infra/adapters/provider/apimart_adapter.go
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"sora-batch-studio/internal/domain"
	"sora-batch-studio/internal/domain/model"
	"sora-batch-studio/internal/domain/ports/adapter"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var _ adapter.VideoProvider = (*ApimartAdapter)(nil)

// historyCandidates are the known listing endpoint shapes, tried in order
// after the configured one until one yields at least one parseable record.
var historyCandidates = []string{
	"/v1/tasks?limit=50",
	"/v1/tasks/list?limit=50",
	"/v1/videos/generations?page=1&limit=50",
	"/v1/history?limit=50",
}

// ApimartAdapter talks to the apimart video generation REST API.
type ApimartAdapter struct {
	client *http.Client
	log    *zerolog.Logger
}

func NewApimartAdapter(logger *zerolog.Logger) *ApimartAdapter {
	return &ApimartAdapter{
		client: &http.Client{Timeout: 30 * time.Second},
		log:    logger,
	}
}

func (a *ApimartAdapter) Name() string { return model.ProviderApimart }

func cleanURL(base string) string { return strings.TrimRight(base, "/") }

func (a *ApimartAdapter) do(ctx context.Context, method, url string, apiKey string, body []byte) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return a.client.Do(req)
}

// buildSubmitPayload constructs the request body defensively: optional
// fields are omitted entirely when disabled because the provider rejects
// unrecognized falsy fields with invalid_request.
func buildSubmitPayload(prompt string, cfg model.Settings) map[string]any {
	mdl := cfg.Model
	if mdl == "" {
		mdl = "sora-2"
	}
	duration := cfg.Duration
	// The base model tier tops out at 15s; clamp silently rather than reject.
	if mdl == "sora-2" && duration > 15 {
		duration = 15
	}
	aspect := cfg.AspectRatio
	if aspect == "" {
		aspect = "16:9"
	}

	payload := map[string]any{
		"model":        mdl,
		"prompt":       prompt,
		"duration":     duration,
		"aspect_ratio": aspect,
	}
	if cfg.Private {
		payload["private"] = true
	}
	if cfg.Watermark {
		payload["watermark"] = true
	}
	if cfg.Thumbnail {
		payload["thumbnail"] = true
	}
	if cfg.Storyboard {
		payload["storyboard"] = true
	}
	if cfg.Style != "" && cfg.Style != "none" {
		payload["style"] = cfg.Style
	}
	var validURLs []string
	for _, u := range cfg.ImageURLs {
		u = strings.TrimSpace(u)
		if u != "" && strings.HasPrefix(u, "http") {
			validURLs = append(validURLs, u)
		}
	}
	if len(validURLs) > 0 {
		payload["image_urls"] = validURLs
	}
	if cu := strings.TrimSpace(cfg.CharacterURL); len(cu) > 5 {
		payload["character_url"] = cu
	}
	if ts := strings.TrimSpace(cfg.CharacterTimestamps); ts != "" {
		payload["character_timestamps"] = ts
	}
	return payload
}

func (a *ApimartAdapter) Submit(ctx context.Context, prompt string, cfg model.Settings) adapter.SubmitResult {
	payload := buildSubmitPayload(prompt, cfg)
	body, _ := json.Marshal(payload)

	a.log.Debug().RawJSON("payload", body).Msg("apimart submit")

	resp, err := a.do(ctx, http.MethodPost, cleanURL(cfg.BaseURL)+"/v1/videos/generations", cfg.APIKey, body)
	if err != nil {
		return adapter.SubmitResult{Error: "network error: " + err.Error(), DebugPayload: body}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusPaymentRequired {
		return adapter.SubmitResult{Error: "payment required: insufficient balance", DebugPayload: body}
	}

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return adapter.SubmitResult{Error: fmt.Sprintf("unreadable response (HTTP %d)", resp.StatusCode), DebugPayload: body}
	}

	code, hasCode := numField(result, "code")
	if resp.StatusCode != http.StatusOK || (hasCode && code != 200) {
		return adapter.SubmitResult{
			Error:        fmt.Sprintf("API error %d: %s", resp.StatusCode, submitErrorMessage(result)),
			DebugPayload: body,
		}
	}

	if id := taskIDFrom(result); id != "" {
		return adapter.SubmitResult{OK: true, ProviderTaskID: id, DebugPayload: body}
	}
	return adapter.SubmitResult{Error: "no task id in response", DebugPayload: body}
}

func (a *ApimartAdapter) Remix(ctx context.Context, providerTaskID, prompt string, cfg model.Settings) adapter.SubmitResult {
	payload := map[string]any{
		"model":        cfg.Model,
		"prompt":       prompt,
		"duration":     cfg.Duration,
		"aspect_ratio": cfg.AspectRatio,
	}
	body, _ := json.Marshal(payload)

	url := fmt.Sprintf("%s/v1/videos/%s/remix", cleanURL(cfg.BaseURL), providerTaskID)
	resp, err := a.do(ctx, http.MethodPost, url, cfg.APIKey, body)
	if err != nil {
		return adapter.SubmitResult{Error: "network error: " + err.Error(), DebugPayload: body}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusPaymentRequired {
		return adapter.SubmitResult{Error: "payment required: insufficient balance", DebugPayload: body}
	}

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return adapter.SubmitResult{Error: fmt.Sprintf("unreadable response (HTTP %d)", resp.StatusCode), DebugPayload: body}
	}
	if resp.StatusCode != http.StatusOK {
		return adapter.SubmitResult{
			Error:        fmt.Sprintf("remix error %d: %s", resp.StatusCode, submitErrorMessage(result)),
			DebugPayload: body,
		}
	}
	if id := taskIDFrom(result); id != "" {
		return adapter.SubmitResult{OK: true, ProviderTaskID: id, DebugPayload: body}
	}
	return adapter.SubmitResult{Error: "no task id in remix response", DebugPayload: body}
}

func (a *ApimartAdapter) Poll(ctx context.Context, providerTaskID string, cfg model.Settings) adapter.PollResult {
	pattern := cfg.QueryEndpointPattern
	if pattern == "" {
		pattern = "/v1/tasks/{id}"
	}
	endpoint := strings.ReplaceAll(pattern, "{id}", providerTaskID)
	suffix := "?language=zh"
	if strings.Contains(endpoint, "?") {
		suffix = "&language=zh"
	}

	resp, err := a.do(ctx, http.MethodGet, cleanURL(cfg.BaseURL)+endpoint+suffix, cfg.APIKey, nil)
	if err != nil {
		// Transient: keep the engine retrying instead of failing the task.
		return adapter.PollResult{
			Status: model.TaskStatusProcessing,
			Error:  "network error: " + err.Error(),
			Raw:    mustJSON(map[string]any{"error": err.Error()}),
		}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return adapter.PollResult{Status: model.TaskStatusFailed, Error: "401 Unauthorized: check API key"}
	case http.StatusPaymentRequired:
		return adapter.PollResult{Status: model.TaskStatusFailed, Error: "402 Payment Required"}
	}
	if resp.StatusCode != http.StatusOK {
		return adapter.PollResult{
			Status: model.TaskStatusProcessing,
			Error:  fmt.Sprintf("HTTP %d", resp.StatusCode),
			Raw:    mustJSON(map[string]any{"status": resp.StatusCode}),
		}
	}

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return adapter.PollResult{Status: model.TaskStatusProcessing, Error: "unreadable response body"}
	}
	raw := mustJSON(result)

	dataObj := asMap(result["data"])
	if dataObj == nil {
		dataObj = result
	}
	switch strings.ToLower(str(dataObj, "status")) {
	case "succeeded", "completed", "success":
		return adapter.PollResult{
			Status:   model.TaskStatusCompleted,
			VideoURL: extractVideoURL(dataObj),
			Raw:      raw,
		}
	case "failed", "error", "cancelled":
		msg := str(asMap(dataObj["error"]), "message")
		if msg == "" {
			msg = str(dataObj, "reason")
		}
		if msg == "" {
			msg = "task failed"
		}
		return adapter.PollResult{Status: model.TaskStatusFailed, Error: msg, Raw: raw}
	default:
		// Unknown vocabulary defaults to PROCESSING to survive drift.
		return adapter.PollResult{Status: model.TaskStatusProcessing, Raw: raw}
	}
}

func (a *ApimartAdapter) ListHistory(ctx context.Context, cfg model.Settings) ([]model.Task, error) {
	configured := cfg.HistoryEndpointPattern
	if configured == "" {
		configured = "/v1/tasks"
	}
	candidates := append([]string{configured}, historyCandidates...)

	seen := map[string]struct{}{}
	for _, endpoint := range candidates {
		if _, dup := seen[endpoint]; dup {
			continue
		}
		seen[endpoint] = struct{}{}

		resp, err := a.do(ctx, http.MethodGet, cleanURL(cfg.BaseURL)+endpoint, cfg.APIKey, nil)
		if err != nil {
			// The listing endpoint is best-effort; transport failures degrade
			// to an empty result.
			return []model.Task{}, nil
		}
		if resp.StatusCode == http.StatusUnauthorized {
			resp.Body.Close()
			return nil, domain.ErrUnauthorized
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			continue
		}

		var body any
		err = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if err != nil {
			continue
		}

		if tasks := mapHistoryItems(historyList(body)); len(tasks) > 0 {
			return tasks, nil
		}
	}
	return []model.Task{}, nil
}

func (a *ApimartAdapter) Balance(ctx context.Context, cfg model.Settings) (adapter.Balance, error) {
	resp, err := a.do(ctx, http.MethodGet, cleanURL(cfg.BaseURL)+"/v1/balance", cfg.APIKey, nil)
	if err != nil {
		return adapter.Balance{}, fmt.Errorf("balance check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return adapter.Balance{}, domain.ErrUnauthorized
	}

	var out struct {
		Success        bool    `json:"success"`
		RemainBalance  float64 `json:"remain_balance"`
		UsedBalance    float64 `json:"used_balance"`
		UnlimitedQuota bool    `json:"unlimited_quota"`
		Message        string  `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return adapter.Balance{}, fmt.Errorf("balance check: %w", err)
	}
	if !out.Success {
		msg := out.Message
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return adapter.Balance{}, fmt.Errorf("balance check: %s", msg)
	}
	return adapter.Balance{
		Remaining: out.RemainBalance,
		Used:      out.UsedBalance,
		Unlimited: out.UnlimitedQuota,
	}, nil
}

// historyList digs the record array out of the known envelope shapes.
func historyList(body any) []any {
	if list := asList(body); list != nil {
		return list
	}
	m := asMap(body)
	if m == nil {
		return nil
	}
	if list := asList(m["data"]); list != nil {
		return list
	}
	if list := asList(m["list"]); list != nil {
		return list
	}
	if data := asMap(m["data"]); data != nil {
		return asList(data["list"])
	}
	return nil
}

func mapHistoryItems(list []any) []model.Task {
	var tasks []model.Task
	for _, raw := range list {
		item := asMap(raw)
		if item == nil {
			continue
		}
		providerID := str(item, "task_id")
		if providerID == "" {
			providerID = str(item, "id")
		}
		if providerID == "" {
			providerID = str(item, "uuid")
		}
		if providerID == "" {
			continue
		}

		prompt := str(item, "prompt")
		if prompt == "" {
			prompt = str(asMap(item["input"]), "prompt")
		}
		if prompt == "" {
			prompt = "Synced Task"
		}

		tasks = append(tasks, model.Task{
			ID:             uuid.NewString(),
			ProviderTaskID: providerID,
			Prompt:         prompt,
			Status:         mapHistoryStatus(item),
			VideoURL:       extractVideoURL(item),
			CreatedAt:      historyCreatedAt(item),
			RawResponse:    mustJSON(item),
		})
	}
	return tasks
}

func mapHistoryStatus(item map[string]any) model.TaskStatus {
	s := strings.ToLower(str(item, "status"))
	if s == "" {
		s = strings.ToLower(str(item, "state"))
	}
	switch s {
	case "succeeded", "success", "completed", "done":
		return model.TaskStatusCompleted
	case "failed", "error", "rejected":
		return model.TaskStatusFailed
	case "queued", "pending", "waiting":
		return model.TaskStatusQueued
	default:
		return model.TaskStatusProcessing
	}
}

func historyCreatedAt(item map[string]any) time.Time {
	v, ok := item["created_at"]
	if !ok {
		v = item["created"]
	}
	switch ts := v.(type) {
	case float64:
		// Seconds vs milliseconds heuristic from the provider's mixed epochs.
		if ts < 1e10 {
			return time.Unix(int64(ts), 0)
		}
		return time.UnixMilli(int64(ts))
	case string:
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			return t
		}
	}
	return time.Now()
}

// taskIDFrom handles the submit envelope where data is either an object or
// a one-element array.
func taskIDFrom(result map[string]any) string {
	data := asMap(result["data"])
	if data == nil {
		if list := asList(result["data"]); len(list) > 0 {
			data = asMap(list[0])
		}
	}
	if data == nil {
		return ""
	}
	if id := str(data, "task_id"); id != "" {
		return id
	}
	return str(data, "id")
}

func submitErrorMessage(result map[string]any) string {
	if errObj := asMap(result["error"]); errObj != nil {
		if msg := str(errObj, "message"); msg != "" {
			return msg
		}
		return string(mustJSON(errObj))
	}
	if data := asMap(result["data"]); data != nil {
		if msg := str(data, "message"); msg != "" {
			return msg
		}
	}
	if msg, ok := result["error"].(string); ok && msg != "" {
		return msg
	}
	return string(mustJSON(result))
}

func numField(m map[string]any, key string) (int, bool) {
	f, ok := m[key].(float64)
	return int(f), ok
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return b
}
