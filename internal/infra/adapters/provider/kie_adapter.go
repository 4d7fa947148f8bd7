// File: internal/infra/adapters/provider/kie_adapter.go
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"sora-batch-studio/internal/domain"
	"sora-batch-studio/internal/domain/model"
	"sora-batch-studio/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

var _ adapter.VideoProvider = (*KieAdapter)(nil)

// kieAspectRatios maps the internal aspect vocabulary onto kie's
// landscape/portrait pair.
var kieAspectRatios = map[string]string{
	"16:9": "landscape",
	"9:16": "portrait",
}

// KieAdapter talks to the kie.ai job API. It covers submit and poll only;
// remix, history listing and balance checks are not part of kie's surface.
type KieAdapter struct {
	client *http.Client
	log    *zerolog.Logger
}

func NewKieAdapter(logger *zerolog.Logger) *KieAdapter {
	return &KieAdapter{
		client: &http.Client{Timeout: 30 * time.Second},
		log:    logger,
	}
}

func (k *KieAdapter) Name() string { return model.ProviderKie }

func (k *KieAdapter) Submit(ctx context.Context, prompt string, cfg model.Settings) adapter.SubmitResult {
	aspect := kieAspectRatios[cfg.AspectRatio]
	if aspect == "" {
		aspect = "landscape"
	}
	// kie only accepts "10" or "15" frames-length values.
	dur := strconv.Itoa(cfg.Duration)
	if dur != "10" && dur != "15" {
		dur = "15"
	}

	payload := map[string]any{
		"model": "sora-2-text-to-video",
		"input": map[string]any{
			"prompt":       prompt,
			"aspect_ratio": aspect,
			"n_frames":     dur,
			// The flag is inverted on the wire: watermark shown means
			// removal disabled.
			"remove_watermark": !cfg.Watermark,
		},
	}
	body, _ := json.Marshal(payload)

	k.log.Debug().RawJSON("payload", body).Msg("kie submit")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cleanURL(cfg.BaseURL)+"/api/v1/jobs/createTask", bytes.NewReader(body))
	if err != nil {
		return adapter.SubmitResult{Error: err.Error(), DebugPayload: body}
	}
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := k.client.Do(req)
	if err != nil {
		return adapter.SubmitResult{Error: "network error: " + err.Error(), DebugPayload: body}
	}
	defer resp.Body.Close()

	var result struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Data struct {
			TaskID string `json:"taskId"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return adapter.SubmitResult{Error: fmt.Sprintf("unreadable response (HTTP %d)", resp.StatusCode), DebugPayload: body}
	}
	if resp.StatusCode != http.StatusOK || result.Code != 200 {
		msg := result.Msg
		if msg == "" {
			msg = fmt.Sprintf("error %d", resp.StatusCode)
		}
		return adapter.SubmitResult{Error: msg, DebugPayload: body}
	}
	if result.Data.TaskID == "" {
		return adapter.SubmitResult{Error: "no taskId in response", DebugPayload: body}
	}
	return adapter.SubmitResult{OK: true, ProviderTaskID: result.Data.TaskID, DebugPayload: body}
}

func (k *KieAdapter) Remix(ctx context.Context, providerTaskID, prompt string, cfg model.Settings) adapter.SubmitResult {
	return adapter.SubmitResult{Error: domain.ErrUnsupported.Error() + ": remix"}
}

func (k *KieAdapter) Poll(ctx context.Context, providerTaskID string, cfg model.Settings) adapter.PollResult {
	pollURL := cleanURL(cfg.BaseURL) + "/api/v1/jobs/recordInfo?taskId=" + url.QueryEscape(providerTaskID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pollURL, nil)
	if err != nil {
		return adapter.PollResult{Status: model.TaskStatusProcessing, Error: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := k.client.Do(req)
	if err != nil {
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

	var result struct {
		Data struct {
			State      string `json:"state"` // waiting | success | fail
			ResultJSON string `json:"resultJson"`
			FailMsg    string `json:"failMsg"`
		} `json:"data"`
	}
	rawBody := json.RawMessage{}
	if err := json.NewDecoder(resp.Body).Decode(&rawBody); err != nil {
		return adapter.PollResult{Status: model.TaskStatusProcessing, Error: "unreadable response body"}
	}
	if err := json.Unmarshal(rawBody, &result); err != nil {
		return adapter.PollResult{Status: model.TaskStatusProcessing, Error: "unexpected response shape", Raw: rawBody}
	}

	switch result.Data.State {
	case "success":
		return adapter.PollResult{
			Status:   model.TaskStatusCompleted,
			VideoURL: k.resultURL(result.Data.ResultJSON),
			Raw:      rawBody,
		}
	case "fail":
		msg := result.Data.FailMsg
		if msg == "" {
			msg = "task failed"
		}
		return adapter.PollResult{Status: model.TaskStatusFailed, Error: msg, Raw: rawBody}
	default:
		// "waiting" covers both queued and generating.
		return adapter.PollResult{Status: model.TaskStatusProcessing, Raw: rawBody}
	}
}

// resultURL unwraps kie's resultJson, a JSON document nested as a string
// inside the response, and takes the first result URL.
func (k *KieAdapter) resultURL(resultJSON string) string {
	if resultJSON == "" {
		return ""
	}
	var parsed struct {
		ResultURLs []string `json:"resultUrls"`
	}
	if err := json.Unmarshal([]byte(resultJSON), &parsed); err != nil {
		k.log.Warn().Err(err).Msg("kie resultJson not parseable")
		return ""
	}
	if len(parsed.ResultURLs) == 0 {
		return ""
	}
	return parsed.ResultURLs[0]
}

func (k *KieAdapter) ListHistory(ctx context.Context, cfg model.Settings) ([]model.Task, error) {
	// No documented listing endpoint.
	return []model.Task{}, nil
}

func (k *KieAdapter) Balance(ctx context.Context, cfg model.Settings) (adapter.Balance, error) {
	return adapter.Balance{}, domain.ErrUnsupported
}
