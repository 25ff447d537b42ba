// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package synckernel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Oracle is C5: an external collaborator that merges two file contents.
// The engine treats it as total but tolerates timeout/failure; on failure
// the caller leaves the file untouched and does not update the tracker.
type Oracle interface {
	Merge(ctx context.Context, targetContent, sourceContent []byte) ([]byte, error)
}

// OpenRouterCredentials is the resolved (model, key) pair used to
// authenticate against OpenRouter's chat-completions endpoint. Resolution
// precedence (task config > env var > persisted config file) is the
// concern of internal/config; this package only consumes the result.
type OpenRouterCredentials struct {
	APIKey string
	Model  string
}

// OpenRouterOracle is the production Oracle, backed by an HTTP call to
// OpenRouter's OpenAI-compatible chat-completions endpoint. The exact
// prompt template is intentionally out of this package's scope (spec.md
// §1 "OUT OF SCOPE"); mergePrompt builds a minimal, adequate one.
type OpenRouterOracle struct {
	Creds      OpenRouterCredentials
	HTTPClient *http.Client
	BaseURL    string
}

var _ Oracle = (*OpenRouterOracle)(nil)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1/chat/completions"

// NewOpenRouterOracle constructs an OpenRouterOracle with sane defaults.
func NewOpenRouterOracle(creds OpenRouterCredentials) *OpenRouterOracle {
	return &OpenRouterOracle{
		Creds:      creds,
		HTTPClient: &http.Client{Timeout: 2 * time.Minute},
		BaseURL:    defaultOpenRouterBaseURL,
	}
}

type openRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openRouterRequest struct {
	Model    string              `json:"model"`
	Messages []openRouterMessage `json:"messages"`
}

type openRouterResponse struct {
	Choices []struct {
		Message openRouterMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Merge sends a two-way merge prompt (local content vs. upstream content;
// no common ancestor is sent) to OpenRouter and returns the model's merged
// file content.
func (o *OpenRouterOracle) Merge(ctx context.Context, targetContent, sourceContent []byte) ([]byte, error) {
	if o.Creds.APIKey == "" {
		return nil, fmt.Errorf("openrouter merge: no API key configured")
	}

	reqBody := openRouterRequest{
		Model: o.Creds.Model,
		Messages: []openRouterMessage{
			{Role: "system", Content: mergeSystemPrompt},
			{Role: "user", Content: mergePrompt(targetContent, sourceContent)},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("openrouter merge: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("openrouter merge: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.Creds.APIKey)

	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openrouter merge: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openrouter merge: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openrouter merge: status %d: %s", resp.StatusCode, string(body))
	}

	var parsed openRouterResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("openrouter merge: decode response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("openrouter merge: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("openrouter merge: empty response")
	}

	return []byte(parsed.Choices[0].Message.Content), nil
}

const mergeSystemPrompt = `You resolve conflicting edits to a single text file. ` +
	`You are given the current local version and the current upstream ` +
	`version of the same file. Reply with only the fully merged file ` +
	`content, no commentary, no code fences.`

func mergePrompt(local, upstream []byte) string {
	return fmt.Sprintf("LOCAL VERSION:\n%s\n\nUPSTREAM VERSION:\n%s\n", local, upstream)
}
