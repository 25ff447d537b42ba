// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package config

import (
	"os"

	"github.com/gizzahub/gitsync-kernel/internal/synckernel"
)

const (
	envOpenRouterAPIKey = "GITSYNC_OPENROUTER_API_KEY"
	envOpenRouterModel  = "GITSYNC_OPENROUTER_MODEL"
	envGitHubToken      = "GITSYNC_GITHUB_TOKEN" //nolint:gosec // env var name, not a credential
)

// ResolveOpenRouterCredentials implements spec.md §6's reverse precedence:
// task config (highest) > environment variable > persisted config file
// (lowest). taskAPIKey/taskModel come from the workflow file's sync task,
// if it carries per-task overrides; either may be empty.
func ResolveOpenRouterCredentials(taskAPIKey, taskModel string, global *GlobalConfig) synckernel.OpenRouterCredentials {
	creds := synckernel.OpenRouterCredentials{
		APIKey: global.OpenRouter.APIKey,
		Model:  global.OpenRouter.Model,
	}

	if v := os.Getenv(envOpenRouterAPIKey); v != "" {
		creds.APIKey = v
	}
	if v := os.Getenv(envOpenRouterModel); v != "" {
		creds.Model = v
	}

	if taskAPIKey != "" {
		creds.APIKey = taskAPIKey
	}
	if taskModel != "" {
		creds.Model = taskModel
	}

	return creds
}

// ResolveGitHubToken applies the same reverse precedence as
// ResolveOpenRouterCredentials: env var overrides the config file, and
// there is no task-level override since the forge identity is a workspace
// concern, not a per-task one.
func ResolveGitHubToken(global *GlobalConfig) string {
	if v := os.Getenv(envGitHubToken); v != "" {
		return v
	}
	return global.GitHub.Token
}
