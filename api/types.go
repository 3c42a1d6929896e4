package api

import "time"

// HealthStatus is the result of a health probe. It is always usable; a
// failed probe yields IsHealthy=false with Error describing the failure.
type HealthStatus struct {
	IsHealthy bool   `json:"isHealthy"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// ServerInfo is the backend's self-reported metadata.
type ServerInfo struct {
	Version string `json:"version"`
	Status  string `json:"status"`
	Uptime  int64  `json:"uptime"`
}

// ChatMessage is one turn in a conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest asks the backend for a chat completion.
type ChatRequest struct {
	Message  string        `json:"message"`
	Provider string        `json:"provider,omitempty"`
	Model    string        `json:"model,omitempty"`
	History  []ChatMessage `json:"history,omitempty"`
}

// Usage reports token consumption for one completion.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// ChatResponse is the backend's answer to a ChatRequest.
type ChatResponse struct {
	Success  bool   `json:"success"`
	Content  string `json:"content"`
	Model    string `json:"model"`
	Usage    Usage  `json:"usage"`
	Provider string `json:"provider"`
}

// ProviderInfo describes one configured AI provider.
type ProviderInfo struct {
	Name      string   `json:"name"`
	Available bool     `json:"available"`
	Models    []string `json:"models,omitempty"`
}

// ProviderTestResult is the outcome of a provider connectivity test.
type ProviderTestResult struct {
	Available bool          `json:"available"`
	Latency   time.Duration `json:"latency"`
	Error     string        `json:"error,omitempty"`
}

// File is one file in an upload.
type File struct {
	Name    string
	Content []byte
}

// Project describes an uploaded project.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	FileCount int       `json:"fileCount"`
	CreatedAt time.Time `json:"createdAt"`
}

// Analysis is the static analysis report for an uploaded project.
type Analysis struct {
	ProjectID string         `json:"projectId"`
	Summary   string         `json:"summary"`
	Languages map[string]int `json:"languages,omitempty"`
	Issues    []string       `json:"issues,omitempty"`
}

// Conversation is a stored chat transcript.
type Conversation struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Messages  []ChatMessage `json:"messages,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Settings holds user preferences stored on the backend.
type Settings struct {
	DefaultProvider string `json:"defaultProvider,omitempty"`
	DefaultModel    string `json:"defaultModel,omitempty"`
	Theme           string `json:"theme,omitempty"`
	Telemetry       bool   `json:"telemetry"`
}

// Event is one telemetry event.
type Event struct {
	Name      string         `json:"name"`
	Timestamp time.Time      `json:"timestamp"`
	Props     map[string]any `json:"props,omitempty"`
}

// Stats is the backend's usage statistics.
type Stats struct {
	Requests      int64 `json:"requests"`
	Conversations int64 `json:"conversations"`
	TokensUsed    int64 `json:"tokensUsed"`
}

// ServerSnapshot bundles the dashboard reads fetched by Snapshot.
type ServerSnapshot struct {
	Info      *ServerInfo
	Providers map[string]ProviderInfo
	Stats     *Stats
}

// Response envelopes. The backend wraps most payloads in a success flag.

type successResponse struct {
	Success bool `json:"success"`
}

type healthResponse struct {
	Status string `json:"status"`
}

type providersResponse struct {
	Providers map[string]ProviderInfo `json:"providers"`
}

type providerTestResponse struct {
	Available bool   `json:"available"`
	Latency   int64  `json:"latency"`
	Error     string `json:"error,omitempty"`
}

type uploadResponse struct {
	Success bool     `json:"success"`
	Project *Project `json:"project"`
}

type analyzeResponse struct {
	Analysis *Analysis `json:"analysis"`
}

type conversationsResponse struct {
	Success       bool           `json:"success"`
	Conversations []Conversation `json:"conversations"`
}

type conversationResponse struct {
	Success      bool          `json:"success"`
	Conversation *Conversation `json:"conversation"`
}

type settingsResponse struct {
	Success  bool     `json:"success"`
	Settings Settings `json:"settings"`
}

type statsResponse struct {
	Stats *Stats `json:"stats"`
}
