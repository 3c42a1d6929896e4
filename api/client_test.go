package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/relaydesk/relay-go/cache"
	"github.com/relaydesk/relay-go/guard"
	"github.com/relaydesk/relay-go/transport"
)

func newClient(t *testing.T, url string, opts ...func(*Config)) *Client {
	t.Helper()

	tc, err := transport.New(transport.Config{
		BaseURL: url,
		Timeout: 2 * time.Second,
		Retry: transport.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 2 * time.Millisecond,
			Multiplier:   2,
		},
	})
	if err != nil {
		t.Fatalf("transport.New() error = %v", err)
	}

	cfg := Config{Transport: tc}
	for _, opt := range opts {
		opt(&cfg)
	}

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

// deadServerURL returns a URL nothing listens on.
func deadServerURL(t *testing.T) string {
	t.Helper()

	srv := httptest.NewServer(http.NewServeMux())
	url := srv.URL
	srv.Close()
	return url
}

func TestNew_RequiresTransport(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New() error = nil, want error for missing transport")
	}
}

func TestCheckHealth_Healthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %q, want /health", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	got := newClient(t, srv.URL).CheckHealth(context.Background())
	if !got.IsHealthy || got.Status != "ok" {
		t.Errorf("CheckHealth() = %+v, want healthy/ok", got)
	}
}

func TestCheckHealth_NeverFails(t *testing.T) {
	got := newClient(t, deadServerURL(t)).CheckHealth(context.Background())
	if got.IsHealthy {
		t.Error("IsHealthy = true for unreachable backend")
	}
	if got.Error == "" {
		t.Error("Error is empty, want failure description")
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d, err := newClient(t, srv.URL).Ping(context.Background())
	if err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if d <= 0 {
		t.Errorf("Ping() duration = %v, want positive", d)
	}
}

func TestChat_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Message != "hello" {
			t.Errorf("message = %q, want hello", req.Message)
		}
		json.NewEncoder(w).Encode(ChatResponse{
			Success: true, Content: "hi there", Model: "relay-1", Provider: "relay",
		})
	}))
	defer srv.Close()

	resp, err := newClient(t, srv.URL).Chat(context.Background(), ChatRequest{Message: "hello"})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Content != "hi there" {
		t.Errorf("Content = %q", resp.Content)
	}
}

func TestChat_ErrorPropagatedWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"model overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).Chat(context.Background(), ChatRequest{Message: "hi"})
	if err == nil {
		t.Fatal("Chat() error = nil, want propagated error")
	}
	if !strings.Contains(err.Error(), "chat request") {
		t.Errorf("error = %v, want chat request wrap", err)
	}
	te, ok := transport.AsError(err)
	if !ok || te.Kind != transport.KindServer {
		t.Errorf("error = %v, want classified server error in chain", err)
	}
}

func TestProviderStatus_FallsBackToEmptyMap(t *testing.T) {
	got := newClient(t, deadServerURL(t)).ProviderStatus(context.Background())
	if got == nil {
		t.Fatal("ProviderStatus() = nil, want empty map")
	}
	if len(got) != 0 {
		t.Errorf("ProviderStatus() = %v, want empty", got)
	}
}

func TestProviderStatus_ServesStaleOnOutage(t *testing.T) {
	var down atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if down.Load() {
			http.Error(w, "{}", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"providers": map[string]ProviderInfo{
				"relay": {Name: "relay", Available: true},
			},
		})
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, func(cfg *Config) {
		cfg.Cache = cache.NewStore()
	})

	first := c.ProviderStatus(context.Background())
	if !first["relay"].Available {
		t.Fatalf("ProviderStatus() = %v, want relay available", first)
	}

	down.Store(true)
	stale := c.ProviderStatus(context.Background())
	if !stale["relay"].Available {
		t.Errorf("ProviderStatus() during outage = %v, want cached value", stale)
	}
}

func TestTestProvider_NeverFails(t *testing.T) {
	got := newClient(t, deadServerURL(t)).TestProvider(context.Background(), "relay")
	if got.Available {
		t.Error("Available = true for unreachable backend")
	}
	if got.Error == "" {
		t.Error("Error is empty, want failure description")
	}
}

func TestTestProvider_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"available": true, "latency": 42})
	}))
	defer srv.Close()

	got := newClient(t, srv.URL).TestProvider(context.Background(), "relay")
	if !got.Available {
		t.Error("Available = false, want true")
	}
	if got.Latency != 42*time.Millisecond {
		t.Errorf("Latency = %v, want 42ms", got.Latency)
	}
}

func TestConversations_FallsBackToEmptySlice(t *testing.T) {
	got := newClient(t, deadServerURL(t)).Conversations(context.Background())
	if got == nil {
		t.Fatal("Conversations() = nil, want empty slice")
	}
	if len(got) != 0 {
		t.Errorf("Conversations() = %v, want empty", got)
	}
}

func TestConversations_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success":       true,
			"conversations": []Conversation{{ID: "c1", Title: "first"}},
		})
	}))
	defer srv.Close()

	got := newClient(t, srv.URL).Conversations(context.Background())
	if len(got) != 1 || got[0].ID != "c1" {
		t.Errorf("Conversations() = %v", got)
	}
}

func TestConversation_NilOnFailure(t *testing.T) {
	if got := newClient(t, deadServerURL(t)).Conversation(context.Background(), "c1"); got != nil {
		t.Errorf("Conversation() = %v, want nil", got)
	}
}

func TestSaveConversation_ReportsOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	}))
	defer srv.Close()

	if !newClient(t, srv.URL).SaveConversation(context.Background(), Conversation{Title: "t"}) {
		t.Error("SaveConversation() = false, want true")
	}

	if newClient(t, deadServerURL(t)).SaveConversation(context.Background(), Conversation{}) {
		t.Error("SaveConversation() = true for unreachable backend")
	}
}

func TestDeleteConversation_UsesDeleteMethod(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	}))
	defer srv.Close()

	if !newClient(t, srv.URL).DeleteConversation(context.Background(), "c9") {
		t.Error("DeleteConversation() = false, want true")
	}
	if gotMethod != http.MethodDelete || gotPath != "/api/conversations/c9" {
		t.Errorf("request = %s %s, want DELETE /api/conversations/c9", gotMethod, gotPath)
	}
}

func TestConversation_EscapesID(t *testing.T) {
	var gotEscaped string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotEscaped = r.URL.EscapedPath()
		json.NewEncoder(w).Encode(map[string]any{"conversation": map[string]string{"id": "a/b c"}})
	}))
	defer srv.Close()

	if got := newClient(t, srv.URL).Conversation(context.Background(), "a/b c"); got == nil {
		t.Fatal("Conversation() = nil, want conversation")
	}
	if gotEscaped != "/api/conversations/a%2Fb%20c" {
		t.Errorf("escaped path = %q, want /api/conversations/a%%2Fb%%20c", gotEscaped)
	}
}

func TestSettings_ZeroValueOnFailure(t *testing.T) {
	got := newClient(t, deadServerURL(t)).Settings(context.Background())
	if got != (Settings{}) {
		t.Errorf("Settings() = %+v, want zero value", got)
	}
}

func TestSettings_ServesStaleOnOutage(t *testing.T) {
	var down atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if down.Load() {
			http.Error(w, "{}", http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success":  true,
			"settings": Settings{Theme: "dark", Telemetry: true},
		})
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, func(cfg *Config) {
		cfg.Cache = cache.NewStore()
	})

	if got := c.Settings(context.Background()); got.Theme != "dark" {
		t.Fatalf("Settings() = %+v", got)
	}

	down.Store(true)
	if got := c.Settings(context.Background()); got.Theme != "dark" {
		t.Errorf("Settings() during outage = %+v, want cached value", got)
	}
}

func TestStats_NilOnFailure(t *testing.T) {
	if got := newClient(t, deadServerURL(t)).Stats(context.Background()); got != nil {
		t.Errorf("Stats() = %v, want nil", got)
	}
}

func TestSendMetrics_SwallowsFailures(t *testing.T) {
	// Must not panic or surface anything on an unreachable backend.
	newClient(t, deadServerURL(t)).SendMetrics(context.Background(), []Event{
		{Name: "app_start", Timestamp: time.Now()},
	})
}

func TestSendMetrics_RateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, func(cfg *Config) {
		cfg.Telemetry = guard.NewLimiter(guard.LimiterConfig{PerSecond: 0.001, Burst: 1})
	})

	events := []Event{{Name: "e", Timestamp: time.Now()}}
	for range 5 {
		c.SendMetrics(context.Background(), events)
	}

	if calls.Load() != 1 {
		t.Errorf("backend calls = %d, want 1 (excess dropped by limiter)", calls.Load())
	}
}

func TestSendMetrics_EmptyBatchSkipped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend called for empty batch")
	}))
	defer srv.Close()

	newClient(t, srv.URL).SendMetrics(context.Background(), nil)
}

func TestSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/info":
			json.NewEncoder(w).Encode(ServerInfo{Version: "1.4.0", Status: "ok", Uptime: 99})
		case "/api/ai/providers/status":
			json.NewEncoder(w).Encode(map[string]any{
				"providers": map[string]ProviderInfo{"relay": {Name: "relay", Available: true}},
			})
		case "/api/stats":
			json.NewEncoder(w).Encode(map[string]any{"stats": Stats{Requests: 7}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	snap, err := newClient(t, srv.URL).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snap.Info == nil || snap.Info.Version != "1.4.0" {
		t.Errorf("Info = %+v", snap.Info)
	}
	if !snap.Providers["relay"].Available {
		t.Errorf("Providers = %v", snap.Providers)
	}
	if snap.Stats == nil || snap.Stats.Requests != 7 {
		t.Errorf("Stats = %+v", snap.Stats)
	}
}

func TestSnapshot_FailsOnInfoError(t *testing.T) {
	_, err := newClient(t, deadServerURL(t)).Snapshot(context.Background())
	if err == nil {
		t.Fatal("Snapshot() error = nil, want error when info fetch fails")
	}
	if !strings.Contains(err.Error(), "server snapshot") {
		t.Errorf("error = %v, want snapshot wrap", err)
	}
}

func TestUploadFiles_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing multipart: %v", err)
		}
		bodies = append(bodies, r.FormValue("projectName"))
		if calls.Add(1) == 1 {
			http.Error(w, `{"message":"flaky"}`, http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"project": Project{ID: "p1", Name: "demo", FileCount: 2},
		})
	}))
	defer srv.Close()

	files := []File{
		{Name: "main.go", Content: []byte("package main")},
		{Name: "go.mod", Content: []byte("module demo")},
	}
	proj, err := newClient(t, srv.URL).UploadFiles(context.Background(), "demo", files)
	if err != nil {
		t.Fatalf("UploadFiles() error = %v", err)
	}
	if proj.ID != "p1" {
		t.Errorf("project = %+v", proj)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
	// The retried attempt must replay the identical multipart body.
	for _, name := range bodies {
		if name != "demo" {
			t.Errorf("projectName = %q on some attempt, want demo", name)
		}
	}
}

func TestUploadFiles_ExhaustedRetriesPropagates(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"message":"storage down"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).UploadFiles(context.Background(), "demo", []File{
		{Name: "a.txt", Content: []byte("x")},
	})
	if err == nil {
		t.Fatal("UploadFiles() error = nil, want propagated error")
	}
	if !strings.Contains(err.Error(), `upload "demo"`) {
		t.Errorf("error = %v, want upload wrap", err)
	}
	te, ok := transport.AsError(err)
	if !ok || te.Kind != transport.KindServer {
		t.Errorf("error = %v, want classified server error in chain", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestUploadFiles_RequiresFiles(t *testing.T) {
	_, err := newClient(t, deadServerURL(t)).UploadFiles(context.Background(), "demo", nil)
	if err == nil {
		t.Error("UploadFiles() error = nil, want error for empty file list")
	}
}

func TestUploadFiles_BulkheadFull(t *testing.T) {
	gate := guard.NewBulkhead(guard.BulkheadConfig{MaxConcurrent: 1})
	if err := gate.Acquire(context.Background()); err != nil {
		t.Fatalf("priming bulkhead: %v", err)
	}
	defer gate.Release()

	c := newClient(t, deadServerURL(t), func(cfg *Config) {
		cfg.UploadGate = gate
	})

	_, err := c.UploadFiles(context.Background(), "demo", []File{{Name: "a", Content: []byte("x")}})
	if !errors.Is(err, guard.ErrBulkheadFull) {
		t.Errorf("UploadFiles() error = %v, want ErrBulkheadFull", err)
	}
}

func TestAnalyzeProject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/files/analyze/p1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"analysis": Analysis{ProjectID: "p1", Summary: "2 files, Go"},
		})
	}))
	defer srv.Close()

	got, err := newClient(t, srv.URL).AnalyzeProject(context.Background(), "p1")
	if err != nil {
		t.Fatalf("AnalyzeProject() error = %v", err)
	}
	if got.Summary != "2 files, Go" {
		t.Errorf("Summary = %q", got.Summary)
	}
}
