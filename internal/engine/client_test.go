package engine

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/tag-runner/internal/config"
	"github.com/daryltucker/tag-runner/internal/model"
	"github.com/daryltucker/tag-runner/internal/profile"
)

var demo = profile.Profile{
	Name:        "demo",
	Model:       "demo:1b",
	Temperature: 0.3,
	Prompts:     map[profile.PromptKind]string{profile.KindTags: "list tags:"},
}

var qwen = profile.Profile{
	Name:        "qwen",
	Model:       "qwen3-vl:8b",
	Temperature: 0.3,
	Prompts:     map[profile.PromptKind]string{profile.KindTags: "list tags:"},
}

func writeAsset(t *testing.T, name string, data []byte) model.ImageAsset {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return model.ImageAsset{Path: path, Size: int64(len(data))}
}

func newTestEngine(t *testing.T, h http.HandlerFunc) *Engine {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := config.DefaultConfig()
	cfg.OllamaURL = srv.URL + "/"
	return New(cfg)
}

func reply(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"model":   "demo:1b",
			"message": map[string]any{"role": "assistant", "content": content},
			"done":    true,
		})
	}
}

func TestNewTrimsBaseURL(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.OllamaURL = "http://localhost:11434/"
	e := New(cfg)
	assert.Equal(t, "http://localhost:11434", e.BaseURL)
	assert.Equal(t, DefaultRequestTimeout, e.Timeout)
	assert.Equal(t, cfg.ProbeTimeout, e.ProbeTimeout)
}

func TestInvokeRequestShape(t *testing.T) {
	raw := []byte{0xff, 0xd8, 0xff, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	img := writeAsset(t, "a.jpg", raw)

	requests := make(chan map[string]any, 1)
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		requests <- body
		reply("  cat, dog \n")(w, r)
	})

	out := e.Invoke(t.Context(), img, PromptOf(profile.KindTags), false, demo)

	assert.Equal(t, model.Succeeded("list tags:", "cat, dog"), out)

	got := <-requests

	assert.Equal(t, "demo:1b", got["model"])
	assert.Equal(t, false, got["stream"])
	assert.Equal(t, 0.3, got["options"].(map[string]any)["temperature"])

	msgs := got["messages"].([]any)
	require.Len(t, msgs, 1)
	msg := msgs[0].(map[string]any)
	assert.Equal(t, "user", msg["role"])
	assert.Equal(t, "list tags:", msg["content"])
	assert.Equal(t, []any{base64.StdEncoding.EncodeToString(raw)}, msg["images"])
}

func TestInvokeReasoningPrefix(t *testing.T) {
	img := writeAsset(t, "a.jpg", []byte("img"))
	sent := make(chan string, 3)
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) && assert.Len(t, req.Messages, 1) {
			sent <- req.Messages[0].Content
		}
		reply("ok")(w, r)
	})

	direct := e.Invoke(t.Context(), img, PromptOf(profile.KindTags), false, qwen)
	thinking := e.Invoke(t.Context(), img, PromptOf(profile.KindTags), true, qwen)
	plain := e.Invoke(t.Context(), img, PromptOf(profile.KindTags), false, demo)

	assert.Equal(t, DirectAnswerPrefix+"list tags:", direct.PromptUsed)
	assert.Equal(t, "list tags:", thinking.PromptUsed)
	assert.Equal(t, "list tags:", plain.PromptUsed)
	close(sent)
	var seen []string
	for s := range sent {
		seen = append(seen, s)
	}
	assert.Equal(t, []string{direct.PromptUsed, thinking.PromptUsed, plain.PromptUsed}, seen)
}

func TestPromptResolve(t *testing.T) {
	assert.Equal(t, "list tags:", PromptOf(profile.KindTags).Resolve(demo))
	assert.Equal(t, FallbackPrompt, PromptOf(profile.KindDescription).Resolve(demo))
	assert.Equal(t, "custom", CustomPrompt("custom").Resolve(demo))
	assert.Equal(t, DirectAnswerPrefix+"custom", EffectivePrompt(CustomPrompt("custom"), false, qwen))
}

func TestInvokeFailures(t *testing.T) {
	img := writeAsset(t, "a.jpg", []byte("img"))

	tests := []struct {
		name    string
		handler http.HandlerFunc
		kind    model.FailureKind
		message string
	}{
		{
			name: "status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model not loaded", http.StatusInternalServerError)
			},
			kind:    model.FailureStatus,
			message: "HTTP 500: model not loaded\n",
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"error":"model 'demo:1b' not found"}`))
			},
			kind:    model.FailureStatus,
			message: `HTTP 404: {"error":"model 'demo:1b' not found"}`,
		},
		{
			name: "missing message",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("{\n  \"done\": true\n}"))
			},
			kind:    model.FailureMalformed,
			message: `Unexpected response format: {"done":true}`,
		},
		{
			name: "content not a string",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"message":{"content":42}}`))
			},
			kind:    model.FailureMalformed,
			message: `Unexpected response format: {"message":{"content":42}}`,
		},
		{
			name: "top level array",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`[1,2]`))
			},
			kind:    model.FailureMalformed,
			message: `Unexpected response format: [1,2]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, tt.handler)
			out := e.Invoke(t.Context(), img, PromptOf(profile.KindTags), false, demo)

			assert.False(t, out.Success)
			assert.Empty(t, out.Response)
			assert.Equal(t, tt.kind, out.FailureKind)
			assert.Equal(t, tt.message, out.Error)
			assert.Equal(t, "list tags:", out.PromptUsed)
		})
	}
}

func TestInvokeBodyNotJSON(t *testing.T) {
	img := writeAsset(t, "a.jpg", []byte("img"))
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>proxy error</html>"))
	})

	out := e.Invoke(t.Context(), img, PromptOf(profile.KindTags), false, demo)

	assert.False(t, out.Success)
	assert.Equal(t, model.FailureTransport, out.FailureKind)
	assert.NotEmpty(t, out.Error)
}

func TestInvokeTimeout(t *testing.T) {
	img := writeAsset(t, "a.jpg", []byte("img"))
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	e.Timeout = 50 * time.Millisecond

	out := e.Invoke(t.Context(), img, PromptOf(profile.KindTags), false, demo)

	assert.False(t, out.Success)
	assert.Equal(t, model.FailureTimeout, out.FailureKind)
	assert.Equal(t, TimeoutMessage, out.Error)
}

func TestInvokeUnreachable(t *testing.T) {
	img := writeAsset(t, "a.jpg", []byte("img"))
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	e := &Engine{BaseURL: url, HTTPClient: &http.Client{}}
	out := e.Invoke(t.Context(), img, PromptOf(profile.KindTags), false, demo)

	assert.False(t, out.Success)
	assert.Equal(t, model.FailureTransport, out.FailureKind)
	assert.NotEmpty(t, out.Error)
}

func TestInvokeMissingImage(t *testing.T) {
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	img := model.ImageAsset{Path: filepath.Join(t.TempDir(), "gone.jpg")}

	out := e.Invoke(t.Context(), img, PromptOf(profile.KindTags), false, demo)

	assert.False(t, out.Success)
	assert.Equal(t, model.FailureTransport, out.FailureKind)
	assert.Equal(t, "list tags:", out.PromptUsed)
}
