/*
PURPOSE:
  Core engine for interacting with the Ollama chat API.
  Builds one vision request per call and classifies the outcome.

REQUIREMENTS:
  User-specified:
  - Single-turn chat request: model, one user message with prompt + image,
    stream=false, options.temperature from the profile.
  - Fixed 120s bound per request. No retries.
  - Status errors, timeouts, transport failures and malformed bodies map to
    distinct failed outcomes.

  Implementation-discovered:
  - ollama/api types marshal api.ImageData as base64 text, which is the
    transport encoding the endpoint expects.
  - The body is decoded generically so that an unexpected shape can be
    reported with the raw payload.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine (Runner, GroupAnalyzer), internal/cli
  - Uses: internal/config, internal/model, internal/profile, internal/output

ERROR HANDLING:
  - Invoke never returns an error; every failure becomes a model.Outcome.

IMPLEMENTATION RULES:
  - Use net/http with an explicit timeout.
  - One outbound call per Invoke.

USAGE:
  e := engine.New(cfg)
  out := e.Invoke(ctx, img, engine.PromptOf(profile.KindTags), false, p)

SELF-HEALING INSTRUCTIONS:
  - If Ollama changes the chat response, update classifyBody.

RELATED FILES:
  - internal/engine/probe.go
  - internal/model/types.go
*/

package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/daryltucker/tag-runner/internal/config"
	"github.com/daryltucker/tag-runner/internal/model"
	"github.com/daryltucker/tag-runner/internal/output"
	"github.com/daryltucker/tag-runner/internal/profile"
)

// DefaultRequestTimeout bounds every inference call.
const DefaultRequestTimeout = 120 * time.Second

// TimeoutMessage is recorded for calls that exceed the request bound.
const TimeoutMessage = "Request timeout (>120s)"

// FallbackPrompt is sent when neither a custom prompt nor a template resolves.
const FallbackPrompt = "Describe this image."

// DirectAnswerPrefix suppresses visible reasoning on reasoning-capable models.
const DirectAnswerPrefix = "Answer directly without showing your reasoning process. "

// ErrRequestTimeout identifies a timed out inference call.
var ErrRequestTimeout = errors.New(TimeoutMessage)

// Prompt selects the text of a request: Custom wins over Kind.
type Prompt struct {
	Kind   profile.PromptKind
	Custom string
}

// PromptOf selects a profile template.
func PromptOf(kind profile.PromptKind) Prompt {
	return Prompt{Kind: kind}
}

// CustomPrompt sends text verbatim.
func CustomPrompt(text string) Prompt {
	return Prompt{Custom: text}
}

// Resolve returns the prompt text for p.
func (pr Prompt) Resolve(p profile.Profile) string {
	if pr.Custom != "" {
		return pr.Custom
	}
	if s, ok := p.Prompt(pr.Kind); ok {
		return s
	}
	return FallbackPrompt
}

// Invoker performs one inference call.
type Invoker interface {
	Invoke(ctx context.Context, img model.ImageAsset, prompt Prompt, allowReasoning bool, p profile.Profile) model.Outcome
}

// Engine handles Ollama interactions.
type Engine struct {
	BaseURL      string
	HTTPClient   *http.Client
	Timeout      time.Duration
	ProbeTimeout time.Duration
}

// New creates a new Engine.
func New(cfg *config.Config) *Engine {
	return &Engine{
		BaseURL:      strings.TrimSuffix(cfg.OllamaURL, "/"),
		HTTPClient:   &http.Client{Timeout: DefaultRequestTimeout},
		Timeout:      DefaultRequestTimeout,
		ProbeTimeout: cfg.ProbeTimeout,
	}
}

func (e *Engine) timeout() time.Duration {
	if e.Timeout <= 0 {
		return DefaultRequestTimeout
	}
	return e.Timeout
}

func (e *Engine) client() *http.Client {
	if e.HTTPClient == nil {
		return http.DefaultClient
	}
	return e.HTTPClient
}

// EffectivePrompt is the text actually sent for prompt under profile p.
func EffectivePrompt(prompt Prompt, allowReasoning bool, p profile.Profile) string {
	text := prompt.Resolve(p)
	if !allowReasoning && p.SupportsReasoning() {
		return DirectAnswerPrefix + text
	}
	return text
}

// Invoke runs a single non-streaming chat request for img.
func (e *Engine) Invoke(ctx context.Context, img model.ImageAsset, prompt Prompt, allowReasoning bool, p profile.Profile) model.Outcome {
	text := EffectivePrompt(prompt, allowReasoning, p)

	data, err := os.ReadFile(img.Path)
	if err != nil {
		return model.Failed(text, model.FailureTransport, err.Error())
	}

	reqBody, err := json.Marshal(chatRequest(p, text, data))
	if err != nil {
		return model.Failed(text, model.FailureTransport, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/api/chat", bytes.NewReader(reqBody))
	if err != nil {
		return model.Failed(text, model.FailureTransport, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	output.Logger.Debug("Network: Request Sent", "model", p.Model, "image", img.Path, "bytes", len(reqBody))
	resp, err := e.client().Do(req)
	if err != nil {
		return failure(text, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure(text, err)
	}
	output.Logger.Debug("Network: Response Received", "model", p.Model, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return model.Failed(text, model.FailureStatus, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)))
	}
	return classifyBody(text, body)
}

func chatRequest(p profile.Profile, prompt string, image []byte) *api.ChatRequest {
	stream := false
	return &api.ChatRequest{
		Model: p.Model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: prompt,
				Images:  []api.ImageData{api.ImageData(image)},
			},
		},
		Stream:  &stream,
		Options: map[string]any{"temperature": p.Temperature},
	}
}

// failure maps a transport-level error to an outcome.
func failure(prompt string, err error) model.Outcome {
	if isTimeout(err) {
		return model.Failed(prompt, model.FailureTimeout, ErrRequestTimeout.Error())
	}
	return model.Failed(prompt, model.FailureTransport, err.Error())
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// classifyBody accepts {"message": {"content": "..."}} and nothing else.
func classifyBody(prompt string, body []byte) model.Outcome {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return model.Failed(prompt, model.FailureTransport, err.Error())
	}
	if obj, ok := payload.(map[string]any); ok {
		if msg, ok := obj["message"].(map[string]any); ok {
			if content, ok := msg["content"].(string); ok {
				return model.Succeeded(prompt, strings.TrimSpace(content))
			}
		}
	}
	return model.Failed(prompt, model.FailureMalformed, "Unexpected response format: "+compact(body))
}

func compact(body []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return string(body)
	}
	return buf.String()
}
