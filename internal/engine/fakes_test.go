package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/daryltucker/tag-runner/internal/model"
	"github.com/daryltucker/tag-runner/internal/profile"
)

type call struct {
	Image     string
	Prompt    string
	Reasoning bool
}

// scriptedInvoker answers every call with fixed text derived from the image
// and prompt, and records what it was asked.
type scriptedInvoker struct {
	calls []call
	fail  func(image string) bool
}

func (s *scriptedInvoker) Invoke(_ context.Context, img model.ImageAsset, prompt Prompt, allowReasoning bool, p profile.Profile) model.Outcome {
	text := EffectivePrompt(prompt, allowReasoning, p)
	name := filepath.Base(img.Path)
	s.calls = append(s.calls, call{Image: name, Prompt: text, Reasoning: allowReasoning})
	if s.fail != nil && s.fail(name) {
		return model.Failed(text, model.FailureStatus, "HTTP 500: boom")
	}
	return model.Succeeded(text, fmt.Sprintf("%s|%d", name, len(text)))
}

type stubMetadata struct{}

func (stubMetadata) Extract(path string) model.ImageMetadata {
	return model.ImageMetadata{
		Filename:     filepath.Base(path),
		RelativePath: stubMetadata{}.RelativePath(path),
		FileSizeMB:   0.5,
		Dimensions:   "640x480",
		Format:       "jpeg",
	}
}

func (stubMetadata) RelativePath(path string) string {
	return "test_images/" + filepath.Base(path)
}

type memStore struct {
	runs []*model.TestRun
	err  error
}

func (m *memStore) Save(run *model.TestRun) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.runs = append(m.runs, run)
	return fmt.Sprintf("mem/%d.json", len(m.runs)), nil
}

// countingHint returns a fixed hint and counts how often it was asked.
type countingHint struct {
	hint  string
	asked int
}

func (c *countingHint) ContextHint(context.Context) string {
	c.asked++
	return c.hint
}

var errDiskFull = errors.New("disk full")

func assets(names ...string) []model.ImageAsset {
	out := make([]model.ImageAsset, len(names))
	for i, n := range names {
		out[i] = model.ImageAsset{Path: filepath.Join("/photos", n), Size: 1024}
	}
	return out
}

func numbered(n int) []model.ImageAsset {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("img%02d.jpg", i)
	}
	return assets(names...)
}
