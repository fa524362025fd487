/*
PURPOSE:
  Defines the core data structures used throughout Tag Runner.
  These models represent discovered images, their metadata, the outcome of
  each inference call and the aggregated record of one test run.

REQUIREMENTS:
  User-specified:
  - One run record per model profile, with per-image and per-group analyses.
  - Failures are recorded inside the outcome, never raised.

  Implementation-discovered:
  - Need JSON tags matching the persisted run record.
  - Outcome must carry exactly one of response/error.

ARCHITECTURE INTEGRATION:
  - Used by: internal/engine, internal/metadata, internal/output
  - Shared across boundaries.

ERROR HANDLING:
  - ErrPhaseRecorded when a phase result would be overwritten.

IMPLEMENTATION RULES:
  - Keep structs simple and public.
  - Build outcomes through Succeeded/Failed only.

USAGE:
  out := model.Succeeded(prompt, text)
  run := model.NewTestRun(now, "llava:latest", "Good quality", 12)

SELF-HEALING INSTRUCTIONS:
  - If a new phase is added, add a field to Phases and a Record* method.

RELATED FILES:
  - internal/output/json.go
  - internal/output/csv.go

MAINTENANCE:
  - Update when the persisted record layout changes.
*/

package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

// Phase names as they appear in the persisted record.
const (
	PhaseDetailedSingle   = "detailed_single"
	PhaseQuickAll         = "quick_all"
	PhaseGroupNoContext   = "group_no_context"
	PhaseGroupWithContext = "group_with_context"
)

// ErrPhaseRecorded is returned when a phase result has already been stored.
var ErrPhaseRecorded = errors.New("phase already recorded")

// ImageAsset is one image discovered at run start.
type ImageAsset struct {
	Path string `json:"path"`
	Size int64  `json:"size_in_bytes"`
}

// ImageMetadata is the best-effort metadata record for one image.
type ImageMetadata struct {
	Filename        string         `json:"filename"`
	RelativePath    string         `json:"relative_path"`
	FileSizeMB      float64        `json:"file_size_mb"`
	Dimensions      string         `json:"dimensions,omitempty"`
	Format          string         `json:"format,omitempty"`
	CapturedTags    map[string]any `json:"captured_tags,omitempty"`
	GPS             map[string]any `json:"gps,omitempty"`
	ExtractionError string         `json:"extraction_error,omitempty"`
}

// FailureKind classifies a failed inference call.
type FailureKind string

const (
	FailureStatus    FailureKind = "status"
	FailureTimeout   FailureKind = "timeout"
	FailureTransport FailureKind = "transport"
	FailureMalformed FailureKind = "malformed"
)

// Outcome is the result of a single inference call.
// Exactly one of Response and Error is set, selected by Success.
type Outcome struct {
	Success     bool        `json:"success"`
	Response    string      `json:"response,omitempty"`
	Error       string      `json:"error,omitempty"`
	PromptUsed  string      `json:"prompt_used"`
	FailureKind FailureKind `json:"failure_kind,omitempty"`
}

// Succeeded builds a successful outcome.
func Succeeded(prompt, response string) Outcome {
	return Outcome{Success: true, Response: response, PromptUsed: prompt}
}

// Failed builds a failed outcome. An empty message is replaced so that a
// failure always carries an error text.
func Failed(prompt string, kind FailureKind, message string) Outcome {
	if message == "" {
		message = "unknown error"
	}
	return Outcome{Success: false, Error: message, PromptUsed: prompt, FailureKind: kind}
}

// MarshalJSON writes response on success and error on failure, even when
// the selected text is empty.
func (o Outcome) MarshalJSON() ([]byte, error) {
	type wire struct {
		Success     bool        `json:"success"`
		Response    *string     `json:"response,omitempty"`
		Error       *string     `json:"error,omitempty"`
		PromptUsed  string      `json:"prompt_used"`
		FailureKind FailureKind `json:"failure_kind,omitempty"`
	}
	w := wire{Success: o.Success, PromptUsed: o.PromptUsed, FailureKind: o.FailureKind}
	if o.Success {
		w.Response = &o.Response
	} else {
		w.Error = &o.Error
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(w); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// IndividualAnalysis pairs an image with its short-tags outcome inside a group.
type IndividualAnalysis struct {
	Image string  `json:"image"`
	Tags  Outcome `json:"tags"`
}

// GroupAnalysis is the result of tagging a collection of images.
type GroupAnalysis struct {
	ContextHint        string               `json:"context_hint,omitempty"`
	IndividualAnalyses []IndividualAnalysis `json:"individual_analyses"`
	GroupAnalysis      Outcome              `json:"group_analysis"`
	ImagesCount        int                  `json:"images_count"`
}

// DetailedAnalyses holds the four prompt strategies run in the detailed phase.
type DetailedAnalyses struct {
	GenericTags      Outcome `json:"generic_tags"`
	DetailedTags     Outcome `json:"detailed_tags"`
	BriefDescription Outcome `json:"brief_description"`
	FullDescription  Outcome `json:"full_description"`
}

// DetailedEntry is one image of the detailed_single phase.
type DetailedEntry struct {
	Image    string           `json:"image"`
	Metadata ImageMetadata    `json:"metadata"`
	Analyses DetailedAnalyses `json:"analyses"`
}

// QuickEntry is one image of the quick_all phase.
type QuickEntry struct {
	Image    string        `json:"image"`
	Metadata ImageMetadata `json:"metadata"`
	Tags     Outcome       `json:"tags"`
}

// Phases holds the per-phase results of a run. Skipped phases stay nil and
// are left out of the record.
type Phases struct {
	DetailedSingle   []DetailedEntry `json:"detailed_single,omitempty"`
	QuickAll         []QuickEntry    `json:"quick_all,omitempty"`
	GroupNoContext   *GroupAnalysis  `json:"group_no_context,omitempty"`
	GroupWithContext *GroupAnalysis  `json:"group_with_context,omitempty"`
}

// TestRun is the record of one complete four-phase run against one profile.
type TestRun struct {
	Timestamp   time.Time `json:"timestamp"`
	Model       string    `json:"model"`
	ModelConfig string    `json:"model_config"`
	TotalImages int       `json:"total_images"`
	Tests       Phases    `json:"tests"`

	recorded map[string]bool
}

// NewTestRun starts an empty run record.
func NewTestRun(ts time.Time, modelID, description string, totalImages int) *TestRun {
	return &TestRun{
		Timestamp:   ts,
		Model:       modelID,
		ModelConfig: description,
		TotalImages: totalImages,
		recorded:    make(map[string]bool),
	}
}

// Recorded reports whether the named phase has a stored result.
func (r *TestRun) Recorded(phase string) bool {
	return r.recorded[phase]
}

// PhaseNames returns the recorded phases in execution order.
func (r *TestRun) PhaseNames() []string {
	var names []string
	for _, p := range []string{PhaseDetailedSingle, PhaseQuickAll, PhaseGroupNoContext, PhaseGroupWithContext} {
		if r.recorded[p] {
			names = append(names, p)
		}
	}
	return names
}

func (r *TestRun) mark(phase string) error {
	if r.recorded == nil {
		r.recorded = make(map[string]bool)
	}
	if r.recorded[phase] {
		return ErrPhaseRecorded
	}
	r.recorded[phase] = true
	return nil
}

// RecordDetailed stores the detailed_single phase.
func (r *TestRun) RecordDetailed(entries []DetailedEntry) error {
	if err := r.mark(PhaseDetailedSingle); err != nil {
		return err
	}
	r.Tests.DetailedSingle = entries
	return nil
}

// RecordQuick stores the quick_all phase.
func (r *TestRun) RecordQuick(entries []QuickEntry) error {
	if err := r.mark(PhaseQuickAll); err != nil {
		return err
	}
	r.Tests.QuickAll = entries
	return nil
}

// RecordGroup stores one of the two group phases.
func (r *TestRun) RecordGroup(phase string, g *GroupAnalysis) error {
	switch phase {
	case PhaseGroupNoContext, PhaseGroupWithContext:
	default:
		return errors.New("not a group phase: " + phase)
	}
	if err := r.mark(phase); err != nil {
		return err
	}
	if phase == PhaseGroupNoContext {
		r.Tests.GroupNoContext = g
	} else {
		r.Tests.GroupWithContext = g
	}
	return nil
}
