/*
PURPOSE:
  High-level runner that orchestrates a test run.
  Executes the four fixed phases over the discovered images for one profile
  and hands the finished record to the store.

REQUIREMENTS:
  User-specified:
  - Phase 1 detailed_single: first 3 images, metadata + 4 prompt strategies.
  - Phase 2 quick_all: every image, metadata + short tags.
  - Phase 3 group_no_context: first 7 images, no hint.
  - Phase 4 group_with_context: images from index 7 on, only with a hint.
  - A failed call never aborts the run.

  Implementation-discovered:
  - Phase 4 on fewer than 8 images would group zero images; it is skipped.
  - Comparison mode is just Run repeated per profile.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli
  - Uses: internal/engine (Invoker, GroupAnalyzer), internal/model

ERROR HANDLING:
  - Logs errors but continues (resilience).
  - ErrNoImages before phase 1; no record is written.
  - Store errors are returned after the run completes.
  - A cancelled context ends the run unsaved.

IMPLEMENTATION RULES:
  - Strictly sequential: one image, one prompt, one phase at a time.
  - The TestRun is owned by Run until it is saved.

USAGE:
  r := engine.NewRunner(e, metadata.New("."), output.NewRunStore(dir, true))
  run, path, err := r.Run(ctx, profile, images)

RELATED FILES:
  - internal/engine/client.go
  - internal/engine/group.go
  - internal/output/json.go

MAINTENANCE:
  - Update phase list if new prompt strategies are added.
*/

package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/daryltucker/tag-runner/internal/model"
	"github.com/daryltucker/tag-runner/internal/output"
	"github.com/daryltucker/tag-runner/internal/profile"
)

const (
	detailedSample = 3
	groupSample    = 7
)

// ErrNoImages is returned when a run is started without images.
var ErrNoImages = errors.New("no images found")

// MetadataSource extracts image metadata.
type MetadataSource interface {
	Extract(path string) model.ImageMetadata
	RelativePath(path string) string
}

// Store persists a finished run and returns where it was written.
type Store interface {
	Save(run *model.TestRun) (string, error)
}

// HintSource supplies the optional context hint for the last phase.
type HintSource interface {
	ContextHint(ctx context.Context) string
}

// StaticHint is a fixed context hint.
type StaticHint string

func (h StaticHint) ContextHint(context.Context) string { return string(h) }

// Runner executes test runs.
type Runner struct {
	Invoker  Invoker
	Metadata MetadataSource
	Store    Store
	Hint     HintSource
	Now      func() time.Time
}

// NewRunner creates a Runner without a context hint.
func NewRunner(inv Invoker, md MetadataSource, store Store) *Runner {
	return &Runner{Invoker: inv, Metadata: md, Store: store, Now: time.Now}
}

// Result is the outcome of one profile's run.
type Result struct {
	Profile profile.Profile
	Run     *model.TestRun
	Path    string
}

// RunAll runs each profile in turn over the same images. A failure to save
// one profile's record does not stop the others.
func (r *Runner) RunAll(ctx context.Context, profiles []profile.Profile, images []model.ImageAsset) ([]Result, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}
	var results []Result
	var errs []error
	for _, p := range profiles {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		output.Logger.Info("Testing Model", "profile", p.Name, "model", p.Model)
		run, path, err := r.Run(ctx, p, images)
		if err != nil {
			output.Logger.Error("Run failed", "profile", p.Name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name, err))
		}
		if run != nil {
			results = append(results, Result{Profile: p, Run: run, Path: path})
		}
		output.Logger.Info("Completed test", "profile", p.Name, "saved", path)
	}
	return results, errors.Join(errs...)
}

// Run executes all four phases for p and saves the record once.
func (r *Runner) Run(ctx context.Context, p profile.Profile, images []model.ImageAsset) (*model.TestRun, string, error) {
	if len(images) == 0 {
		return nil, "", ErrNoImages
	}
	output.Logger.Info("Found images to analyze", "count", len(images), "model", p.Model)

	run := model.NewTestRun(r.now(), p.Model, p.Description, len(images))

	r.record(model.PhaseDetailedSingle, run.RecordDetailed(r.detailedSingle(ctx, p, images[:min(detailedSample, len(images))])))
	r.record(model.PhaseQuickAll, run.RecordQuick(r.quickAll(ctx, p, images)))

	groups := &GroupAnalyzer{Invoker: r.Invoker, RelPath: r.Metadata.RelativePath}

	output.Logger.Info("Phase", "name", model.PhaseGroupNoContext)
	if g, err := groups.Analyze(ctx, images[:min(groupSample, len(images))], "", p); err != nil {
		output.Logger.Error("Group analysis failed", "phase", model.PhaseGroupNoContext, "error", err)
	} else {
		r.record(model.PhaseGroupNoContext, run.RecordGroup(model.PhaseGroupNoContext, g))
	}

	rest := images[min(groupSample, len(images)):]
	switch hint := r.contextHint(ctx, len(rest)); {
	case len(rest) == 0:
		output.Logger.Info("Skipping phase: no images beyond the group sample", "name", model.PhaseGroupWithContext, "sample", groupSample)
	case hint == "":
		output.Logger.Info("Skipping phase: no context hint", "name", model.PhaseGroupWithContext)
	default:
		output.Logger.Info("Phase", "name", model.PhaseGroupWithContext, "images", len(rest))
		if g, err := groups.Analyze(ctx, rest, hint, p); err != nil {
			output.Logger.Error("Group analysis failed", "phase", model.PhaseGroupWithContext, "error", err)
		} else {
			r.record(model.PhaseGroupWithContext, run.RecordGroup(model.PhaseGroupWithContext, g))
		}
	}

	if err := ctx.Err(); err != nil {
		return run, "", fmt.Errorf("run interrupted, results not saved: %w", err)
	}
	if r.Store == nil {
		return run, "", nil
	}
	path, err := r.Store.Save(run)
	if err != nil {
		return run, "", fmt.Errorf("failed to save results: %w", err)
	}
	output.Logger.Info("Tests completed", "model", p.Model, "results", path)
	return run, path, nil
}

func (r *Runner) detailedSingle(ctx context.Context, p profile.Profile, images []model.ImageAsset) []model.DetailedEntry {
	output.Logger.Info("Phase", "name", model.PhaseDetailedSingle, "images", len(images))
	entries := make([]model.DetailedEntry, 0, len(images))
	for _, img := range images {
		output.Logger.Info("Analyzing image", "image", img.Path)
		entries = append(entries, model.DetailedEntry{
			Image:    r.Metadata.RelativePath(img.Path),
			Metadata: r.extract(img),
			Analyses: model.DetailedAnalyses{
				GenericTags:      r.invoke(ctx, img, profile.KindTags, false, p),
				DetailedTags:     r.invoke(ctx, img, profile.KindDetailedTags, false, p),
				BriefDescription: r.invoke(ctx, img, profile.KindBrief, false, p),
				FullDescription:  r.invoke(ctx, img, profile.KindDescription, true, p),
			},
		})
	}
	return entries
}

func (r *Runner) quickAll(ctx context.Context, p profile.Profile, images []model.ImageAsset) []model.QuickEntry {
	output.Logger.Info("Phase", "name", model.PhaseQuickAll, "images", len(images))
	entries := make([]model.QuickEntry, 0, len(images))
	for _, img := range images {
		output.Logger.Info("Analyzing image", "image", img.Path)
		entries = append(entries, model.QuickEntry{
			Image:    r.Metadata.RelativePath(img.Path),
			Metadata: r.extract(img),
			Tags:     r.invoke(ctx, img, profile.KindTags, false, p),
		})
	}
	return entries
}

func (r *Runner) invoke(ctx context.Context, img model.ImageAsset, kind profile.PromptKind, reasoning bool, p profile.Profile) model.Outcome {
	out := r.Invoker.Invoke(ctx, img, PromptOf(kind), reasoning, p)
	if !out.Success {
		output.Logger.Warn("Inference failed", "image", img.Path, "prompt", kind, "kind", out.FailureKind, "error", out.Error)
	}
	return out
}

func (r *Runner) extract(img model.ImageAsset) model.ImageMetadata {
	md := r.Metadata.Extract(img.Path)
	if md.ExtractionError != "" {
		output.Logger.Warn("Metadata extraction incomplete", "image", img.Path, "error", md.ExtractionError)
	}
	return md
}

// contextHint asks the hint source only when there is something to group.
func (r *Runner) contextHint(ctx context.Context, remaining int) string {
	if r.Hint == nil || remaining == 0 {
		return ""
	}
	return strings.TrimSpace(r.Hint.ContextHint(ctx))
}

func (r *Runner) record(phase string, err error) {
	if err != nil {
		output.Logger.Error("Phase result not recorded", "phase", phase, "error", err)
	}
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}
