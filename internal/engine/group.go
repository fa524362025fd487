package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/daryltucker/tag-runner/internal/model"
	"github.com/daryltucker/tag-runner/internal/output"
	"github.com/daryltucker/tag-runner/internal/profile"
)

// ErrEmptyGroup is returned when a group analysis is asked for no images.
var ErrEmptyGroup = errors.New("group analysis needs at least one image")

const contextGroupPrompt = `Context: %s

Based on this context and the images provided, output ONLY a comma-separated list of contextual tags that apply to this photo collection. No descriptions, no sentences, only tags.`

// GroupPrompt builds the group-level prompt. A hint is embedded verbatim;
// without one the profile's group template is used.
func GroupPrompt(hint string, p profile.Profile) string {
	if hint != "" {
		return fmt.Sprintf(contextGroupPrompt, hint)
	}
	return PromptOf(profile.KindGroup).Resolve(p)
}

// GroupAnalyzer tags a collection of images individually and as a group.
type GroupAnalyzer struct {
	Invoker Invoker
	// RelPath names images in the result; nil keeps the raw path.
	RelPath func(string) string
}

// Analyze tags each image with the short-tags prompt, then runs one group
// call using the first image as the representative sample.
func (g *GroupAnalyzer) Analyze(ctx context.Context, images []model.ImageAsset, hint string, p profile.Profile) (*model.GroupAnalysis, error) {
	if len(images) == 0 {
		return nil, ErrEmptyGroup
	}

	result := &model.GroupAnalysis{
		ContextHint:        hint,
		IndividualAnalyses: make([]model.IndividualAnalysis, 0, len(images)),
	}
	for _, img := range images {
		output.Logger.Info("Group: tagging image", "image", img.Path)
		result.IndividualAnalyses = append(result.IndividualAnalyses, model.IndividualAnalysis{
			Image: g.name(img.Path),
			Tags:  g.Invoker.Invoke(ctx, img, PromptOf(profile.KindTags), false, p),
		})
	}

	output.Logger.Info("Group: analyzing collection", "images", len(images), "with_context", hint != "")
	result.GroupAnalysis = g.Invoker.Invoke(ctx, images[0], CustomPrompt(GroupPrompt(hint, p)), false, p)
	result.ImagesCount = len(result.IndividualAnalyses)
	return result, nil
}

func (g *GroupAnalyzer) name(path string) string {
	if g.RelPath == nil {
		return path
	}
	return g.RelPath(path)
}
