package profile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	reg := Default()

	assert.Equal(t, []string{"qwen3-vl:8b", "llava"}, reg.Names())

	p, err := reg.Resolve("llava")
	require.NoError(t, err)
	assert.Equal(t, "llava:latest", p.Model)
	assert.Equal(t, 0.5, p.Temperature)
	assert.False(t, p.SupportsReasoning())

	q, err := reg.Resolve(DefaultName)
	require.NoError(t, err)
	assert.Equal(t, 0.3, q.Temperature)
	assert.True(t, q.SupportsReasoning())
	for _, k := range []PromptKind{KindTags, KindDetailedTags, KindDescription, KindBrief, KindGroup} {
		_, ok := q.Prompt(k)
		assert.True(t, ok, "missing prompt %s", k)
	}
}

func TestResolveUnknownListsNames(t *testing.T) {
	_, err := Default().Resolve("gpt-vision")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownModel))

	var unknown *UnknownModelError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "gpt-vision", unknown.Name)
	assert.Contains(t, err.Error(), "qwen3-vl:8b, llava")
}

func TestNewRegistryRejectsBadInput(t *testing.T) {
	_, err := NewRegistry(Profile{Model: "x"})
	assert.Error(t, err)

	_, err = NewRegistry(Profile{Name: "a"}, Profile{Name: "a"})
	assert.Error(t, err)
}

func TestNewRegistryDefaultsModelToName(t *testing.T) {
	reg, err := NewRegistry(Profile{Name: "moondream"})
	require.NoError(t, err)
	p, err := reg.Resolve("moondream")
	require.NoError(t, err)
	assert.Equal(t, "moondream", p.Model)
}

func TestResolveReturnsCopy(t *testing.T) {
	reg := Default()
	p, err := reg.Resolve("llava")
	require.NoError(t, err)
	p.Prompts[KindTags] = "changed"

	again, err := reg.Resolve("llava")
	require.NoError(t, err)
	assert.NotEqual(t, "changed", again.Prompts[KindTags])
}

func TestMerge(t *testing.T) {
	reg, err := Merge(Default(),
		Profile{Name: "llava", Model: "llava:13b", Temperature: 0.2},
		Profile{Name: "demo", Model: "demo:1b", Temperature: 0.3, Prompts: map[PromptKind]string{KindTags: "list tags:"}},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"qwen3-vl:8b", "llava", "demo"}, reg.Names())

	p, err := reg.Resolve("llava")
	require.NoError(t, err)
	assert.Equal(t, "llava:13b", p.Model)

	// The base registry is untouched.
	base, err := Default().Resolve("llava")
	require.NoError(t, err)
	assert.Equal(t, "llava:latest", base.Model)
}

func TestMergeOverlayKeepsTemplates(t *testing.T) {
	base, err := Default().Resolve("llava")
	require.NoError(t, err)

	reg, err := Merge(Default(), Profile{
		Name:    "llava",
		Model:   "llava:13b",
		Prompts: map[PromptKind]string{KindTags: "tags only:"},
	})
	require.NoError(t, err)
	p, err := reg.Resolve("llava")
	require.NoError(t, err)

	assert.Equal(t, "llava:13b", p.Model)
	assert.Equal(t, base.Description, p.Description)
	assert.Equal(t, base.Temperature, p.Temperature)
	assert.Equal(t, "tags only:", p.Prompts[KindTags])
	for _, kind := range []PromptKind{KindDetailedTags, KindDescription, KindBrief, KindGroup} {
		assert.Equal(t, base.Prompts[kind], p.Prompts[kind], kind)
		assert.NotEmpty(t, p.Prompts[kind], kind)
	}
}

func TestMergeRejectsDuplicateAdditions(t *testing.T) {
	_, err := Merge(Default(), Profile{Name: "demo"}, Profile{Name: "demo"})
	assert.Error(t, err)
}
