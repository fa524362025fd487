/*
PURPOSE:
  Static catalog of named model profiles (model identifier, description,
  sampling temperature, prompt templates).

REQUIREMENTS:
  User-specified:
  - Resolve a profile by name; unknown names must list the valid ones.
  - List all profiles for introspection.

  Implementation-discovered:
  - Config files may add or override profiles, so the catalog is built once
    at startup from builtins plus config entries, then never mutated.

ARCHITECTURE INTEGRATION:
  - Built by: internal/config (Config.Registry), called from internal/cli
  - Used by: internal/engine (templates, temperature, reasoning family)

ERROR HANDLING:
  - *UnknownModelError (errors.Is(err, ErrUnknownModel)).
  - NewRegistry rejects empty and duplicate names.

IMPLEMENTATION RULES:
  - Hand out copies; callers never see the internal maps.

USAGE:
  reg := profile.Default()
  p, err := reg.Resolve("llava")

RELATED FILES:
  - internal/profile/builtin.go
  - internal/config/config.go
*/

package profile

import (
	"errors"
	"fmt"
	"maps"
	"strings"
)

// PromptKind selects one of a profile's prompt templates.
type PromptKind string

const (
	KindTags         PromptKind = "tags"
	KindDetailedTags PromptKind = "detailed_tags"
	KindDescription  PromptKind = "description"
	KindBrief        PromptKind = "brief"
	KindGroup        PromptKind = "group"
)

// ErrUnknownModel is matched by errors returned from Resolve.
var ErrUnknownModel = errors.New("unknown model")

// reasoningFamilies are model families that expose a thinking mode.
var reasoningFamilies = []string{"qwen"}

// Profile is a named model configuration.
type Profile struct {
	Name        string                `yaml:"name"`
	Model       string                `yaml:"model"`
	Description string                `yaml:"description"`
	Temperature float64               `yaml:"temperature"`
	Prompts     map[PromptKind]string `yaml:"prompts"`
}

// Prompt returns the template for kind, if the profile defines one.
func (p Profile) Prompt(kind PromptKind) (string, bool) {
	s, ok := p.Prompts[kind]
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// SupportsReasoning reports whether the model belongs to a reasoning-capable family.
func (p Profile) SupportsReasoning() bool {
	m := strings.ToLower(p.Model)
	for _, f := range reasoningFamilies {
		if strings.Contains(m, f) {
			return true
		}
	}
	return false
}

func (p Profile) clone() Profile {
	p.Prompts = maps.Clone(p.Prompts)
	return p
}

// UnknownModelError is returned when a profile name is not registered.
type UnknownModelError struct {
	Name      string
	Available []string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("model %q not recognized. Available: %s", e.Name, strings.Join(e.Available, ", "))
}

func (e *UnknownModelError) Is(target error) bool {
	return target == ErrUnknownModel
}

// Registry is an immutable, ordered set of profiles.
type Registry struct {
	order    []string
	profiles map[string]Profile
}

// NewRegistry builds a registry from profiles in the given order.
func NewRegistry(profiles ...Profile) (*Registry, error) {
	r := &Registry{profiles: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("profile with model %q has no name", p.Model)
		}
		if _, dup := r.profiles[p.Name]; dup {
			return nil, fmt.Errorf("duplicate profile %q", p.Name)
		}
		if p.Model == "" {
			p.Model = p.Name
		}
		r.order = append(r.order, p.Name)
		r.profiles[p.Name] = p.clone()
	}
	return r, nil
}

// Merge returns a new registry holding base's profiles with extra applied on
// top. An extra profile that shares a name with a base entry is overlaid on
// it field by field (see overlay); otherwise it is appended.
func Merge(base *Registry, extra ...Profile) (*Registry, error) {
	list := base.List()
	index := make(map[string]int, len(list))
	for i, p := range list {
		index[p.Name] = i
	}
	var appended []Profile
	for _, p := range extra {
		if i, ok := index[p.Name]; ok {
			list[i] = overlay(list[i], p)
			continue
		}
		appended = append(appended, p)
	}
	return NewRegistry(append(list, appended...)...)
}

// overlay applies the non-zero fields of o to p. Prompt templates are
// replaced per kind, so an override that sets only the model keeps every
// template. A zero temperature keeps p's temperature.
func overlay(p, o Profile) Profile {
	out := p.clone()
	if o.Model != "" {
		out.Model = o.Model
	}
	if o.Description != "" {
		out.Description = o.Description
	}
	if o.Temperature != 0 {
		out.Temperature = o.Temperature
	}
	if len(o.Prompts) > 0 && out.Prompts == nil {
		out.Prompts = make(map[PromptKind]string, len(o.Prompts))
	}
	for kind, text := range o.Prompts {
		out.Prompts[kind] = text
	}
	return out
}

// Resolve looks up a profile by name.
func (r *Registry) Resolve(name string) (Profile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return Profile{}, &UnknownModelError{Name: name, Available: r.Names()}
	}
	return p.clone(), nil
}

// Names returns the registered names in order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// List returns every profile in registration order.
func (r *Registry) List() []Profile {
	out := make([]Profile, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.profiles[name].clone())
	}
	return out
}
