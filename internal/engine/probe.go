package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/daryltucker/tag-runner/internal/profile"
)

const defaultProbeTimeout = 5 * time.Second

// ErrUnreachable is returned when the inference service cannot be reached.
var ErrUnreachable = errors.New("ollama not reachable")

func (e *Engine) apiClient() (*api.Client, error) {
	base, err := url.Parse(e.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", e.BaseURL, err)
	}
	// api.Client joins its paths onto base, so a proxy prefix is kept.
	return api.NewClient(base, &http.Client{}), nil
}

// ListModels returns the names of models installed on the server.
func (e *Engine) ListModels(ctx context.Context) ([]string, error) {
	c, err := e.apiClient()
	if err != nil {
		return nil, err
	}
	resp, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// Probe checks that the service answers and returns its installed models.
func (e *Engine) Probe(ctx context.Context) ([]string, error) {
	timeout := e.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c, err := e.apiClient()
	if err != nil {
		return nil, err
	}
	if err := c.Heartbeat(ctx); err != nil {
		return nil, fmt.Errorf("%w at %s: %v", ErrUnreachable, e.BaseURL, err)
	}
	names, err := e.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w at %s: listing models: %v", ErrUnreachable, e.BaseURL, err)
	}
	return names, nil
}

// Installed reports whether any installed name contains the profile's model id.
func Installed(p profile.Profile, installed []string) bool {
	for _, name := range installed {
		if strings.Contains(name, p.Model) {
			return true
		}
	}
	return false
}

// FilterInstalled splits profiles into those available on the server and
// those missing. The input slice is not modified.
func FilterInstalled(profiles []profile.Profile, installed []string) (kept, missing []profile.Profile) {
	for _, p := range profiles {
		if Installed(p, installed) {
			kept = append(kept, p)
		} else {
			missing = append(missing, p)
		}
	}
	return kept, missing
}
