package cli

import (
	"bytes"
	"encoding/json"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ollamaServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Ollama is running"))
	})
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[{"name":"llava:latest"}]}`))
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": "beach, sea"},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	err := Execute(t.Context())
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	images := filepath.Join(dir, "test_images")
	require.NoError(t, os.Mkdir(images, 0o755))
	for _, name := range []string{"a.png", "b.jpg"} {
		img := imaging.New(16, 12, color.NRGBA{B: 255, A: 255})
		require.NoError(t, imaging.Save(img, filepath.Join(images, name)))
	}
	srv := ollamaServer(t)

	out, err := execute(t, "run", "-m", "llava", "--url", srv.URL, "--results", "out", "--context", "beach trip")

	require.NoError(t, err)
	assert.Contains(t, out, "RESULTS SUMMARY (llava:latest)")
	assert.Contains(t, out, "Common tags: beach, sea")

	jsonFiles, _ := filepath.Glob(filepath.Join(dir, "out", "test_results_llava_latest_*.json"))
	csvFiles, _ := filepath.Glob(filepath.Join(dir, "out", "test_results_llava_latest_*.csv"))
	require.Len(t, jsonFiles, 1)
	assert.Len(t, csvFiles, 1)

	data, err := os.ReadFile(jsonFiles[0])
	require.NoError(t, err)
	var doc struct {
		TotalImages int                        `json:"total_images"`
		Tests       map[string]json.RawMessage `json:"tests"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, 2, doc.TotalImages)
	assert.Contains(t, doc.Tests, "quick_all")
	// Two images never reach the context phase.
	assert.NotContains(t, doc.Tests, "group_with_context")
	assert.Contains(t, string(doc.Tests["quick_all"]), `"test_images/a.png"`)
}

func TestProfilesCommand(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := execute(t, "profiles")

	require.NoError(t, err)
	assert.Contains(t, out, "qwen3-vl:8b:\n  Name: qwen3-vl:8b")
	assert.Contains(t, out, "llava:\n  Name: llava:latest")
	assert.Contains(t, out, "Temperature: 0.5")
}

func TestListModelsCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	srv := ollamaServer(t)

	out, err := execute(t, "list-models", "--url", srv.URL)

	require.NoError(t, err)
	assert.Contains(t, out, "- llava:latest")
	assert.Contains(t, out, "profile llava is installed")
}
