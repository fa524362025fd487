/*
PURPOSE:
  Writes one run record per profile as an indented JSON document.
  Optionally writes a flat CSV sibling next to it.

REQUIREMENTS:
  User-specified:
  - JSON output for easier parsing.
  - File named after the model id and the run timestamp.

  Implementation-discovered:
  - Two runs in the same second must not overwrite each other.
  - Model ids contain ':' and '/', which are not safe in filenames.
  - Non-ASCII text in responses must be preserved as-is.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine (as engine.Store)
  - Consumes: internal/model.TestRun

ERROR HANDLING:
  - Returns error on directory creation, file creation or write failure.
  - A partially written file is removed.

IMPLEMENTATION RULES:
  - Use encoding/json.NewEncoder with SetEscapeHTML(false) and two-space indent.
  - Create files with O_EXCL.

USAGE:
  s := output.NewRunStore("./test_results", true)
  path, err := s.Save(run)

SELF-HEALING INSTRUCTIONS:
  - If an existing name keeps colliding, check the timestamp passed to NewTestRun.

RELATED FILES:
  - internal/model/types.go
  - internal/output/csv.go

MAINTENANCE:
  - Keep the filename layout stable; downstream comparisons glob on it.
*/

package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/daryltucker/tag-runner/internal/model"
)

const (
	filePrefix      = "test_results_"
	timestampLayout = "20060102_150405"
	maxSuffix       = 1000
)

var unsafeName = strings.NewReplacer(":", "_", "/", "_")

// SafeName makes a model id usable in a filename.
func SafeName(modelID string) string {
	return unsafeName.Replace(modelID)
}

// RunStore persists run records to a directory.
type RunStore struct {
	Dir      string
	WriteCSV bool
}

// NewRunStore creates a new RunStore.
func NewRunStore(dir string, writeCSV bool) *RunStore {
	return &RunStore{Dir: dir, WriteCSV: writeCSV}
}

// BaseName is the file stem for run, without suffix or extension.
func BaseName(run *model.TestRun) string {
	return filePrefix + SafeName(run.Model) + "_" + run.Timestamp.Format(timestampLayout)
}

// Save writes run as JSON and returns the path of the JSON file.
func (s *RunStore) Save(run *model.TestRun) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create results directory: %w", err)
	}

	f, err := createUnique(s.Dir, BaseName(run), ".json")
	if err != nil {
		return "", err
	}
	path := f.Name()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(run); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close %s: %w", path, err)
	}

	if s.WriteCSV {
		csvPath := strings.TrimSuffix(path, ".json") + ".csv"
		if err := WriteRunCSV(csvPath, run); err != nil {
			// The JSON record stands on its own.
			Logger.Warn("Failed to write CSV report", "path", csvPath, "error", err)
		}
	}
	return path, nil
}

// createUnique opens dir/stem+ext, or dir/stem_N+ext for the first free N.
func createUnique(dir, stem, ext string) (*os.File, error) {
	for i := 0; i < maxSuffix; i++ {
		name := stem + ext
		if i > 0 {
			name = fmt.Sprintf("%s_%d%s", stem, i, ext)
		}
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("create result file: %w", err)
		}
	}
	return nil, fmt.Errorf("create result file: too many runs named %s", stem)
}
