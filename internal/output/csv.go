/*
PURPOSE:
  Writes a flat CSV view of a run record: one row per inference outcome.
  Ensures data integrity by flushing writes immediately.

REQUIREMENTS:
  User-specified:
  - Output to CSV for spreadsheet comparison of models.

  Implementation-discovered:
  - The JSON record is nested; the CSV flattens it to phase/image/analysis.
  - Group phases contribute one row per image plus one "group" row.

ARCHITECTURE INTEGRATION:
  - Called by: internal/output/json.go (RunStore.Save)
  - Consumes: internal/model.TestRun

ERROR HANDLING:
  - Returns error on file creation or write failure.

IMPLEMENTATION RULES:
  - Use encoding/csv.
  - Flush() after every write (critical for crash resilience).

USAGE:
  w, err := output.NewCSVWriter("results.csv")
  w.Write(row)
  w.Close()

SELF-HEALING INSTRUCTIONS:
  - If CSV format changes, update header and Row.record().

RELATED FILES:
  - internal/model/types.go

MAINTENANCE:
  - Update Rows() when a phase is added.
*/

package output

import (
	"encoding/csv"
	"os"
	"strconv"
	"sync"

	"github.com/daryltucker/tag-runner/internal/model"
)

var csvHeader = []string{
	"phase", "image", "analysis", "success", "failure_kind", "prompt_used", "response", "error",
}

// Row is one outcome in the flat report.
type Row struct {
	Phase    string
	Image    string
	Analysis string
	Outcome  model.Outcome
}

func (r Row) record() []string {
	return []string{
		r.Phase,
		r.Image,
		r.Analysis,
		strconv.FormatBool(r.Outcome.Success),
		string(r.Outcome.FailureKind),
		r.Outcome.PromptUsed,
		r.Outcome.Response,
		r.Outcome.Error,
	}
}

// Rows flattens run in phase order.
func Rows(run *model.TestRun) []Row {
	var rows []Row
	for _, e := range run.Tests.DetailedSingle {
		rows = append(rows,
			Row{model.PhaseDetailedSingle, e.Image, "generic_tags", e.Analyses.GenericTags},
			Row{model.PhaseDetailedSingle, e.Image, "detailed_tags", e.Analyses.DetailedTags},
			Row{model.PhaseDetailedSingle, e.Image, "brief_description", e.Analyses.BriefDescription},
			Row{model.PhaseDetailedSingle, e.Image, "full_description", e.Analyses.FullDescription},
		)
	}
	for _, e := range run.Tests.QuickAll {
		rows = append(rows, Row{model.PhaseQuickAll, e.Image, "tags", e.Tags})
	}
	rows = appendGroup(rows, model.PhaseGroupNoContext, run.Tests.GroupNoContext)
	rows = appendGroup(rows, model.PhaseGroupWithContext, run.Tests.GroupWithContext)
	return rows
}

func appendGroup(rows []Row, phase string, g *model.GroupAnalysis) []Row {
	if g == nil {
		return rows
	}
	for _, ia := range g.IndividualAnalyses {
		rows = append(rows, Row{phase, ia.Image, "tags", ia.Tags})
	}
	return append(rows, Row{phase, "", "group", g.GroupAnalysis})
}

// CSVWriter handles writing rows to a CSV file.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter creates a new CSVWriter.
// It overwrites the file if it exists.
func NewCSVWriter(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return nil, err
	}
	w.Flush()

	return &CSVWriter{
		file:   f,
		writer: w,
	}, nil
}

// Write writes a single row to the CSV file.
// It is thread-safe.
func (cw *CSVWriter) Write(r Row) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if err := cw.writer.Write(r.record()); err != nil {
		return err
	}
	cw.writer.Flush()
	return cw.writer.Error()
}

// Close closes the underlying file.
func (cw *CSVWriter) Close() error {
	cw.writer.Flush()
	return cw.file.Close()
}

// WriteRunCSV writes every outcome of run to path.
func WriteRunCSV(path string, run *model.TestRun) error {
	w, err := NewCSVWriter(path)
	if err != nil {
		return err
	}
	for _, row := range Rows(run) {
		if err := w.Write(row); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}
