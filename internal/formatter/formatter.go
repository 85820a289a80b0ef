// package formatter renders progress overviews as reports (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/xtrobe/internal/progress"
	"github.com/desertthunder/xtrobe/internal/shared"
)

// Report formats accepted by [Render].
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

const barWidth = 20

// ParseFormat normalizes a user supplied format name.
func ParseFormat(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown report format %q", shared.ErrInvalidArgument, name)
	}
}

// Extension returns the file extension used for format.
func Extension(format string) string {
	switch format {
	case FormatCSV:
		return ".csv"
	case FormatMarkdown:
		return ".md"
	case FormatText:
		return ".txt"
	default:
		return ".json"
	}
}

// Render dispatches to the exporter for format.
func Render(format string, o *progress.Overview) ([]byte, error) {
	if o == nil {
		return nil, fmt.Errorf("%w: nil overview", shared.ErrInvalidInput)
	}
	switch format {
	case FormatCSV:
		return ExportToCSV(o)
	case FormatMarkdown:
		return ExportToMarkdown(o)
	case FormatText:
		return ExportToText(o)
	case FormatJSON:
		return ExportToJSON(o)
	default:
		return nil, fmt.Errorf("%w: unknown report format %q", shared.ErrInvalidArgument, format)
	}
}

// ExportToCSV writes one row per module with columns: Module ID, Title, Slug, Completed, Total, Percent, Done
func ExportToCSV(o *progress.Overview) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Module ID", "Title", "Slug", "Completed", "Total", "Percent", "Done"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, m := range o.Modules {
		record := []string{
			strconv.Itoa(m.ModuleID),
			m.Title,
			m.Slug,
			strconv.Itoa(m.Completed),
			strconv.Itoa(m.Total),
			strconv.Itoa(m.Percent),
			strconv.FormatBool(m.Done),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders the overview as a Markdown document with a module table.
func ExportToMarkdown(o *progress.Overview) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Progress for %s\n\n", o.UserID)
	if o.Degraded {
		buf.WriteString("> Some progress could not be loaded. Figures may be incomplete.\n\n")
	}

	fmt.Fprintf(&buf, "**Average**: %d%%\n", o.AveragePercent)
	fmt.Fprintf(&buf, "**Mastered**: %d of %d modules\n", o.Mastered, len(o.Modules))
	fmt.Fprintf(&buf, "**Submodules**: %d / %d\n", o.CompletedSubmodules, o.TotalSubmodules)
	if len(o.Milestones) > 0 {
		fmt.Fprintf(&buf, "**Milestones**: %s\n", joinInts(o.Milestones))
	}
	if o.Resume != nil {
		fmt.Fprintf(&buf, "**Resume**: %s (submodule %d)\n", o.Resume.Module.Title, o.Resume.SubmoduleIndex+1)
	}

	buf.WriteString("\n## Modules\n\n")
	buf.WriteString("| | Module | Completed | Progress |\n")
	buf.WriteString("|---|---|---|---|\n")
	for _, m := range o.Modules {
		star := ""
		if m.Done {
			star = "★"
		}
		fmt.Fprintf(&buf, "| %s | %s | %d/%d | %d%% |\n", star, escapeCell(m.Title), m.Completed, m.Total, m.Percent)
	}

	return buf.Bytes(), nil
}

// ExportToText renders the overview as plain text with one bar per module.
func ExportToText(o *progress.Overview) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "User: %s\n", o.UserID)
	fmt.Fprintf(&buf, "Average: %d%%\n", o.AveragePercent)
	fmt.Fprintf(&buf, "Mastered: %d/%d\n", o.Mastered, len(o.Modules))
	if o.Resume != nil {
		fmt.Fprintf(&buf, "Resume: %s [%d]\n", o.Resume.Slug, o.Resume.SubmoduleIndex)
	}
	if o.Degraded {
		buf.WriteString("Warning: progress store unavailable, figures may be incomplete\n")
	}
	buf.WriteString("\n")

	for i, m := range o.Modules {
		mark := " "
		if m.Done {
			mark = "*"
		}
		fmt.Fprintf(&buf, "%d.%s %s [%s] %d%%\n", i+1, mark, m.Title, bar(m.Percent), m.Percent)
	}

	return buf.Bytes(), nil
}

// ExportToJSON encodes the overview as indented JSON.
func ExportToJSON(o *progress.Overview) ([]byte, error) {
	return shared.MarshalJSON(o, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	ModulesFile string
	SummaryFile string
}

// reportSummary is the overview without its per-module rows.
type reportSummary struct {
	UserID              string                 `json:"userId"`
	AveragePercent      int                    `json:"averagePercent"`
	Mastered            int                    `json:"mastered"`
	CompletedSubmodules int                    `json:"completedSubmodules"`
	TotalSubmodules     int                    `json:"totalSubmodules"`
	Milestones          []int                  `json:"milestones"`
	Resume              *progress.ResumeTarget `json:"resume,omitempty"`
	Degraded            bool                   `json:"degraded"`
}

// WriteCSVExport writes {base}_modules.csv and {base}_summary.json.
//
// The base path defaults to {userID}_progress.
func WriteCSVExport(o *progress.Overview, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = o.UserID + "_progress"
	}

	csvData, err := ExportToCSV(o)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	modulesFile := baseFilepath + "_modules.csv"
	if err := os.WriteFile(modulesFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	summary, err := shared.MarshalJSON(reportSummary{
		UserID:              o.UserID,
		AveragePercent:      o.AveragePercent,
		Mastered:            o.Mastered,
		CompletedSubmodules: o.CompletedSubmodules,
		TotalSubmodules:     o.TotalSubmodules,
		Milestones:          o.Milestones,
		Resume:              o.Resume,
		Degraded:            o.Degraded,
	}, true)
	if err != nil {
		return nil, fmt.Errorf("failed to generate summary JSON: %w", err)
	}

	summaryFile := baseFilepath + "_summary.json"
	if err := os.WriteFile(summaryFile, summary, 0644); err != nil {
		return nil, fmt.Errorf("failed to write summary file: %w", err)
	}

	return &CSVExportResult{ModulesFile: modulesFile, SummaryFile: summaryFile}, nil
}

// WriteMarkdownExport writes {dir}/README.md. The directory defaults to the user id.
func WriteMarkdownExport(o *progress.Overview, outputDir string) (string, error) {
	if outputDir == "" {
		outputDir = o.UserID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	mdData, err := ExportToMarkdown(o)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}
	return mdFile, nil
}

// WriteTextExport defaults to {userID}_progress.txt.
func WriteTextExport(o *progress.Overview, path string) (string, error) {
	if path == "" {
		path = o.UserID + "_progress.txt"
	}
	return writeRendered(o, FormatText, path)
}

// WriteJSONExport defaults to {userID}_progress.json.
func WriteJSONExport(o *progress.Overview, path string) (string, error) {
	if path == "" {
		path = o.UserID + "_progress.json"
	}
	return writeRendered(o, FormatJSON, path)
}

// WriteReport writes the overview for one user into dir and returns the created files.
func WriteReport(o *progress.Overview, format, dir string) ([]string, error) {
	base := filepath.Join(dir, safeName(o.UserID))
	switch format {
	case FormatCSV:
		res, err := WriteCSVExport(o, base)
		if err != nil {
			return nil, err
		}
		return []string{res.ModulesFile, res.SummaryFile}, nil
	case FormatMarkdown:
		path, err := WriteMarkdownExport(o, base)
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	case FormatText:
		path, err := WriteTextExport(o, base+Extension(format))
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	default:
		path, err := WriteJSONExport(o, base+Extension(FormatJSON))
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	}
}

// ManifestEntry is the outcome of exporting one user's report.
type ManifestEntry struct {
	UserID   string
	Files    []string
	Success  bool
	Degraded bool
	Error    error
}

type manifestEntryJSON struct {
	UserID   string   `json:"user_id"`
	Status   string   `json:"status"`
	Files    []string `json:"files,omitempty"`
	Degraded bool     `json:"degraded,omitempty"`
	Error    string   `json:"error,omitempty"`
}

type manifestJSON struct {
	RunID             string              `json:"run_id,omitempty"`
	Format            string              `json:"format"`
	GeneratedAt       time.Time           `json:"generated_at"`
	OutputDirectory   string              `json:"output_directory,omitempty"`
	TotalUsers        int                 `json:"total_users"`
	SuccessfulExports int                 `json:"successful_exports"`
	FailedExports     int                 `json:"failed_exports"`
	Results           []manifestEntryJSON `json:"results"`
}

// Manifest describes one bulk report export.
type Manifest struct {
	RunID           string
	Format          string
	OutputDirectory string
	Entries         []ManifestEntry
}

// WriteReportManifest writes a JSON summary of a bulk report export to path.
func WriteReportManifest(manifest Manifest, path string) error {
	m := manifestJSON{
		RunID:           manifest.RunID,
		Format:          manifest.Format,
		GeneratedAt:     time.Now().UTC(),
		OutputDirectory: manifest.OutputDirectory,
		TotalUsers:      len(manifest.Entries),
		Results:         make([]manifestEntryJSON, 0, len(manifest.Entries)),
	}

	for _, e := range manifest.Entries {
		row := manifestEntryJSON{UserID: e.UserID, Files: e.Files, Degraded: e.Degraded}
		if e.Success {
			row.Status = "success"
			m.SuccessfulExports++
		} else {
			row.Status = "failed"
			m.FailedExports++
		}
		if e.Error != nil {
			row.Error = e.Error.Error()
		}
		m.Results = append(m.Results, row)
	}

	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

func writeRendered(o *progress.Overview, format, path string) (string, error) {
	data, err := Render(format, o)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", format, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}
	return path, nil
}

func bar(percent int) string {
	filled := min(max(percent, 0), 100) * barWidth / 100
	return strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled)
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// safeName keeps user ids usable as file names.
func safeName(id string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, id)
	if name == "" || name == "." || name == ".." {
		return "_"
	}
	return name
}
