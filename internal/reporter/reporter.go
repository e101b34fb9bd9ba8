// Package reporter writes the analysis artifacts for one run: a rendered
// plain-text report plus machine-readable JSON files.
package reporter

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/forensiq/forensiq/internal/audit"
	"github.com/forensiq/forensiq/internal/classify"
	"github.com/forensiq/forensiq/internal/feedback"
	"github.com/forensiq/forensiq/internal/report"
	"github.com/forensiq/forensiq/internal/sigma"
)

//go:embed templates/*.tmpl
var templates embed.FS

// ReportData is the complete data model passed to the report template.
type ReportData struct {
	LogID       string    `json:"log_id"`
	LogType     string    `json:"log_type"`
	GeneratedAt time.Time `json:"generated_at"`
	Version     string    `json:"version"`

	// SectionOrder fixes the rendering order; Report maps title to body.
	SectionOrder []string      `json:"-"`
	Report       report.Report `json:"report"`

	Judgments       []classify.EventJudgment `json:"judgments"`
	Findings        []audit.Finding          `json:"findings"`
	SigmaMatches    []sigma.Match            `json:"sigma_matches,omitempty"`
	RAGContext      []string                 `json:"rag_context,omitempty"`
	MatchedFeedback []feedback.Record        `json:"matched_feedback,omitempty"`
}

// Reporter renders analysis results into output files.
type Reporter struct {
	tmpl *template.Template
}

// New creates a Reporter with the embedded report template.
func New() (*Reporter, error) {
	tmpl, err := template.ParseFS(templates, "templates/report.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	return &Reporter{tmpl: tmpl}, nil
}

// GenerateString renders the plain-text report to a string.
func (r *Reporter) GenerateString(data ReportData) (string, error) {
	if data.SectionOrder == nil {
		data.SectionOrder = report.SectionTitles
	}
	var buf strings.Builder
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

// Generate writes report.txt, judgments.json, findings.json, and
// analysis.json into outputDir, creating it if needed. Returns the path to
// the rendered report.
func (r *Reporter) Generate(data ReportData, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	text, err := r.GenerateString(data)
	if err != nil {
		return "", err
	}

	reportPath := filepath.Join(outputDir, "report.txt")
	if err := os.WriteFile(reportPath, []byte(text), 0644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	if err := writeJSON(filepath.Join(outputDir, "judgments.json"), data.Judgments); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(outputDir, "findings.json"), data.Findings); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(outputDir, "analysis.json"), data); err != nil {
		return "", err
	}

	return reportPath, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// GenerateOutputDir returns a timestamped run directory under base.
func GenerateOutputDir(base string) string {
	return filepath.Join(base, "forensiq_"+time.Now().Format("20060102_150405"))
}
