package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/reqprof/internal/model"
)

// JSONWriter outputs reports as JSON.
type JSONWriter struct {
	baseWriter

	version      string
	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables indented output with the given prefix and indent.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion sets the version recorded in the document.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to output.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport is the document written by JSONWriter.
type JSONReport struct {
	// Version is the reqprof version that produced the report.
	Version string `json:"version"`

	// Target is the canonical URL that was profiled.
	Target string `json:"target"`

	// Summary holds the derived statistics.
	Summary model.Summary `json:"summary"`

	// Report holds the raw aggregate.
	Report *model.ProfileReport `json:"report"`
}

// NewJSONReport wraps report with its summary and version.
func NewJSONReport(report *model.ProfileReport, version string) *JSONReport {
	return &JSONReport{
		Version: version,
		Target:  report.Target.URL(),
		Summary: model.NewSummary(report),
		Report:  report,
	}
}

// Write outputs the report wrapped in a JSONReport.
func (w *JSONWriter) Write(report *model.ProfileReport) (int, error) {
	return w.Encode(NewJSONReport(report, w.version))
}

// Encode writes any value with the writer's formatting, followed by a newline.
func (w *JSONWriter) Encode(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}
