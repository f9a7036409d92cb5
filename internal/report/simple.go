package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/reqprof/internal/model"
)

// noStats is appended to a statistic label when no attempt succeeded.
const noStats = "(failed requests do not count)."

// SimpleWriter prints the plain-text profiling report.
type SimpleWriter struct {
	baseWriter

	// verbose lists distinct transport error messages.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose lists the distinct transport error messages under their count.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that writes to output.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write prints the report.
func (w *SimpleWriter) Write(report *model.ProfileReport) (int, error) {
	s := model.NewSummary(report)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Number of requests: %d\n", s.TotalRequests)
	w.writeLatency(&sb, s)
	fmt.Fprintf(&sb, "The percentage of requests that succeeded: %s%%\n", formatFloat(s.SuccessRate))
	w.writeErrorCodes(&sb, s)
	w.writeSizes(&sb, s)
	w.writeExtras(&sb, report, s)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeLatency(sb *strings.Builder, s model.Summary) {
	if !s.HasLatencyStats() {
		for _, label := range []string{"fastest", "slowest", "mean   ", "median "} {
			fmt.Fprintf(sb, "No stats for the %s time %s\n", label, noStats)
		}
		return
	}
	fmt.Fprintf(sb, "The fastest time: %dms\n", *s.FastestMillis)
	fmt.Fprintf(sb, "The slowest time: %dms\n", *s.SlowestMillis)
	fmt.Fprintf(sb, "The mean    time: %sms\n", formatFloat(*s.MeanMillis))
	fmt.Fprintf(sb, "The median  time: %dms\n", *s.MedianMillis)
}

func (w *SimpleWriter) writeErrorCodes(sb *strings.Builder, s model.Summary) {
	if !s.HasErrors() {
		sb.WriteString("No error occurred. Good!\n")
		return
	}
	codes := make([]string, len(s.ErrorCodes))
	for i, code := range s.ErrorCodes {
		codes[i] = fmt.Sprint(code)
	}
	fmt.Fprintf(sb, "Error code(s) occurred: [%s]\n", strings.Join(codes, ", "))
}

// writeSizes renders each bound on its own.
func (w *SimpleWriter) writeSizes(sb *strings.Builder, s model.Summary) {
	if s.MinResponseBytes != nil {
		fmt.Fprintf(sb, "The size in bytes of the smallest response: %d\n", *s.MinResponseBytes)
	} else {
		fmt.Fprintf(sb, "No stats for size in bytes of smallest response %s\n", noStats)
	}
	if s.MaxResponseBytes != nil {
		fmt.Fprintf(sb, "The size in bytes of the largest  response: %d\n", *s.MaxResponseBytes)
	} else {
		fmt.Fprintf(sb, "No stats for size in bytes of largest  response %s\n", noStats)
	}
}

func (w *SimpleWriter) writeExtras(sb *strings.Builder, report *model.ProfileReport, s model.Summary) {
	if s.TransportErrors > 0 {
		fmt.Fprintf(sb, "Transport error(s): %d\n", s.TransportErrors)
		if w.verbose {
			for _, msg := range report.TransportErrorMessages {
				fmt.Fprintf(sb, "  - %s\n", msg)
			}
		}
	}
	if s.Succeeded > 0 {
		fmt.Fprintf(sb, "Distinct response bodies: %d\n", s.DistinctBodies)
	}
}
