package report

import (
	"io"
	"strconv"

	"github.com/nao1215/reqprof/internal/model"
)

// Writer renders a profiling report.
type Writer interface {
	// Write renders report and returns the number of bytes written.
	Write(report *model.ProfileReport) (int, error)
}

// MultiWriter writes the same report through several Writers, for example
// the text report to the terminal and a JSON copy to a file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all writers in order.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write renders report with every writer and stops at the first error.
func (m *MultiWriter) Write(report *model.ProfileReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// formatFloat renders v with the fewest digits that round-trip as float32,
// so 100 prints as "100" and 200/3 as "66.666664".
func formatFloat(v float64) string {
	return strconv.FormatFloat(float64(float32(v)), 'f', -1, 32)
}
