package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/reqprof/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MarkdownWriter outputs reports as a Markdown document.
type MarkdownWriter struct {
	baseWriter
	title cases.Caser
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to output.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		title:      cases.Title(language.English),
	}
}

// Write renders the report.
func (w *MarkdownWriter) Write(report *model.ProfileReport) (int, error) {
	s := model.NewSummary(report)
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report, s)
	w.writeOutcomes(md, s)
	w.writeLatency(md, s)
	w.writeErrors(md, report, s)
	w.writeSizes(md, s)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.ProfileReport, s model.Summary) {
	md.H1("reqprof Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Target", "`" + report.Target.URL() + "`"},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration.Round(time.Millisecond).String()},
			{"Requests", strconv.Itoa(s.TotalRequests)},
			{"Success Rate", formatFloat(s.SuccessRate) + "%"},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeOutcomes(md *markdown.Markdown, s model.Summary) {
	md.H2("Outcomes")
	md.PlainText("")

	counts := []struct {
		kind  model.OutcomeKind
		count int
	}{
		{model.OutcomeSuccess, s.Succeeded},
		{model.OutcomeFailure, s.Failed},
		{model.OutcomeTransportError, s.TransportErrors},
	}

	rows := make([][]string, 0, len(counts))
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Request Outcomes"),
		piechart.WithShowData(true),
	)
	for _, c := range counts {
		label := w.title.String(c.kind.String())
		rows = append(rows, []string{label, strconv.Itoa(c.count)})
		if c.count > 0 {
			chart.LabelAndIntValue(label, uint64(c.count))
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if s.Succeeded+s.Failed+s.TransportErrors > 0 {
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	switch {
	case s.TransportErrors > 0:
		md.Warningf("%d request(s) got no usable response.", s.TransportErrors)
	case s.Failed > 0:
		md.Importantf("%d request(s) returned a non-200 status.", s.Failed)
	default:
		md.Tip("Every request succeeded.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeLatency(md *markdown.Markdown, s model.Summary) {
	md.H2("Latency")
	md.PlainText("")

	if !s.HasLatencyStats() {
		md.PlainText("No stats (failed requests do not count).")
		md.PlainText("")
		return
	}

	md.Table(markdown.TableSet{
		Header: []string{"Statistic", "Milliseconds"},
		Rows: [][]string{
			{"Fastest", strconv.FormatUint(*s.FastestMillis, 10)},
			{"Slowest", strconv.FormatUint(*s.SlowestMillis, 10)},
			{"Mean", formatFloat(*s.MeanMillis)},
			{"Median", strconv.FormatUint(*s.MedianMillis, 10)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeErrors(md *markdown.Markdown, report *model.ProfileReport, s model.Summary) {
	md.H2("Errors")
	md.PlainText("")

	if !s.HasErrors() && s.TransportErrors == 0 {
		md.PlainText("No error occurred.")
		md.PlainText("")
		return
	}

	if s.HasErrors() {
		rows := make([][]string, len(s.ErrorCodes))
		for i, code := range s.ErrorCodes {
			rows[i] = []string{strconv.Itoa(int(code)), strconv.Itoa(report.ErrorCodes[code])}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Status Code", "Count"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if len(report.TransportErrorMessages) > 0 {
		messages := make([]string, len(report.TransportErrorMessages))
		for i, msg := range report.TransportErrorMessages {
			messages[i] = "`" + strings.ReplaceAll(msg, "`", "'") + "`"
		}
		md.Details(fmt.Sprintf("Transport errors (%d)", s.TransportErrors), strings.Join(messages, "<br>"))
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeSizes(md *markdown.Markdown, s model.Summary) {
	md.H2("Response Size")
	md.PlainText("")

	size := func(v *uint64) string {
		if v == nil {
			return "-"
		}
		return strconv.FormatUint(*v, 10)
	}
	md.Table(markdown.TableSet{
		Header: []string{"Bound", "Bytes"},
		Rows: [][]string{
			{"Smallest", size(s.MinResponseBytes)},
			{"Largest", size(s.MaxResponseBytes)},
			{"Distinct Bodies", strconv.Itoa(s.DistinctBodies)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [reqprof](https://github.com/nao1215/reqprof)*")
}
