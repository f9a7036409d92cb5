// Package report renders a profiling run.
//
//   - SimpleWriter prints the fixed-format text report shown on the terminal
//   - JSONWriter emits a versioned JSON document for tooling
//   - MarkdownWriter produces a Markdown page with a mermaid outcome chart
//
// All writers take a finalized model.ProfileReport and derive statistics
// through model.NewSummary, so they never disagree on the numbers.
package report
