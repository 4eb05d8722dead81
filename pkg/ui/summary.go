package ui

import (
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
)

// SummaryRow is one finalized or pending target of a run.
type SummaryRow struct {
	Target  string
	Records int
	Skipped []int
	File    string
	Status  string
}

// NewTable returns a rounded table writer mirrored to w.
func NewTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

// PrintSummary renders a table of records per target and returns the
// total record count.
func PrintSummary(w io.Writer, rows []SummaryRow) int {
	t := NewTable(w)
	t.AppendHeader(table.Row{"Target", "Status", "Records", "Skipped pages", "File"})

	total := 0
	for _, r := range rows {
		skipped := "-"
		if len(r.Skipped) > 0 {
			skipped = joinInts(r.Skipped)
		}
		file := r.File
		if file == "" {
			file = "-"
		}
		t.AppendRow(table.Row{r.Target, r.Status, r.Records, skipped, file})
		total += r.Records
	}
	t.AppendFooter(table.Row{"Total", "", total, "", ""})
	t.Render()
	return total
}

func joinInts(values []int) string {
	var b []byte
	for i, v := range values {
		if i > 0 {
			b = append(b, ',', ' ')
		}
		b = strconv.AppendInt(b, int64(v), 10)
	}
	return string(b)
}
