package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column is one table column; numeric columns are right aligned.
type column struct {
	title   string
	numeric bool
}

var (
	queueCountColumns = []column{{title: "Status"}, {title: "Count", numeric: true}}
	jobListColumns    = []column{
		{title: "ID", numeric: true},
		{title: "Output"},
		{title: "Status"},
		{title: "Stage"},
		{title: "Progress", numeric: true},
		{title: "Created"},
	}
	resultColumns = []column{{title: "File"}, {title: "Size", numeric: true}, {title: "Modified"}}
)

// renderTable lays rows out under columns. Short rows are padded and extra
// cells are dropped.
func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, c := range columns {
		header[i] = c.title
		configs[i] = table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
		if c.numeric {
			configs[i].Align = text.AlignRight
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range r {
			r[i] = ""
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}
	return tw.Render()
}

// printQueueCounts writes the per-status count table, or a placeholder when
// every count is zero.
func printQueueCounts(w io.Writer, stats map[string]int) {
	rows := buildQueueStatusRows(stats)
	if len(rows) == 0 {
		fmt.Fprintln(w, "Queue is empty")
		return
	}
	fmt.Fprintln(w, renderTable(queueCountColumns, rows))
}
