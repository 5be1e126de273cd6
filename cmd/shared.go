package cmd

import (
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// newTable returns a left-aligned table without row lines.
func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAlignment(tablewriter.ALIGN_LEFT)       // Align all columns to the left
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT) // Align headers to the left
	table.SetAutoWrapText(false)                     // Disable text wrapping in all columns
	table.SetRowLine(false)                          // Disable row line breaks
	return table
}

// oneLine removes line breaks so a value fits in a table cell.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func optionalInt(p *int) string {
	if p == nil {
		return "-"
	}
	return strconv.Itoa(*p)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
