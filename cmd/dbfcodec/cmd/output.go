package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	godbf "github.com/Ulysses-Xu/dbfcodec"
)

// outputHeader prints the header and field list of a table
func outputHeader(out io.Writer, table *godbf.Table) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	h := table.Header
	fmt.Fprintf(w, "File:\t%s\n", table.FileName)
	fmt.Fprintf(w, "Version:\t0x%02X\n", h.Version)
	fmt.Fprintf(w, "Last update:\t%s\n", h.LastUpdate.Format("2006-01-02"))
	fmt.Fprintf(w, "Records:\t%d (%d active)\n", h.RecordCount, len(table.Rows))
	fmt.Fprintf(w, "Header length:\t%d\n", h.HeaderLength)
	fmt.Fprintf(w, "Record length:\t%d\n", h.RecordLength)
	fmt.Fprintf(w, "Language driver:\t0x%02X\n", h.LanguageDriver)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "NAME\tTYPE\tLENGTH\tDECIMAL")
	for _, f := range h.Fields {
		fmt.Fprintf(w, "%s\t%c\t%d\t%d\n", f.Name, f.Type, f.Length, f.Decimal)
	}
	return w.Flush()
}

// outputRows prints rows[offset:offset+limit] as a table; limit <= 0 prints all
func outputRows(out io.Writer, table *godbf.Table, offset, limit int) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	names := make([]string, len(table.Header.Fields))
	for i, f := range table.Header.Fields {
		names[i] = f.Name
	}
	fmt.Fprintln(w, strings.Join(names, "\t"))

	rows := table.Rows
	if offset > len(rows) {
		offset = len(rows)
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	cells := make([]string, len(names))
	for _, row := range rows {
		for i, name := range names {
			cells[i] = row.Get(name).String()
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	return w.Flush()
}
