package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/ytarchive/ytarchive/internal/acquire"
	"github.com/ytarchive/ytarchive/internal/database"
	"github.com/ytarchive/ytarchive/internal/history"
	"github.com/ytarchive/ytarchive/internal/table"
)

func renderReport(w io.Writer, report *acquire.Report) {
	t := tablewriter.NewWriter(w)
	t.SetHeader([]string{"#", "Filename", "Stage", "Saved", "Error"})
	t.SetAutoWrapText(false)
	for _, item := range report.Items {
		name := item.Filename
		if name == "" {
			name = item.URL
		}

		errText := ""
		if item.Err != nil {
			errText = item.Err.Error()
		}

		t.Append([]string{strconv.Itoa(item.Index + 1), name, string(item.Stage), yesNo(item.Persisted), errText})
	}
	t.Render()

	summary := color.New(color.FgGreen)
	if len(report.Failures()) > 0 {
		summary = color.New(color.FgYellow)
	}
	summary.Fprintf(w, "%s: %d/%d downloaded, %d saved to %s in %s\n",
		report.Kind, report.Downloaded(), len(report.Items), report.Persisted(), report.Table,
		report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
}

func renderRows(w io.Writer, columns []string, rows []table.Row) {
	t := tablewriter.NewWriter(w)
	t.SetHeader(columns)
	t.SetAutoWrapText(false)
	for _, row := range rows {
		cells := make([]string, len(row.Values))
		for i, v := range row.Values {
			if v == nil {
				cells[i] = "NULL"
				continue
			}
			cells[i] = fmt.Sprint(v)
		}
		t.Append(cells)
	}
	t.Render()
}

func renderColumns(w io.Writer, columns []database.Column) {
	t := tablewriter.NewWriter(w)
	t.SetHeader([]string{"Column", "Primary Key"})
	for _, c := range columns {
		t.Append([]string{c.Name, yesNo(c.PrimaryKey)})
	}
	t.Render()
}

func renderRuns(w io.Writer, runs []*history.Run) {
	t := tablewriter.NewWriter(w)
	t.SetHeader([]string{"ID", "URL", "Kind", "Items", "Downloaded", "Saved", "Failed", "Started"})
	t.SetAutoWrapText(false)
	for _, run := range runs {
		t.Append([]string{
			run.ID.String(), run.URL, run.Kind,
			strconv.Itoa(run.Items), strconv.Itoa(run.Downloaded), strconv.Itoa(run.Persisted), strconv.Itoa(run.Failures),
			run.StartedAt.Local().Format(time.DateTime),
		})
	}
	t.Render()
}

func renderList(w io.Writer, header string, values []string) {
	t := tablewriter.NewWriter(w)
	t.SetHeader([]string{header})
	for _, v := range values {
		t.Append([]string{v})
	}
	t.Render()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}

	return "no"
}
