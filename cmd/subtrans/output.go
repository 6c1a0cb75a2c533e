package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"subtrans/internal/queue"
	"subtrans/internal/workflow"
)

func renderQueue(out io.Writer, items []queue.WorkItem) {
	if len(items) == 0 {
		fmt.Fprintln(out, "Queue is empty")
		return
	}
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.ID,
			dash(item.Subtitle),
			dash(item.TranslatedSubtitle),
			string(item.Status),
		})
	}
	fmt.Fprintln(out, renderTable([]string{"Video", "Subtitle", "Translated", "Status"}, rows, nil))
}

func renderReport(out io.Writer, report workflow.Report) {
	rows := make([][]string, 0, len(report.Results))
	for _, record := range report.Results {
		detail := record.Message
		if record.Error != "" {
			detail = record.Error
		}
		rows = append(rows, []string{
			record.ItemID,
			string(record.Status),
			detail,
			record.Duration.Round(time.Millisecond).String(),
		})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable([]string{"Video", "Result", "Detail", "Took"}, rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight}))
	}
	s := report.Summary
	fmt.Fprintf(out, "%s: %d completed, %d errors, %d without subtitles (%d processed)\n",
		report.Operation, s.Completed, s.Errors, s.NoSubtitles, s.Total)
	if report.Stopped {
		fmt.Fprintln(out, "Run stopped before every item was processed")
	}
}

func renderCounts(out io.Writer, summary queue.Summary) {
	statuses := make([]string, 0, len(summary.ByStatus))
	for status, count := range summary.ByStatus {
		if count > 0 {
			statuses = append(statuses, fmt.Sprintf("%s=%d", status, count))
		}
	}
	sort.Strings(statuses)
	fmt.Fprintf(out, "%d item(s): %s\n", summary.Total, strings.Join(statuses, " "))
}

// progressPrinter renders run progress. On a terminal it rewrites one line;
// otherwise it prints one line per event.
type progressPrinter struct {
	out         io.Writer
	interactive bool
	verbose     bool
}

func newProgressPrinter(out io.Writer, verbose bool) *progressPrinter {
	return &progressPrinter{out: out, interactive: isTerminal(out), verbose: verbose}
}

func (p *progressPrinter) OnProgress(message string, percent float64) {
	line := fmt.Sprintf("[%3.0f%%] %s", percent, message)
	if p.interactive {
		fmt.Fprintf(p.out, "\r\033[K%s", line)
		if percent >= 100 {
			fmt.Fprintln(p.out)
		}
		return
	}
	fmt.Fprintln(p.out, line)
}

func (p *progressPrinter) OnItemStatus(itemID string, status queue.Status) {
	if !p.verbose || p.interactive {
		return
	}
	fmt.Fprintf(p.out, "  %s -> %s\n", itemID, status)
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func dash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}


func formatPercent(part, total int) string {
	if total == 0 {
		return "0%"
	}
	return strconv.FormatFloat(float64(part)/float64(total)*100, 'f', 0, 64) + "%"
}
