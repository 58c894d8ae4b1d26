// cmd/lumix/stats.go
package main

import (
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// printStats writes the end-of-run report. Scores are read after the engine
// is closed, so nothing else is touching them.
func printStats(w io.Writer, stats *runStats, c *Components) {
	if stats == nil {
		return
	}
	p := message.NewPrinter(language.English)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	table.Append([]string{"Mode", stats.Mode})
	table.Append([]string{"Frames processed", p.Sprintf("%d", stats.Processed)})
	table.Append([]string{"Frames failed", p.Sprintf("%d", stats.Failed)})
	if stats.BytesIn > 0 || stats.BytesOut > 0 {
		table.Append([]string{"Bytes received", p.Sprintf("%d", stats.BytesIn)})
		table.Append([]string{"Bytes sent", p.Sprintf("%d", stats.BytesOut)})
	}
	table.Append([]string{"Elapsed", stats.Elapsed.Round(time.Millisecond).String()})
	if secs := stats.Elapsed.Seconds(); secs > 0 {
		table.Append([]string{"Frames/s", p.Sprintf("%.1f", float64(stats.Processed)/secs)})
	}

	if c != nil {
		if c.Engine != nil {
			table.Append([]string{"Creativity score", p.Sprintf("%.4f", c.Engine.Creativity().Score())})
		}
		if c.Normalizer != nil {
			table.Append([]string{"Normalization score", p.Sprintf("%.4f", c.Normalizer.Score())})
		}
		if c.Validator != nil {
			table.Append([]string{"Validation score", p.Sprintf("%.4f", c.Validator.Score())})
		}
		if c.Ethicist != nil {
			table.Append([]string{"Ethics score", p.Sprintf("%.4f", c.Ethicist.Score())})
		}
		if c.Actuator != nil {
			table.Append([]string{"Opto stimulations", p.Sprintf("%d", len(c.Actuator.Targets()))})
		}
		if c.Archiver != nil {
			saved, failed := c.Archiver.Counts()
			table.Append([]string{"Archived blobs", p.Sprintf("%d (%d failed)", saved, failed)})
		}
	}
	if stats.Solved {
		table.Append([]string{"Answer", p.Sprintf("%.6f", stats.Answer)})
	}
	if stats.LastError != nil {
		table.Append([]string{"Last error", stats.LastError.Error()})
	}

	table.Render()
}
