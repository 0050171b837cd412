package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/handiism/bandcamp-free-downloader/internal/download"
	"github.com/handiism/bandcamp-free-downloader/internal/log"
)

// output prints progress events and, on a terminal, one progress bar per
// artifact.
type output struct {
	w       io.Writer
	verbose bool

	mu      sync.Mutex
	pw      progress.Writer
	tracker *progress.Tracker
	stopped bool
}

func newOutput(w io.Writer, verbose bool) *output {
	o := &output{w: w, verbose: verbose}

	if f, ok := w.(*os.File); ok && log.IsTerminal(f) {
		pw := progress.NewWriter()
		pw.SetOutputWriter(w)
		pw.SetAutoStop(false)
		pw.SetTrackerLength(30)
		pw.SetMessageLength(48)
		pw.SetStyle(progress.StyleDefault)
		pw.SetUpdateFrequency(100 * time.Millisecond)
		pw.Style().Visibility.ETA = true
		pw.Style().Visibility.Speed = true
		pw.Style().Visibility.Percentage = true
		pw.Style().Visibility.Value = true
		pw.Style().Visibility.Time = true
		pw.Style().Visibility.TrackerOverall = false
		o.pw = pw
		go pw.Render()
	}

	return o
}

func (o *output) Event(e download.ProgressEvent) {
	if e.Level == download.LevelVerbose && !o.verbose {
		return
	}

	msg := e.Message
	switch e.Level {
	case download.LevelError:
		msg = text.FgRed.Sprint(msg)
	case download.LevelWarning:
		msg = text.FgYellow.Sprint(msg)
	case download.LevelSuccess:
		msg = text.FgGreen.Sprint(msg)
	case download.LevelVerbose:
		msg = text.Faint.Sprint(msg)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pw != nil && !o.stopped {
		o.pw.Log("%s", msg)
		return
	}
	fmt.Fprintln(o.w, msg)
}

func (o *output) Transfer(e download.TransferEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pw == nil || o.stopped {
		return
	}

	if o.tracker == nil || o.tracker.IsDone() {
		o.tracker = &progress.Tracker{
			Message: e.Name,
			Total:   e.Total,
			Units:   progress.UnitsBytes,
		}
		o.pw.AppendTracker(o.tracker)
	}

	o.tracker.SetValue(e.Received)
	if e.Done {
		if e.Err != nil {
			o.tracker.MarkAsErrored()
		} else {
			o.tracker.MarkAsDone()
		}
	}
}

// Stop ends rendering. It is safe to call more than once.
func (o *output) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pw == nil || o.stopped {
		return
	}
	o.stopped = true
	o.pw.Stop()
	for o.pw.IsRenderInProgress() {
		time.Sleep(10 * time.Millisecond)
	}
}

func renderSummary(w io.Writer, summary *download.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Item", "Outcome", "Detail"})

	for i, item := range summary.Items {
		name := item.URL
		if item.Release != nil {
			name = item.Release.DatedName()
		}

		detail := ""
		switch item.Outcome {
		case download.OutcomeDownloaded, download.OutcomeExists:
			detail = filepath.Base(item.Path)
		case download.OutcomeFailed:
			detail = item.Err.Error()
		}

		t.AppendRow(table.Row{i + 1, name, outcomeColor(item.Outcome).Sprint(item.Outcome), detail})
	}

	t.AppendFooter(table.Row{
		"",
		"Total",
		fmt.Sprintf("%d downloaded, %d existing, %d not free, %d failed",
			summary.Count(download.OutcomeDownloaded),
			summary.Count(download.OutcomeExists),
			summary.Count(download.OutcomeNoFreeDownload),
			summary.Count(download.OutcomeFailed),
		),
		"",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: 60},
		{Number: 4, WidthMax: 60},
	})
	t.Render()
}

func outcomeColor(o download.Outcome) text.Colors {
	switch o {
	case download.OutcomeDownloaded:
		return text.Colors{text.FgGreen}
	case download.OutcomeExists:
		return text.Colors{text.FgCyan}
	case download.OutcomeNoFreeDownload:
		return text.Colors{text.FgYellow}
	default:
		return text.Colors{text.FgRed}
	}
}
