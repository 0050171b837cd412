// Package tui provides a Bubble Tea terminal user interface for
// bandcamp-free-downloader.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/handiism/bandcamp-free-downloader/internal/config"
	"github.com/handiism/bandcamp-free-downloader/internal/download"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1DA0C3")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)
)

// maxLogs is how many progress lines stay on screen.
const maxLogs = 12

// errCancelled is shown when the user stops a batch.
var errCancelled = errors.New("cancelled by user")

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateDownloading
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state    State
	input    textarea.Model
	spinner  spinner.Model
	progress progress.Model
	settings *config.Settings
	logger   zerolog.Logger
	logs     []LogEntry
	summary  *download.Summary
	err      error

	// events carries progress events from the manager goroutine.
	events chan download.ProgressEvent

	ctx    context.Context
	cancel context.CancelFunc

	manager *download.Manager

	itemsTotal    int32
	itemsDone     int32
	totalBytes    int64
	receivedBytes int64

	// Options
	flat    bool
	verbose bool

	width  int
	height int
}

// NewModel creates a new TUI model. settings is copied before each batch, so
// toggles in the UI never leak into the caller's value.
func NewModel(settings *config.Settings, logger zerolog.Logger) Model {
	ta := textarea.New()
	ta.Placeholder = "https://artist.bandcamp.com/album/name\nhttps://artist.bandcamp.com/music"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetWidth(70)
	ta.SetHeight(6)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#1DA0C3"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:    StateInput,
		input:    ta,
		spinner:  sp,
		progress: prog,
		settings: settings,
		logger:   logger,
		events:   make(chan download.ProgressEvent, 64),
		ctx:      ctx,
		cancel:   cancel,
		flat:     settings.NoArtistSubfolder,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, m.waitForEvent())
}

// Message types
type (
	// ProgressMsg is sent when the manager reports progress.
	ProgressMsg struct {
		Event download.ProgressEvent
	}

	// StartedMsg is sent once the manager for a batch exists.
	StartedMsg struct {
		Manager *download.Manager
	}

	// DoneMsg is sent when the batch ends.
	DoneMsg struct {
		Summary *download.Summary
		Err     error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		m.input.SetWidth(min(max(msg.Width-10, 30), 100))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			switch m.state {
			case StateInput:
				return m, tea.Quit
			case StateDownloading:
				m.cancel()
			}
			return m, nil

		case "ctrl+s":
			if m.state == StateInput {
				urls, err := download.ParseInputURLs(m.input.Value())
				if err != nil {
					m.logs = []LogEntry{{Message: err.Error(), Level: download.LevelError}}
					return m, nil
				}
				if len(urls) == 0 {
					m.logs = []LogEntry{{Message: "Enter at least one Bandcamp URL", Level: download.LevelWarning}}
					return m, nil
				}
				m.state = StateDownloading
				m.logs = nil
				m.input.Blur()
				return m, tea.Batch(m.start(urls), m.spinner.Tick, m.tickProgress())
			}

		case "ctrl+o":
			if m.state == StateInput {
				m.flat = !m.flat
				return m, nil
			}

		case "ctrl+l":
			if m.state == StateInput {
				m.verbose = !m.verbose
				return m, nil
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				m.state = StateInput
				m.logs = nil
				m.summary = nil
				m.err = nil
				m.itemsDone, m.itemsTotal = 0, 0
				m.receivedBytes, m.totalBytes = 0, 0
				m.manager = nil
				m.ctx, m.cancel = context.WithCancel(context.Background())
				m.input.Reset()
				cmds = append(cmds, m.input.Focus())
				return m, tea.Batch(cmds...)
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		cmds = append(cmds, m.waitForEvent())
		if msg.Event.Level == download.LevelVerbose && !m.verbose {
			return m, tea.Batch(cmds...)
		}
		m.logs = append(m.logs, LogEntry{Message: msg.Event.Message, Level: msg.Event.Level})
		if len(m.logs) > maxLogs {
			m.logs = m.logs[len(m.logs)-maxLogs:]
		}
		return m, tea.Batch(cmds...)

	case StartedMsg:
		if m.state != StateDownloading {
			msg.Manager.Close()
			break
		}
		m.manager = msg.Manager

	case DoneMsg:
		m.summary = msg.Summary
		if m.manager != nil {
			m.receivedBytes, m.totalBytes, m.itemsDone, m.itemsTotal = m.manager.GetProgress()
			m.manager.Close()
			m.manager = nil
		}
		switch {
		case errors.Is(msg.Err, context.Canceled):
			m.state = StateError
			m.err = errCancelled
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}

	case TickMsg:
		if m.state == StateDownloading {
			if m.manager != nil {
				m.receivedBytes, m.totalBytes, m.itemsDone, m.itemsTotal = m.manager.GetProgress()
			}
			cmds = append(cmds, m.progress.SetPercent(m.percent()), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	if m.state == StateInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) percent() float64 {
	if m.itemsTotal == 0 {
		return 0
	}
	return float64(m.itemsDone) / float64(m.itemsTotal)
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// waitForEvent blocks until the manager reports progress.
func (m Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		return ProgressMsg{Event: <-events}
	}
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Bandcamp Free Downloader"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Download free and name-your-price releases from Bandcamp"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateDownloading:
		b.WriteString(m.viewDownloading())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Enter Bandcamp URLs, one per line:"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s No artist subfolder (ctrl+o)\n", checkbox(m.flat)))
	b.WriteString(fmt.Sprintf("  %s Verbose output (ctrl+l)\n", checkbox(m.verbose)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Music folder: %s", m.settings.MusicFolder)))
	b.WriteString("\n")

	if len(m.logs) > 0 {
		b.WriteString("\n")
		b.WriteString(m.renderLogs())
	}

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	if m.itemsTotal == 0 {
		b.WriteString(subtitleStyle.Render("Fetching release info..."))
	} else {
		b.WriteString(subtitleStyle.Render(fmt.Sprintf("Processing item %d of %d", min(m.itemsDone+1, m.itemsTotal), m.itemsTotal)))
	}
	b.WriteString("\n\n")

	b.WriteString(m.progress.View())
	b.WriteString("\n")

	transfer := "waiting"
	if m.totalBytes > 0 {
		transfer = fmt.Sprintf("%.2f / %.2f MB", mebibytes(m.receivedBytes), mebibytes(m.totalBytes))
	}
	b.WriteString(infoStyle.Render(fmt.Sprintf("Items: %d/%d | Current file: %s", m.itemsDone, m.itemsTotal, transfer)))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var b strings.Builder

	b.WriteString(boxStyle.Render(m.summaryText("Batch complete")))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) summaryText(title string) string {
	s := m.summary
	if s == nil {
		s = &download.Summary{}
	}
	return fmt.Sprintf(
		"%s\n\n"+
			"Downloaded: %d\n"+
			"Already present: %d\n"+
			"No free download: %d\n"+
			"Failed: %d",
		title,
		s.Count(download.OutcomeDownloaded),
		s.Count(download.OutcomeExists),
		s.Count(download.OutcomeNoFreeDownload),
		s.Count(download.OutcomeFailed),
	)
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("Batch stopped:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
		b.WriteString("\n\n")
	}
	if m.summary != nil && len(m.summary.Items) > 0 {
		b.WriteString(boxStyle.Render(m.summaryText("Processed so far")))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, entry := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch entry.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "✗"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case download.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + entry.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		return "ctrl+s: start • ctrl+o: no artist subfolder • ctrl+l: verbose • esc: quit"
	case StateDownloading:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new batch • q: quit"
	}
	return ""
}

// start creates a manager for urls and runs it in the background. The
// manager is reported with StartedMsg so ticks can poll its progress.
func (m Model) start(urls []string) tea.Cmd {
	settings := *m.settings
	settings.NoArtistSubfolder = m.flat

	ctx := m.ctx
	events := m.events
	onProgress := func(e download.ProgressEvent) {
		select {
		case events <- e:
		case <-ctx.Done():
		}
	}

	manager, err := download.NewManager(&settings, onProgress, download.WithLogger(m.logger))
	if err != nil {
		return func() tea.Msg { return DoneMsg{Err: err} }
	}

	return tea.Batch(
		func() tea.Msg { return StartedMsg{Manager: manager} },
		func() tea.Msg {
			summary, err := manager.Run(ctx, urls)
			return DoneMsg{Summary: summary, Err: err}
		},
	)
}

func mebibytes(n int64) float64 {
	return float64(n) / 1024 / 1024
}

// Run starts the TUI application.
func Run(settings *config.Settings, logger zerolog.Logger) error {
	p := tea.NewProgram(NewModel(settings, logger), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
