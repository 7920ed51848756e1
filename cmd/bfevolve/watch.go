// ABOUTME: Read-only terminal viewer that tails a save-state file as it changes
// ABOUTME: Built on bubbletea/bubbles/lipgloss/fsnotify, adapted from a playlist viewer

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"bfevolve/config"
	"bfevolve/genome"
	"bfevolve/population"
	"bfevolve/statecodec"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
)

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Println("Usage: bfevolve watch FILE")
		return 1
	}

	if err := RunWatchMode(fs.Arg(0)); err != nil {
		log.Printf("watch error: %v", err)
		return 1
	}
	return 0
}

// watchModel holds state for the read-only save-state viewer.
type watchModel struct {
	path        string
	pop         *statecodecView
	viewport    viewport.Model
	width       int
	height      int
	fileWatcher *fsnotify.Watcher
	lastReload  time.Time
	errorMsg    string
	ready       bool
}

// statecodecView is the subset of a decoded population the viewer needs
// to render; it avoids depending on workpool/context for a read-only
// viewer that never re-scores anything beyond what Decode already does.
type statecodecView struct {
	Target      []byte
	Generation  int
	TotalScored int
	BestFitness uint64
	BestProgram []byte
	BestOutput  []byte
	Count       int
}

type fileChangeMsg struct{}

type reloadCompleteMsg struct {
	pop *statecodecView
	err error
}

var (
	watchTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	watchHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	watchStatusStyle = lipgloss.NewStyle().Background(lipgloss.Color("236")).Foreground(lipgloss.Color("15")).Padding(0, 1)
	watchHelpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	watchErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// RunWatchMode starts the read-only viewer, watching path for writes.
func RunWatchMode(path string) error {
	pop, err := loadView(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch file: %w", err)
	}

	m := watchModel{
		path:        path,
		pop:         pop,
		fileWatcher: watcher,
		lastReload:  time.Now(),
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		watcher.Close()
		return fmt.Errorf("watch mode error: %w", err)
	}

	watcher.Close()
	return nil
}

func loadView(path string) (*statecodecView, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read save-state file: %w", err)
	}

	profile := config.DefaultConfig()
	knobs := knobsFromProfile(profile)
	gen := &genome.Generator{}

	decoded, err := statecodec.Decode(data, knobs, gen, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decode save-state file: %w", err)
	}

	best := decoded.Best()

	return &statecodecView{
		Target:      decoded.Target,
		Generation:  decoded.Generation,
		TotalScored: decoded.TotalScored,
		BestFitness: best.Fitness,
		BestProgram: best.Program,
		BestOutput:  best.Output,
		Count:       len(decoded.Genomes),
	}, nil
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(waitForFileChange(m.fileWatcher), tea.EnterAltScreen)
}

func waitForFileChange(watcher *fsnotify.Watcher) tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if event.Op&fsnotify.Write == fsnotify.Write {
					time.Sleep(100 * time.Millisecond)
					return fileChangeMsg{}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				debugf("[WATCHER] Error: %v", err)
			}
		}
	}
}

func reload(path string) tea.Cmd {
	return func() tea.Msg {
		pop, err := loadView(path)
		if err != nil {
			return reloadCompleteMsg{err: err}
		}
		return reloadCompleteMsg{pop: pop}
	}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight, footerHeight := 3, 2
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.viewport.SetContent(m.renderContent())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight - footerHeight
		}
		return m, nil

	case fileChangeMsg:
		return m, tea.Batch(reload(m.path), waitForFileChange(m.fileWatcher))

	case reloadCompleteMsg:
		if msg.err != nil {
			m.errorMsg = fmt.Sprintf("Error reloading: %v", msg.err)
		} else {
			m.pop = msg.pop
			m.lastReload = time.Now()
			m.errorMsg = ""
			m.viewport.SetContent(m.renderContent())
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c"))):
			return m, tea.Quit
		case key.Matches(msg, key.NewBinding(key.WithKeys("r"))):
			return m, reload(m.path)
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m watchModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := watchTitleStyle.Render(fmt.Sprintf("bfevolve watch: %s", m.path))
	header := watchHeaderStyle.Render(fmt.Sprintf("%-10s %-10s %-10s", "generation", "scored", "fitness"))
	body := m.viewport.View()
	status := m.renderStatus()
	help := watchHelpStyle.Render("r: reload | q: quit")

	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s", title, header, body, status, help)
}

func (m watchModel) renderContent() string {
	if m.pop == nil {
		return "(no data)"
	}
	return fmt.Sprintf(
		"target:      %q\ngeneration:  %d\nscored:      %d\nbest fitness: %d\nbest program: %s\nbest output:  %q",
		m.pop.Target, m.pop.Generation, m.pop.TotalScored, m.pop.BestFitness,
		truncate(string(m.pop.BestProgram), 200), m.pop.BestOutput,
	)
}

func (m watchModel) renderStatus() string {
	reloadTime := m.lastReload.Format("15:04:05")
	statusText := fmt.Sprintf("Last reload: %s", reloadTime)
	if m.errorMsg != "" {
		statusText = watchErrorStyle.Render(m.errorMsg)
	}
	return watchStatusStyle.Width(m.width).Render(statusText)
}

func knobsFromProfile(p config.RunProfile) population.Knobs {
	return population.Knobs{
		Size:      p.Size,
		Elitism:   p.Elitism,
		Crossover: p.Crossover,
		Mutation:  p.Mutation,
		Optimize:  p.Optimize,
		TapeSize:  p.TapeSize,
		TimeLimit: p.TimeLimit(),
	}
}
