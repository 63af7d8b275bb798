package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/wippyai/spvkernel/metadata"
)

var browseCmd = &cobra.Command{
	Use:   "browse [flags] file.spv",
	Short: "Browse kernels interactively",
	Args:  cobra.ExactArgs(1),
	RunE:  runBrowse,
}

func init() {
	browseCmd.Flags().Bool("promote-locals", false, "browse metadata after turning kernel local variables into arguments")
	browseCmd.Flags().Bool("atomic-workaround", false, "patch mistyped atomic compare-exchange before extraction")
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	kernelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type browseState int

const (
	stateSelectKernel browseState = iota
	stateShowKernel
)

type browseModel struct {
	err      error
	filename string
	kernels  []*metadata.KernelMetadata
	visible  []int // indexes into kernels that pass the filter
	filter   textinput.Model
	selected int
	state    browseState
	settings settings
	loaded   bool
}

type kernelsMsg struct {
	err     error
	kernels []*metadata.KernelMetadata
}

func newBrowseModel(filename string, s settings) *browseModel {
	ti := textinput.New()
	ti.Prompt = "filter: "
	ti.Placeholder = "kernel name"
	ti.Width = 40
	ti.Focus()
	return &browseModel{
		filename: filename,
		filter:   ti,
		settings: s,
		state:    stateSelectKernel,
	}
}

func (m *browseModel) Init() tea.Cmd {
	return tea.Batch(m.load, textinput.Blink)
}

func (m *browseModel) load() tea.Msg {
	mods, err := loadModules(context.Background(), []string{m.filename}, m.settings)
	if err != nil {
		return kernelsMsg{err: err}
	}
	return kernelsMsg{kernels: mods[0].Kernels}
}

func (m *browseModel) applyFilter() {
	q := strings.ToLower(m.filter.Value())
	m.visible = m.visible[:0]
	for i, k := range m.kernels {
		if q == "" || strings.Contains(strings.ToLower(k.Name), q) {
			m.visible = append(m.visible, i)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = max(len(m.visible)-1, 0)
	}
}

func (m *browseModel) current() *metadata.KernelMetadata {
	if m.selected < 0 || m.selected >= len(m.visible) {
		return nil
	}
	return m.kernels[m.visible[m.selected]]
}

func (m *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "up":
			if m.state == stateSelectKernel && m.selected > 0 {
				m.selected--
			}
			return m, nil

		case "down":
			if m.state == stateSelectKernel && m.selected < len(m.visible)-1 {
				m.selected++
			}
			return m, nil

		case "enter":
			if m.state == stateSelectKernel && m.current() != nil {
				m.state = stateShowKernel
				m.filter.Blur()
			}
			return m, nil

		case "esc":
			if m.state == stateShowKernel {
				m.state = stateSelectKernel
				return m, m.filter.Focus()
			}
			return m, tea.Quit

		case "q":
			if m.state == stateShowKernel || m.err != nil {
				return m, tea.Quit
			}
		}

	case kernelsMsg:
		m.loaded = true
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.kernels = msg.kernels
		m.applyFilter()
		return m, nil
	}

	if m.state == stateSelectKernel {
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.applyFilter()
		return m, cmd
	}
	return m, nil
}

func (m *browseModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if !m.loaded {
		return "Loading module..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("SPIR-V Kernels"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectKernel:
		b.WriteString(m.filter.View())
		b.WriteString("\n\n")
		if len(m.visible) == 0 {
			b.WriteString(helpStyle.Render("no matching kernels"))
			b.WriteString("\n")
		}
		for i, idx := range m.visible {
			line := m.formatKernel(m.kernels[idx])
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("type to filter • ↑/↓ select • enter details • esc quit"))

	case stateShowKernel:
		printKernel(&b, m.current())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("esc back • q quit"))
	}
	return b.String()
}

func (m *browseModel) formatKernel(km *metadata.KernelMetadata) string {
	dev, ok := km.Device(0)
	if !ok {
		return kernelStyle.Render(km.Name)
	}
	var names []string
	for _, a := range dev.Args {
		names = append(names, a.Name)
	}
	s := kernelStyle.Render(km.Name) + "(" + strings.Join(names, ", ") + ")"
	if dev.NumLocals > 0 {
		s += " " + detailStyle.Render("local "+humanize.IBytes(dev.LocalMemSize()))
	}
	return s
}

func runBrowse(_ *cobra.Command, args []string) error {
	p := tea.NewProgram(newBrowseModel(args[0], cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
