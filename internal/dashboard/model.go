// Package dashboard is a terminal view of the stations served by a
// tidewatch REST server.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type tickMsg time.Time

type fetchMsg struct {
	stations []Station
	err      error
	at       time.Time
}

// Model is the bubbletea model
type Model struct {
	fetcher  Fetcher
	interval time.Duration
	width    int

	stations []Station
	err      error
	updated  time.Time
}

// New returns a Model that refreshes every interval
func New(f Fetcher, interval time.Duration) Model {
	return Model{fetcher: f, interval: interval}
}

func (m Model) Init() tea.Cmd {
	return m.fetch()
}

func (m Model) fetch() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		stations, err := m.fetcher.Fetch(ctx)
		return fetchMsg{stations: stations, err: err, at: time.Now()}
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			return m, m.fetch()
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tickMsg:
		return m, m.fetch()
	case fetchMsg:
		m.err = msg.err
		if msg.err == nil {
			m.stations = msg.stations
			m.updated = msg.at
		}
		return m, m.tick()
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("tidewatch"))
	if !m.updated.IsZero() {
		b.WriteString(labelStyle.Render("  actualizado " + m.updated.Format("15:04:05")))
	}
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(critStyle.Render("error: "+m.err.Error()) + "\n\n")
	}
	if len(m.stations) == 0 && m.err == nil {
		b.WriteString(labelStyle.Render("cargando...") + "\n")
	}

	panels := make([]string, 0, len(m.stations))
	for _, st := range m.stations {
		panels = append(panels, renderStation(st))
	}
	if m.width > 0 && m.width < 80 {
		b.WriteString(lipgloss.JoinVertical(lipgloss.Left, panels...))
	} else {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, panels...))
	}

	b.WriteString("\n" + helpStyle.Render("r: refrescar  q: salir"))
	return b.String()
}

func renderStation(st Station) string {
	v := st.View
	var lines []string

	lines = append(lines, titleStyle.Render(v.StationName))

	if v.Latest != nil {
		h := heightStyle(v.Latest.Height, st.Summary.SurgeOn, st.Summary.SurgeOff).Render(fmt.Sprintf("%.2fm", v.Latest.Height))
		lines = append(lines, field("altura", h+labelStyle.Render(" a las "+v.Latest.ObservedAt)))
	} else {
		lines = append(lines, field("altura", labelStyle.Render("sin lecturas")))
	}

	t := v.Trend
	lines = append(lines, field("tendencia", valueStyle.Render(fmt.Sprintf("%s %s (%+.2fm, %+.2fm/h)", t.Icon, t.DirectionES, t.Delta, t.RatePerHour))))

	if v.Surge != nil {
		msg := okStyle.Render(v.Surge.Message)
		if v.Surge.Active {
			msg = critStyle.Render(v.Surge.Message)
		}
		lines = append(lines, field("sudestada", msg))
	}
	if v.Prediction != nil {
		lines = append(lines, field("pronóstico", valueStyle.Render(v.Prediction.Message)))
	}

	moon := fmt.Sprintf("%s %.0f%% (%s)", v.Moon.PhaseName, v.Moon.Illumination*100, v.Moon.TideRange)
	lines = append(lines, field("luna", labelStyle.Render(moon)))

	style := panelStyle
	if v.Surge != nil && v.Surge.Active {
		style = surgePanelStyle
	}
	return style.Render(strings.Join(lines, "\n"))
}

func field(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-11s", label)) + value
}
