// Command tidewatch-top is a terminal dashboard for a running tidewatch
// server.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chrissnell/tidewatch/internal/dashboard"
)

func main() {
	serverURL := flag.String("url", "http://localhost:8080", "tidewatch server URL")
	interval := flag.Duration("interval", 5*time.Second, "refresh interval")
	flag.Parse()

	model := dashboard.New(dashboard.NewHTTPFetcher(*serverURL), *interval)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
