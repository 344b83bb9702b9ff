package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/chrissnell/tidewatch/pkg/lunar"
)

func main() {
	var timeStr string
	flag.StringVar(&timeStr, "time", "", "UTC time to calculate phase for (RFC3339 format, e.g., 2024-01-15T12:00:00Z)")
	flag.Parse()

	var t time.Time
	if timeStr == "" {
		t = time.Now().UTC()
	} else {
		var err error
		t, err = time.Parse(time.RFC3339, timeStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing time: %v\n", err)
			os.Exit(1)
		}
	}

	phase := lunar.Calculate(t)

	fmt.Printf("Fase lunar para %s\n", t.Format(time.RFC3339))
	fmt.Printf("  Fase:         %s (%.4f)\n", phase.PhaseName, phase.Phase)
	fmt.Printf("  Iluminación:  %.1f%%\n", phase.Illumination*100)
	fmt.Printf("  Edad:         %.1f días\n", phase.AgeDays)
	fmt.Printf("  Elongación:   %.1f°\n", phase.Elongation)
	fmt.Printf("  Marea:        %s\n", phase.TideRange)
	if phase.SpringTide {
		fmt.Println("  Mareas vivas: la amplitud astronómica refuerza cualquier sudestada")
	}
}
