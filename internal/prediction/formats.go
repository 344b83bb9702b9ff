package prediction

import (
	"strings"
	"time"
)

// TimeFormats lists the accepted time-of-day layouts for upstream peak labels,
// in the order they are tried. The first layout that parses wins.
var TimeFormats = []string{
	"15:04",
	"15:04:05",
	"15.04",
	"3:04 PM",
	"3:04PM",
}

// parseTimeOfDay tries every accepted layout against the whole label and then
// against its first whitespace-separated token, so labels such as "14:00 hs"
// still parse.
func parseTimeOfDay(label string) (time.Time, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return time.Time{}, false
	}

	candidates := []string{strings.ToUpper(label)}
	if fields := strings.Fields(label); len(fields) > 1 {
		candidates = append(candidates, strings.ToUpper(fields[0]))
	}

	for _, c := range candidates {
		for _, layout := range TimeFormats {
			if t, err := time.Parse(layout, c); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
