package provider

import (
	"fmt"
	"regexp"
	"strconv"
)

var isoDurationRe = regexp.MustCompile(
	`^P(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// parseISODuration converts an ISO-8601 duration string, as returned by
// the videos contentDetails endpoint (e.g. "PT1H2M3S"), to whole seconds.
func parseISODuration(s string) (int64, error) {
	m := isoDurationRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid iso-8601 duration: %q", s)
	}

	var total int64
	units := []int64{7 * 24 * 3600, 24 * 3600, 3600, 60}
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.ParseInt(m[i+1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid iso-8601 duration: %q", s)
		}
		total += n * unit
	}
	if m[5] != "" {
		secs, err := strconv.ParseFloat(m[5], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid iso-8601 duration: %q", s)
		}
		total += int64(secs)
	}
	return total, nil
}
