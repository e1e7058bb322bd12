package lake

import (
	"fmt"
	"regexp"
	"strings"
)

var facilityPattern = regexp.MustCompile(`^[A-Z0-9_-]+$`)

// ValidateFacility rejects facility codes that cannot safely appear in a
// partition path segment. Date bounds and filter values are bound as SQL
// parameters, but the facility code also selects the partition directory,
// so it is validated instead.
func ValidateFacility(facility string) error {
	if facility == "" || !facilityPattern.MatchString(facility) {
		return fmt.Errorf("invalid facility code %q", facility)
	}
	return nil
}

var pathSegmentReplacer = strings.NewReplacer(
	"/", "_", "\\", "_", "..", "_", "=", "_", "'", "_", " ", "_",
)

// sanitizeSegment makes an arbitrary value (e.g. a model code from source
// data) safe to use as a partition path segment.
func sanitizeSegment(v string) string {
	if v == "" {
		return "UNKNOWN"
	}
	return pathSegmentReplacer.Replace(v)
}
