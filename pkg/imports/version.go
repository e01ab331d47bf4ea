package imports

import (
	"fmt"
	"strconv"
	"strings"
)

// CheckClientVersion reports whether a client at clientVersion may import
// cards. An empty clientVersion is allowed so clients without the header
// can still import; an empty minVersion disables the gate entirely.
// Returns an error describing the mismatch otherwise.
func CheckClientVersion(clientVersion, minVersion string) error {
	if clientVersion == "" || minVersion == "" {
		return nil
	}
	if compareVersions(clientVersion, minVersion) < 0 {
		return fmt.Errorf("client version %s is not compatible, minimum required version is %s",
			clientVersion, minVersion)
	}
	return nil
}

// parseVersion parses a dotted numeric version into major, minor and patch.
// The patch component is optional. Malformed input collapses to 0.0.0.
func parseVersion(v string) [3]int {
	parts := strings.Split(v, ".")
	if len(parts) < 2 {
		return [3]int{}
	}

	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return [3]int{}
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return [3]int{}
	}
	patch := 0
	if len(parts) > 2 {
		patch, err = strconv.Atoi(parts[2])
		if err != nil {
			return [3]int{}
		}
	}

	return [3]int{major, minor, patch}
}

// compareVersions compares two dotted numeric versions component-wise.
// Returns -1 when a is lower than b, 1 when higher, 0 when equal.
func compareVersions(a, b string) int {
	av, bv := parseVersion(a), parseVersion(b)
	for i := range av {
		if av[i] < bv[i] {
			return -1
		}
		if av[i] > bv[i] {
			return 1
		}
	}
	return 0
}
