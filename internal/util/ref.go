package util

import (
	"fmt"
	"strconv"
)

// ParseRef parses a decimal entity ID as it appears in URLs and token subjects. IDs are
// PostgreSQL serials, so anything above 2^31-1 is rejected.
func ParseRef(s string) (uint32, error) {
	val, err := strconv.ParseUint(s, 10, 31)
	if err != nil {
		return 0, fmt.Errorf("could not parse ID string: %w", err)
	}
	if val == 0 {
		return 0, fmt.Errorf("could not parse ID string: %q is not a valid ID", s)
	}
	return uint32(val), nil
}

func FormatRef(r uint32) string {
	return strconv.FormatUint(uint64(r), 10)
}
