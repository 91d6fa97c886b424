package corpus

import (
	"fmt"
	"strings"
)

// series is a contiguous block of AMI meeting numbers sharing a prefix.
type series struct {
	prefix   string
	from, to int
}

var amiSeries = []series{
	{"ES", 2002, 2016},
	{"IS", 1000, 1009},
	{"TS", 3003, 3012},
	{"IB", 4001, 4011},
	{"IN", 1001, 1016},
}

// DefaultMeetings returns the AMI meeting identifiers in catalogue order.
func DefaultMeetings() []string {
	var ids []string
	for _, s := range amiSeries {
		for n := s.from; n <= s.to; n++ {
			ids = append(ids, fmt.Sprintf("%s%d", s.prefix, n))
		}
	}
	return ids
}

// HasAnyPrefix reports whether id starts with one of prefixes.
func HasAnyPrefix(id string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(id, p) {
			return true
		}
	}
	return false
}
