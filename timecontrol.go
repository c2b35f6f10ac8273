package accuracy

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var timeControlPattern = regexp.MustCompile(`^(\d+)(?:\+(\d+))?$`)

// TimeControl is a base time plus a per-move increment.
type TimeControl struct {
	Total     time.Duration
	Increment time.Duration
}

// ParseTimeControl parses "<total>+<increment>" or "<total>", both in
// seconds. Any other form yields ErrUnrecognizedTimeControl.
func ParseTimeControl(s string) (TimeControl, error) {
	m := timeControlPattern.FindStringSubmatch(s)
	if m == nil {
		return TimeControl{}, fmt.Errorf("%w: %q", ErrUnrecognizedTimeControl, s)
	}

	total, err := strconv.Atoi(m[1])
	if err != nil {
		return TimeControl{}, fmt.Errorf("%w: %q", ErrUnrecognizedTimeControl, s)
	}
	tc := TimeControl{Total: time.Duration(total) * time.Second}

	if m[2] != "" {
		inc, err := strconv.Atoi(m[2])
		if err != nil {
			return TimeControl{}, fmt.Errorf("%w: %q", ErrUnrecognizedTimeControl, s)
		}
		tc.Increment = time.Duration(inc) * time.Second
	}
	return tc, nil
}

// String formats the time control the way it appears in PGN headers.
func (tc TimeControl) String() string {
	total := int(tc.Total / time.Second)
	if tc.Increment == 0 {
		return strconv.Itoa(total)
	}
	return strconv.Itoa(total) + "+" + strconv.Itoa(int(tc.Increment/time.Second))
}
