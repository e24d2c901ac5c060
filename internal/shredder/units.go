package shredder

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"pbsacct/internal/model"
)

var (
	memoryUnitPattern = regexp.MustCompile(`^\d+(.*)$`)
	nonDigitPattern   = regexp.MustCompile(`\D+`)
)

// Memory scale factors to KB
const (
	kbFactor = 1
	mbFactor = 1024
	gbFactor = 1024 * 1024
)

// ParseMemory converts "<integer><unit>" to KB. The unit is one of b, kb, mb, gb or empty (kb).
// Any byte value collapses to exactly 1 KB. Unrecognized units leave the value unscaled.
func ParseMemory(val string) (int64, error) {
	unit := "kb"
	if m := memoryUnitPattern.FindStringSubmatch(val); m != nil {
		unit = m[1]
	}

	digits := nonDigitPattern.ReplaceAllString(val, "")
	mem, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: memory %q", model.ErrInvalidValue, val)
	}
	kb, ok := scaleMemory(unit, mem)
	if !ok {
		return 0, fmt.Errorf("%w: memory %q overflows", model.ErrInvalidValue, val)
	}
	return kb, nil
}

// scaleMemory reports false when the scaled value does not fit in an int64
func scaleMemory(unit string, value int64) (int64, bool) {
	var factor int64
	switch unit {
	case "mb":
		factor = mbFactor
	case "gb":
		factor = gbFactor
	case "b":
		// KB is the smallest unit stored
		return 1, true
	default:
		factor = kbFactor
	}
	if value > math.MaxInt64/factor {
		return 0, false
	}
	return value * factor, true
}

// ParseTime converts "H:M:S" to seconds. Negative components count as zero.
func ParseTime(val string) (int64, error) {
	parts := strings.Split(val, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("%w: time %q", model.ErrInvalidValue, val)
	}

	var hms [3]int64
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: time %q", model.ErrInvalidValue, val)
		}
		if n < 0 {
			n = 0
		}
		hms[i] = n
	}
	return hms[0]*3600 + hms[1]*60 + hms[2], nil
}

// ParseUnixTime parses an integer unix timestamp
func ParseUnixTime(val string) (int64, error) {
	t, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: unix timestamp %q", model.ErrInvalidValue, val)
	}
	return t, nil
}

// HostCPU one host/cpu-index pair of an exec_host value
type HostCPU struct {
	Host string
	CPU  int
}

// ParseExecHost splits "host/idx(+host/idx)*" into pairs. Parts without exactly one
// "/" separator are ignored; a non-integer index fails the whole value.
func ParseExecHost(val string) ([]HostCPU, error) {
	var hosts []HostCPU
	for _, part := range strings.Split(val, "+") {
		fields := strings.Split(part, "/")
		if len(fields) != 2 || fields[1] == "" {
			continue
		}
		cpu, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%w: cpu number for exec_host %q", model.ErrInvalidValue, val)
		}
		hosts = append(hosts, HostCPU{Host: fields[0], CPU: cpu})
	}
	return hosts, nil
}

// CountExecHost returns the distinct host count and the total cpu count of pairs
func CountExecHost(hosts []HostCPU) (nodes, cpus int) {
	seen := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		seen[h.Host] = struct{}{}
	}
	return len(seen), len(hosts)
}
