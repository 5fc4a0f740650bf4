package duration

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

// Unit factors in milliseconds.
const (
	Millisecond int64 = 1
	Second            = 1000 * Millisecond
	Minute            = 60 * Second
	Hour              = 60 * Minute
	Day               = 24 * Hour
)

var pattern = regexp.MustCompile(`^(\d+) ?(ms|s|m|h|d)$`)

var factors = map[string]int64{
	"ms": Millisecond,
	"s":  Second,
	"m":  Minute,
	"h":  Hour,
	"d":  Day,
}

// ParseError is returned when a value does not follow the duration grammar.
type ParseError struct {
	Value any
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Unable to parse window size: %v", e.Value)
}

// Parse converts value into milliseconds.
//
// Integer values are returned unchanged. Float values are accepted when they
// are integral, which covers numbers decoded from JSON. A time.Duration is
// truncated to whole milliseconds. Strings must match the grammar described
// in the package documentation.
func Parse(value any) (int64, error) {
	switch v := value.(type) {
	case string:
		return ParseString(v)
	case time.Duration:
		return v.Milliseconds(), nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return checkedUint(uint64(v), value)
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return checkedUint(v, value)
	case float32:
		return integralFloat(float64(v), value)
	case float64:
		return integralFloat(v, value)
	default:
		return 0, &ParseError{Value: value}
	}
}

// ParseString parses a string window size such as "10s" or "5 m".
func ParseString(s string) (int64, error) {
	match := pattern.FindStringSubmatch(s)
	if match == nil {
		return 0, &ParseError{Value: s}
	}

	n, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, &ParseError{Value: s}
	}

	factor := factors[match[2]]
	if n > math.MaxInt64/factor {
		return 0, &ParseError{Value: s}
	}
	return n * factor, nil
}

// ParseDuration is Parse returning a time.Duration.
func ParseDuration(value any) (time.Duration, error) {
	ms, err := Parse(value)
	if err != nil {
		return 0, err
	}
	if ms < 0 || ms > math.MaxInt64/int64(time.Millisecond) {
		return 0, &ParseError{Value: value}
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func checkedUint(v uint64, original any) (int64, error) {
	if v > math.MaxInt64 {
		return 0, &ParseError{Value: original}
	}
	return int64(v), nil
}

func integralFloat(f float64, original any) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) ||
		f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, &ParseError{Value: original}
	}
	return int64(f), nil
}
