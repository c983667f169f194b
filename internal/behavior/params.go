package behavior

import (
	"math/rand"
	"strings"
	"time"
)

// ParamSetter is implemented by behaviors that accept template parameters.
// SetParam reports false for names it does not recognise or values of the
// wrong type; the registry skips those silently.
type ParamSetter interface {
	SetParam(name string, value any) bool
}

// FloatParam coerces numeric template values.
func FloatParam(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case uint32:
		return float64(v), true
	default:
		return 0, false
	}
}

// DurationParam accepts durations, Go duration strings ("750ms") and plain
// numbers interpreted as seconds.
func DurationParam(value any) (time.Duration, bool) {
	switch v := value.(type) {
	case time.Duration:
		return v, true
	case string:
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return d, true
	default:
		seconds, ok := FloatParam(value)
		if !ok {
			return 0, false
		}
		return time.Duration(seconds * float64(time.Second)), true
	}
}

// StringParam accepts string values only.
func StringParam(value any) (string, bool) {
	s, ok := value.(string)
	return s, ok
}

// BoolParam accepts bool values only.
func BoolParam(value any) (bool, bool) {
	b, ok := value.(bool)
	return b, ok
}

func fallbackRand() float64 {
	return rand.Float64()
}
