package tool

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Args holds the arguments of one tool call keyed by parameter name.
type Args map[string]any

// String returns a required string argument.
func (a Args) String(name string) (string, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return "", &InvalidArgumentsError{Reason: fmt.Sprintf("missing required argument %q", name)}
	}
	s, ok := v.(string)
	if !ok {
		return "", &InvalidArgumentsError{Reason: fmt.Sprintf("argument %q must be a string", name)}
	}
	return s, nil
}

// OptionalString returns a string argument or def when it is absent.
func (a Args) OptionalString(name, def string) (string, error) {
	if v, ok := a[name]; !ok || v == nil {
		return def, nil
	}
	return a.String(name)
}

// Int returns a required integer argument. Models often send numbers as
// floats or numeric strings, both are accepted when they hold a whole number.
func (a Args) Int(name string) (int, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return 0, &InvalidArgumentsError{Reason: fmt.Sprintf("missing required argument %q", name)}
	}
	n, ok := asInt(v)
	if !ok {
		return 0, &InvalidArgumentsError{Reason: fmt.Sprintf("argument %q must be an integer", name)}
	}
	return n, nil
}

// OptionalInt returns an integer argument or def when it is absent.
func (a Args) OptionalInt(name string, def int) (int, error) {
	if v, ok := a[name]; !ok || v == nil {
		return def, nil
	}
	return a.Int(name)
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int, bool) {
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}
