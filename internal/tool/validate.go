package tool

import (
	"fmt"
	"reflect"
)

// validate checks required parameters and primitive types. Arguments the
// descriptor does not declare are left to the handler.
func validate(d Descriptor, args Args) error {
	for _, name := range d.RequiredParams() {
		if v, ok := args[name]; !ok || v == nil {
			return &InvalidArgumentsError{Tool: d.Name, Reason: fmt.Sprintf("missing required argument %q", name)}
		}
	}
	for _, p := range d.Params {
		v, ok := args[p.Name]
		if !ok || v == nil || p.Type == "" {
			continue
		}
		if !matchesType(p.Type, v) {
			return &InvalidArgumentsError{Tool: d.Name, Reason: fmt.Sprintf("argument %q must be %s", p.Name, p.Type)}
		}
	}
	return nil
}

func matchesType(expected string, value any) bool {
	switch expected {
	case TypeString:
		_, ok := value.(string)
		return ok
	case TypeBoolean:
		_, ok := value.(bool)
		return ok
	case TypeNumber:
		return isNumber(value)
	case TypeInteger:
		if !isNumber(value) {
			return false
		}
		_, ok := asInt(value)
		return ok
	case TypeObject:
		return reflect.TypeOf(value).Kind() == reflect.Map
	case TypeArray:
		kind := reflect.TypeOf(value).Kind()
		return kind == reflect.Array || kind == reflect.Slice
	default:
		return true
	}
}

func isNumber(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64:
		return true
	case uint, uint8, uint16, uint32, uint64:
		return true
	case float32, float64:
		return true
	default:
		return false
	}
}
