package stateobject

import (
	"reflect"

	E "github.com/sagernet/sing/common/exceptions"
)

// GetState serializes every declared field of object into a plain nested
// mapping. Nested objects delegate to their own field tables, absent
// nested objects serialize as nil.
func GetState(object Object, mode Mode) map[string]any {
	state := make(map[string]any)
	for _, field := range object.StateFields() {
		if mode == ModeShort && field.ShortOmit {
			continue
		}
		if field.Kind == KindObject {
			if nested := field.Object(); nested != nil {
				state[field.Name] = GetState(nested, mode)
			} else {
				state[field.Name] = nil
			}
			continue
		}
		state[field.Name] = field.Get()
	}
	return state
}

// LoadState validates state against the field table of object and, only
// if the whole mapping is valid, mutates object in place to match. On
// any schema error object is left unmodified.
func LoadState(object Object, state map[string]any) error {
	apply, err := prepare(object, state)
	if err != nil {
		return err
	}
	apply()
	return nil
}

// prepare walks the field table recursively and returns a deferred apply
// function, so that nothing is written before the full mapping is known
// to be valid.
func prepare(object Object, state map[string]any) (func(), error) {
	fields := object.StateFields()
	declared := make(map[string]bool, len(fields))
	for _, field := range fields {
		declared[field.Name] = true
	}
	for key := range state {
		if !declared[key] {
			return nil, E.New("unexpected state key: ", key)
		}
	}
	var applies []func()
	for _, field := range fields {
		value, loaded := state[field.Name]
		if !loaded {
			return nil, E.New("missing state key: ", field.Name)
		}
		if field.Kind == KindObject {
			if value == nil {
				applies = append(applies, func() {
					field.SetObject(nil)
				})
				continue
			}
			nestedState, isMapping := value.(map[string]any)
			if !isMapping {
				return nil, E.New("expected mapping for ", field.Name, ", got ", reflect.TypeOf(value))
			}
			nested := field.Object()
			if nested == nil {
				if field.New == nil {
					return nil, E.New("no constructor for absent object ", field.Name)
				}
				nested = field.New()
			}
			nestedApply, err := prepare(nested, nestedState)
			if err != nil {
				return nil, E.Cause(err, field.Name)
			}
			applies = append(applies, func() {
				nestedApply()
				field.SetObject(nested)
			})
			continue
		}
		scalar, err := coerce(field.Kind, value)
		if err != nil {
			return nil, E.Cause(err, field.Name)
		}
		applies = append(applies, func() {
			field.Set(scalar)
		})
	}
	return func() {
		for _, apply := range applies {
			apply()
		}
	}, nil
}

// coerce checks a scalar against its declared kind. Numbers arriving
// from JSON decode as float64, so integral kinds accept both forms.
func coerce(kind Kind, value any) (any, error) {
	switch kind {
	case KindString:
		if scalar, isString := value.(string); isString {
			return scalar, nil
		}
	case KindBool:
		if scalar, isBool := value.(bool); isBool {
			return scalar, nil
		}
	case KindInt:
		switch scalar := value.(type) {
		case int:
			return int64(scalar), nil
		case int64:
			return scalar, nil
		case float64:
			return int64(scalar), nil
		}
	case KindFloat:
		switch scalar := value.(type) {
		case float64:
			return scalar, nil
		case int:
			return float64(scalar), nil
		case int64:
			return float64(scalar), nil
		}
	}
	return nil, E.New("expected ", formatKind(kind), ", got ", reflect.TypeOf(value))
}

func formatKind(kind Kind) string {
	switch kind {
	case KindString:
		return "string"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindBool:
		return "boolean"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Equal reports deep structural equality of two state mappings,
// independent of the identity of the records they were taken from.
func Equal(leftState map[string]any, rightState map[string]any) bool {
	return reflect.DeepEqual(leftState, rightState)
}
