package flatten

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// step moves one level into a decoded JSON value. It reports false when the
// level is absent, null, or not the container it expects.
type step func(any) (any, bool)

func key(name string) step {
	return func(v any) (any, bool) {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		child, ok := obj[name]
		if !ok || child == nil {
			return nil, false
		}
		return child, true
	}
}

// first selects element 0 of an array; an empty array is absent.
func first() step {
	return func(v any) (any, bool) {
		arr, ok := v.([]any)
		if !ok || len(arr) == 0 || arr[0] == nil {
			return nil, false
		}
		return arr[0], true
	}
}

func lookup(v any, steps ...step) (any, bool) {
	for _, s := range steps {
		var ok bool
		if v, ok = s(v); !ok {
			return nil, false
		}
	}
	return v, true
}

// keys builds a path of object keys.
func keys(names ...string) []step {
	path := make([]step, len(names))
	for i, name := range names {
		path[i] = key(name)
	}
	return path
}

// scalar renders a JSON leaf as a cell. Objects and arrays are not leaves.
func scalar(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("expected a scalar, got %T", v)
	}
}

// firstScalar returns the first path that resolves to a scalar. A path that
// resolves to an object or array is skipped; if that is all that was found
// the value has the wrong shape and an error is returned. No match at all
// is an absent value.
func firstScalar(v any, paths ...[]step) (string, error) {
	var shapeErr error
	for _, path := range paths {
		found, ok := lookup(v, path...)
		if !ok {
			continue
		}
		cell, err := scalar(found)
		if err != nil {
			shapeErr = err
			continue
		}
		return cell, nil
	}
	return "", shapeErr
}
