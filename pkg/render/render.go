// Package render fills {{path}} placeholders in outgoing dialog content.
//
// A placeholder is a dotted lookup into the data map, e.g. {{vars.user.name}}.
// Missing keys, nil values and lookups through non-map values render as the
// empty string; this is defined behavior so half-filled variable bags never
// break a conversation. Rendering is pure: it never mutates its inputs.
package render

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}`)

// Render substitutes every placeholder in text using data.
func Render(text string, data map[string]any) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		path := placeholder.FindStringSubmatch(m)[1]
		v, ok := Lookup(data, path)
		if !ok {
			return ""
		}
		return format(v)
	})
}

// Lookup resolves a dotted path against nested maps.
func Lookup(data map[string]any, path string) (any, bool) {
	var cur any = data
	for _, part := range strings.Split(path, ".") {
		switch m := cur.(type) {
		case map[string]any:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			cur = v
		case map[string]string:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			cur = v
		default:
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// Payload renders every string leaf of a rich payload, walking slices and maps
// depth-first. Non-string leaves are returned untouched; the input is copied,
// not modified.
func Payload(v any, data map[string]any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return Render(t, data)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = Payload(item, data)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Payload(item, data)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, item := range t {
			out[k] = Render(item, data)
		}
		return out
	case []string:
		out := make([]string, len(t))
		for i, item := range t {
			out[i] = Render(item, data)
		}
		return out
	}
	return reflectPayload(reflect.ValueOf(v), data)
}

// reflectPayload handles typed slices and maps (e.g. []map[string]any) that the
// fast path above does not name.
func reflectPayload(rv reflect.Value, data map[string]any) any {
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = Payload(rv.Index(i).Interface(), data)
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return rv.Interface()
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = Payload(iter.Value().Interface(), data)
		}
		return out
	}
	return rv.Interface()
}

func format(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
	return fmt.Sprint(v)
}
