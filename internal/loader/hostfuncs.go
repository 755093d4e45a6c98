package loader

import (
	"fmt"

	"github.com/risor-io/risor/object"
)

// Risor scripts cannot construct Go structs, so host functions accept Risor
// maps with primitive values and build the structs on the Go side.

func extractMap(obj object.Object) (map[string]object.Object, error) {
	m, ok := obj.(*object.Map)
	if !ok {
		return nil, fmt.Errorf("expected map, got %s", obj.Type())
	}
	return m.Value(), nil
}

func getString(m map[string]object.Object, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	if s, ok := v.(*object.String); ok {
		return s.Value()
	}
	return ""
}

func getStringDefault(m map[string]object.Object, key, def string) string {
	v := getString(m, key)
	if v == "" {
		return def
	}
	return v
}

func getBool(m map[string]object.Object, key string) bool {
	v, ok := m[key]
	if !ok {
		return false
	}
	if b, ok := v.(*object.Bool); ok {
		return b.Value()
	}
	return false
}

// getStringList reads a list of strings. A missing key or nil yields nil.
func getStringList(m map[string]object.Object, key string) ([]string, error) {
	v, ok := m[key]
	if !ok || v == object.Nil {
		return nil, nil
	}
	list, ok := v.(*object.List)
	if !ok {
		return nil, fmt.Errorf("expected list, got %s", v.Type())
	}
	out := make([]string, 0, len(list.Value()))
	for _, item := range list.Value() {
		s, err := toString(item)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}
