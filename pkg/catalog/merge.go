package catalog

import "reflect"

// mergeJSON merges overlay onto base the way catalog overlays are applied:
// objects merge key by key, arrays are unioned (overlay items not already
// present are appended) and any other overlay value replaces the base value,
// null included. base is modified in place where possible; the merged value
// is returned.
func mergeJSON(base, overlay any) any {
	switch o := overlay.(type) {
	case map[string]any:
		b, ok := base.(map[string]any)
		if !ok {
			return o
		}
		for key, value := range o {
			if existing, ok := b[key]; ok {
				b[key] = mergeJSON(existing, value)
			} else {
				b[key] = value
			}
		}
		return b
	case []any:
		b, ok := base.([]any)
		if !ok {
			return o
		}
		for _, item := range o {
			if !containsJSON(b, item) {
				b = append(b, item)
			}
		}
		return b
	default:
		return overlay
	}
}

func containsJSON(items []any, v any) bool {
	for _, item := range items {
		if reflect.DeepEqual(item, v) {
			return true
		}
	}
	return false
}
