package config

// DeepMerge merges override onto base and returns a new map. Neither input is
// modified.
//
//   - nested maps are merged key by key
//   - slices replace the base value wholesale, they are never concatenated
//   - a nil override value leaves the base value untouched
//   - any other override value replaces the base value
func DeepMerge(base, override map[string]interface{}) map[string]interface{} {
	result := DeepClone(base)
	if result == nil {
		result = make(map[string]interface{})
	}

	for key, value := range override {
		if value == nil {
			continue
		}
		overrideMap, overrideIsMap := asMap(value)
		baseMap, baseIsMap := asMap(result[key])
		if overrideIsMap && baseIsMap {
			result[key] = DeepMerge(baseMap, overrideMap)
			continue
		}
		result[key] = cloneValue(value)
	}

	return result
}

// DeepClone copies a generic configuration map, including nested maps and slices.
func DeepClone(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	if m, ok := asMap(v); ok {
		return DeepClone(m)
	}
	switch typed := v.(type) {
	case []interface{}:
		out := make([]interface{}, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), typed...)
	}
	return v
}

// asMap normalizes the map shapes produced by the YAML, TOML and JSON decoders.
func asMap(v interface{}) (map[string]interface{}, bool) {
	switch typed := v.(type) {
	case map[string]interface{}:
		return typed, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(typed))
		for k, val := range typed {
			key, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[key] = val
		}
		return out, true
	}
	return nil, false
}
