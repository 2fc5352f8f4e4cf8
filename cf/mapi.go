package cf

import (
	"fmt"
)

// Normalize converts any nested map[interface{}]interface{} values (as produced by some YAML decoders)
// into map[string]interface{}, so the result can be handed to Load at any depth.
func Normalize(in map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(in))
	for k, v := range in {
		result[k] = cleanUpValue(v)
	}
	return result
}

func MapIToMapS(in map[interface{}]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(in))
	for k, v := range in {
		result[fmt.Sprintf("%v", k)] = cleanUpValue(v)
	}
	return result
}

func cleanUpValue(v interface{}) interface{} {
	switch v := v.(type) {
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, e := range v {
			result[i] = cleanUpValue(e)
		}
		return result

	case map[interface{}]interface{}:
		return MapIToMapS(v)

	case map[string]interface{}:
		return Normalize(v)

	default:
		return v
	}
}
