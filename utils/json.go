package utils

import (
	json "github.com/bytedance/sonic"
)

// JsonString renders obj for log fields; encoding errors yield an empty string.
func JsonString(obj any) string {
	jsonStr, _ := json.MarshalString(obj)
	return jsonStr
}

func JsonIndent(obj any) string {
	jsonStr, _ := json.MarshalIndent(obj, "", "  ")
	return string(jsonStr)
}

// DecodeJSON decodes one JSON document into a fresh T.
func DecodeJSON[T any](raw string) (T, error) {
	var out T
	err := json.UnmarshalString(raw, &out)
	return out, err
}
