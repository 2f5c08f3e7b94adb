package common

import (
	"fmt"
	"strings"
)

// StringArg returns args[key] when it is a non-empty string.
func StringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// RequiredStringArg is StringArg that reports a missing value as an error.
func RequiredStringArg(args map[string]any, key string) (string, error) {
	v, ok := StringArg(args, key)
	if !ok {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

// BoolArg returns args[key] when it is a bool.
func BoolArg(args map[string]any, key string) (value, ok bool) {
	value, ok = args[key].(bool)
	return value, ok
}

// ListArg splits a delimiter separated string argument, trimming
// whitespace and dropping empty entries.
func ListArg(args map[string]any, key, sep string) []string {
	v, ok := StringArg(args, key)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, sep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
