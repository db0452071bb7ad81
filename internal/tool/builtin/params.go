package builtin

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

func requiredString(params map[string]any, key string) (string, error) {
	if params == nil {
		return "", fmt.Errorf("%s is required", key)
	}
	raw, ok := params[key]
	if !ok {
		return "", fmt.Errorf("%s is required", key)
	}
	value, err := coerceString(raw)
	if err != nil {
		return "", fmt.Errorf("%s must be a string: %w", key, err)
	}
	return value, nil
}

func optionalString(params map[string]any, key string) (string, error) {
	if params == nil {
		return "", nil
	}
	raw, ok := params[key]
	if !ok || raw == nil {
		return "", nil
	}
	value, err := coerceString(raw)
	if err != nil {
		return "", fmt.Errorf("%s must be a string: %w", key, err)
	}
	return value, nil
}

func optionalBool(params map[string]any, key string) (bool, error) {
	if params == nil {
		return false, nil
	}
	raw, ok := params[key]
	if !ok || raw == nil {
		return false, nil
	}
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "y":
			return true, nil
		case "false", "0", "no", "n", "":
			return false, nil
		default:
			return false, fmt.Errorf("%s must be a boolean, got %q", key, v)
		}
	default:
		return false, fmt.Errorf("%s must be a boolean, got %T", key, raw)
	}
}

func requiredInt(params map[string]any, key string) (int, error) {
	if params == nil {
		return 0, fmt.Errorf("%s is required", key)
	}
	raw, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("%s is required", key)
	}
	return coerceInt(raw, key)
}

func optionalInt(params map[string]any, key string, fallback int) (int, error) {
	if params == nil {
		return fallback, nil
	}
	raw, ok := params[key]
	if !ok || raw == nil {
		return fallback, nil
	}
	return coerceInt(raw, key)
}

func coerceInt(raw any, key string) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be an integer, got %T", key, raw)
	}
}

func coerceString(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", errors.New("not a string")
	}
}

// resolvePath makes path absolute relative to cwd without touching already
// absolute inputs.
func resolvePath(path, cwd string) string {
	if filepath.IsAbs(path) || cwd == "" {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(cwd, path))
}
