package apiclient

import (
	"fmt"
	"strings"
)

// validatePath checks a caller-supplied endpoint path before any request
// state is touched. Paths are relative to the configured base URL and must
// not smuggle traversal sequences or URL schemes.
func validatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return &ValidationError{Reason: "path is required"}
	}
	if !strings.HasPrefix(path, "/") {
		return &ValidationError{Reason: fmt.Sprintf("path %q must start with /", path)}
	}
	if strings.Contains(path, "..") {
		return &ValidationError{Reason: fmt.Sprintf("path %q contains a traversal sequence", path)}
	}
	if strings.Contains(path, "\\") {
		return &ValidationError{Reason: fmt.Sprintf("path %q contains a backslash", path)}
	}
	if strings.Contains(path, "//") {
		return &ValidationError{Reason: fmt.Sprintf("path %q contains an empty segment", path)}
	}

	lower := strings.ToLower(path)
	for _, scheme := range []string{"javascript:", "data:", "vbscript:", "file:"} {
		if strings.Contains(lower, scheme) {
			return &ValidationError{Reason: fmt.Sprintf("path %q contains a URL scheme", path)}
		}
	}

	for _, r := range path {
		if r < 0x20 || r == 0x7f {
			return &ValidationError{Reason: "path contains a control character"}
		}
		if r == ' ' {
			return &ValidationError{Reason: fmt.Sprintf("path %q contains whitespace", path)}
		}
	}

	return nil
}

// rateKeyForPath derives the default rate-limit key from an endpoint path:
// the first segment under /api/, or the first segment otherwise. Requests to
// the same resource class share one window.
func rateKeyForPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}

	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "/"
	}

	segments := strings.Split(trimmed, "/")
	if segments[0] == "api" && len(segments) > 1 {
		return segments[1]
	}
	return segments[0]
}

// cacheKey builds the cache key for a read request.
func cacheKey(method, path string) string {
	return method + " " + path
}
