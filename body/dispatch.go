package body

import "strings"

// NewReader selects a body Reader by inspecting the request's
// Content-Type.
func NewReader(contentType string, maxBytes int64) Reader {
	mediaType, params := parseContentType(contentType)
	switch {
	case mediaType == "multipart/form-data":
		return NewFormDataReader(params["boundary"])
	case mediaType == "application/json":
		return NewJSONReader(maxBytes)
	case mediaType == "application/x-www-form-urlencoded":
		return NewURLEncodedReader(maxBytes)
	default:
		return NewStringReader(maxBytes)
	}
}

// parseContentType splits "type/subtype; param=value; ..." into the
// lowercased media type and a lowercased-key parameter map. It's a
// minimal, dependency-free stand-in for mime.ParseMediaType tailored to
// the handful of parameters kestrel actually reads (boundary, charset).
func parseContentType(contentType string) (string, map[string]string) {
	parts := strings.Split(contentType, ";")
	mediaType := strings.ToLower(strings.TrimSpace(parts[0]))
	params := make(map[string]string)
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		key, val, ok := strings.Cut(p, "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.Trim(strings.TrimSpace(val), `"`)
		params[key] = val
	}
	return mediaType, params
}
