package binder

import (
	"net/http"
)

// Query returns a binder for URL query parameters.
//
// Struct tags:
//   - `query:"name"` binds parameter "name"
//   - `query:"-"` skips the field
//
// Supported field types are strings, ints, uints, floats, bools,
// time.Time (RFC 3339 or YYYY-MM-DD), time.Duration, uuid.UUID, pointers
// to those, and slices for repeated or comma-separated values.
func Query() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		return bindToStruct(v, "query", r.URL.Query(), ErrFailedToParseQuery)
	}
}
