package logging

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// DefaultRedactKey is the attribute redacted when no keys are configured.
const DefaultRedactKey = "identifier"

// Redactor replaces the values of selected attribute keys with a hash.
type Redactor struct {
	keys map[string]struct{}
}

// NewRedactor creates a Redactor for keys, or for DefaultRedactKey when
// none are given.
func NewRedactor(keys ...string) *Redactor {
	if len(keys) == 0 {
		keys = []string{DefaultRedactKey}
	}
	r := &Redactor{keys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		r.keys[k] = struct{}{}
	}
	return r
}

// Applies reports whether key is redacted.
func (r *Redactor) Applies(key string) bool {
	_, ok := r.keys[key]
	return ok
}

// Redact returns the stable hashed form of value.
func (r *Redactor) Redact(value string) string {
	return "id:" + strconv.FormatUint(xxhash.Sum64String(value), 16)
}
