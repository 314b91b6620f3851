// Package header implements the case-insensitive, order-preserving
// header multimap used by kestrel's Request and Response types, and by
// the body codecs when they need to inspect or set framing headers.
package header

import "strings"

// Header is a case-insensitive multimap that preserves insertion order
// for values sharing a key and for distinct keys: headers are a
// case-insensitive multimap preserving insertion order.
type Header struct {
	keys   []string // canonical (original-case of first insert) key order
	lookup map[string]string
	values map[string][]string
}

func New() *Header {
	return &Header{
		lookup: make(map[string]string),
		values: make(map[string][]string),
	}
}

func canon(key string) string { return strings.ToLower(key) }

// Set replaces all values for key.
func (h *Header) Set(key, value string) {
	ck := canon(key)
	if _, ok := h.lookup[ck]; !ok {
		h.keys = append(h.keys, key)
		h.lookup[ck] = key
	}
	h.values[ck] = []string{value}
}

// Add appends value to key, preserving any existing values.
func (h *Header) Add(key, value string) {
	ck := canon(key)
	if _, ok := h.lookup[ck]; !ok {
		h.keys = append(h.keys, key)
		h.lookup[ck] = key
	}
	h.values[ck] = append(h.values[ck], value)
}

// Get returns the first value for key, or "" if absent.
func (h *Header) Get(key string) string {
	vs := h.values[canon(key)]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// Values returns all values for key in insertion order.
func (h *Header) Values(key string) []string {
	return h.values[canon(key)]
}

// Has reports whether key has any value set.
func (h *Header) Has(key string) bool {
	_, ok := h.lookup[canon(key)]
	return ok
}

// Del removes all values for key.
func (h *Header) Del(key string) {
	ck := canon(key)
	if _, ok := h.lookup[ck]; !ok {
		return
	}
	delete(h.lookup, ck)
	delete(h.values, ck)
	for i, k := range h.keys {
		if canon(k) == ck {
			h.keys = append(h.keys[:i], h.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the canonical-case keys in first-insertion order.
func (h *Header) Keys() []string {
	out := make([]string, len(h.keys))
	copy(out, h.keys)
	return out
}

// Clone returns a deep copy.
func (h *Header) Clone() *Header {
	n := New()
	for _, k := range h.keys {
		for _, v := range h.values[canon(k)] {
			n.Add(k, v)
		}
	}
	return n
}
