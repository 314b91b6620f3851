package body

import (
	"strconv"

	"github.com/kestrel-http/kestrel/header"
)

// URLEncodedWriter serializes a URLValues multimap as
// application/x-www-form-urlencoded, written in a single chunk.
type URLEncodedWriter struct {
	Values  *URLValues
	encoded string
	sent    bool
}

func NewURLEncodedWriter(values *URLValues) *URLEncodedWriter {
	return &URLEncodedWriter{Values: values}
}

func (w *URLEncodedWriter) Init(h *header.Header) error {
	w.encoded = w.Values.Encode()
	if !h.Has("Content-Type") {
		h.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if !h.Has("Content-Length") {
		h.Set("Content-Length", strconv.Itoa(len(w.encoded)))
	}
	return nil
}

func (w *URLEncodedWriter) Get() ([]byte, bool, error) {
	if w.sent {
		return nil, false, nil
	}
	w.sent = true
	return []byte(w.encoded), false, nil
}

func (w *URLEncodedWriter) Size() (int64, bool) { return int64(len(w.encoded)), true }
