package body

import (
	"encoding/json"
	"strconv"

	"github.com/kestrel-http/kestrel/header"
	"github.com/kestrel-http/kestrel/kerr"
)

// JSONWriter marshals a value and writes it in a single chunk, setting
// the Content-Type and Cache-Control headers.
type JSONWriter struct {
	Value   any
	encoded []byte
	sent    bool
}

func NewJSONWriter(v any) *JSONWriter { return &JSONWriter{Value: v} }

func (w *JSONWriter) Init(h *header.Header) error {
	b, err := json.Marshal(w.Value)
	if err != nil {
		return kerr.New(kerr.ParseError, "body/json.init", err)
	}
	w.encoded = b
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	if !h.Has("Content-Length") {
		h.Set("Content-Length", strconv.Itoa(len(b)))
	}
	return nil
}

func (w *JSONWriter) Get() ([]byte, bool, error) {
	if w.sent {
		return nil, false, nil
	}
	w.sent = true
	return w.encoded, false, nil
}

func (w *JSONWriter) Size() (int64, bool) { return int64(len(w.encoded)), w.encoded != nil }
