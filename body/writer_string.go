package body

import (
	"strconv"

	"github.com/kestrel-http/kestrel/header"
)

// EmptyWriter writes no payload and reports Content-Length: 0.
type EmptyWriter struct{ sent bool }

func (w *EmptyWriter) Init(h *header.Header) error {
	if !h.Has("Content-Length") {
		h.Set("Content-Length", "0")
	}
	return nil
}

func (w *EmptyWriter) Get() ([]byte, bool, error) {
	return nil, false, nil
}

func (w *EmptyWriter) Size() (int64, bool) { return 0, true }

// StringWriter writes a pre-buffered byte slice in a single chunk.
type StringWriter struct {
	Data []byte
	sent bool
}

func NewStringWriter(data []byte) *StringWriter { return &StringWriter{Data: data} }

func (w *StringWriter) Init(h *header.Header) error {
	if !h.Has("Content-Type") {
		h.Set("Content-Type", "text/plain; charset=utf-8")
	}
	if !h.Has("Content-Length") {
		h.Set("Content-Length", strconv.Itoa(len(w.Data)))
	}
	return nil
}

func (w *StringWriter) Get() ([]byte, bool, error) {
	if w.sent {
		return nil, false, nil
	}
	w.sent = true
	return w.Data, false, nil
}

func (w *StringWriter) Size() (int64, bool) { return int64(len(w.Data)), true }
