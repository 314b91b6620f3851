package body

import (
	"bytes"
	"encoding/json"

	"github.com/kestrel-http/kestrel/header"
	"github.com/kestrel-http/kestrel/kerr"
)

// JSONReader buffers the whole body, then unmarshals it into a generic
// any at Finish.
type JSONReader struct {
	maxBytes    int64
	buf         bytes.Buffer
	hasLength   bool
	declaredLen int64
}

func NewJSONReader(maxBytes int64) *JSONReader {
	return &JSONReader{maxBytes: maxBytes}
}

func (r *JSONReader) Init(h *header.Header, contentLength int64, hasContentLength bool) error {
	r.hasLength = hasContentLength
	r.declaredLen = contentLength
	if hasContentLength && r.maxBytes > 0 && contentLength > r.maxBytes {
		return kerr.New(kerr.BufferOverflow, "body/json.init", nil)
	}
	return nil
}

func (r *JSONReader) Put(buf []byte) (int, error) {
	if r.maxBytes > 0 && int64(r.buf.Len()+len(buf)) > r.maxBytes {
		return 0, kerr.New(kerr.BufferOverflow, "body/json.put", nil)
	}
	r.buf.Write(buf)
	return len(buf), nil
}

func (r *JSONReader) Finish() (*Body, error) {
	if r.hasLength && int64(r.buf.Len()) != r.declaredLen {
		return nil, kerr.New(kerr.ParseError, "body/json.finish", errShortBody)
	}
	if r.buf.Len() == 0 {
		return NewJSON(nil), nil
	}
	var v any
	if err := json.Unmarshal(r.buf.Bytes(), &v); err != nil {
		return nil, kerr.New(kerr.ParseError, "body/json.finish", err)
	}
	return NewJSON(v), nil
}
