package body

import (
	"bytes"

	"github.com/kestrel-http/kestrel/header"
	"github.com/kestrel-http/kestrel/kerr"
)

// StringReader is the fallback reader used when Content-Type is absent
// or doesn't match a more specific kind.
type StringReader struct {
	maxBytes      int64
	hasLength     bool
	declaredLen   int64
	buf           bytes.Buffer
}

func NewStringReader(maxBytes int64) *StringReader {
	return &StringReader{maxBytes: maxBytes}
}

func (r *StringReader) Init(h *header.Header, contentLength int64, hasContentLength bool) error {
	r.hasLength = hasContentLength
	r.declaredLen = contentLength
	if hasContentLength && r.maxBytes > 0 && contentLength > r.maxBytes {
		return kerr.New(kerr.BufferOverflow, "body/string.init", nil)
	}
	return nil
}

func (r *StringReader) Put(buf []byte) (int, error) {
	if r.maxBytes > 0 && int64(r.buf.Len()+len(buf)) > r.maxBytes {
		return 0, kerr.New(kerr.BufferOverflow, "body/string.put", nil)
	}
	r.buf.Write(buf)
	return len(buf), nil
}

func (r *StringReader) Finish() (*Body, error) {
	if r.hasLength && int64(r.buf.Len()) != r.declaredLen {
		return nil, kerr.New(kerr.ParseError, "body/string.finish", errShortBody)
	}
	return NewString(append([]byte(nil), r.buf.Bytes()...)), nil
}

var errShortBody = formDataErr("body ended before declared Content-Length")
