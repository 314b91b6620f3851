package body

import (
	"bytes"

	"github.com/kestrel-http/kestrel/header"
	"github.com/kestrel-http/kestrel/kerr"
)

// URLEncodedReader buffers the whole body, then decodes it as
// application/x-www-form-urlencoded at Finish.
type URLEncodedReader struct {
	maxBytes    int64
	buf         bytes.Buffer
	hasLength   bool
	declaredLen int64
}

func NewURLEncodedReader(maxBytes int64) *URLEncodedReader {
	return &URLEncodedReader{maxBytes: maxBytes}
}

func (r *URLEncodedReader) Init(h *header.Header, contentLength int64, hasContentLength bool) error {
	r.hasLength = hasContentLength
	r.declaredLen = contentLength
	if hasContentLength && r.maxBytes > 0 && contentLength > r.maxBytes {
		return kerr.New(kerr.BufferOverflow, "body/urlencoded.init", nil)
	}
	return nil
}

func (r *URLEncodedReader) Put(buf []byte) (int, error) {
	if r.maxBytes > 0 && int64(r.buf.Len()+len(buf)) > r.maxBytes {
		return 0, kerr.New(kerr.BufferOverflow, "body/urlencoded.put", nil)
	}
	r.buf.Write(buf)
	return len(buf), nil
}

func (r *URLEncodedReader) Finish() (*Body, error) {
	if r.hasLength && int64(r.buf.Len()) != r.declaredLen {
		return nil, kerr.New(kerr.ParseError, "body/urlencoded.finish", errShortBody)
	}
	values, err := ParseQuery(r.buf.String())
	if err != nil {
		return nil, kerr.New(kerr.ParseError, "body/urlencoded.finish", err)
	}
	return &Body{Kind: URLEncodedKind, URLValues: values}, nil
}
