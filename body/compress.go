package body

import (
	"bytes"
	"compress/flate"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/kestrel-http/kestrel/header"
	"github.com/kestrel-http/kestrel/kerr"
)

// Encoding names one of the content-coding tokens this package can
// apply or remove, per the supported encoding set.
type Encoding int

const (
	Identity Encoding = iota
	Gzip
	Deflate
	Zstd
)

func (e Encoding) Token() string {
	switch e {
	case Gzip:
		return "gzip"
	case Deflate:
		return "deflate"
	case Zstd:
		return "zstd"
	default:
		return "identity"
	}
}

// ParseEncoding maps a content-coding token to an Encoding, returning
// ok=false for anything this package doesn't implement.
func ParseEncoding(token string) (Encoding, bool) {
	switch token {
	case "gzip":
		return Gzip, true
	case "deflate":
		return Deflate, true
	case "zstd":
		return Zstd, true
	case "identity", "":
		return Identity, true
	default:
		return Identity, false
	}
}

type compressStream interface {
	io.Writer
	Flush() error
	Close() error
}

func newCompressStream(enc Encoding, dst io.Writer) (compressStream, error) {
	switch enc {
	case Gzip:
		return gzip.NewWriterLevel(dst, gzip.DefaultCompression)
	case Deflate:
		return flate.NewWriter(dst, flate.DefaultCompression)
	case Zstd:
		return zstd.NewWriter(dst)
	default:
		return nil, nil
	}
}

// CompressWriter decorates an inner Writer, compressing each chunk it
// produces with a streaming compressor and flushing after every pulled
// chunk so Get() keeps its "don't block waiting on more input" shape.
// Grounded on caddyserver/caddy's modules/caddyhttp/encode writer
// decorator, adapted from a push (io.Writer) shape to this package's
// pull (Get) shape.
type CompressWriter struct {
	Inner Writer
	Enc   Encoding

	buf    bytes.Buffer
	stream compressStream
	closed bool
	done   bool
}

func NewCompressWriter(inner Writer, enc Encoding) *CompressWriter {
	return &CompressWriter{Inner: inner, Enc: enc}
}

func (w *CompressWriter) Init(h *header.Header) error {
	if err := w.Inner.Init(h); err != nil {
		return err
	}
	if w.Enc == Identity {
		return nil
	}
	stream, err := newCompressStream(w.Enc, &w.buf)
	if err != nil {
		return kerr.New(kerr.ParseError, "body/compress.init", err)
	}
	w.stream = stream
	h.Set("Content-Encoding", w.Enc.Token())
	h.Del("Content-Length") // compressed length isn't known up front
	return nil
}

func (w *CompressWriter) Get() ([]byte, bool, error) {
	if w.Enc == Identity {
		return w.Inner.Get()
	}
	if w.done {
		return nil, false, nil
	}
	for w.buf.Len() == 0 && !w.closed {
		chunk, more, err := w.Inner.Get()
		if err != nil {
			return nil, false, err
		}
		if len(chunk) > 0 {
			if _, err := w.stream.Write(chunk); err != nil {
				return nil, false, kerr.New(kerr.ParseError, "body/compress.get", err)
			}
		}
		if !more {
			if err := w.stream.Close(); err != nil {
				return nil, false, kerr.New(kerr.ParseError, "body/compress.get", err)
			}
			w.closed = true
			break
		}
		if err := w.stream.Flush(); err != nil {
			return nil, false, kerr.New(kerr.ParseError, "body/compress.get", err)
		}
	}
	out := append([]byte(nil), w.buf.Bytes()...)
	w.buf.Reset()
	if w.closed {
		w.done = true
		return out, false, nil
	}
	return out, true, nil
}

func (w *CompressWriter) Size() (int64, bool) { return 0, false }

// CompressReader decorates an inner Reader, buffering the raw
// compressed stream and decompressing it in full once Finish is
// called, then replaying the decoded bytes through the inner reader's
// Put/Finish contract. Unlike CompressWriter this does not decompress
// incrementally. Put buffers the compressed bytes without any size
// cap; a body size cap applies only to the decoded bytes, when the
// inner reader ingests them at Finish.
type CompressReader struct {
	Inner Reader
	Enc   Encoding

	raw bytes.Buffer
}

func NewCompressReader(inner Reader, enc Encoding) *CompressReader {
	return &CompressReader{Inner: inner, Enc: enc}
}

func (r *CompressReader) Init(h *header.Header, contentLength int64, hasContentLength bool) error {
	// the inner reader validates against the decoded length, which is
	// unknown for a compressed body, so it doesn't receive hasContentLength
	return r.Inner.Init(h, 0, false)
}

func (r *CompressReader) Put(buf []byte) (int, error) {
	r.raw.Write(buf)
	return len(buf), nil
}

func (r *CompressReader) Finish() (*Body, error) {
	if r.Enc == Identity {
		return r.drain(r.raw.Bytes())
	}
	decoded, err := decodeAll(r.Enc, r.raw.Bytes())
	if err != nil {
		return nil, kerr.New(kerr.ParseError, "body/compress.finish", err)
	}
	return r.drain(decoded)
}

func (r *CompressReader) drain(decoded []byte) (*Body, error) {
	for len(decoded) > 0 {
		n, err := r.Inner.Put(decoded)
		if err != nil && kerr.Is(err, kerr.NeedMoreData) {
			return nil, kerr.New(kerr.ParseError, "body/compress.finish", err)
		}
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
		decoded = decoded[n:]
	}
	return r.Inner.Finish()
}

func decodeAll(enc Encoding, raw []byte) ([]byte, error) {
	var src io.Reader = bytes.NewReader(raw)
	switch enc {
	case Gzip:
		zr, err := gzip.NewReader(src)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case Deflate:
		fr := flate.NewReader(src)
		defer fr.Close()
		return io.ReadAll(fr)
	case Zstd:
		zr, err := zstd.NewReader(src)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	default:
		return raw, nil
	}
}
