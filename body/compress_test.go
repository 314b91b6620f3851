package body

import (
	"bytes"
	"testing"

	"github.com/kestrel-http/kestrel/header"
)

func drainWriter(t *testing.T, w Writer) []byte {
	t.Helper()
	var out []byte
	for {
		chunk, more, err := w.Get()
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		out = append(out, chunk...)
		if !more {
			return out
		}
	}
}

func TestCompressWriterRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 200)
	for _, enc := range []Encoding{Gzip, Deflate, Zstd} {
		t.Run(enc.Token(), func(t *testing.T) {
			inner := NewStringWriter(payload)
			cw := NewCompressWriter(inner, enc)
			h := header.New()
			if err := cw.Init(h); err != nil {
				t.Fatalf("Init error: %v", err)
			}
			if got := h.Get("Content-Encoding"); got != enc.Token() {
				t.Fatalf("Content-Encoding = %q, want %q", got, enc.Token())
			}
			compressed := drainWriter(t, cw)

			decoded, err := decodeAll(enc, compressed)
			if err != nil {
				t.Fatalf("decodeAll error: %v", err)
			}
			if !bytes.Equal(decoded, payload) {
				t.Fatalf("round trip mismatch for %s: got %d bytes, want %d", enc.Token(), len(decoded), len(payload))
			}
		})
	}
}

func TestCompressReaderRoundTrip(t *testing.T) {
	payload := []byte(`{"hello":"world"}`)
	for _, enc := range []Encoding{Gzip, Deflate, Zstd} {
		t.Run(enc.Token(), func(t *testing.T) {
			inner := NewStringWriter(payload)
			cw := NewCompressWriter(inner, enc)
			cw.Init(header.New())
			compressed := drainWriter(t, cw)

			reader := NewCompressReader(NewStringReader(0), enc)
			if err := reader.Init(header.New(), 0, false); err != nil {
				t.Fatal(err)
			}
			if _, err := reader.Put(compressed); err != nil {
				t.Fatalf("Put error: %v", err)
			}
			body, err := reader.Finish()
			if err != nil {
				t.Fatalf("Finish error: %v", err)
			}
			if !bytes.Equal(body.StringData, payload) {
				t.Fatalf("decoded mismatch: got %q, want %q", body.StringData, payload)
			}
		})
	}
}

func TestParseEncodingRejectsUnknownToken(t *testing.T) {
	if _, ok := ParseEncoding("brotli"); ok {
		t.Fatal("brotli is not in the supported set and should report ok=false")
	}
	if enc, ok := ParseEncoding("gzip"); !ok || enc != Gzip {
		t.Fatalf("want (Gzip, true), got (%v, %v)", enc, ok)
	}
}
