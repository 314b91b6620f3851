package body

import (
	"testing"

	"github.com/kestrel-http/kestrel/kerr"
)

func feedAll(t *testing.T, r Reader, chunks ...string) (*Body, error) {
	t.Helper()
	var pending []byte
	for _, c := range chunks {
		pending = append(pending, []byte(c)...)
		n, err := r.Put(pending)
		if err != nil && !kerr.Is(err, kerr.NeedMoreData) {
			return nil, err
		}
		pending = pending[n:]
	}
	if len(pending) != 0 {
		t.Fatalf("reader left %d unconsumed bytes: %q", len(pending), pending)
	}
	return r.Finish()
}

func TestFormDataReaderSingleField(t *testing.T) {
	const boundary = "B"
	raw := "--B\r\n" +
		"Content-Disposition: form-data; name=\"field\"\r\n" +
		"\r\n" +
		"value\r\n" +
		"--B--"
	r := NewFormDataReader(boundary)
	if err := r.Init(nil, 0, false); err != nil {
		t.Fatal(err)
	}
	body, err := feedAll(t, r, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(body.Fields) != 1 || body.Fields[0].Name != "field" || string(body.Fields[0].Content) != "value" {
		t.Fatalf("want one field{field: value}, got %+v", body.Fields)
	}
}

func TestFormDataReaderFileField(t *testing.T) {
	const boundary = "B"
	raw := "--B\r\n" +
		"Content-Disposition: form-data; name=\"upload\"; filename=\"a.txt\"\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"contents\r\n" +
		"--B--"
	r := NewFormDataReader(boundary)
	r.Init(nil, 0, false)
	body, err := feedAll(t, r, raw)
	if err != nil {
		t.Fatal(err)
	}
	f := body.Fields[0]
	if !f.IsFile() || f.Filename != "a.txt" || f.ContentType != "text/plain" {
		t.Fatalf("want a recognized file field, got %+v", f)
	}
}

func TestFormDataReaderMultipleFields(t *testing.T) {
	const boundary = "B"
	raw := "--B\r\n" +
		"Content-Disposition: form-data; name=\"a\"\r\n\r\n" +
		"1\r\n" +
		"--B\r\n" +
		"Content-Disposition: form-data; name=\"b\"\r\n\r\n" +
		"2\r\n" +
		"--B--"
	r := NewFormDataReader(boundary)
	r.Init(nil, 0, false)
	body, err := feedAll(t, r, raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(body.Fields) != 2 || body.Fields[0].Name != "a" || body.Fields[1].Name != "b" {
		t.Fatalf("want two ordered fields, got %+v", body.Fields)
	}
}

func TestFormDataReaderBareCRIsLiteral(t *testing.T) {
	// A lone '\r' inside content that isn't followed by the boundary
	// token must survive in the field content, not be misread as the
	// start of the "\r\n--boundary" terminator.
	const boundary = "B"
	raw := "--B\r\n" +
		"Content-Disposition: form-data; name=\"a\"\r\n\r\n" +
		"line1\rline2\r\n" +
		"--B--"
	r := NewFormDataReader(boundary)
	r.Init(nil, 0, false)
	body, err := feedAll(t, r, raw)
	if err != nil {
		t.Fatal(err)
	}
	if string(body.Fields[0].Content) != "line1\rline2" {
		t.Fatalf("want the bare CR preserved, got %q", body.Fields[0].Content)
	}
}

func TestFormDataReaderIncrementalFeed(t *testing.T) {
	const boundary = "B"
	full := "--B\r\nContent-Disposition: form-data; name=\"a\"\r\n\r\nhello\r\n--B--"
	r := NewFormDataReader(boundary)
	r.Init(nil, 0, false)
	// Feed one byte at a time to exercise every NeedMoreData boundary.
	var chunks []string
	for _, b := range []byte(full) {
		chunks = append(chunks, string(b))
	}
	body, err := feedAll(t, r, chunks...)
	if err != nil {
		t.Fatal(err)
	}
	if len(body.Fields) != 1 || string(body.Fields[0].Content) != "hello" {
		t.Fatalf("want field a=hello, got %+v", body.Fields)
	}
}

func TestFormDataReaderMissingBoundaryIsBadField(t *testing.T) {
	r := NewFormDataReader("")
	if err := r.Init(nil, 0, false); !kerr.Is(err, kerr.BadField) {
		t.Fatalf("want BadField, got %v", err)
	}
}

func TestFormDataReaderMalformedDispositionAborts(t *testing.T) {
	const boundary = "B"
	raw := "--B\r\nContent-Disposition: attachment\r\n\r\nx\r\n--B--"
	r := NewFormDataReader(boundary)
	r.Init(nil, 0, false)
	if _, err := feedAll(t, r, raw); err == nil {
		t.Fatal("want an error for a Content-Disposition that doesn't start with form-data;")
	}
}
