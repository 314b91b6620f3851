// Package body implements the polymorphic body abstraction described in
// the design: a tagged union over six body kinds (empty, string, json,
// form_data, url_encoded, file), each with a streaming Writer
// implementation; string, json, form_data and url_encoded also have a
// Reader (empty and file have none), composed with an optional
// content-encoding codec. Grounded on caddyserver/caddy's modules/caddyhttp/encode
// (streaming response-writer decorator) and caddyhttp/staticfiles
// (file serving, ETag, range handling).
package body

import (
	"os"

	"github.com/kestrel-http/kestrel/header"
)

// Kind tags which concrete representation a Body carries.
type Kind int

const (
	Empty Kind = iota
	StringKind
	JSONKind
	FormDataKind
	URLEncodedKind
	FileKind
)

func (k Kind) String() string {
	switch k {
	case Empty:
		return "empty"
	case StringKind:
		return "string"
	case JSONKind:
		return "json"
	case FormDataKind:
		return "form_data"
	case URLEncodedKind:
		return "url_encoded"
	case FileKind:
		return "file"
	default:
		return "unknown"
	}
}

// Field is one part of a multipart/form-data body.
type Field struct {
	Name        string
	Filename    string // empty unless this field is a file part
	ContentType string
	Content     []byte
}

// IsFile reports whether this field carried a filename= parameter.
func (f Field) IsFile() bool { return f.Filename != "" }

// Range is an inclusive byte range [Start, End] within a file.
type Range struct {
	Start, End int64
}

// Len returns the number of bytes the range covers.
func (r Range) Len() int64 { return r.End - r.Start + 1 }

// FileData describes the file body kind: an open handle, its MIME
// type, and optionally one or more byte ranges plus the multipart
// boundary used when more than one range is requested.
type FileData struct {
	File     *os.File
	MimeType string
	Size     int64
	ModTime  int64 // unix seconds, used for the weak ETag
	Ranges   []Range
	Boundary string // only used when len(Ranges) > 1
}

// Body is the tagged-union payload carried by a Request or Response.
// Exactly one of the typed fields is meaningful, selected by Kind.
type Body struct {
	Kind Kind

	StringData []byte
	JSONData   any
	Boundary   string // multipart/form-data boundary (request or response)
	Fields     []Field
	URLValues  *URLValues
	File       *FileData
}

// NewEmpty returns an empty body.
func NewEmpty() *Body { return &Body{Kind: Empty} }

// NewString returns a string body wrapping data.
func NewString(data []byte) *Body { return &Body{Kind: StringKind, StringData: data} }

// NewJSON returns a json body wrapping v, to be marshaled by the writer.
func NewJSON(v any) *Body { return &Body{Kind: JSONKind, JSONData: v} }

// Writer produces the outbound byte stream for a body kind. init
// prepares response headers; get returns the next chunk, or more=false
// once the body is exhausted. get must not block, and may return a
// zero-length buffer only together with more=false (end signal with no
// trailing bytes) or more=true (explicitly empty intermediate chunk).
type Writer interface {
	Init(h *header.Header) error
	Get() (chunk []byte, more bool, err error)
}

// Reader ingests the inbound byte stream for a body kind. put returns
// how many bytes of buf it consumed; consuming fewer than len(buf)
// bytes signals "need more data" to the caller, which must re-invoke
// put with the unconsumed remainder plus whatever it reads next.
type Reader interface {
	Init(h *header.Header, contentLength int64, hasContentLength bool) error
	Put(buf []byte) (consumed int, err error)
	Finish() (*Body, error)
}

// Sizer is implemented by writers that know their total output length
// up front, letting the session set Content-Length instead of chunking.
type Sizer interface {
	Size() (int64, bool)
}
