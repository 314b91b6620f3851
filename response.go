package kestrel

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kestrel-http/kestrel/body"
	"github.com/kestrel-http/kestrel/header"
	"github.com/kestrel-http/kestrel/internal/httpdate"
	"github.com/kestrel-http/kestrel/kerr"
)

// StreamProducer supplies chunks for set_stream_content, matching
// body.Writer's Get() shape so it can be adapted into one directly.
type StreamProducer func() (chunk []byte, more bool, err error)

// Response is the mutable-from-handler view of the outgoing message:
// status, headers, and one of a buffered body or a streaming producer.
type Response struct {
	Status    int
	Reason    string
	Version   string
	Header    *header.Header
	KeepAlive bool

	writer    body.Writer
	streaming bool
}

func NewResponse() *Response {
	return &Response{
		Status:    http.StatusOK,
		Version:   "HTTP/1.1",
		Header:    header.New(),
		KeepAlive: true,
	}
}

func (r *Response) setStatus(status int) {
	r.Status = status
	r.Reason = http.StatusText(status)
}

// Writer returns the body.Writer selected by the most recent
// set_*_content call, or nil if none has been called yet.
func (r *Response) Writer() body.Writer { return r.writer }

// Streaming reports whether set_stream_content attached a producer,
// which forces chunked framing regardless of Sizer support.
func (r *Response) Streaming() bool { return r.streaming }

// SetEmptyContent clears the body and sets Content-Length: 0.
func (r *Response) SetEmptyContent(status int) {
	r.setStatus(status)
	r.streaming = false
	r.writer = &body.EmptyWriter{}
}

// SetStringContent attaches a buffered byte body.
func (r *Response) SetStringContent(data []byte, contentType string, status int) {
	r.setStatus(status)
	r.streaming = false
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	r.writer = body.NewStringWriter(data)
}

// SetJSONContent marshals value as the response body.
func (r *Response) SetJSONContent(value any, status int) {
	r.setStatus(status)
	r.streaming = false
	r.writer = body.NewJSONWriter(value)
}

// SetFormDataContent generates a fresh multipart boundary and attaches
// fields as a multipart/form-data body.
func (r *Response) SetFormDataContent(fields []body.Field, status int) {
	r.setStatus(status)
	r.streaming = false
	r.writer = body.NewFormDataWriter(body.NewBoundary(), fields)
}

// SetRedirect sets Location and an empty body.
func (r *Response) SetRedirect(url string, status int) {
	r.Header.Set("Location", url)
	r.SetEmptyContent(status)
}

// SetStreamContent attaches an async chunk producer; framing becomes
// chunked regardless of whether the producer happens to know its total
// length, matching the "producer variant is mutually exclusive with
// content_length" invariant.
func (r *Response) SetStreamContent(producer StreamProducer, contentType string, status int) {
	r.setStatus(status)
	r.streaming = true
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	r.writer = &streamWriter{producer: producer}
}

type streamWriter struct{ producer StreamProducer }

func (w *streamWriter) Init(h *header.Header) error { return nil }
func (w *streamWriter) Get() ([]byte, bool, error)  { return w.producer() }

// SetFileContent computes an entity tag and Last-Modified date for the
// file at path, honors If-None-Match/If-Modified-Since from
// reqHeaders, parses any Range header, and sets up the whole-file,
// single-range, or multipart/byteranges framing.
// Grounded on caddyhttp/staticfiles/fileserver.go's calculateEtag and
// conditional-request handling, adapted to this package's explicit
// Reader/Writer contract instead of delegating to http.ServeContent.
func (r *Response) SetFileContent(path string, reqHeaders *header.Header) error {
	f, err := os.Open(path)
	if err != nil {
		return kerr.New(kerr.ShortRead, "response.set_file_content", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return kerr.New(kerr.ShortRead, "response.set_file_content", err)
	}
	if info.IsDir() {
		f.Close()
		return kerr.New(kerr.ParseError, "response.set_file_content", fmt.Errorf("%s is a directory", path))
	}

	etag := fileETag(info.Size(), info.ModTime())
	lastMod := httpdate.Format(info.ModTime())

	if conditionalMatch(reqHeaders, etag, info.ModTime()) {
		f.Close()
		r.setStatus(http.StatusNotModified)
		r.streaming = false
		r.Header.Set("ETag", etag)
		r.Header.Set("Last-Modified", lastMod)
		r.writer = &body.EmptyWriter{}
		return nil
	}

	ranges, err := body.ParseRange(reqHeaders.Get("Range"), info.Size())
	if err != nil {
		f.Close()
		r.setStatus(http.StatusRequestedRangeNotSatisfiable)
		r.streaming = false
		r.Header.Set("Content-Range", fmt.Sprintf("bytes */%d", info.Size()))
		r.writer = &body.EmptyWriter{}
		return nil
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	r.Header.Set("ETag", etag)
	r.Header.Set("Last-Modified", lastMod)
	r.streaming = false
	r.writer = body.NewFileWriter(&body.FileData{
		File:     f,
		MimeType: mimeType,
		Size:     info.Size(),
		ModTime:  info.ModTime().Unix(),
		Ranges:   ranges,
	})

	switch len(ranges) {
	case 0:
		r.setStatus(http.StatusOK)
	default:
		r.setStatus(http.StatusPartialContent)
	}
	return nil
}

func fileETag(size int64, modTime time.Time) string {
	return fmt.Sprintf("W/%d-%d", size, modTime.Unix())
}

// conditionalMatch reports whether the request's If-None-Match or
// If-Modified-Since indicates the cached copy is still fresh.
func conditionalMatch(h *header.Header, etag string, modTime time.Time) bool {
	if inm := h.Get("If-None-Match"); inm != "" {
		for _, tag := range strings.Split(inm, ",") {
			if strings.TrimSpace(tag) == etag || strings.TrimSpace(tag) == "*" {
				return true
			}
		}
		return false
	}
	if ims := h.Get("If-Modified-Since"); ims != "" {
		t, err := httpdate.Parse(ims)
		if err == nil && !modTime.Truncate(time.Second).After(t) {
			return true
		}
	}
	return false
}

// prepareKeepAlive resolves the Connection header to set on a finished
// response from the response's own KeepAlive flag.
func prepareKeepAlive(keepAlive bool) string {
	if keepAlive {
		return "keep-alive"
	}
	return "close"
}

// finalize applies the server-wide response defaults: Server/Date/
// Connection if absent, Content-Length via the writer's Sizer unless
// chunked, and Content-Encoding negotiation unless the handler already
// attached a streaming producer.
func (r *Response) finalize(serverName string, acceptEncoding string, supported []body.Encoding) (bodyWriter body.Writer, chunked bool, err error) {
	if !r.Header.Has("Server") && serverName != "" {
		r.Header.Set("Server", serverName)
	}
	if !r.Header.Has("Date") {
		r.Header.Set("Date", httpdate.Now())
	}
	if !r.Header.Has("Connection") {
		r.Header.Set("Connection", prepareKeepAlive(r.KeepAlive))
	}

	w := r.writer
	if w == nil {
		w = &body.EmptyWriter{}
	}

	enc := selectEncoding(acceptEncoding, supported)
	chunked = r.streaming
	if enc != body.Identity && !r.streaming {
		w = body.NewCompressWriter(w, enc)
		chunked = true
	}

	if err := w.Init(r.Header); err != nil {
		return nil, false, err
	}

	if r.Status == http.StatusNoContent || r.Status == http.StatusNotModified {
		r.Header.Del("Content-Length")
		return w, false, nil
	}

	if chunked {
		r.Header.Set("Transfer-Encoding", "chunked")
		r.Header.Del("Content-Length")
		return w, true, nil
	}

	if sz, ok := w.(body.Sizer); ok {
		if n, known := sz.Size(); known {
			r.Header.Set("Content-Length", strconv.FormatInt(n, 10))
			return w, false, nil
		}
	}
	// writer doesn't know its length up front; fall back to chunked
	r.Header.Set("Transfer-Encoding", "chunked")
	r.Header.Del("Content-Length")
	return w, true, nil
}

// selectEncoding picks the first server-supported token present in the
// client's Accept-Encoding list.
func selectEncoding(acceptEncoding string, supported []body.Encoding) body.Encoding {
	if acceptEncoding == "" {
		return body.Identity
	}
	tokens := make(map[string]bool)
	for _, part := range strings.Split(acceptEncoding, ",") {
		tok, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		tokens[strings.ToLower(tok)] = true
	}
	for _, enc := range supported {
		if tokens[enc.Token()] {
			return enc
		}
	}
	return body.Identity
}

// renderErrorPage builds the minimal HTML error body the core emits
// for 4xx/5xx responses it generates itself: status, reason phrase,
// and the Server value.
func renderErrorPage(status int, reason, serverName string) []byte {
	return []byte(fmt.Sprintf(
		"<!DOCTYPE html><html><head><title>%d %s</title></head>"+
			"<body><h1>%d %s</h1><hr><address>%s</address></body></html>",
		status, reason, status, reason, serverName))
}
