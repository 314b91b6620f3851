// Response serialization: status line, headers, and either chunked or
// Content-Length-framed body bytes, per finalize()'s contract — HEAD
// responses carry headers but no body. Grounded on
// caddyserver/caddy's modules/caddyhttp/encode streaming-writer idiom,
// adapted from decorating an http.ResponseWriter to driving body.Writer
// directly over a raw net.Conn.
package kestrel

import (
	"bufio"
	"fmt"
	"net/http"
	"time"

	"github.com/kestrel-http/kestrel/body"
	"github.com/kestrel-http/kestrel/kerr"
)

// writeResponse finalizes resp against the request's Accept-Encoding
// and the server's supported codings, then writes the status line,
// headers, and body to the connection under the write deadline.
func (sess *Session) writeResponse(req *Request, resp *Response) error {
	acceptEncoding := ""
	if req.Header != nil {
		acceptEncoding = req.Header.Get("Accept-Encoding")
	}
	writer, chunked, err := resp.finalize(sess.srv.name, acceptEncoding, sess.srv.encodings)
	if err != nil {
		return kerr.New(kerr.ParseError, "session.write_response", err)
	}

	sess.conn.SetWriteDeadline(time.Now().Add(sess.srv.writeTimeoutOrDefault()))
	defer sess.conn.SetWriteDeadline(time.Time{})

	bw := bufio.NewWriter(sess.conn)
	reason := resp.Reason
	if reason == "" {
		reason = http.StatusText(resp.Status)
	}
	if _, err := fmt.Fprintf(bw, "%s %d %s\r\n", resp.Version, resp.Status, reason); err != nil {
		return kerr.New(kerr.Timeout, "session.write_response", err)
	}
	for _, name := range resp.Header.Keys() {
		for _, v := range resp.Header.Values(name) {
			if _, err := fmt.Fprintf(bw, "%s: %s\r\n", name, v); err != nil {
				return kerr.New(kerr.Timeout, "session.write_response", err)
			}
		}
	}
	if _, err := bw.WriteString("\r\n"); err != nil {
		return kerr.New(kerr.Timeout, "session.write_response", err)
	}

	suppressBody := req.Method == http.MethodHead || resp.Status == http.StatusNoContent || resp.Status == http.StatusNotModified
	if !suppressBody {
		if chunked {
			err = writeChunkedBody(bw, writer)
		} else {
			err = writeBufferedBody(bw, writer)
		}
		if err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return kerr.New(kerr.Timeout, "session.write_response", err)
	}
	return nil
}

// writeChunkedBody drains writer through the %x\r\n<data>\r\n framing,
// terminated by the zero-size chunk.
func writeChunkedBody(bw *bufio.Writer, writer body.Writer) error {
	for {
		chunk, more, err := writer.Get()
		if err != nil {
			return kerr.New(kerr.ParseError, "session.write_chunked_body", err)
		}
		if len(chunk) > 0 {
			if _, err := fmt.Fprintf(bw, "%x\r\n", len(chunk)); err != nil {
				return kerr.New(kerr.Timeout, "session.write_chunked_body", err)
			}
			if _, err := bw.Write(chunk); err != nil {
				return kerr.New(kerr.Timeout, "session.write_chunked_body", err)
			}
			if _, err := bw.WriteString("\r\n"); err != nil {
				return kerr.New(kerr.Timeout, "session.write_chunked_body", err)
			}
		}
		if !more {
			_, err := bw.WriteString("0\r\n\r\n")
			if err != nil {
				return kerr.New(kerr.Timeout, "session.write_chunked_body", err)
			}
			return nil
		}
	}
}

// writeBufferedBody drains writer straight onto the wire; the
// Content-Length header was already set from the writer's Sizer
// result by finalize, so every chunk Get() yields is written as-is.
func writeBufferedBody(bw *bufio.Writer, writer body.Writer) error {
	for {
		chunk, more, err := writer.Get()
		if err != nil {
			return kerr.New(kerr.ParseError, "session.write_buffered_body", err)
		}
		if len(chunk) > 0 {
			if _, err := bw.Write(chunk); err != nil {
				return kerr.New(kerr.Timeout, "session.write_buffered_body", err)
			}
		}
		if !more {
			return nil
		}
	}
}
