// Body-reading glue: adapts Content-Length-delimited and chunked wire
// framing into the uniform "keep feeding Reader.Put until the framing
// is exhausted" loop, since body.Reader's Put/NeedMoreData contract is
// framing-agnostic by design.
package kestrel

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kestrel-http/kestrel/body"
	"github.com/kestrel-http/kestrel/header"
	"github.com/kestrel-http/kestrel/kerr"
)

// bodySource yields successive raw wire chunks for one request body,
// reporting io.EOF once the declared framing (Content-Length or the
// terminating chunk) is exhausted.
type bodySource interface {
	next() ([]byte, error)
}

const bodyReadChunkSize = 32 * 1024

type fixedLengthSource struct {
	br        *bufio.Reader
	remaining int64
}

func (s *fixedLengthSource) next() ([]byte, error) {
	if s.remaining <= 0 {
		return nil, io.EOF
	}
	want := int64(bodyReadChunkSize)
	if s.remaining < want {
		want = s.remaining
	}
	buf := make([]byte, want)
	n, err := io.ReadFull(s.br, buf)
	s.remaining -= int64(n)
	if n > 0 {
		return buf[:n], nil
	}
	if err != nil {
		return nil, kerr.New(kerr.ParseError, "session/body.fixed_length", err)
	}
	return nil, io.EOF
}

type chunkedSource struct {
	br             *bufio.Reader
	chunkRemaining int64
	done           bool
}

func (s *chunkedSource) next() ([]byte, error) {
	if s.done {
		return nil, io.EOF
	}
	if s.chunkRemaining == 0 {
		line, err := readCRLFLine(s.br, 0)
		if err != nil {
			return nil, err
		}
		sizeTok, _, _ := strings.Cut(line, ";") // ignore chunk extensions
		n, err := strconv.ParseInt(strings.TrimSpace(sizeTok), 16, 64)
		if err != nil || n < 0 {
			return nil, kerr.New(kerr.ParseError, "session/body.chunked",
				fmt.Errorf("invalid chunk size %q", line))
		}
		if n == 0 {
			for {
				trailer, err := readCRLFLine(s.br, 0)
				if err != nil {
					return nil, err
				}
				if trailer == "" {
					break
				}
			}
			s.done = true
			return nil, io.EOF
		}
		s.chunkRemaining = n
	}
	want := int64(bodyReadChunkSize)
	if s.chunkRemaining < want {
		want = s.chunkRemaining
	}
	buf := make([]byte, want)
	n, err := io.ReadFull(s.br, buf)
	s.chunkRemaining -= int64(n)
	if err != nil {
		return nil, kerr.New(kerr.ParseError, "session/body.chunked", err)
	}
	if s.chunkRemaining == 0 {
		if _, err := readCRLFLine(s.br, 2); err != nil {
			return nil, kerr.New(kerr.ParseError, "session/body.chunked", err)
		}
	}
	return buf[:n], nil
}

var errIncompleteBody = errors.New("body ended before the reader finished consuming it")

// feedReader drains src into rdr, retaining Put's unconsumed
// remainder across calls per the NeedMoreData contract, and reports a
// parse error if the framing is exhausted while rdr still wants more.
func feedReader(rdr body.Reader, src bodySource) error {
	var pending []byte
	for {
		chunk, srcErr := src.next()
		if srcErr != nil && srcErr != io.EOF {
			return srcErr
		}
		if len(chunk) > 0 {
			pending = append(pending, chunk...)
		}
		if len(pending) > 0 {
			n, err := rdr.Put(pending)
			if err != nil && !kerr.Is(err, kerr.NeedMoreData) {
				return err
			}
			pending = pending[n:]
		}
		if srcErr == io.EOF {
			if len(pending) > 0 {
				return kerr.New(kerr.ParseError, "session/body.feed", errIncompleteBody)
			}
			return nil
		}
	}
}

// readBody selects a Reader by Content-Type, wraps it in a
// CompressReader if the request carries a supported Content-Encoding,
// feeds it from the appropriate wire-framing source, and finalizes it
// into a *body.Body.
func (sess *Session) readBody(hdr *header.Header, length int64, hasLength, chunked bool) (*body.Body, error) {
	maxBytes := sess.srv.maxBodyBytes
	reader := body.NewReader(hdr.Get("Content-Type"), maxBytes)

	if enc, ok := body.ParseEncoding(strings.ToLower(strings.TrimSpace(hdr.Get("Content-Encoding")))); ok && enc != body.Identity {
		reader = body.NewCompressReader(reader, enc)
	}

	if err := reader.Init(hdr, length, hasLength); err != nil {
		return nil, err
	}

	var src bodySource
	switch {
	case chunked:
		src = &chunkedSource{br: sess.br}
	case hasLength && length > 0:
		src = &fixedLengthSource{br: sess.br, remaining: length}
	default:
		src = emptySource{}
	}

	if err := feedReader(reader, src); err != nil {
		return nil, err
	}
	return reader.Finish()
}

type emptySource struct{}

func (emptySource) next() ([]byte, error) { return nil, io.EOF }
