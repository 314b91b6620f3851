package kestrel

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/kestrel-http/kestrel/body"
	"github.com/kestrel-http/kestrel/header"
	"github.com/kestrel-http/kestrel/kerr"
)

// Request is the read-only (from a handler's perspective) view of one
// HTTP/1.1 message: method, raw and decoded target, decoded query
// parameters, headers, body, endpoints, path parameters populated by
// the router, and an opaque per-request datum.
type Request struct {
	Method   string
	Target   string // raw request-target as sent on the wire
	Path     string // percent-decoded path; never contains %XX escapes
	RawQuery string
	Query    *body.URLValues
	Version  string

	Header *header.Header
	Body   *body.Body

	LocalAddr  net.Addr
	RemoteAddr net.Addr

	PathParams map[string]string

	// CustomData is an opaque, caller-owned value whose lifetime equals
	// the request's; the router/session never inspect it.
	CustomData any

	// ID is a per-session correlation identifier attached to every log
	// line for this connection, defaulting to a generated UUID when the
	// caller doesn't supply a generator via the WithIDGenerator option.
	ID string
}

// PathParam returns the captured value for a named route segment, or
// "" if absent. "*" retrieves a wildcard tail.
func (r *Request) PathParam(name string) string {
	return r.PathParams[name]
}

// ClientIP returns the remote endpoint's host, stripping the port.
func (r *Request) ClientIP() string {
	host, _, err := net.SplitHostPort(r.RemoteAddr.String())
	if err != nil {
		return r.RemoteAddr.String()
	}
	return host
}

const defaultMaxRequestLineBytes = 8 * 1024

// readRequestLine reads and splits the request line
// "METHOD target HTTP/1.1\r\n" from br.
func readRequestLine(br *bufio.Reader) (method, target, version string, err error) {
	line, err := readCRLFLine(br, defaultMaxRequestLineBytes)
	if err != nil {
		return "", "", "", err
	}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return "", "", "", kerr.New(kerr.ParseError, "request.readRequestLine",
			fmt.Errorf("malformed request line %q", line))
	}
	method, target, version = parts[0], parts[1], parts[2]
	if !validMethodToken(method) {
		return "", "", "", kerr.New(kerr.ParseError, "request.readRequestLine",
			fmt.Errorf("invalid method token %q", method))
	}
	if version != "HTTP/1.1" && version != "HTTP/1.0" {
		return "", "", "", kerr.New(kerr.ParseError, "request.readRequestLine",
			fmt.Errorf("unsupported version %q", version))
	}
	return method, target, version, nil
}

func validMethodToken(m string) bool {
	if m == "" {
		return false
	}
	for _, r := range m {
		if !httpguts.IsTokenRune(r) {
			return false
		}
	}
	return true
}

// readHeaders reads header lines up to the blank-line terminator,
// enforcing maxHeaderBytes when it is greater than zero (zero means
// "unbounded by size, bounded by timeout" per the resource-bounds
// policy, where the caller's read deadline is the only cap).
func readHeaders(br *bufio.Reader, maxHeaderBytes int64) (*header.Header, error) {
	h := header.New()
	var total int64
	for {
		line, err := readCRLFLine(br, 0)
		if err != nil {
			return nil, err
		}
		total += int64(len(line)) + 2
		if maxHeaderBytes > 0 && total > maxHeaderBytes {
			return nil, kerr.New(kerr.BufferOverflow, "request.readHeaders",
				fmt.Errorf("header block exceeds %d bytes", maxHeaderBytes))
		}
		if line == "" {
			return h, nil
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, kerr.New(kerr.ParseError, "request.readHeaders",
				fmt.Errorf("malformed header line %q", line))
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(value) {
			return nil, kerr.New(kerr.ParseError, "request.readHeaders",
				fmt.Errorf("invalid header field %q", name))
		}
		h.Add(name, value)
	}
}

func readCRLFLine(br *bufio.Reader, maxLen int) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return "", kerr.New(kerr.ParseError, "request.readCRLFLine", err)
	}
	if maxLen > 0 && len(line) > maxLen {
		return "", kerr.New(kerr.BufferOverflow, "request.readCRLFLine",
			fmt.Errorf("line exceeds %d bytes", maxLen))
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

// isUpgradeRequest reports whether h names a WebSocket upgrade per
// RFC 6455, using httpguts's token-aware Connection header matching
// instead of an ad hoc substring check.
func isUpgradeRequest(h *header.Header) bool {
	return httpguts.HeaderValuesContainsToken(h.Values("Connection"), "Upgrade") &&
		strings.EqualFold(h.Get("Upgrade"), "websocket")
}

// wantsKeepAlive reports whether the connection should remain open
// after this response, per the request's declared version and any
// explicit Connection token.
func wantsKeepAlive(h *header.Header, version string) bool {
	if httpguts.HeaderValuesContainsToken(h.Values("Connection"), "close") {
		return false
	}
	if version == "HTTP/1.0" {
		return httpguts.HeaderValuesContainsToken(h.Values("Connection"), "keep-alive")
	}
	return true
}

// splitTarget separates the raw request-target into its decoded path
// and raw query string.
func splitTarget(target string) (decodedPath, rawQuery string, err error) {
	rawPath, rawQuery, _ := strings.Cut(target, "?")
	decodedPath, err = body.DecodePath(rawPath)
	if err != nil {
		return "", "", kerr.New(kerr.ParseError, "request.splitTarget", err)
	}
	return decodedPath, rawQuery, nil
}

// contentLengthAndEncoding inspects Content-Length and
// Transfer-Encoding, rejecting the simultaneous presence RFC 7230
// forbids.
func contentLengthAndEncoding(h *header.Header) (length int64, hasLength bool, chunked bool, err error) {
	cl := h.Get("Content-Length")
	te := h.Get("Transfer-Encoding")
	chunked = strings.EqualFold(te, "chunked")
	if cl != "" && chunked {
		return 0, false, false, kerr.New(kerr.ParseError, "request.contentLengthAndEncoding",
			fmt.Errorf("both Content-Length and Transfer-Encoding: chunked present"))
	}
	if cl == "" {
		return 0, false, chunked, nil
	}
	n, err := strconv.ParseInt(cl, 10, 64)
	if err != nil || n < 0 {
		return 0, false, false, kerr.New(kerr.ParseError, "request.contentLengthAndEncoding",
			fmt.Errorf("invalid Content-Length %q", cl))
	}
	return n, true, false, nil
}
