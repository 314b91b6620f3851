// Package wsconn owns an upgraded WebSocket stream: the server-side
// handshake, a read loop dispatching to application callbacks, and a
// serialized send queue so concurrent writers never interleave frames.
// Grounded on caddyserver/caddy's caddyhttp/websocket (ping/pong
// keepalive constants and ReadLimit/deadline wiring) built on
// github.com/gorilla/websocket, adapted from caddy's net/http-handler
// shape (Upgrader.Upgrade(w, r, ...)) to a raw net.Conn shape since the
// session state machine parses HTTP/1.1 itself rather than delegating
// to net/http.
package wsconn

import (
	"bufio"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/kestrel-http/kestrel/header"
	"github.com/kestrel-http/kestrel/kerr"
)

const websocketGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

const (
	readBufferSize  = 4096
	writeBufferSize = 4096
)

// AcceptKey computes the Sec-WebSocket-Accept value for a client's
// Sec-WebSocket-Key, per RFC 6455 §4.2.2.
func AcceptKey(clientKey string) string {
	h := sha1.New()
	h.Write([]byte(clientKey))
	h.Write([]byte(websocketGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// ValidateHandshake checks that the request headers name a well-formed
// WebSocket upgrade per RFC 6455, returning the client's
// Sec-WebSocket-Key on success.
func ValidateHandshake(h *header.Header) (string, error) {
	if !headerTokenContains(h.Get("Connection"), "upgrade") {
		return "", kerr.New(kerr.ParseError, "wsconn/upgrade", fmt.Errorf("missing Connection: Upgrade"))
	}
	if !strings.EqualFold(h.Get("Upgrade"), "websocket") {
		return "", kerr.New(kerr.ParseError, "wsconn/upgrade", fmt.Errorf("missing Upgrade: websocket"))
	}
	if h.Get("Sec-WebSocket-Version") != "13" {
		return "", kerr.New(kerr.ParseError, "wsconn/upgrade", fmt.Errorf("unsupported Sec-WebSocket-Version"))
	}
	key := h.Get("Sec-WebSocket-Key")
	if key == "" {
		return "", kerr.New(kerr.ParseError, "wsconn/upgrade", fmt.Errorf("missing Sec-WebSocket-Key"))
	}
	return key, nil
}

func headerTokenContains(v, token string) bool {
	for _, part := range strings.Split(v, ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}

// WriteAcceptResponse writes the 101 Switching Protocols response line
// and headers directly to the connection, ahead of handing the raw
// net.Conn to gorilla/websocket.
func WriteAcceptResponse(conn net.Conn, clientKey string, extraHeaders *header.Header) error {
	w := bufio.NewWriter(conn)
	fmt.Fprint(w, "HTTP/1.1 101 Switching Protocols\r\n")
	fmt.Fprint(w, "Upgrade: websocket\r\n")
	fmt.Fprint(w, "Connection: Upgrade\r\n")
	fmt.Fprintf(w, "Sec-WebSocket-Accept: %s\r\n", AcceptKey(clientKey))
	if extraHeaders != nil {
		for _, k := range extraHeaders.Keys() {
			for _, v := range extraHeaders.Values(k) {
				fmt.Fprintf(w, "%s: %s\r\n", k, v)
			}
		}
	}
	fmt.Fprint(w, "\r\n")
	return w.Flush()
}

// Upgrade completes a validated handshake on conn, writing the 101
// response and wrapping conn as a gorilla/websocket server connection.
// Any bytes already read past the request headers (there should be
// none for a well-behaved client, but a pipelined byte is possible)
// must still be readable from conn, e.g. by passing a conn that reads
// through the buffered reader that parsed the headers.
func Upgrade(conn net.Conn, clientKey string, extraHeaders *header.Header, onOpen, onMessage, onClose Handler) (*Conn, error) {
	if err := WriteAcceptResponse(conn, clientKey, extraHeaders); err != nil {
		return nil, kerr.New(kerr.TLSHandshakeFailed, "wsconn/upgrade", err)
	}
	raw := websocket.NewConn(conn, true, readBufferSize, writeBufferSize)
	c := newConn(raw, onMessage, onClose)
	c.start()
	if onOpen != nil {
		onOpen(c, nil, false)
	}
	return c, nil
}
