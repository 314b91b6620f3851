// Package kestrel implements an embeddable HTTP/1.1 server: the
// per-connection session state machine (this file and its
// session_*.go siblings), the Request/Response data model, and the
// top-level Server/Router wiring. Grounded on caddyserver/caddy's
// per-request handling shape (modules/caddyhttp/server.go) generalized
// from net/http's ResponseWriter/Request to kestrel's own wire-level
// parser, since owning framing, timeouts, and protocol negotiation
// (TLS detection, WebSocket upgrade, CONNECT) requires working below
// net/http's abstraction.
package kestrel

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kestrel-http/kestrel/body"
	"github.com/kestrel-http/kestrel/header"
	"github.com/kestrel-http/kestrel/kerr"
	"github.com/kestrel-http/kestrel/router"
)

// sessionStage enumerates a connection's lifecycle. Transitions are
// one-way except Http -> Http (the keep-alive loop happens inside
// httpLoop itself, not as a state re-entry).
type sessionStage int

const (
	stageDetectTLS sessionStage = iota
	stageHandshakeTLS
	stageHTTP
	stageProxy
	stageWebSocket
	stageClosed
)

// Session owns one accepted connection end to end. Ownership remains
// with the goroutine the accept loop spawned for it; Server only keeps
// a weak-in-spirit registry (a plain map guarded by Server.mu) to call
// abort() on shutdown.
type Session struct {
	srv *Server

	conn net.Conn
	br   *bufio.Reader

	id         string
	logger     *Logger
	localAddr  net.Addr
	remoteAddr net.Addr

	abortOnce sync.Once
}

func newSession(conn net.Conn, srv *Server) *Session {
	id := srv.nextID()
	return &Session{
		srv:        srv,
		conn:       conn,
		br:         bufio.NewReader(conn),
		id:         id,
		logger:     sessionLogger(srv.logger, id, conn.RemoteAddr().String()),
		localAddr:  conn.LocalAddr(),
		remoteAddr: conn.RemoteAddr(),
	}
}

// run drives the session through its stages until one yields
// stageClosed, then releases the socket. Safe to have abort() called
// concurrently from any goroutine at any point.
func (sess *Session) run() {
	defer sess.conn.Close()
	stage := stageDetectTLS
	for stage != stageClosed {
		switch stage {
		case stageDetectTLS:
			stage = sess.detectTLS()
		case stageHandshakeTLS:
			stage = sess.handshakeTLS()
		case stageHTTP:
			stage = sess.httpLoop()
		default:
			stage = stageClosed
		}
	}
}

// abort is idempotent and safe from any goroutine; closing the socket
// unblocks whatever read/write the session goroutine is currently
// inside.
func (sess *Session) abort() {
	sess.abortOnce.Do(func() {
		sess.conn.Close()
	})
}

// httpLoop implements the HTTP stage: read request, dispatch to
// Upgrade/CONNECT/routing, write response, and repeat while keep-alive
// holds. It returns the next stage (stageProxy/stageWebSocket are
// fully handled inline and always yield stageClosed themselves, since
// both tunnels and WebSocket connections own the socket for the rest
// of its life).
func (sess *Session) httpLoop() sessionStage {
	for {
		sess.conn.SetReadDeadline(time.Now().Add(sess.srv.readTimeoutOrDefault()))
		method, target, version, err := readRequestLine(sess.br)
		sess.conn.SetReadDeadline(time.Time{})
		if err != nil {
			// EOF (or a reset) between keep-alive requests is a normal
			// close, not a parse failure worth logging loudly.
			return stageClosed
		}

		hdr, err := readHeaders(sess.br, sess.srv.maxHeaderBytes)
		if err != nil {
			sess.logger.Debug("header read failed", zap.Error(err))
			return stageClosed
		}
		if hdr.Get("Host") == "" {
			sess.writeRawStatusLine(400, "Bad Request")
			return stageClosed
		}

		decodedPath, rawQuery, err := splitTarget(target)
		if err != nil {
			sess.writeRawStatusLine(400, "Bad Request")
			return stageClosed
		}

		if isUpgradeRequest(hdr) {
			return sess.enterWebSocket(method, target, decodedPath, rawQuery, version, hdr)
		}
		if method == http.MethodConnect {
			return sess.enterProxy(target, hdr)
		}

		keepAliveWanted := wantsKeepAlive(hdr, version)
		keepAlive, err := sess.serveOneRequest(method, target, decodedPath, rawQuery, version, hdr, keepAliveWanted)
		if err != nil {
			sess.logger.Debug("request handling failed", zap.Error(err))
			return stageClosed
		}
		if !keepAlive {
			return stageClosed
		}
	}
}

// serveOneRequest reads (or skips) the body, routes, invokes the
// handler, finalizes the response, and writes it, returning whether
// the connection should stay open for another request.
func (sess *Session) serveOneRequest(method, target, decodedPath, rawQuery, version string, hdr *header.Header, keepAliveWanted bool) (bool, error) {
	query, _ := body.ParseQuery(rawQuery)
	req := &Request{
		Method:     method,
		Target:     target,
		Path:       decodedPath,
		RawQuery:   rawQuery,
		Query:      query,
		Version:    version,
		Header:     hdr,
		LocalAddr:  sess.localAddr,
		RemoteAddr: sess.remoteAddr,
		PathParams: make(map[string]string),
		ID:         sess.id,
	}

	var mount *router.MountMatch
	if method == http.MethodGet || method == http.MethodHead {
		if mm, ok, err := sess.srv.router.MatchMount(decodedPath); err == nil && ok {
			mount = mm
		}
	}

	if mount != nil {
		req.Body = body.NewEmpty()
	} else {
		if wantsContinue(hdr) {
			sess.conn.SetWriteDeadline(time.Now().Add(sess.srv.writeTimeoutOrDefault()))
			_, werr := fmt.Fprint(sess.conn, "HTTP/1.1 100 Continue\r\n\r\n")
			sess.conn.SetWriteDeadline(time.Time{})
			if werr != nil {
				return false, kerr.New(kerr.Timeout, "session.continue", werr)
			}
		}

		length, hasLength, chunked, err := contentLengthAndEncoding(hdr)
		if err != nil {
			return false, err
		}

		sess.conn.SetReadDeadline(time.Now().Add(sess.srv.readTimeoutOrDefault()))
		b, err := sess.readBody(hdr, length, hasLength, chunked)
		sess.conn.SetReadDeadline(time.Time{})
		if err != nil {
			return false, err
		}
		req.Body = b
	}

	resp := NewResponse()
	resp.KeepAlive = keepAliveWanted

	if mount != nil {
		sess.serveMount(mount, req, resp)
	} else {
		sess.routeAndInvoke(req, resp)
	}

	if err := sess.writeResponse(req, resp); err != nil {
		return false, err
	}
	return resp.KeepAlive && keepAliveWanted, nil
}

func wantsContinue(hdr *header.Header) bool {
	for _, v := range hdr.Values("Expect") {
		if strings.EqualFold(strings.TrimSpace(v), "100-continue") {
			return true
		}
	}
	return false
}

// routeAndInvoke resolves the request against the trie and runs the
// matched handler, the router's not-found handler, or a core-generated
// 404/405 page.
func (sess *Session) routeAndInvoke(req *Request, resp *Response) {
	match := sess.srv.router.Match(req.Method, req.Path)
	switch match.Status {
	case http.StatusOK:
		req.PathParams = match.Params
		if h, ok := match.Handler.(Handler); ok {
			sess.invokeHandler(h, req, resp)
			return
		}
		sess.writeErrorResponse(resp, http.StatusInternalServerError)
	case http.StatusMethodNotAllowed:
		resp.Header.Set("Allow", strings.Join(match.Allow, ", "))
		sess.writeErrorResponse(resp, http.StatusMethodNotAllowed)
	default:
		if nf := sess.srv.router.NotFound(); nf != nil {
			if h, ok := nf.(Handler); ok {
				sess.invokeHandler(h, req, resp)
				return
			}
		}
		sess.writeErrorResponse(resp, http.StatusNotFound)
	}
}

// invokeHandler runs h, trapping a panic at this one boundary and
// converting it to a 500 with a text body containing the error
// message.
func (sess *Session) invokeHandler(h Handler, req *Request, resp *Response) {
	defer func() {
		if r := recover(); r != nil {
			msg := "unknown exception"
			switch v := r.(type) {
			case error:
				msg = v.Error()
			case string:
				msg = v
			}
			sess.logger.Warn("handler panic", zap.String("path", req.Path), zap.Any("recovered", r))
			resp.KeepAlive = false
			resp.Header = header.New()
			resp.SetStringContent([]byte(msg), "text/plain; charset=utf-8", http.StatusInternalServerError)
		}
	}()
	h(req, resp)
}

// writeErrorResponse builds the minimal HTML error page for a 4xx/5xx
// response the core itself generates, preserving any headers the
// caller already set (e.g. Allow for 405).
func (sess *Session) writeErrorResponse(resp *Response, status int) {
	resp.SetStringContent(renderErrorPage(status, http.StatusText(status), sess.srv.name), "text/html; charset=utf-8", status)
}
