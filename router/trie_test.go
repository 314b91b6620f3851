package router

import (
	"sort"
	"testing"
)

func mustOn(t *testing.T, r *Router, method, path string, h Handler) {
	t.Helper()
	if err := r.On(method, path, h); err != nil {
		t.Fatalf("On(%s, %s) failed: %v", method, path, err)
	}
}

func TestMatchStaticBeatsParam(t *testing.T) {
	r := New()
	mustOn(t, r, "GET", "/user/me", "static")
	mustOn(t, r, "GET", "/user/:id", "param")

	m := r.Match("GET", "/user/me")
	if m.Status != 200 || m.Handler != "static" {
		t.Fatalf("want static handler, got %+v", m)
	}

	m = r.Match("GET", "/user/42")
	if m.Status != 200 || m.Handler != "param" || m.Params["id"] != "42" {
		t.Fatalf("want param handler with id=42, got %+v", m)
	}
}

func TestMatchRegexBeatsParam(t *testing.T) {
	r := New()
	mustOn(t, r, "GET", "/item/{id:[0-9]+}", "regex")
	mustOn(t, r, "GET", "/item/:slug", "param")

	m := r.Match("GET", "/item/123")
	if m.Status != 200 || m.Handler != "regex" || m.Params["id"] != "123" {
		t.Fatalf("want regex handler, got %+v", m)
	}

	m = r.Match("GET", "/item/abc")
	if m.Status != 200 || m.Handler != "param" || m.Params["slug"] != "abc" {
		t.Fatalf("want param handler falling back from the regex miss, got %+v", m)
	}
}

func TestMatchWildcardBacktracks(t *testing.T) {
	r := New()
	mustOn(t, r, "GET", "/files/*", "wildcard")
	mustOn(t, r, "GET", "/files/special/exact", "static")

	m := r.Match("GET", "/files/special/exact")
	if m.Status != 200 || m.Handler != "static" {
		t.Fatalf("static sibling should win over wildcard, got %+v", m)
	}

	m = r.Match("GET", "/files/a/b/c")
	if m.Status != 200 || m.Handler != "wildcard" || m.Params["*"] != "a/b/c" {
		t.Fatalf("wildcard should capture the full tail, got %+v", m)
	}
}

func TestMatchWildcardBacktracksPastDeadEnd(t *testing.T) {
	// The wildcard child only has a handler reachable via an extra
	// static segment after the captured tail. The wildcard tries tails
	// of growing length: "a" dead-ends (no "b" under it), so it moves on
	// to "a/b", which lets "/tail" resolve underneath it.
	r := New()
	mustOn(t, r, "GET", "/files/*/tail", "deep")

	m := r.Match("GET", "/files/a/b/tail")
	if m.Status != 200 || m.Handler != "deep" || m.Params["*"] != "a/b" {
		t.Fatalf("want backtracked wildcard match, got %+v", m)
	}
}

func TestMatchTrailingSlashIsSignificant(t *testing.T) {
	r := New()
	mustOn(t, r, "GET", "/a/", "withslash")

	if m := r.Match("GET", "/a/"); m.Status != 200 {
		t.Fatalf("expected match for /a/, got %+v", m)
	}
	if m := r.Match("GET", "/a"); m.Status == 200 {
		t.Fatalf("/a should not match a route registered as /a/, got %+v", m)
	}
}

func TestMatchMethodNotAllowed(t *testing.T) {
	r := New()
	mustOn(t, r, "POST", "/x", "create")

	m := r.Match("GET", "/x")
	if m.Status != 405 {
		t.Fatalf("want 405, got %+v", m)
	}
	sort.Strings(m.Allow)
	if len(m.Allow) != 1 || m.Allow[0] != "POST" {
		t.Fatalf("want Allow: [POST], got %v", m.Allow)
	}
}

func TestMatchNotFound(t *testing.T) {
	r := New()
	mustOn(t, r, "GET", "/known", "h")

	if m := r.Match("GET", "/unknown"); m.Status != 404 {
		t.Fatalf("want 404, got %+v", m)
	}
}

func TestOnAnySharesOneNode(t *testing.T) {
	r := New()
	if err := r.OnAny([]string{"GET", "POST"}, "/both", "h"); err != nil {
		t.Fatalf("OnAny failed: %v", err)
	}
	if m := r.Match("GET", "/both"); m.Status != 200 {
		t.Fatalf("GET should match, got %+v", m)
	}
	if m := r.Match("POST", "/both"); m.Status != 200 {
		t.Fatalf("POST should match, got %+v", m)
	}
	if m := r.Match("DELETE", "/both"); m.Status != 405 {
		t.Fatalf("DELETE should be 405, got %+v", m)
	}
}

func TestDuplicateRegistrationIsAnError(t *testing.T) {
	r := New()
	mustOn(t, r, "GET", "/dup", "first")
	if err := r.On("GET", "/dup", "second"); err == nil {
		t.Fatal("expected an error registering the same method twice on one path")
	}
}

func TestWebSocketRegistrationReusesTrie(t *testing.T) {
	r := New()
	mustOn(t, r, "GET", "/ws/room/:id", "httpHandler")
	if err := r.OnWebSocket("/ws/room/:id", WSHandlers{Message: "onmsg"}); err != nil {
		t.Fatalf("OnWebSocket failed: %v", err)
	}

	m := r.Match("GET", "/ws/room/7")
	if m.Status != 200 || m.Handler != "httpHandler" {
		t.Fatalf("plain GET should still resolve the HTTP handler, got %+v", m)
	}

	ws, params, ok := r.MatchWebSocket("/ws/room/7")
	if !ok || ws.Message != "onmsg" || params["id"] != "7" {
		t.Fatalf("want websocket match with id=7, got ws=%+v ok=%v params=%v", ws, ok, params)
	}
}

func TestNotFoundHandler(t *testing.T) {
	r := New()
	r.SetNotFound("custom404")
	if r.NotFound() != "custom404" {
		t.Fatalf("NotFound() = %v, want custom404", r.NotFound())
	}
}
