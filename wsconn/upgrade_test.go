package wsconn

import (
	"testing"

	"github.com/kestrel-http/kestrel/header"
)

func TestAcceptKeyRFC6455Vector(t *testing.T) {
	// The worked example from RFC 6455 section 1.3.
	got := AcceptKey("dGhlIHNhbXBsZSBub25jZQ==")
	want := "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="
	if got != want {
		t.Fatalf("AcceptKey() = %q, want %q", got, want)
	}
}

func validHandshakeHeaders() *header.Header {
	h := header.New()
	h.Set("Connection", "Upgrade")
	h.Set("Upgrade", "websocket")
	h.Set("Sec-WebSocket-Version", "13")
	h.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	return h
}

func TestValidateHandshakeAccepts(t *testing.T) {
	key, err := ValidateHandshake(validHandshakeHeaders())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "dGhlIHNhbXBsZSBub25jZQ==" {
		t.Fatalf("want the client key returned, got %q", key)
	}
}

func TestValidateHandshakeRejectsMissingUpgrade(t *testing.T) {
	h := validHandshakeHeaders()
	h.Set("Upgrade", "h2c")
	if _, err := ValidateHandshake(h); err == nil {
		t.Fatal("want an error when Upgrade isn't websocket")
	}
}

func TestValidateHandshakeRejectsBadVersion(t *testing.T) {
	h := validHandshakeHeaders()
	h.Set("Sec-WebSocket-Version", "8")
	if _, err := ValidateHandshake(h); err == nil {
		t.Fatal("want an error for an unsupported Sec-WebSocket-Version")
	}
}

func TestValidateHandshakeRejectsMissingKey(t *testing.T) {
	h := validHandshakeHeaders()
	h.Del("Sec-WebSocket-Key")
	if _, err := ValidateHandshake(h); err == nil {
		t.Fatal("want an error when Sec-WebSocket-Key is absent")
	}
}

func TestValidateHandshakeRejectsMissingConnectionUpgrade(t *testing.T) {
	h := validHandshakeHeaders()
	h.Set("Connection", "keep-alive")
	if _, err := ValidateHandshake(h); err == nil {
		t.Fatal("want an error when Connection doesn't name Upgrade")
	}
}
