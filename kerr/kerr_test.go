package kerr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIsMatchesKind(t *testing.T) {
	err := New(Timeout, "session.read", fmt.Errorf("deadline exceeded"))
	if !Is(err, Timeout) {
		t.Fatal("Is should match the wrapped kind")
	}
	if Is(err, ParseError) {
		t.Fatal("Is should not match a different kind")
	}
}

func TestIsMatchesThroughWrapping(t *testing.T) {
	inner := New(BadField, "body/formdata.init", nil)
	wrapped := fmt.Errorf("reading body: %w", inner)
	if !Is(wrapped, BadField) {
		t.Fatal("Is should see through fmt.Errorf %w wrapping via errors.As")
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := New(ParseError, "op", cause)
	if !errors.Is(err, cause) {
		t.Fatal("errors.Is should find the wrapped cause via Unwrap")
	}
}

func TestErrorStringIncludesOpAndKind(t *testing.T) {
	err := New(ShortRead, "body/file.get", errors.New("disk error"))
	msg := err.Error()
	if msg == "" {
		t.Fatal("Error() should not be empty")
	}
	if !strings.Contains(msg, "body/file.get") || !strings.Contains(msg, "short_read") {
		t.Fatalf("Error() = %q, want it to include the op and the kind", msg)
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		ParseError:            "parse_error",
		Timeout:               "timeout",
		BadField:              "bad_field",
		BufferOverflow:        "buffer_overflow",
		ShortRead:             "short_read",
		RangeNotSatisfiable:   "range_not_satisfiable",
		HandlerException:      "handler_exception",
		UpstreamConnectFailed: "upstream_connect_failed",
		TLSHandshakeFailed:    "tls_handshake_failed",
		NeedMoreData:          "need_more_data",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
