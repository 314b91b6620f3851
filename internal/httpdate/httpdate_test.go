package httpdate

import (
	"testing"
	"time"
)

func TestFormat(t *testing.T) {
	tm := time.Date(1994, time.November, 6, 8, 49, 37, 0, time.UTC)
	if got, want := Format(tm), "Sun, 06 Nov 1994 08:49:37 GMT"; got != want {
		t.Fatalf("Format() = %q, want %q", got, want)
	}
}

func TestParseIMFFixdate(t *testing.T) {
	got, err := Parse("Sun, 06 Nov 1994 08:49:37 GMT")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(1994, time.November, 6, 8, 49, 37, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Parse() = %v, want %v", got, want)
	}
}

func TestParseObsoleteFormats(t *testing.T) {
	want := time.Date(1994, time.November, 6, 8, 49, 37, 0, time.UTC)
	cases := []string{
		"Sunday, 06-Nov-94 08:49:37 GMT",
		"Sun Nov  6 08:49:37 1994",
	}
	for _, c := range cases {
		got, err := Parse(c)
		if err != nil {
			t.Errorf("Parse(%q) error: %v", c, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("Parse(%q) = %v, want %v", c, got, want)
		}
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse("not a date"); err == nil {
		t.Fatal("want an error for unparseable input")
	}
}

func TestFormatEncodeDecodeRoundTrip(t *testing.T) {
	tm := time.Now().UTC().Truncate(time.Second)
	got, err := Parse(Format(tm))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(tm) {
		t.Fatalf("round trip mismatch: %v != %v", got, tm)
	}
}
