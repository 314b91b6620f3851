package body

import "testing"

func TestParseRangeWholeFile(t *testing.T) {
	for _, header := range []string{"", "bytes=-"} {
		ranges, err := ParseRange(header, 100)
		if err != nil {
			t.Fatalf("ParseRange(%q) error: %v", header, err)
		}
		if header == "" && ranges != nil {
			t.Fatalf("empty header should mean whole file (nil ranges), got %v", ranges)
		}
	}
}

func TestParseRangeSingleByte(t *testing.T) {
	ranges, err := ParseRange("bytes=0-0", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranges) != 1 || ranges[0] != (Range{Start: 0, End: 0}) {
		t.Fatalf("want a single [0,0] range, got %v", ranges)
	}
}

func TestParseRangeOpenEnded(t *testing.T) {
	ranges, err := ParseRange("bytes=2-", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranges) != 1 || ranges[0] != (Range{Start: 2, End: 9}) {
		t.Fatalf("want [2,9], got %v", ranges)
	}
}

func TestParseRangeSuffix(t *testing.T) {
	ranges, err := ParseRange("bytes=-5", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranges) != 1 || ranges[0] != (Range{Start: 5, End: 9}) {
		t.Fatalf("want [5,9], got %v", ranges)
	}
}

func TestParseRangeEndClamped(t *testing.T) {
	ranges, err := ParseRange("bytes=0-1000", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranges) != 1 || ranges[0] != (Range{Start: 0, End: 9}) {
		t.Fatalf("end should clamp to size-1, got %v", ranges)
	}
}

func TestParseRangeMultiple(t *testing.T) {
	ranges, err := ParseRange("bytes=0-1,4-5", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Range{{0, 1}, {4, 5}}
	if len(ranges) != len(want) || ranges[0] != want[0] || ranges[1] != want[1] {
		t.Fatalf("want %v, got %v", want, ranges)
	}
}

func TestParseRangeInvalid(t *testing.T) {
	cases := []string{
		"bytes=--5",
		"bytes=10-5",
		"bytes=100-200", // start >= size
	}
	for _, c := range cases {
		if _, err := ParseRange(c, 10); err == nil {
			t.Errorf("ParseRange(%q) should be invalid", c)
		}
	}
}

func TestParseRangeNotBytesUnit(t *testing.T) {
	ranges, err := ParseRange("items=0-1", 10)
	if err != nil {
		t.Fatalf("unrecognized unit should fall back to whole file, got error: %v", err)
	}
	if ranges != nil {
		t.Fatalf("want nil (whole file), got %v", ranges)
	}
}
