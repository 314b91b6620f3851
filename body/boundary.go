package body

import (
	"crypto/rand"
	"fmt"
	"time"
)

// NewBoundary generates a fresh multipart boundary string in the form
// "----------------<unix_milliseconds><random_6_digit>", the format
// SetFormDataContent uses for generated multipart bodies.
func NewBoundary() string {
	ms := time.Now().UnixMilli()
	var b [3]byte
	_, _ = rand.Read(b[:])
	n := (int(b[0])<<16 | int(b[1])<<8 | int(b[2])) % 1000000
	if n < 0 {
		n = -n
	}
	return fmt.Sprintf("----------------%d%06d", ms, n)
}
