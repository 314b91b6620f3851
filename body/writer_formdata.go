package body

import (
	"bytes"

	"github.com/kestrel-http/kestrel/header"
)

// FormDataWriter serializes an ordered list of fields as
// multipart/form-data, emitting one chunk per field (header block plus
// content) and a final terminator chunk.
type FormDataWriter struct {
	Boundary string
	Fields   []Field

	idx  int
	done bool
}

func NewFormDataWriter(boundary string, fields []Field) *FormDataWriter {
	return &FormDataWriter{Boundary: boundary, Fields: fields}
}

func (w *FormDataWriter) Init(h *header.Header) error {
	h.Set("Content-Type", "multipart/form-data; boundary="+w.Boundary)
	return nil
}

func (w *FormDataWriter) Get() ([]byte, bool, error) {
	if w.idx >= len(w.Fields) {
		if w.done {
			return nil, false, nil
		}
		w.done = true
		return []byte("--" + w.Boundary + "--\r\n"), false, nil
	}
	f := w.Fields[w.idx]
	w.idx++

	var b bytes.Buffer
	b.WriteString("--")
	b.WriteString(w.Boundary)
	b.WriteString("\r\n")
	b.WriteString("Content-Disposition: form-data; name=\"")
	b.WriteString(f.Name)
	b.WriteByte('"')
	if f.Filename != "" {
		b.WriteString("; filename=\"")
		b.WriteString(f.Filename)
		b.WriteByte('"')
	}
	b.WriteString("\r\n")
	if f.ContentType != "" {
		b.WriteString("Content-Type: ")
		b.WriteString(f.ContentType)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	b.Write(f.Content)
	b.WriteString("\r\n")

	return b.Bytes(), true, nil // terminator chunk still to come

}
