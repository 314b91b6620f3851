package body

import (
	"fmt"
	"strconv"

	"github.com/kestrel-http/kestrel/header"
	"github.com/kestrel-http/kestrel/kerr"
)

const fileScratchSize = 4096

type filePhase int

const (
	phasePartHeader filePhase = iota // multipart only: emit "--boundary\r\n...\r\n\r\n"
	phaseContent
	phasePartTrailer // multipart only: trailing "\r\n" after a part's content
	phaseTerminator  // multipart only: final "--boundary--\r\n"
	phaseDone
)

// FileWriter streams a file body: the whole file, a single byte range
// (206 Partial Content), or multiple ranges (206 multipart/byteranges).
// A small fixed scratch buffer is reused across Get() calls instead of
// allocating per chunk.
type FileWriter struct {
	Data *FileData

	scratch    [fileScratchSize]byte
	rangeIdx   int
	remaining  int64 // bytes left to read in the current range
	phase      filePhase
	seekedOnce bool
}

func NewFileWriter(data *FileData) *FileWriter {
	return &FileWriter{Data: data}
}

func (w *FileWriter) Init(h *header.Header) error {
	h.Set("Accept-Ranges", "bytes")
	switch len(w.Data.Ranges) {
	case 0:
		h.Set("Content-Type", w.Data.MimeType)
		h.Set("Content-Length", strconv.FormatInt(w.Data.Size, 10))
	case 1:
		r := w.Data.Ranges[0]
		h.Set("Content-Type", w.Data.MimeType)
		h.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, w.Data.Size))
		h.Set("Content-Length", strconv.FormatInt(r.Len(), 10))
	default:
		if w.Data.Boundary == "" {
			w.Data.Boundary = NewBoundary()
		}
		h.Set("Content-Type", "multipart/byteranges; boundary="+w.Data.Boundary)
		h.Del("Content-Length")
	}
	return nil
}

func (w *FileWriter) Get() ([]byte, bool, error) {
	switch len(w.Data.Ranges) {
	case 0:
		return w.getWholeFile()
	case 1:
		return w.getSingleRange()
	default:
		return w.getMultiRange()
	}
}

func (w *FileWriter) getWholeFile() ([]byte, bool, error) {
	if !w.seekedOnce {
		if _, err := w.Data.File.Seek(0, 0); err != nil {
			return nil, false, kerr.New(kerr.ShortRead, "body/file.get", err)
		}
		w.seekedOnce = true
	}
	n, err := w.Data.File.Read(w.scratch[:])
	if n > 0 {
		return append([]byte(nil), w.scratch[:n]...), true, nil
	}
	if err != nil {
		return nil, false, nil
	}
	return nil, false, nil
}

func (w *FileWriter) getSingleRange() ([]byte, bool, error) {
	r := w.Data.Ranges[0]
	if !w.seekedOnce {
		if _, err := w.Data.File.Seek(r.Start, 0); err != nil {
			return nil, false, kerr.New(kerr.ShortRead, "body/file.get", err)
		}
		w.remaining = r.Len()
		w.seekedOnce = true
	}
	if w.remaining <= 0 {
		return nil, false, nil
	}
	return w.readChunk()
}

// readChunk reads up to the smaller of scratch size and w.remaining
// bytes, decrementing w.remaining, and reports a short_read error if
// the file ends before the declared range is satisfied.
func (w *FileWriter) readChunk() ([]byte, bool, error) {
	want := int64(len(w.scratch))
	if w.remaining < want {
		want = w.remaining
	}
	n, err := w.Data.File.Read(w.scratch[:want])
	if n > 0 {
		w.remaining -= int64(n)
		return append([]byte(nil), w.scratch[:n]...), w.remaining > 0, nil
	}
	if err != nil && w.remaining > 0 {
		return nil, false, kerr.New(kerr.ShortRead, "body/file.get", err)
	}
	return nil, false, nil
}

func (w *FileWriter) getMultiRange() ([]byte, bool, error) {
	for {
		switch w.phase {
		case phasePartHeader:
			if w.rangeIdx >= len(w.Data.Ranges) {
				w.phase = phaseTerminator
				continue
			}
			r := w.Data.Ranges[w.rangeIdx]
			part := fmt.Sprintf("--%s\r\nContent-Type: %s\r\nContent-Range: bytes %d-%d/%d\r\n\r\n",
				w.Data.Boundary, w.Data.MimeType, r.Start, r.End, w.Data.Size)
			if _, err := w.Data.File.Seek(r.Start, 0); err != nil {
				return nil, false, kerr.New(kerr.ShortRead, "body/file.get", err)
			}
			w.remaining = r.Len()
			w.phase = phaseContent
			return []byte(part), true, nil

		case phaseContent:
			if w.remaining <= 0 {
				w.phase = phasePartTrailer
				continue
			}
			chunk, _, err := w.readChunk()
			if err != nil {
				return nil, false, err
			}
			// the trailer and possibly another part still follow
			return chunk, true, nil

		case phasePartTrailer:
			w.rangeIdx++
			w.phase = phasePartHeader
			return []byte("\r\n"), true, nil

		case phaseTerminator:
			w.phase = phaseDone
			return []byte("--" + w.Data.Boundary + "--\r\n"), false, nil

		case phaseDone:
			return nil, false, nil
		}
	}
}

func (w *FileWriter) Size() (int64, bool) {
	switch len(w.Data.Ranges) {
	case 0:
		return w.Data.Size, true
	case 1:
		return w.Data.Ranges[0].Len(), true
	default:
		return 0, false
	}
}
