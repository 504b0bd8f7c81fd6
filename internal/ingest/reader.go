package ingest

// reader.go prepares raw file bytes for text parsers.
//
// Exports from spreadsheet tools carry a few recurring problems that would
// otherwise surface as parse errors or garbled headers:
//
//   - a UTF-8 byte order mark in front of the first header cell
//   - invalid UTF-8 from Latin-1 exports, replaced with U+FFFD
//   - files larger than the configured limit, rejected with ErrFileTooLarge

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// limitReader fails with ErrFileTooLarge once more than limit bytes are read.
// A limit <= 0 disables the check.
type limitReader struct {
	r     io.Reader
	limit int64
	read  int64
}

func newLimitReader(r io.Reader, limit int64) *limitReader {
	return &limitReader{r: r, limit: limit}
}

func (l *limitReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.limit > 0 && l.read > l.limit {
		return n, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, l.limit)
	}
	return n, err
}

// sanitizer replaces invalid UTF-8 sequences with U+FFFD. Sequences split
// across reads of the underlying reader are decoded whole.
type sanitizer struct {
	br      *bufio.Reader
	pending []byte
}

// newTextReader skips a leading BOM and sanitizes the rest of r.
func newTextReader(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(bom)); err == nil && bytes.Equal(head, bom) {
		_, _ = br.Discard(len(bom))
	}
	return &sanitizer{br: br}
}

func (s *sanitizer) Read(p []byte) (int, error) {
	n := copy(p, s.pending)
	s.pending = s.pending[n:]

	var buf [utf8.UTFMax]byte
	for n < len(p) {
		r, _, err := s.br.ReadRune()
		if err != nil {
			if err == io.EOF && n > 0 {
				return n, nil
			}
			return n, err
		}
		// ReadRune reports invalid input as (RuneError, 1)
		w := utf8.EncodeRune(buf[:], r)
		c := copy(p[n:], buf[:w])
		n += c
		if c < w {
			s.pending = append(s.pending[:0], buf[c:w]...)
			break
		}
	}
	return n, nil
}

// sanitizeText returns data without a BOM and with invalid UTF-8 replaced.
func sanitizeText(data []byte) []byte {
	data = bytes.TrimPrefix(data, bom)
	if utf8.Valid(data) {
		return data
	}
	return bytes.ToValidUTF8(data, []byte("�"))
}
