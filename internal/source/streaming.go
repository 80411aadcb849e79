package source

// streaming.go provides the reader chain every fetched body goes through
// before CSV parsing:
//
//   - cappedReader: fails with ErrBodyTooLarge past the byte limit
//   - skipBOM: drops a leading UTF-8 BOM (0xEF 0xBB 0xBF)
//   - utf8Sanitizer: replaces invalid UTF-8 bytes with '?'
//
// The chain works in constant memory regardless of body size.

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"unicode/utf8"
)

// ErrBodyTooLarge is returned when a body exceeds the configured limit.
var ErrBodyTooLarge = errors.New("body too large")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// cappedReader counts bytes read and fails once more than max were seen.
// A non-positive max disables the cap.
type cappedReader struct {
	r    io.Reader
	max  int64
	read int64
}

func newCappedReader(r io.Reader, max int64) *cappedReader {
	return &cappedReader{r: r, max: max}
}

func (c *cappedReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += int64(n)
	if c.max > 0 && c.read > c.max {
		return 0, ErrBodyTooLarge
	}
	return n, err
}

// BytesRead returns the number of bytes consumed so far.
func (c *cappedReader) BytesRead() int64 {
	return c.read
}

// skipBOM returns a reader positioned after a leading UTF-8 BOM, if any.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

const sanitizerBufSize = 32 * 1024

// utf8Sanitizer replaces invalid UTF-8 bytes with '?'. A multi-byte sequence
// split across two underlying reads is carried over and decoded whole.
type utf8Sanitizer struct {
	r     io.Reader
	raw   []byte
	clean []byte
	out   []byte // Unread part of clean
	carry int    // Bytes at the start of raw left from the previous read
	err   error
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{
		r:     r,
		raw:   make([]byte, sanitizerBufSize),
		clean: make([]byte, sanitizerBufSize),
	}
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	for len(s.out) == 0 {
		if s.err != nil {
			return 0, s.err
		}

		n, err := s.r.Read(s.raw[s.carry:])
		n += s.carry
		s.err = err

		used, written := sanitizeInto(s.clean, s.raw[:n], err != nil)
		s.carry = copy(s.raw, s.raw[used:n])
		s.out = s.clean[:written]
	}

	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

// sanitizeInto copies src to dst, replacing invalid bytes with '?'. Unless
// final is set, an incomplete sequence at the end of src is left unconsumed.
// dst must be at least as long as src.
func sanitizeInto(dst, src []byte, final bool) (used, written int) {
	for used < len(src) {
		b := src[used]
		if b < utf8.RuneSelf {
			dst[written] = b
			written++
			used++
			continue
		}

		if !final && !utf8.FullRune(src[used:]) {
			return used, written
		}

		r, size := utf8.DecodeRune(src[used:])
		if r == utf8.RuneError && size == 1 {
			dst[written] = '?'
			written++
			used++
			continue
		}

		written += copy(dst[written:], src[used:used+size])
		used += size
	}
	return used, written
}

// normalize wraps r with BOM removal and UTF-8 sanitization.
func normalize(r io.Reader) io.Reader {
	return newUTF8Sanitizer(skipBOM(r))
}
