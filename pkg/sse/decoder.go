// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package sse turns an upstream text/event-stream body into complete lines and
// JSON payloads without depending on any HTTP machinery.
package sse

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

const defaultChunkSize = 4096

// Consume appends newBytes to buffer and splits the result on '\n'. Complete
// lines are returned without their terminator; the trailing fragment that is
// not yet terminated comes back as remainder.
//
// Splitting happens on raw bytes: '\n' never appears inside a multi-byte UTF-8
// sequence, so a character cut between two reads stays whole in remainder
// until the next call completes it.
//
// buffer must be a remainder from a previous call, so it holds no '\n'; only
// newBytes is searched. Like append, Consume may reuse buffer's backing array
// for remainder, which keeps a long line arriving in small reads linear in
// cost. newBytes is never retained.
func Consume(buffer, newBytes []byte) (lines []string, remainder []byte) {
	idx := bytes.IndexByte(newBytes, '\n')
	if idx < 0 {
		return nil, append(buffer, newBytes...)
	}

	if len(buffer) == 0 {
		lines = append(lines, decodeLine(newBytes[:idx]))
	} else {
		lines = append(lines, decodeLine(append(buffer, newBytes[:idx]...)))
	}
	rest := newBytes[idx+1:]

	for {
		idx = bytes.IndexByte(rest, '\n')
		if idx < 0 {
			break
		}
		lines = append(lines, decodeLine(rest[:idx]))
		rest = rest[idx+1:]
	}

	// The first line was copied out by decodeLine, so buffer's array is free.
	return lines, append(buffer[:0], rest...)
}

// decodeLine converts a complete line to text, replacing invalid UTF-8 with
// U+FFFD.
func decodeLine(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

// Decoder reads a stream incrementally and hands out complete lines.
type Decoder struct {
	r         io.Reader
	buf       []byte
	chunk     []byte
	pending   []string
	done      bool
	bytesRead int64
}

// NewDecoder wraps r. Reads are issued in chunks of at most 4 KiB.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:     r,
		chunk: make([]byte, defaultChunkSize),
	}
}

// Next returns the next complete line. It returns io.EOF once the stream has
// ended and every terminated line was delivered; an unterminated trailing
// fragment is never returned as a line (see Remainder).
func (d *Decoder) Next() (string, error) {
	for len(d.pending) == 0 {
		if d.done {
			return "", io.EOF
		}
		n, err := d.r.Read(d.chunk)
		if n > 0 {
			d.bytesRead += int64(n)
			d.pending, d.buf = Consume(d.buf, d.chunk[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				d.done = true
				continue
			}
			return "", fmt.Errorf("read event stream: %w", err)
		}
	}

	line := d.pending[0]
	d.pending = d.pending[1:]
	return line, nil
}

// Remainder reports the bytes held back because no newline followed them yet.
func (d *Decoder) Remainder() []byte {
	return d.buf
}

// BytesRead reports how many bytes were pulled from the underlying reader.
func (d *Decoder) BytesRead() int64 {
	return d.bytesRead
}
